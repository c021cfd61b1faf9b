package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	// ListByBill returns every payment row for a bill, including soft-deleted
	// ones. Balance derivation depends on the full history.
	ListByBill(ctx context.Context, db *gorm.DB, billID snowflake.ID) ([]Payment, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status PaymentStatus, processedBy string, now time.Time) error
	UpdateMetadata(ctx context.Context, db *gorm.DB, id snowflake.ID, metadata datatypes.JSONMap, now time.Time) error
}
