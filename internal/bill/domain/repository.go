package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, bill *Bill) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Bill, error)
	// FindForUpdate loads a bill under a row lock so reconciliation always
	// works against a fresh read within the surrounding transaction.
	FindForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Bill, error)
	Update(ctx context.Context, db *gorm.DB, bill *Bill) error
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status BillStatus, now time.Time) error
	SoftDelete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	// ListDueTemplates fetches recurring bill templates whose next billing
	// date has arrived, claiming the rows where the dialect supports it.
	ListDueTemplates(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]Bill, error)
	// AdvanceNextBilling conditionally advances a template's next billing
	// date; false means another run already claimed it.
	AdvanceNextBilling(ctx context.Context, db *gorm.DB, id snowflake.ID, prev time.Time, next time.Time, now time.Time) (bool, error)
	CountPayments(ctx context.Context, db *gorm.DB, billID snowflake.ID) (int64, error)
}
