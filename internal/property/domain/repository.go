package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindProperty(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Property, error)
	FindResident(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Resident, error)
	FindService(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Service, error)
	FindAttachment(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PropertyService, error)

	ListActiveAttachments(ctx context.Context, db *gorm.DB, propertyID snowflake.ID) ([]PropertyService, error)
	// ListPropertiesWithActiveAttachments feeds the global billing sweep.
	ListPropertiesWithActiveAttachments(ctx context.Context, db *gorm.DB, limit int) ([]snowflake.ID, error)
	ListRelationships(ctx context.Context, db *gorm.DB, propertyID snowflake.ID) ([]ResidentProperty, error)
	// ListRelationshipsOverlapping returns relationships whose active window
	// intersects [from, to); open-ended rows always match.
	ListRelationshipsOverlapping(ctx context.Context, db *gorm.DB, from, to time.Time) ([]ResidentProperty, error)

	// AdvanceLastBilled conditionally moves an attachment's billing anchor
	// from prev to next. Returns false when another run won the race.
	AdvanceLastBilled(ctx context.Context, db *gorm.DB, attachmentID snowflake.ID, prev *time.Time, next time.Time) (bool, error)
}
