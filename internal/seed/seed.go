// Package seed provisions a small demo dataset so a fresh local install has
// something to bill against.
package seed

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billdomain "github.com/smallbiznis/propera/internal/bill/domain"
	propertydomain "github.com/smallbiznis/propera/internal/property/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Fixed IDs keep the seed idempotent across restarts.
const (
	demoPropertyID  snowflake.ID = 1001
	demoOwnerID     snowflake.ID = 2001
	demoRenterID    snowflake.ID = 2002
	demoCleaningID  snowflake.ID = 3001
	demoWaterID     snowflake.ID = 3002
	demoAttachOneID snowflake.ID = 4001
	demoAttachTwoID snowflake.ID = 4002
	demoRelOwnerID  snowflake.ID = 5001
	demoRelRenterID snowflake.ID = 5002
)

// EnsureDemoData inserts the demo fixtures, skipping rows that already exist.
func EnsureDemoData(db *gorm.DB) error {
	now := time.Now().UTC()
	tenancyStart := now.AddDate(0, -3, 0)

	rows := []any{
		&propertydomain.Property{
			ID:        demoPropertyID,
			Name:      "Unit 12, Cedar Court",
			Address:   "12 Cedar Court",
			Area:      decimal.NewFromInt(85),
			Currency:  "USD",
			CreatedAt: now,
			UpdatedAt: now,
		},
		&propertydomain.Resident{
			ID:        demoOwnerID,
			Name:      "Dana Whitfield",
			Email:     "dana@example.com",
			CreatedAt: now,
			UpdatedAt: now,
		},
		&propertydomain.Resident{
			ID:        demoRenterID,
			Name:      "Miko Tanaka",
			Email:     "miko@example.com",
			CreatedAt: now,
			UpdatedAt: now,
		},
		&propertydomain.Service{
			ID:          demoCleaningID,
			Name:        "Common-area cleaning",
			BillType:    billdomain.BillTypeCleaning,
			IsRecurring: true,
			Recurrence:  billdomain.RecurrenceMonthly,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		&propertydomain.Service{
			ID:          demoWaterID,
			Name:        "Water supply",
			BillType:    billdomain.BillTypeWater,
			IsRecurring: true,
			Recurrence:  billdomain.RecurrenceMonthly,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		&propertydomain.PropertyService{
			ID:          demoAttachOneID,
			PropertyID:  demoPropertyID,
			ServiceID:   demoCleaningID,
			BillingType: propertydomain.BillingTypeFixed,
			Price:       decimal.RequireFromString("45.00"),
			Status:      propertydomain.AttachmentStatusActive,
			ActivatedAt: &now,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		&propertydomain.PropertyService{
			ID:          demoAttachTwoID,
			PropertyID:  demoPropertyID,
			ServiceID:   demoWaterID,
			BillingType: propertydomain.BillingTypeAreaBased,
			Price:       decimal.RequireFromString("30.00"),
			Status:      propertydomain.AttachmentStatusActive,
			ActivatedAt: &now,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		&propertydomain.ResidentProperty{
			ID:               demoRelOwnerID,
			PropertyID:       demoPropertyID,
			ResidentID:       demoOwnerID,
			RelationshipType: propertydomain.RelationshipBuyer,
			SalePrice:        decimal.RequireFromString("250000.00"),
			OwnershipShare:   decimal.NewFromInt(100),
			StartDate:        tenancyStart,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		&propertydomain.ResidentProperty{
			ID:               demoRelRenterID,
			PropertyID:       demoPropertyID,
			ResidentID:       demoRenterID,
			RelationshipType: propertydomain.RelationshipRenter,
			MonthlyRent:      decimal.RequireFromString("1400.00"),
			StartDate:        tenancyStart,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
	}

	for _, row := range rows {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
			return err
		}
	}
	return nil
}
