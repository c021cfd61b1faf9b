// Package domain contains persistence models and derived-balance rules for bills.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BillType classifies what a resident is being charged for.
type BillType string

const (
	BillTypeMaintenance BillType = "maintenance"
	BillTypeWater       BillType = "water"
	BillTypeElectricity BillType = "electricity"
	BillTypeGas         BillType = "gas"
	BillTypeInternet    BillType = "internet"
	BillTypeSecurity    BillType = "security"
	BillTypeCleaning    BillType = "cleaning"
	BillTypeRent        BillType = "rent"
	BillTypePropertyTax BillType = "property_tax"
	BillTypeInsurance   BillType = "insurance"
	BillTypeOther       BillType = "other"
)

// AllBillTypes lists every known bill type, in declaration order.
var AllBillTypes = []BillType{
	BillTypeMaintenance,
	BillTypeWater,
	BillTypeElectricity,
	BillTypeGas,
	BillTypeInternet,
	BillTypeSecurity,
	BillTypeCleaning,
	BillTypeRent,
	BillTypePropertyTax,
	BillTypeInsurance,
	BillTypeOther,
}

func (t BillType) Valid() bool {
	for _, known := range AllBillTypes {
		if t == known {
			return true
		}
	}
	return false
}

// BillStatus represents bill lifecycle states. Status is always derived by the
// reconciler from payment history and due date; cancelled is terminal and set
// only by an explicit administrative action.
type BillStatus string

const (
	BillStatusPending       BillStatus = "pending"
	BillStatusPartiallyPaid BillStatus = "partially_paid"
	BillStatusPaid          BillStatus = "paid"
	BillStatusOverdue       BillStatus = "overdue"
	BillStatusCancelled     BillStatus = "cancelled"
)

// Recurrence is the regeneration cadence carried by a bill template.
type Recurrence string

const (
	RecurrenceNone      Recurrence = "none"
	RecurrenceMonthly   Recurrence = "monthly"
	RecurrenceQuarterly Recurrence = "quarterly"
	RecurrenceBiannual  Recurrence = "biannual"
	RecurrenceAnnual    Recurrence = "annual"
)

func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceNone, RecurrenceMonthly, RecurrenceQuarterly, RecurrenceBiannual, RecurrenceAnnual:
		return true
	}
	return false
}

// Next adds one period to the given anchor. Month arithmetic clamps to the
// last day of the target month instead of overflowing. Unknown recurrence
// values fail closed with ErrUnknownRecurrence so a malformed template can
// never over-bill.
func (r Recurrence) Next(from time.Time) (time.Time, error) {
	switch r {
	case RecurrenceMonthly:
		return addMonths(from, 1), nil
	case RecurrenceQuarterly:
		return addMonths(from, 3), nil
	case RecurrenceBiannual:
		return addMonths(from, 6), nil
	case RecurrenceAnnual:
		return addMonths(from, 12), nil
	default:
		return time.Time{}, ErrUnknownRecurrence
	}
}

func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// Bill is a single charge owed by a resident for a property or service.
// Paid amount and remaining balance are derived, never stored.
type Bill struct {
	ID              snowflake.ID      `gorm:"primaryKey"`
	PropertyID      snowflake.ID      `gorm:"not null;index"`
	ResidentID      snowflake.ID      `gorm:"not null;index"`
	BillType        BillType          `gorm:"type:text;not null"`
	Amount          decimal.Decimal   `gorm:"type:numeric(12,2);not null"`
	Currency        string            `gorm:"type:text;not null"`
	DueDate         time.Time         `gorm:"not null;index"`
	Status          BillStatus        `gorm:"type:text;not null;default:'pending';index"`
	Recurrence      Recurrence        `gorm:"type:text;not null;default:'none'"`
	NextBillingDate *time.Time        `gorm:"index"`
	CreatedBy       string            `gorm:"type:text"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	DeletedAt       gorm.DeletedAt    `gorm:"index"`
}

// TableName sets the database table name.
func (Bill) TableName() string { return "bills" }

func (b *Bill) Terminal() bool {
	return b.Status == BillStatusPaid || b.Status == BillStatusCancelled
}
