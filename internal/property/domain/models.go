// Package domain contains persistence models for properties, residents,
// services and the pivot records that drive billing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billdomain "github.com/smallbiznis/propera/internal/bill/domain"
	"gorm.io/gorm"
)

// Property is a billable unit (apartment, house, office).
type Property struct {
	ID        snowflake.ID    `gorm:"primaryKey"`
	Name      string          `gorm:"type:text;not null"`
	Address   string          `gorm:"type:text"`
	Area      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	Currency  string          `gorm:"type:text;not null;default:'USD'"`
	CreatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	DeletedAt gorm.DeletedAt  `gorm:"index"`
}

// TableName sets the database table name.
func (Property) TableName() string { return "properties" }

type Resident struct {
	ID        snowflake.ID   `gorm:"primaryKey"`
	Name      string         `gorm:"type:text;not null"`
	Email     string         `gorm:"type:text"`
	Phone     string         `gorm:"type:text"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName sets the database table name.
func (Resident) TableName() string { return "residents" }

// Service is a billable service offering (water, security, cleaning, ...).
type Service struct {
	ID          snowflake.ID          `gorm:"primaryKey"`
	Name        string                `gorm:"type:text;not null"`
	BillType    billdomain.BillType   `gorm:"type:text;not null"`
	IsRecurring bool                  `gorm:"not null;default:false"`
	Recurrence  billdomain.Recurrence `gorm:"type:text;not null;default:'none'"`
	CreatedAt   time.Time             `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time             `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Service) TableName() string { return "services" }

// BillingType decides how an attachment's price turns into a bill amount.
type BillingType string

const (
	BillingTypeFixed     BillingType = "fixed"
	BillingTypeAreaBased BillingType = "area_based"
	BillingTypePrepaid   BillingType = "prepaid"
)

// AttachmentStatus represents lifecycle states for a property-service attachment.
type AttachmentStatus string

const (
	AttachmentStatusActive         AttachmentStatus = "active"
	AttachmentStatusInactive       AttachmentStatus = "inactive"
	AttachmentStatusPendingPayment AttachmentStatus = "pending_payment"
	AttachmentStatusExpired        AttachmentStatus = "expired"
)

// PropertyService links a property to a service and carries cadence and
// pricing. LastBilledAt is the anchor for both pre-paid (bill once) and
// recurring (bill on cadence) logic; it must advance atomically with bill
// creation or concurrent runs double-bill.
type PropertyService struct {
	ID           snowflake.ID     `gorm:"primaryKey"`
	PropertyID   snowflake.ID     `gorm:"not null;index;uniqueIndex:ux_property_service"`
	ServiceID    snowflake.ID     `gorm:"not null;index;uniqueIndex:ux_property_service"`
	BillingType  BillingType      `gorm:"type:text;not null"`
	Price        decimal.Decimal  `gorm:"type:numeric(12,2);not null"`
	Status       AttachmentStatus `gorm:"type:text;not null;default:'active'"`
	ActivatedAt  *time.Time       `gorm:""`
	ExpiresAt    *time.Time       `gorm:""`
	LastBilledAt *time.Time       `gorm:""`
	CreatedAt    time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PropertyService) TableName() string { return "property_services" }

// RelationshipType tags how a resident is attached to a property.
type RelationshipType string

const (
	RelationshipBuyer   RelationshipType = "buyer"
	RelationshipCoBuyer RelationshipType = "co_buyer"
	RelationshipRenter  RelationshipType = "renter"
)

// ResidentProperty ties a resident to a property and drives both service
// eligibility and day-weighted rent proration.
type ResidentProperty struct {
	ID               snowflake.ID     `gorm:"primaryKey"`
	PropertyID       snowflake.ID     `gorm:"not null;index"`
	ResidentID       snowflake.ID     `gorm:"not null;index"`
	RelationshipType RelationshipType `gorm:"type:text;not null"`
	SalePrice        decimal.Decimal  `gorm:"type:numeric(14,2);not null;default:0"`
	OwnershipShare   decimal.Decimal  `gorm:"type:numeric(5,2);not null;default:0"`
	MonthlyRent      decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0"`
	StartDate        time.Time        `gorm:"not null"`
	EndDate          *time.Time       `gorm:""`
	CreatedAt        time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ResidentProperty) TableName() string { return "resident_properties" }
