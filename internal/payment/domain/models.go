// Package domain contains persistence models for payments and refunds.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentStatus is the canonical payment lifecycle vocabulary. Completed is
// the single "money received" state; only completed payments count toward a
// bill's paid amount.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Metadata keys linking a refund to its original payment.
const (
	MetaOriginalPaymentID = "original_payment_id"
	MetaRefundReason      = "refund_reason"
	MetaRefundedAt        = "refunded_at"
	MetaRefundPaymentID   = "refund_payment_id"
)

// Payment is a monetary transaction applied against a bill. A negative amount
// represents a refund. Rows are immutable after creation except for status and
// metadata; soft-deleted rows still count toward the bill's paid amount so the
// audit trail never silently disappears.
type Payment struct {
	ID            snowflake.ID      `gorm:"primaryKey"`
	BillID        snowflake.ID      `gorm:"not null;index"`
	ResidentID    snowflake.ID      `gorm:"not null;index"`
	Amount        decimal.Decimal   `gorm:"type:numeric(12,2);not null"`
	Currency      string            `gorm:"type:text;not null"`
	Status        PaymentStatus     `gorm:"type:text;not null;default:'pending'"`
	TransactionID string            `gorm:"type:text;not null;uniqueIndex:ux_payments_transaction"`
	PaymentDate   time.Time         `gorm:"not null"`
	ProcessedBy   string            `gorm:"type:text"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	DeletedAt     gorm.DeletedAt    `gorm:"index"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

func (p *Payment) IsRefund() bool {
	return p.Amount.IsNegative()
}

func (p *Payment) IsRefunded() bool {
	if p.Metadata == nil {
		return false
	}
	_, ok := p.Metadata[MetaRefundedAt]
	return ok
}
