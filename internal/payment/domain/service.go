package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/propera/internal/audit/domain"
)

// ProcessPaymentRequest carries a captured payment into the engine.
type ProcessPaymentRequest struct {
	BillID        snowflake.ID
	ResidentID    snowflake.ID
	Amount        decimal.Decimal
	Currency      string
	Status        PaymentStatus
	TransactionID string
	PaymentDate   time.Time
	ProcessedBy   string
	Metadata      map[string]any
}

type Service interface {
	Process(ctx context.Context, req ProcessPaymentRequest) (*Payment, error)
	UpdateStatus(ctx context.Context, id snowflake.ID, status PaymentStatus, actor auditdomain.Actor) (*Payment, error)
	Refund(ctx context.Context, id snowflake.ID, amount decimal.Decimal, reason string, actor auditdomain.Actor) (*Payment, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Payment, error)
}
