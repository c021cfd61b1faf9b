package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/propera/internal/audit/domain"
)

type CreateBillRequest struct {
	PropertyID      snowflake.ID
	ResidentID      snowflake.ID
	BillType        BillType
	Amount          decimal.Decimal
	Currency        string
	DueDate         time.Time
	Recurrence      Recurrence
	NextBillingDate *time.Time
	CreatedBy       string
	Metadata        map[string]any
}

// UpdateBillRequest patches mutable billing fields. Nil means "leave as is".
type UpdateBillRequest struct {
	BillType        *BillType
	Amount          *decimal.Decimal
	Currency        *string
	DueDate         *time.Time
	Recurrence      *Recurrence
	NextBillingDate *time.Time
}

type Service interface {
	Create(ctx context.Context, req CreateBillRequest) (*Bill, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateBillRequest) (*Bill, error)
	Cancel(ctx context.Context, id snowflake.ID, actor auditdomain.Actor) error
	GetByID(ctx context.Context, id snowflake.ID) (*Bill, error)
	// Reconcile re-derives the bill's status from a fresh read of its payment
	// history. Idempotent; safe to invoke redundantly or concurrently.
	Reconcile(ctx context.Context, id snowflake.ID) (BillStatus, error)
}
