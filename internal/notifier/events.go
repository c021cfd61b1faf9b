// Package notifier delivers billing events to residents without ever blocking
// or rolling back the financial write that produced them.
package notifier

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventBillCreated     EventType = "bill.created"
	EventBillPaid        EventType = "bill.paid"
	EventBillOverdue     EventType = "bill.overdue"
	EventPaymentReceived EventType = "payment.received"
	EventPaymentRefunded EventType = "payment.refunded"
)

// Event is a typed notification aimed at a resident.
type Event struct {
	Type       EventType
	ResidentID snowflake.ID
	BillID     snowflake.ID
	PaymentID  snowflake.ID
	Amount     decimal.Decimal
	Currency   string
	OccurredAt time.Time
}

// Dispatcher accepts events fire-and-forget. Implementations must not block
// the caller and must swallow delivery failures.
type Dispatcher interface {
	Dispatch(event Event)
}
