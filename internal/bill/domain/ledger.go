package domain

import (
	"time"

	"github.com/shopspring/decimal"
	paymentdomain "github.com/smallbiznis/propera/internal/payment/domain"
)

// Ledger rules: pure functions of a bill and its full payment history.
// Callers must pass freshly loaded rows; evaluating a stale in-memory bill is
// how balance bugs happen.

// PaidAmount sums completed payments, refunds included (negative amounts).
// Soft-deleted payment rows still count. The result is floored at zero so the
// derived paid amount can never go negative.
func PaidAmount(payments []paymentdomain.Payment) decimal.Decimal {
	total := decimal.Zero
	for i := range payments {
		if payments[i].Status == paymentdomain.PaymentStatusCompleted {
			total = total.Add(payments[i].Amount)
		}
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// RemainingBalance is the bill amount minus the derived paid amount.
func (b *Bill) RemainingBalance(payments []paymentdomain.Payment) decimal.Decimal {
	return b.Amount.Sub(PaidAmount(payments))
}

func (b *Bill) IsFullyPaid(payments []paymentdomain.Payment) bool {
	return b.RemainingBalance(payments).LessThanOrEqual(decimal.Zero)
}

func (b *Bill) IsOverdue(payments []paymentdomain.Payment, now time.Time) bool {
	return !b.IsFullyPaid(payments) && b.DueDate.Before(now)
}

// DeriveStatus evaluates the reconciliation state machine in strict priority
// order. Cancelled is terminal and never recomputed.
func (b *Bill) DeriveStatus(payments []paymentdomain.Payment, now time.Time) BillStatus {
	if b.Status == BillStatusCancelled {
		return BillStatusCancelled
	}
	paid := PaidAmount(payments)
	switch {
	case b.Amount.Sub(paid).LessThanOrEqual(decimal.Zero):
		return BillStatusPaid
	case b.DueDate.Before(now):
		return BillStatusOverdue
	case paid.IsPositive():
		return BillStatusPartiallyPaid
	default:
		return BillStatusPending
	}
}
