package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	paymentdomain "github.com/smallbiznis/propera/internal/payment/domain"
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func completedPayment(amount string) paymentdomain.Payment {
	return paymentdomain.Payment{
		Amount: money(amount),
		Status: paymentdomain.PaymentStatusCompleted,
	}
}

func TestPaidAmountCountsOnlyCompleted(t *testing.T) {
	payments := []paymentdomain.Payment{
		completedPayment("100.00"),
		{Amount: money("50.00"), Status: paymentdomain.PaymentStatusPending},
		{Amount: money("25.00"), Status: paymentdomain.PaymentStatusFailed},
		completedPayment("30.00"),
	}
	assert.True(t, money("130.00").Equal(PaidAmount(payments)))
}

func TestPaidAmountIncludesSoftDeletedRows(t *testing.T) {
	deleted := completedPayment("40.00")
	deleted.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}

	payments := []paymentdomain.Payment{
		completedPayment("60.00"),
		deleted,
	}
	assert.True(t, money("100.00").Equal(PaidAmount(payments)))
}

func TestPaidAmountFloorsAtZero(t *testing.T) {
	// A refund larger than remaining receipts must not yield a negative
	// paid amount.
	payments := []paymentdomain.Payment{
		completedPayment("50.00"),
		completedPayment("-80.00"),
	}
	assert.True(t, PaidAmount(payments).IsZero())
}

func TestDeriveStatusFullPayment(t *testing.T) {
	bill := Bill{
		Amount:  money("300.00"),
		DueDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:  BillStatusPending,
	}
	payments := []paymentdomain.Payment{
		completedPayment("120.00"),
		completedPayment("180.00"),
	}
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, BillStatusPaid, bill.DeriveStatus(payments, now))
	assert.True(t, bill.RemainingBalance(payments).IsZero())
	assert.True(t, bill.IsFullyPaid(payments))
}

func TestDeriveStatusOverdueBeatsPartiallyPaid(t *testing.T) {
	bill := Bill{
		Amount:  money("300.00"),
		DueDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:  BillStatusPending,
	}
	payments := []paymentdomain.Payment{completedPayment("100.00")}
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, BillStatusOverdue, bill.DeriveStatus(payments, now))
}

func TestDeriveStatusPartiallyPaidBeforeDue(t *testing.T) {
	bill := Bill{
		Amount:  money("300.00"),
		DueDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:  BillStatusPending,
	}
	payments := []paymentdomain.Payment{completedPayment("100.00")}
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, BillStatusPartiallyPaid, bill.DeriveStatus(payments, now))
	assert.True(t, money("200.00").Equal(bill.RemainingBalance(payments)))
}

func TestDeriveStatusPendingWithNoPayments(t *testing.T) {
	bill := Bill{
		Amount:  money("300.00"),
		DueDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:  BillStatusPending,
	}
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, BillStatusPending, bill.DeriveStatus(nil, now))
}

func TestDeriveStatusCancelledIsTerminal(t *testing.T) {
	bill := Bill{
		Amount:  money("300.00"),
		DueDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:  BillStatusCancelled,
	}
	payments := []paymentdomain.Payment{completedPayment("300.00")}
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, BillStatusCancelled, bill.DeriveStatus(payments, now))
}

func TestDeriveStatusRefundReopensBill(t *testing.T) {
	bill := Bill{
		Amount:  money("300.00"),
		DueDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Status:  BillStatusPaid,
	}
	payments := []paymentdomain.Payment{
		completedPayment("300.00"),
		completedPayment("-300.00"),
	}

	before := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, BillStatusPending, bill.DeriveStatus(payments, before))

	after := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, BillStatusOverdue, bill.DeriveStatus(payments, after))
}

func TestRecurrenceNextClampsMonthEnd(t *testing.T) {
	jan31 := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	next, err := RecurrenceMonthly.Next(jan31)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), next)

	next, err = RecurrenceMonthly.Next(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), next)
}

func TestRecurrenceNextCadences(t *testing.T) {
	anchor := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		recurrence Recurrence
		want       time.Time
	}{
		{RecurrenceMonthly, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)},
		{RecurrenceQuarterly, time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)},
		{RecurrenceBiannual, time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)},
		{RecurrenceAnnual, time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		next, err := tc.recurrence.Next(anchor)
		require.NoError(t, err)
		assert.Equal(t, tc.want, next, string(tc.recurrence))
	}
}

func TestRecurrenceNextUnknownFailsClosed(t *testing.T) {
	_, err := Recurrence("weekly").Next(time.Now())
	assert.ErrorIs(t, err, ErrUnknownRecurrence)

	_, err = RecurrenceNone.Next(time.Now())
	assert.ErrorIs(t, err, ErrUnknownRecurrence)
}
