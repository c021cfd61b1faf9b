package domain

import "errors"

var (
	ErrBillNotFound      = errors.New("bill_not_found")
	ErrInvalidAmount     = errors.New("invalid_bill_amount")
	ErrInvalidCurrency   = errors.New("invalid_currency")
	ErrInvalidBillType   = errors.New("invalid_bill_type")
	ErrInvalidDueDate    = errors.New("invalid_due_date")
	ErrBillImmutable     = errors.New("bill_immutable")
	ErrBillCancelled     = errors.New("bill_cancelled")
	ErrUnknownRecurrence = errors.New("unknown_recurrence")
	ErrBillingConflict   = errors.New("billing_conflict")
)
