package domain

import "errors"

var (
	ErrPaymentNotFound       = errors.New("payment_not_found")
	ErrInvalidAmount         = errors.New("invalid_payment_amount")
	ErrInvalidCurrency       = errors.New("invalid_currency")
	ErrInvalidStatus         = errors.New("invalid_payment_status")
	ErrDuplicateTransaction  = errors.New("duplicate_transaction_id")
	ErrRefundExceedsOriginal = errors.New("refund_exceeds_original")
	ErrAlreadyRefunded       = errors.New("payment_already_refunded")
	ErrNotRefundable         = errors.New("payment_not_refundable")
)
