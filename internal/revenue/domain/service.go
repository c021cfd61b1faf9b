// Package domain defines the revenue reporting contract: recognized sales
// revenue and day-weighted prorated rental revenue per calendar month.
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyRevenue is one month of recognized revenue.
type MonthlyRevenue struct {
	Month  time.Time       `json:"month"`
	Sales  decimal.Decimal `json:"sales"`
	Rental decimal.Decimal `json:"rental"`
	Total  decimal.Decimal `json:"total"`
}

// Summary is a full-year revenue breakdown, one entry per month.
type Summary struct {
	Year   int              `json:"year"`
	Months []MonthlyRevenue `json:"months"`
}

type Service interface {
	// MonthlySummary reports recognized revenue per month of the given year.
	// Sales revenue is recognized in full in the month the relationship was
	// recorded; rental revenue is prorated by days of occupancy.
	MonthlySummary(ctx context.Context, year int) (*Summary, error)
}
