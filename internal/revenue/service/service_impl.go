package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	propertydomain "github.com/smallbiznis/propera/internal/property/domain"
	"github.com/smallbiznis/propera/internal/revenue/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	PropertyRepo propertydomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	propertyRepo propertydomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("revenue.service"),
		propertyRepo: p.PropertyRepo,
	}
}

func (s *Service) MonthlySummary(ctx context.Context, year int) (*domain.Summary, error) {
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := yearStart.AddDate(1, 0, 0)

	relationships, err := s.propertyRepo.ListRelationshipsOverlapping(ctx, s.db, yearStart, yearEnd)
	if err != nil {
		return nil, err
	}

	summary := &domain.Summary{Year: year, Months: make([]domain.MonthlyRevenue, 12)}
	for m := 0; m < 12; m++ {
		monthStart := time.Date(year, time.Month(m+1), 1, 0, 0, 0, 0, time.UTC)
		monthEnd := monthStart.AddDate(0, 1, 0)

		sales := decimal.Zero
		rental := decimal.Zero
		for i := range relationships {
			rel := &relationships[i]
			switch rel.RelationshipType {
			case propertydomain.RelationshipBuyer, propertydomain.RelationshipCoBuyer:
				sales = sales.Add(saleRevenue(rel, monthStart, monthEnd))
			case propertydomain.RelationshipRenter:
				rental = rental.Add(proratedRent(rel, monthStart, monthEnd))
			}
		}

		summary.Months[m] = domain.MonthlyRevenue{
			Month:  monthStart,
			Sales:  sales,
			Rental: rental,
			Total:  sales.Add(rental),
		}
	}
	return summary, nil
}

// saleRevenue recognizes a purchase in full in the month the relationship was
// recorded. Co-buyers are weighted by their ownership share when one is set.
func saleRevenue(rel *propertydomain.ResidentProperty, monthStart, monthEnd time.Time) decimal.Decimal {
	recorded := rel.CreatedAt.UTC()
	if recorded.Before(monthStart) || !recorded.Before(monthEnd) {
		return decimal.Zero
	}
	if rel.OwnershipShare.IsPositive() {
		return rel.SalePrice.Mul(rel.OwnershipShare).DivRound(decimal.NewFromInt(100), 2)
	}
	return rel.SalePrice.Round(2)
}

// proratedRent returns the month's rent weighted by days of occupancy within
// the month. A tenancy covering the whole month yields the exact monthly rent
// with no rounding drift.
func proratedRent(rel *propertydomain.ResidentProperty, monthStart, monthEnd time.Time) decimal.Decimal {
	from := rel.StartDate.UTC()
	if from.Before(monthStart) {
		from = monthStart
	}
	to := monthEnd
	if rel.EndDate != nil && rel.EndDate.UTC().Before(to) {
		to = rel.EndDate.UTC()
	}
	if !to.After(from) {
		return decimal.Zero
	}

	days := daysBetween(from, to)
	daysInMonth := daysBetween(monthStart, monthEnd)
	if days >= daysInMonth {
		return rel.MonthlyRent.Round(2)
	}
	return rel.MonthlyRent.
		Mul(decimal.NewFromInt(int64(days))).
		DivRound(decimal.NewFromInt(int64(daysInMonth)), 2)
}

func daysBetween(from, to time.Time) int {
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
