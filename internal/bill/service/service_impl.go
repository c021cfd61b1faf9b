package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/propera/internal/audit/domain"
	"github.com/smallbiznis/propera/internal/bill/domain"
	"github.com/smallbiznis/propera/internal/clock"
	"github.com/smallbiznis/propera/internal/metrics"
	"github.com/smallbiznis/propera/internal/notifier"
	paymentdomain "github.com/smallbiznis/propera/internal/payment/domain"
	propertydomain "github.com/smallbiznis/propera/internal/property/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	PaymentRepo paymentdomain.Repository
	Lookups     propertydomain.LookupService
	AuditSvc    auditdomain.Service
	Notifier    notifier.Dispatcher
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	paymentRepo paymentdomain.Repository
	lookups     propertydomain.LookupService
	auditSvc    auditdomain.Service
	notifier    notifier.Dispatcher
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("bill.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		paymentRepo: p.PaymentRepo,
		lookups:     p.Lookups,
		auditSvc:    p.AuditSvc,
		notifier:    p.Notifier,
		metrics:     p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateBillRequest) (*domain.Bill, error) {
	if err := validateCreate(&req); err != nil {
		return nil, err
	}
	if _, err := s.lookups.GetProperty(ctx, req.PropertyID); err != nil {
		return nil, err
	}
	if _, err := s.lookups.GetResident(ctx, req.ResidentID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	bill := &domain.Bill{
		ID:              s.genID.Generate(),
		PropertyID:      req.PropertyID,
		ResidentID:      req.ResidentID,
		BillType:        req.BillType,
		Amount:          req.Amount.Round(2),
		Currency:        req.Currency,
		DueDate:         req.DueDate,
		Status:          domain.BillStatusPending,
		Recurrence:      req.Recurrence,
		NextBillingDate: req.NextBillingDate,
		CreatedBy:       req.CreatedBy,
		Metadata:        datatypes.JSONMap(req.Metadata),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if bill.Recurrence != domain.RecurrenceNone && bill.NextBillingDate == nil {
		next, err := bill.Recurrence.Next(bill.DueDate)
		if err != nil {
			return nil, err
		}
		bill.NextBillingDate = &next
	}

	if err := s.repo.Insert(ctx, s.db, bill); err != nil {
		return nil, err
	}

	s.auditSvc.AuditLog(ctx, auditdomain.Actor{Type: auditdomain.ActorTypeAdmin, ID: req.CreatedBy}, "bill.created", "bill", bill.ID.String(), map[string]any{
		"property_id": bill.PropertyID.String(),
		"resident_id": bill.ResidentID.String(),
		"bill_type":   string(bill.BillType),
		"amount":      bill.Amount.StringFixed(2),
		"currency":    bill.Currency,
	})
	s.notifier.Dispatch(notifier.Event{
		Type:       notifier.EventBillCreated,
		ResidentID: bill.ResidentID,
		BillID:     bill.ID,
		Amount:     bill.Amount,
		Currency:   bill.Currency,
		OccurredAt: now,
	})

	status, err := s.Reconcile(ctx, bill.ID)
	if err != nil {
		return nil, err
	}
	bill.Status = status
	return bill, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateBillRequest) (*domain.Bill, error) {
	bill, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, domain.ErrBillNotFound
	}
	if bill.Terminal() {
		return nil, domain.ErrBillImmutable
	}

	if req.BillType != nil {
		if !req.BillType.Valid() {
			return nil, domain.ErrInvalidBillType
		}
		bill.BillType = *req.BillType
	}
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			return nil, domain.ErrInvalidAmount
		}
		bill.Amount = req.Amount.Round(2)
	}
	if req.Currency != nil {
		currency := normalizeCurrency(*req.Currency)
		if currency == "" {
			return nil, domain.ErrInvalidCurrency
		}
		bill.Currency = currency
	}
	if req.DueDate != nil {
		if req.DueDate.IsZero() {
			return nil, domain.ErrInvalidDueDate
		}
		bill.DueDate = *req.DueDate
	}
	if req.Recurrence != nil {
		if !req.Recurrence.Valid() {
			return nil, domain.ErrUnknownRecurrence
		}
		bill.Recurrence = *req.Recurrence
	}
	if req.NextBillingDate != nil {
		bill.NextBillingDate = req.NextBillingDate
	}

	if err := s.repo.Update(ctx, s.db, bill); err != nil {
		return nil, err
	}

	s.auditSvc.AuditLog(ctx, auditdomain.SystemActor(), "bill.updated", "bill", bill.ID.String(), map[string]any{
		"amount":   bill.Amount.StringFixed(2),
		"due_date": bill.DueDate.UTC().Format(time.RFC3339),
	})

	status, err := s.Reconcile(ctx, bill.ID)
	if err != nil {
		return nil, err
	}
	bill.Status = status
	return bill, nil
}

// Cancel marks a bill cancelled. Bills without payments are soft-deleted;
// once a payment exists the row is kept forever.
func (s *Service) Cancel(ctx context.Context, id snowflake.ID, actor auditdomain.Actor) error {
	now := s.clock.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bill, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if bill == nil {
			return domain.ErrBillNotFound
		}
		if bill.Status == domain.BillStatusCancelled {
			return nil
		}
		if bill.Status == domain.BillStatusPaid {
			return domain.ErrBillImmutable
		}

		if err := s.repo.UpdateStatus(ctx, tx, id, domain.BillStatusCancelled, now); err != nil {
			return err
		}

		paymentCount, err := s.repo.CountPayments(ctx, tx, id)
		if err != nil {
			return err
		}
		if paymentCount == 0 {
			return s.repo.SoftDelete(ctx, tx, id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.auditSvc.AuditLog(ctx, actor, "bill.cancelled", "bill", id.String(), nil)
	return nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Bill, error) {
	bill, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, domain.ErrBillNotFound
	}
	return bill, nil
}

func validateCreate(req *domain.CreateBillRequest) error {
	if !req.BillType.Valid() {
		return domain.ErrInvalidBillType
	}
	if !req.Amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	req.Currency = normalizeCurrency(req.Currency)
	if req.Currency == "" {
		return domain.ErrInvalidCurrency
	}
	if req.DueDate.IsZero() {
		return domain.ErrInvalidDueDate
	}
	if req.Recurrence == "" {
		req.Recurrence = domain.RecurrenceNone
	}
	if !req.Recurrence.Valid() {
		return domain.ErrUnknownRecurrence
	}
	return nil
}

func normalizeCurrency(raw string) string {
	currency := strings.ToUpper(strings.TrimSpace(raw))
	if len(currency) != 3 {
		return ""
	}
	return currency
}
