package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/propera/internal/audit/domain"
	billdomain "github.com/smallbiznis/propera/internal/bill/domain"
	"github.com/smallbiznis/propera/internal/clock"
	"github.com/smallbiznis/propera/internal/notifier"
	"github.com/smallbiznis/propera/internal/payment/domain"
	propertydomain "github.com/smallbiznis/propera/internal/property/domain"
	"github.com/smallbiznis/propera/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	BillSvc  billdomain.Service
	Lookups  propertydomain.LookupService
	AuditSvc auditdomain.Service
	Notifier notifier.Dispatcher
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	billSvc  billdomain.Service
	lookups  propertydomain.LookupService
	auditSvc auditdomain.Service
	notifier notifier.Dispatcher
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		billSvc:  p.BillSvc,
		lookups:  p.Lookups,
		auditSvc: p.AuditSvc,
		notifier: p.Notifier,
	}
}

func (s *Service) Process(ctx context.Context, req domain.ProcessPaymentRequest) (*domain.Payment, error) {
	if !req.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	if !req.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		return nil, domain.ErrInvalidCurrency
	}
	if strings.TrimSpace(req.TransactionID) == "" {
		return nil, domain.ErrInvalidStatus
	}

	bill, err := s.billSvc.GetByID(ctx, req.BillID)
	if err != nil {
		return nil, err
	}
	if bill.Status == billdomain.BillStatusCancelled {
		return nil, billdomain.ErrBillCancelled
	}
	if _, err := s.lookups.GetResident(ctx, req.ResidentID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	paymentDate := req.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = now
	}
	payment := &domain.Payment{
		ID:            s.genID.Generate(),
		BillID:        req.BillID,
		ResidentID:    req.ResidentID,
		Amount:        req.Amount.Round(2),
		Currency:      currency,
		Status:        req.Status,
		TransactionID: req.TransactionID,
		PaymentDate:   paymentDate,
		ProcessedBy:   req.ProcessedBy,
		Metadata:      datatypes.JSONMap(req.Metadata),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Insert(ctx, s.db, payment); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateTransaction
		}
		return nil, err
	}

	s.auditSvc.AuditLog(ctx, auditdomain.Actor{Type: auditdomain.ActorTypeResident, ID: payment.ResidentID.String()}, "payment.processed", "payment", payment.ID.String(), map[string]any{
		"bill_id":        payment.BillID.String(),
		"amount":         payment.Amount.StringFixed(2),
		"currency":       payment.Currency,
		"status":         string(payment.Status),
		"transaction_id": payment.TransactionID,
	})

	if payment.Status == domain.PaymentStatusCompleted {
		if _, err := s.billSvc.Reconcile(ctx, payment.BillID); err != nil {
			return nil, err
		}
		s.notifier.Dispatch(notifier.Event{
			Type:       notifier.EventPaymentReceived,
			ResidentID: payment.ResidentID,
			BillID:     payment.BillID,
			PaymentID:  payment.ID,
			Amount:     payment.Amount,
			Currency:   payment.Currency,
			OccurredAt: now,
		})
	}
	return payment, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id snowflake.ID, status domain.PaymentStatus, actor auditdomain.Actor) (*domain.Payment, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	payment, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}
	if payment.Status == status {
		return payment, nil
	}

	now := s.clock.Now()
	prev := payment.Status
	if err := s.repo.UpdateStatus(ctx, s.db, id, status, actor.ID, now); err != nil {
		return nil, err
	}
	payment.Status = status
	payment.ProcessedBy = actor.ID
	payment.UpdatedAt = now

	s.auditSvc.AuditLog(ctx, actor, "payment.status_changed", "payment", id.String(), map[string]any{
		"from": string(prev),
		"to":   string(status),
	})

	// The balance only moves when a payment enters or leaves the completed
	// state; every other transition is bookkeeping.
	wasCompleted := prev == domain.PaymentStatusCompleted
	isCompleted := status == domain.PaymentStatusCompleted
	if wasCompleted != isCompleted {
		if _, err := s.billSvc.Reconcile(ctx, payment.BillID); err != nil {
			return nil, err
		}
	}
	return payment, nil
}

// Refund issues a compensating negative payment against the original and
// re-reconciles the bill. Partial refunds are allowed up to the original
// amount; a payment can be refunded at most once.
func (s *Service) Refund(ctx context.Context, id snowflake.ID, amount decimal.Decimal, reason string, actor auditdomain.Actor) (*domain.Payment, error) {
	now := s.clock.Now()
	var refund *domain.Payment

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		original, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if original == nil {
			return domain.ErrPaymentNotFound
		}
		if original.IsRefund() || original.Status != domain.PaymentStatusCompleted {
			return domain.ErrNotRefundable
		}
		if original.IsRefunded() {
			return domain.ErrAlreadyRefunded
		}
		if !amount.IsPositive() {
			return domain.ErrInvalidAmount
		}
		if amount.GreaterThan(original.Amount) {
			return domain.ErrRefundExceedsOriginal
		}

		refund = &domain.Payment{
			ID:            s.genID.Generate(),
			BillID:        original.BillID,
			ResidentID:    original.ResidentID,
			Amount:        amount.Round(2).Neg(),
			Currency:      original.Currency,
			Status:        domain.PaymentStatusCompleted,
			TransactionID: fmt.Sprintf("rf-%s", s.genID.Generate()),
			PaymentDate:   now,
			ProcessedBy:   actor.ID,
			Metadata: datatypes.JSONMap{
				domain.MetaOriginalPaymentID: original.ID.String(),
				domain.MetaRefundReason:      reason,
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Insert(ctx, tx, refund); err != nil {
			return err
		}

		metadata := original.Metadata
		if metadata == nil {
			metadata = datatypes.JSONMap{}
		}
		metadata[domain.MetaRefundedAt] = now.UTC().Format(time.RFC3339)
		metadata[domain.MetaRefundPaymentID] = refund.ID.String()
		return s.repo.UpdateMetadata(ctx, tx, original.ID, metadata, now)
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.AuditLog(ctx, actor, "payment.refunded", "payment", id.String(), map[string]any{
		"refund_payment_id": refund.ID.String(),
		"amount":            amount.StringFixed(2),
		"reason":            reason,
	})

	if _, err := s.billSvc.Reconcile(ctx, refund.BillID); err != nil {
		return nil, err
	}
	s.notifier.Dispatch(notifier.Event{
		Type:       notifier.EventPaymentRefunded,
		ResidentID: refund.ResidentID,
		BillID:     refund.BillID,
		PaymentID:  refund.ID,
		Amount:     amount.Round(2),
		Currency:   refund.Currency,
		OccurredAt: now,
	})
	return refund, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Payment, error) {
	payment, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, nil
}
