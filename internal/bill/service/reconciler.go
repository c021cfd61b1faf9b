package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propera/internal/bill/domain"
	"github.com/smallbiznis/propera/internal/notifier"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Reconcile derives the bill's status from a fresh, locked read of the bill
// and its complete payment history. Status priority: paid, then overdue, then
// partially paid, then pending. Cancelled is terminal and never overwritten.
//
// Notifications fire only on an actual transition, so redundant or concurrent
// invocations are harmless; dispatch happens after the transaction commits and
// can never roll back the financial write.
func (s *Service) Reconcile(ctx context.Context, id snowflake.ID) (domain.BillStatus, error) {
	var result domain.BillStatus
	var events []notifier.Event
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
			result = domain.BillStatusCancelled
			return nil
		}

		payments, err := s.paymentRepo.ListByBill(ctx, tx, id)
		if err != nil {
			return err
		}

		next := bill.DeriveStatus(payments, now)
		result = next
		if next == bill.Status {
			return nil
		}

		if err := s.repo.UpdateStatus(ctx, tx, id, next, now); err != nil {
			return err
		}

		switch next {
		case domain.BillStatusPaid:
			events = append(events, notifier.Event{
				Type:       notifier.EventBillPaid,
				ResidentID: bill.ResidentID,
				BillID:     bill.ID,
				Amount:     bill.Amount,
				Currency:   bill.Currency,
				OccurredAt: now,
			})
		case domain.BillStatusOverdue:
			events = append(events, notifier.Event{
				Type:       notifier.EventBillOverdue,
				ResidentID: bill.ResidentID,
				BillID:     bill.ID,
				Amount:     bill.RemainingBalance(payments),
				Currency:   bill.Currency,
				OccurredAt: now,
			})
		}

		s.log.Debug("bill reconciled",
			zap.String("bill_id", bill.ID.String()),
			zap.String("from", string(bill.Status)),
			zap.String("to", string(next)),
		)
		return nil
	})
	if err != nil {
		return "", err
	}

	s.metrics.IncReconciliation(string(result))
	for _, event := range events {
		s.notifier.Dispatch(event)
	}
	return result, nil
}
