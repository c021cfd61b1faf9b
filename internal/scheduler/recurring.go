package scheduler

import (
	"context"

	auditdomain "github.com/smallbiznis/propera/internal/audit/domain"
	billdomain "github.com/smallbiznis/propera/internal/bill/domain"
	"github.com/smallbiznis/propera/internal/notifier"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GenerateRecurringBills sweeps recurring bill templates whose next billing
// date has arrived and spawns a one-off bill from each. The template is the
// sole carrier of the recurrence; spawned bills never recur on their own.
//
// The next billing date only ever advances via a conditional update, so two
// overlapping sweeps agree on who spawned the bill.
func (s *Scheduler) GenerateRecurringBills(ctx context.Context) (int, error) {
	now := s.clock.Now()
	var created []billdomain.Bill

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		templates, err := s.billRepo.ListDueTemplates(ctx, tx, now, s.cfg.BatchSize)
		if err != nil {
			return err
		}

		for i := range templates {
			template := &templates[i]
			spawn, err := s.spawnFromTemplate(ctx, tx, template)
			if err != nil {
				s.log.Warn("recurring template failed, skipping",
					zap.String("template_id", template.ID.String()),
					zap.Error(err),
				)
				continue
			}
			if spawn != nil {
				created = append(created, *spawn)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, bill := range created {
		s.auditSvc.AuditLog(ctx, auditdomain.SystemActor(), "bill.created", "bill", bill.ID.String(), map[string]any{
			"property_id": bill.PropertyID.String(),
			"resident_id": bill.ResidentID.String(),
			"bill_type":   string(bill.BillType),
			"amount":      bill.Amount.StringFixed(2),
			"source":      "recurring",
		})
		s.notifier.Dispatch(notifier.Event{
			Type:       notifier.EventBillCreated,
			ResidentID: bill.ResidentID,
			BillID:     bill.ID,
			Amount:     bill.Amount,
			Currency:   bill.Currency,
			OccurredAt: now,
		})
		if _, err := s.billSvc.Reconcile(ctx, bill.ID); err != nil {
			s.log.Warn("post-creation reconcile failed",
				zap.String("bill_id", bill.ID.String()),
				zap.Error(err),
			)
		}
	}
	s.metrics.AddBillsCreated("recurring", len(created))
	return len(created), nil
}

func (s *Scheduler) spawnFromTemplate(ctx context.Context, tx *gorm.DB, template *billdomain.Bill) (*billdomain.Bill, error) {
	if template.NextBillingDate == nil {
		return nil, nil
	}
	now := s.clock.Now()

	next, err := template.Recurrence.Next(*template.NextBillingDate)
	if err != nil {
		return nil, err
	}

	// The anchor claim and the spawn insert share one savepoint: a failed
	// insert rolls the claim back too, so the template stays due for the
	// next sweep instead of silently losing the cycle.
	var spawn *billdomain.Bill
	err = tx.Transaction(func(inner *gorm.DB) error {
		claimed, err := s.billRepo.AdvanceNextBilling(ctx, inner, template.ID, *template.NextBillingDate, next, now)
		if err != nil {
			return err
		}
		if !claimed {
			s.log.Debug("template already advanced by a concurrent run, skipping",
				zap.String("template_id", template.ID.String()),
			)
			return nil
		}
		spawn = &billdomain.Bill{
			ID:         s.genID.Generate(),
			PropertyID: template.PropertyID,
			ResidentID: template.ResidentID,
			BillType:   template.BillType,
			Amount:     template.Amount,
			Currency:   template.Currency,
			DueDate:    now.AddDate(0, 0, s.cfg.DueInDays),
			Status:     billdomain.BillStatusPending,
			Recurrence: billdomain.RecurrenceNone,
			CreatedBy:  "scheduler",
			Metadata:   template.Metadata,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return s.billRepo.Insert(ctx, inner, spawn)
	})
	if err != nil {
		return nil, err
	}
	return spawn, nil
}
