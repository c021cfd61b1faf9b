package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/propera/internal/audit/domain"
	billdomain "github.com/smallbiznis/propera/internal/bill/domain"
	"github.com/smallbiznis/propera/internal/notifier"
	propertydomain "github.com/smallbiznis/propera/internal/property/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GenerateBills sweeps every property with active service attachments and
// bills the ones that are due. Per-property failures are logged and skipped.
func (s *Scheduler) GenerateBills(ctx context.Context) (int, error) {
	propertyIDs, err := s.propertyRepo.ListPropertiesWithActiveAttachments(ctx, s.db, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	var created int
	for _, propertyID := range propertyIDs {
		n, err := s.GenerateBillsForProperty(ctx, propertyID)
		if err != nil {
			s.log.Warn("property billing failed, skipping",
				zap.String("property_id", propertyID.String()),
				zap.Error(err),
			)
			continue
		}
		created += n
	}
	return created, nil
}

// GenerateBillsForProperty bills all due service attachments of one property.
// Each attachment is handled in its own transaction so a conflict or failure
// on one service never blocks the rest.
func (s *Scheduler) GenerateBillsForProperty(ctx context.Context, propertyID snowflake.ID) (int, error) {
	property, err := s.propertyRepo.FindProperty(ctx, s.db, propertyID)
	if err != nil {
		return 0, err
	}
	if property == nil {
		return 0, propertydomain.ErrPropertyNotFound
	}

	attachments, err := s.propertyRepo.ListActiveAttachments(ctx, s.db, propertyID)
	if err != nil {
		return 0, err
	}
	relationships, err := s.propertyRepo.ListRelationships(ctx, s.db, propertyID)
	if err != nil {
		return 0, err
	}

	var created int
	for i := range attachments {
		bills, err := s.billAttachment(ctx, property, &attachments[i], relationships)
		if err != nil {
			s.log.Warn("attachment billing failed, skipping",
				zap.String("attachment_id", attachments[i].ID.String()),
				zap.Error(err),
			)
			continue
		}
		created += len(bills)
	}
	s.metrics.AddBillsCreated("attachment", created)
	return created, nil
}

// billAttachment decides whether the attachment is due, claims the billing
// anchor, and inserts one bill per eligible resident. Returns the bills it
// created; an empty slice means nothing was due or another run won the claim.
func (s *Scheduler) billAttachment(ctx context.Context, property *propertydomain.Property, attachment *propertydomain.PropertyService, relationships []propertydomain.ResidentProperty) ([]billdomain.Bill, error) {
	now := s.clock.Now()

	svc, err := s.propertyRepo.FindService(ctx, s.db, attachment.ServiceID)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, propertydomain.ErrServiceNotFound
	}

	due, err := s.attachmentDue(attachment, svc, now)
	if err != nil {
		return nil, err
	}
	if !due {
		return nil, nil
	}

	amount := s.pricing.Amount(attachment.BillingType, attachment.Price, property.Area)
	eligible := s.pricing.EligibleRelationships(relationships, svc.BillType)
	dueDate := now.AddDate(0, 0, s.cfg.DueInDays)

	var created []billdomain.Bill
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed, err := s.propertyRepo.AdvanceLastBilled(ctx, tx, attachment.ID, attachment.LastBilledAt, now)
		if err != nil {
			return err
		}
		if !claimed {
			s.log.Debug("attachment already billed by a concurrent run, skipping",
				zap.String("attachment_id", attachment.ID.String()),
			)
			return nil
		}

		for _, rel := range eligible {
			bill := billdomain.Bill{
				ID:         s.genID.Generate(),
				PropertyID: property.ID,
				ResidentID: rel.ResidentID,
				BillType:   svc.BillType,
				Amount:     amount,
				Currency:   property.Currency,
				DueDate:    dueDate,
				Status:     billdomain.BillStatusPending,
				Recurrence: billdomain.RecurrenceNone,
				CreatedBy:  "scheduler",
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			// Savepoint per resident: one bad row must not void the
			// whole attachment run.
			insertErr := tx.Transaction(func(inner *gorm.DB) error {
				return s.billRepo.Insert(ctx, inner, &bill)
			})
			if insertErr != nil {
				s.log.Warn("bill insert failed for resident, skipping",
					zap.String("resident_id", rel.ResidentID.String()),
					zap.String("attachment_id", attachment.ID.String()),
					zap.Error(insertErr),
				)
				continue
			}
			created = append(created, bill)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, bill := range created {
		s.auditSvc.AuditLog(ctx, auditdomain.SystemActor(), "bill.created", "bill", bill.ID.String(), map[string]any{
			"property_id": bill.PropertyID.String(),
			"resident_id": bill.ResidentID.String(),
			"bill_type":   string(bill.BillType),
			"amount":      bill.Amount.StringFixed(2),
			"source":      "attachment",
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
	return created, nil
}

// attachmentDue applies the cadence rules. Pre-paid attachments bill exactly
// once. Recurring services bill when the cadence elapses since the anchor; a
// missing anchor means never billed, so bill now. Anything else is not
// eligible, and unknown recurrence values fail closed rather than risk
// double-billing.
func (s *Scheduler) attachmentDue(attachment *propertydomain.PropertyService, svc *propertydomain.Service, now time.Time) (bool, error) {
	if attachment.BillingType == propertydomain.BillingTypePrepaid {
		return attachment.LastBilledAt == nil, nil
	}
	if !svc.IsRecurring {
		return false, nil
	}
	if attachment.LastBilledAt == nil {
		// Never billed, but the cadence must still be valid before the
		// first bill goes out.
		if _, err := svc.Recurrence.Next(now); err != nil {
			return false, err
		}
		return true, nil
	}
	next, err := svc.Recurrence.Next(*attachment.LastBilledAt)
	if err != nil {
		return false, err
	}
	return !next.After(now), nil
}
