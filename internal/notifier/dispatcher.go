package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smallbiznis/propera/internal/config"
	"github.com/smallbiznis/propera/internal/metrics"
	propertydomain "github.com/smallbiznis/propera/internal/property/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Config   config.Config
	Provider Provider
	Metrics  *metrics.Metrics `optional:"true"`
}

type dispatcher struct {
	db          *gorm.DB
	log         *zap.Logger
	provider    Provider
	adminEmails []string
	metrics     *metrics.Metrics

	ch   chan Event
	wg   sync.WaitGroup
	once sync.Once
}

func New(p Params) Dispatcher {
	return &dispatcher{
		db:          p.DB,
		log:         p.Log.Named("notifier"),
		provider:    p.Provider,
		adminEmails: p.Config.AdminEmails,
		metrics:     p.Metrics,
		ch:          make(chan Event, 256),
	}
}

// Dispatch queues the event. A full queue drops the event with a warning;
// notification delivery is best-effort and never backs up a billing write.
func (d *dispatcher) Dispatch(event Event) {
	select {
	case d.ch <- event:
	default:
		d.log.Warn("notification queue full, dropping event",
			zap.String("event", string(event.Type)),
			zap.String("bill_id", event.BillID.String()),
		)
		d.metrics.IncNotification(string(event.Type), "dropped")
	}
}

func (d *dispatcher) start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for event := range d.ch {
			d.deliver(event)
		}
	}()
}

func (d *dispatcher) stop() {
	d.once.Do(func() {
		close(d.ch)
	})
	d.wg.Wait()
}

func (d *dispatcher) deliver(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	recipients := d.recipients(ctx, event)
	if len(recipients) == 0 {
		d.metrics.IncNotification(string(event.Type), "skipped")
		return
	}

	subject, body := render(event)
	if err := d.provider.Send(ctx, recipients, subject, body); err != nil {
		d.log.Warn("notification delivery failed",
			zap.String("event", string(event.Type)),
			zap.String("bill_id", event.BillID.String()),
			zap.Error(err),
		)
		d.metrics.IncNotification(string(event.Type), "failed")
		return
	}
	d.metrics.IncNotification(string(event.Type), "sent")
}

func (d *dispatcher) recipients(ctx context.Context, event Event) []string {
	var recipients []string

	var resident propertydomain.Resident
	err := d.db.WithContext(ctx).First(&resident, "id = ?", event.ResidentID).Error
	if err != nil {
		d.log.Warn("resident lookup failed for notification",
			zap.String("resident_id", event.ResidentID.String()),
			zap.Error(err),
		)
	} else if resident.Email != "" {
		recipients = append(recipients, resident.Email)
	}

	// First transition into overdue escalates to an admin, rotating through
	// the configured pool.
	if event.Type == EventBillOverdue && len(d.adminEmails) > 0 {
		idx, err := NextRotationIndex(ctx, d.db, rotationOverdueAdmin, len(d.adminEmails))
		if err != nil {
			d.log.Warn("admin rotation failed", zap.Error(err))
		} else {
			recipients = append(recipients, d.adminEmails[idx])
		}
	}

	return recipients
}

func render(event Event) (string, string) {
	amount := fmt.Sprintf("%s %s", event.Amount.StringFixed(2), event.Currency)
	switch event.Type {
	case EventBillCreated:
		return "New bill issued", fmt.Sprintf("A new bill of %s has been issued. Bill reference: %s.", amount, event.BillID)
	case EventBillPaid:
		return "Bill settled", fmt.Sprintf("Bill %s of %s is fully paid. Thank you.", event.BillID, amount)
	case EventBillOverdue:
		return "Bill overdue", fmt.Sprintf("Bill %s of %s is overdue. Please settle the outstanding balance.", event.BillID, amount)
	case EventPaymentReceived:
		return "Payment received", fmt.Sprintf("We received your payment of %s for bill %s.", amount, event.BillID)
	case EventPaymentRefunded:
		return "Payment refunded", fmt.Sprintf("A refund of %s has been issued for bill %s.", amount, event.BillID)
	default:
		return string(event.Type), fmt.Sprintf("Billing update for bill %s.", event.BillID)
	}
}

func registerHooks(lc fx.Lifecycle, d Dispatcher) {
	impl, ok := d.(*dispatcher)
	if !ok {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			impl.start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			_ = ctx
			impl.stop()
			return nil
		},
	})
}
