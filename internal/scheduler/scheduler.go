// Package scheduler runs the periodic billing sweeps: pre-paid and recurring
// service attachments, and recurring bill templates.
package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/propera/internal/audit/domain"
	billdomain "github.com/smallbiznis/propera/internal/bill/domain"
	"github.com/smallbiznis/propera/internal/clock"
	"github.com/smallbiznis/propera/internal/metrics"
	"github.com/smallbiznis/propera/internal/notifier"
	"github.com/smallbiznis/propera/internal/pricing"
	propertydomain "github.com/smallbiznis/propera/internal/property/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	jobAttachments = "attachment_billing"
	jobRecurring   = "recurring_billing"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Config       Config
	BillRepo     billdomain.Repository
	BillSvc      billdomain.Service
	PropertyRepo propertydomain.Repository
	Pricing      *pricing.Engine
	AuditSvc     auditdomain.Service
	Notifier     notifier.Dispatcher
	Metrics      *metrics.Metrics `optional:"true"`
}

type Scheduler struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	cfg          Config
	billRepo     billdomain.Repository
	billSvc      billdomain.Service
	propertyRepo propertydomain.Repository
	pricing      *pricing.Engine
	auditSvc     auditdomain.Service
	notifier     notifier.Dispatcher
	metrics      *metrics.Metrics
}

func New(p Params) *Scheduler {
	return &Scheduler{
		db:           p.DB,
		log:          p.Log.Named("scheduler"),
		genID:        p.GenID,
		clock:        p.Clock,
		cfg:          p.Config.withDefaults(),
		billRepo:     p.BillRepo,
		billSvc:      p.BillSvc,
		propertyRepo: p.PropertyRepo,
		pricing:      p.Pricing,
		auditSvc:     p.AuditSvc,
		notifier:     p.Notifier,
		metrics:      p.Metrics,
	}
}

// RunOnce executes every enabled job a single time. Job failures are logged
// and counted; one failing job never stops the others.
func (s *Scheduler) RunOnce(ctx context.Context) {
	jobs := []struct {
		name string
		run  func(context.Context) (int, error)
	}{
		{jobAttachments, s.GenerateBills},
		{jobRecurring, s.GenerateRecurringBills},
	}
	for _, job := range jobs {
		if !s.cfg.isJobEnabled(job.name) {
			continue
		}
		s.runJob(ctx, job.name, job.run)
	}
}

func (s *Scheduler) runJob(ctx context.Context, name string, run func(context.Context) (int, error)) {
	start := s.clock.Now()
	s.metrics.IncBillingRun(name)

	created, err := run(ctx)
	s.metrics.ObserveRunDuration(name, s.clock.Now().Sub(start))
	if err != nil {
		s.metrics.IncRunFailure(name)
		s.log.Error("billing job failed",
			zap.String("job", name),
			zap.Error(err),
		)
		return
	}
	if created > 0 {
		s.log.Info("billing job finished",
			zap.String("job", name),
			zap.Int("bills_created", created),
		)
	}
}

// RunForever loops RunOnce on the configured interval until ctx is cancelled.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	s.log.Info("scheduler started",
		zap.Duration("interval", s.cfg.RunInterval),
		zap.Int("batch_size", s.cfg.BatchSize),
	)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}
