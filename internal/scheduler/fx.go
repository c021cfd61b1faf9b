package scheduler

import (
	"context"

	"github.com/smallbiznis/propera/internal/config"
	"go.uber.org/fx"
)

func NewConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.SchedulerInterval,
		BatchSize:   cfg.SchedulerBatch,
		DueInDays:   cfg.DueInDays,
	}
}

var Module = fx.Module("scheduler",
	fx.Provide(NewConfig),
	fx.Provide(New),
	fx.Invoke(registerHooks),
)

func registerHooks(lc fx.Lifecycle, s *Scheduler, cfg config.Config) {
	if !cfg.SchedulerEnabled {
		return
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			go func() {
				defer close(done)
				s.RunForever(runCtx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}
