package notifier

import (
	"github.com/smallbiznis/propera/internal/config"
	"go.uber.org/fx"
)

func NewProviderFromConfig(cfg config.Config) Provider {
	if cfg.NotifierProvider == "smtp" && cfg.SMTPHost != "" {
		return NewSMTP(SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			From: cfg.SMTPFrom,
		})
	}
	return &NoOpProvider{}
}

var Module = fx.Module("notifier",
	fx.Provide(NewProviderFromConfig),
	fx.Provide(New),
	fx.Invoke(registerHooks),
)
