package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

var Module = fx.Module("metrics",
	fx.Provide(NewDefault),
)
