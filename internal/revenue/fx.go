package revenue

import (
	"github.com/smallbiznis/propera/internal/revenue/service"
	"go.uber.org/fx"
)

var Module = fx.Module("revenue.service",
	fx.Provide(service.New),
)
