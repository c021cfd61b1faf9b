package audit

import (
	"github.com/smallbiznis/propera/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(service.New),
)
