package property

import (
	"github.com/smallbiznis/propera/internal/property/repository"
	"github.com/smallbiznis/propera/internal/property/service"
	"go.uber.org/fx"
)

var Module = fx.Module("property.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
