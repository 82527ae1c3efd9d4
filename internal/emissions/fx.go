package emissions

import (
	"github.com/smallbiznis/greenledger/internal/emissions/service"
	"go.uber.org/fx"
)

var Module = fx.Module("emissions.service",
	fx.Provide(service.New),
)
