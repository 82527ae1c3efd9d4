package scoring

import (
	"github.com/smallbiznis/greenledger/internal/scoring/repository"
	"github.com/smallbiznis/greenledger/internal/scoring/service"
	"go.uber.org/fx"
)

var Module = fx.Module("scoring.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
