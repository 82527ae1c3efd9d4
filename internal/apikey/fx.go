package apikey

import (
	"github.com/smallbiznis/greenledger/internal/apikey/repository"
	"github.com/smallbiznis/greenledger/internal/apikey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("apikey",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
