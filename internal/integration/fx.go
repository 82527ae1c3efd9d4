package integration

import (
	"github.com/smallbiznis/greenledger/internal/integration/repository"
	"github.com/smallbiznis/greenledger/internal/integration/service"
	"github.com/smallbiznis/greenledger/internal/integration/source"
	"go.uber.org/fx"
)

var Module = fx.Module("integration.service",
	fx.Provide(repository.Provide),
	fx.Provide(source.NewHTTPFactory),
	fx.Provide(service.New),
	fx.Invoke(startWorker),
)
