package report

import (
	"github.com/smallbiznis/greenledger/internal/report/repository"
	"github.com/smallbiznis/greenledger/internal/report/service"
	"github.com/smallbiznis/greenledger/internal/report/storage"
	"go.uber.org/fx"
)

var Module = fx.Module("report.service",
	fx.Provide(repository.Provide),
	fx.Provide(storage.NewStore),
	fx.Provide(service.New),
)
