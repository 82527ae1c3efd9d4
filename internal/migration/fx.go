package migration

import (
	"github.com/smallbiznis/greenledger/internal/config"
	"github.com/smallbiznis/greenledger/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if err := Run(conn, cfg); err != nil {
			return err
		}
		log.Info("database schema up to date", zap.String("type", cfg.DBType))

		if cfg.SeedDemo {
			return seed.EnsureDemoCompany(conn, log)
		}
		return nil
	}),
)
