package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	apikeydomain "github.com/smallbiznis/greenledger/internal/apikey/domain"
	auditdomain "github.com/smallbiznis/greenledger/internal/audit/domain"
	companydomain "github.com/smallbiznis/greenledger/internal/company/domain"
	compliancedomain "github.com/smallbiznis/greenledger/internal/compliance/domain"
	"github.com/smallbiznis/greenledger/internal/config"
	integrationdomain "github.com/smallbiznis/greenledger/internal/integration/domain"
	metricdomain "github.com/smallbiznis/greenledger/internal/metric/domain"
	reportdomain "github.com/smallbiznis/greenledger/internal/report/domain"
	scoringdomain "github.com/smallbiznis/greenledger/internal/scoring/domain"
	"github.com/smallbiznis/greenledger/pkg/db"
	"gorm.io/gorm"
)

//go:embed sql/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "sql"

// Models lists every table owned by the application. The casbin_rule table is
// created by the authorization adapter.
func Models() []any {
	return []any{
		&companydomain.Company{},
		&metricdomain.MetricRecord{},
		&scoringdomain.ScoreSnapshot{},
		&compliancedomain.Document{},
		&apikeydomain.APIKey{},
		&auditdomain.AuditLog{},
		&integrationdomain.Connection{},
		&integrationdomain.SyncRun{},
		&reportdomain.ReportExport{},
	}
}

// Run brings the schema up to date. Postgres uses the versioned SQL files;
// sqlite and mysql are migrated from the models.
func Run(conn *gorm.DB, cfg config.Config) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if cfg.DBType != db.TypePostgres {
		if err := conn.AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}

	// golang-migrate closes the handle it is given, so it gets its own.
	sqlDB, err := sql.Open("postgres", db.PostgresDSN(cfg))
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer sqlDB.Close()
	return RunMigrations(sqlDB)
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(sqlDB *sql.DB) error {
	if sqlDB == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	return nil
}
