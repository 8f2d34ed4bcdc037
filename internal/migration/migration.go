package migration

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	billingdomain "github.com/smallbiznis/campus/internal/billing/domain"
	commentdomain "github.com/smallbiznis/campus/internal/comment/domain"
	"github.com/smallbiznis/campus/internal/config"
	coursedomain "github.com/smallbiznis/campus/internal/course/domain"
	experimentdomain "github.com/smallbiznis/campus/internal/experiment/domain"
	postdomain "github.com/smallbiznis/campus/internal/post/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Run applies pending schema migrations. Postgres goes through versioned
// SQL; other dialects (mysql in staging, sqlite in development) fall back
// to gorm auto-migration of the same models.
func Run(cfg config.Config, gdb *gorm.DB, log *zap.Logger) error {
	if strings.EqualFold(cfg.DBType, "postgres") {
		return runVersioned(gdb, log)
	}
	return runAutoMigrate(gdb, log)
}

func runVersioned(gdb *gorm.DB, log *zap.Logger) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("unwrap sql.DB: %w", err)
	}

	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("schema up to date")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	log.Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func runAutoMigrate(gdb *gorm.DB, log *zap.Logger) error {
	log.Info("using gorm auto-migration")
	return gdb.AutoMigrate(
		&postdomain.Post{},
		&commentdomain.Comment{},
		&coursedomain.Course{},
		&experimentdomain.Experiment{},
		&billingdomain.Subscription{},
		&billingdomain.BillingEvent{},
		&billingdomain.IdempotencyRecord{},
	)
}

// Module applies migrations during startup, before the HTTP server binds.
var Module = fx.Module("migration",
	fx.Invoke(Run),
)
