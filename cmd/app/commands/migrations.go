package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/allisson/medledger/internal/config"
)

// RunMigrations applies pending migrations for the configured SQL driver. The memory
// backend has no schema, so it only logs and returns.
func RunMigrations(cfg *config.Config, logger *slog.Logger, migrationsDir string) error {
	if cfg.DBDriver == config.DriverMemory {
		logger.Info("memory backend selected, no migrations to run")
		return nil
	}

	logger.Info("running database migrations", slog.String("driver", cfg.DBDriver))

	var migrationsPath string
	switch cfg.DBDriver {
	case config.DriverPostgres:
		migrationsPath = "file://" + migrationsDir + "/postgresql"
	case config.DriverMySQL:
		migrationsPath = "file://" + migrationsDir + "/mysql"
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.DBDriver)
	}

	m, err := migrate.New(migrationsPath, migrationURL(cfg))
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}

// migrationURL prefixes MySQL DSNs with the scheme golang-migrate dispatches on.
// PostgreSQL connection strings are already URLs. MySQL DSNs need multiStatements=true.
func migrationURL(cfg *config.Config) string {
	if cfg.DBDriver == config.DriverMySQL && !strings.HasPrefix(cfg.DBConnectionString, "mysql://") {
		return "mysql://" + cfg.DBConnectionString
	}
	return cfg.DBConnectionString
}
