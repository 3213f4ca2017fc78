package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/repository"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations applies the embedded migrations for the given dialect.  Only
// tables owned by this service are migrated; the app registry and the app
// user tables belong to their own projects.
func RunMigrations(db *sql.DB, d repository.Dialect) error {
	src, err := iofs.New(migrationsFS, "migrations/"+string(d))
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	var (
		driver migratedb.Driver
		name   string
	)
	switch d {
	case repository.Postgres:
		driver, err = migratepgx.WithInstance(db, &migratepgx.Config{MigrationsTable: "watchtower_schema_migrations"})
		name = "pgx5"
	case repository.MySQL:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{MigrationsTable: "watchtower_schema_migrations"})
		name = "mysql"
	default:
		return fmt.Errorf("%w: %q", repository.ErrUnsupportedDriver, d)
	}
	if err != nil {
		return fmt.Errorf("start %s migration driver: %w", d, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, name, driver)
	if err != nil {
		return fmt.Errorf("migration failed to start: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run up migrations: %w", err)
	}
	return nil
}
