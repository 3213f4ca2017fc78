package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/repository"
)

// Open connects to the shared database and verifies the connection.  The
// dialect decides the driver: go-sql-driver/mysql or pgx through database/sql.
func Open(d repository.Dialect, dsn string) (*sql.DB, error) {
	driverName, err := driverFor(d, &dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// driverFor returns the database/sql driver name and, for MySQL, rewrites
// the DSN so DATETIME columns scan into time.Time in UTC and UPDATE reports
// matched rather than changed rows.
func driverFor(d repository.Dialect, dsn *string) (string, error) {
	switch d {
	case repository.Postgres:
		return "pgx", nil
	case repository.MySQL:
		cfg, err := mysql.ParseDSN(*dsn)
		if err != nil {
			return "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		cfg.ClientFoundRows = true
		cfg.Loc = time.UTC
		*dsn = cfg.FormatDSN()
		return "mysql", nil
	}
	return "", fmt.Errorf("%w: %q", repository.ErrUnsupportedDriver, d)
}
