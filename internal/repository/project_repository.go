package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/model"
)

// ProjectRepo reads the app registry from the shared database.  The
// registry is owned elsewhere; this repository never writes to it.
type ProjectRepo struct {
	DB      *sql.DB
	Dialect Dialect
	Table   string
}

func NewProjectRepo(db *sql.DB, d Dialect, table string) *ProjectRepo {
	return &ProjectRepo{DB: db, Dialect: d, Table: table}
}

func (r *ProjectRepo) selectPrefix() (string, error) {
	table, err := r.Dialect.QuoteIdent(r.Table)
	if err != nil {
		return "", err
	}
	return "SELECT name, is_local, remote_base_url, remote_ref, users_table FROM " + table, nil
}

// ListConnectable returns every registry row that is local, or remote with
// a base URL.  Rows are ordered by name so fan-out results are stable.
func (r *ProjectRepo) ListConnectable(ctx context.Context) ([]model.ProjectConfig, error) {
	base, err := r.selectPrefix()
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, base+
		" WHERE is_local = TRUE OR (remote_base_url IS NOT NULL AND remote_base_url <> '') ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query registry: %w", err)
	}
	defer rows.Close()

	var out []model.ProjectConfig
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		if p.Connectable() {
			out = append(out, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return out, nil
}

// FindByName fetches the single registry row for app.  sql.ErrNoRows is
// returned unwrapped when the app is not registered.
func (r *ProjectRepo) FindByName(ctx context.Context, app string) (model.ProjectConfig, error) {
	base, err := r.selectPrefix()
	if err != nil {
		return model.ProjectConfig{}, err
	}
	row := r.DB.QueryRowContext(ctx, base+" WHERE name = "+r.Dialect.Placeholder(1)+" LIMIT 1", app)
	return scanProject(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (model.ProjectConfig, error) {
	var (
		p                     model.ProjectConfig
		baseURL, ref, usersTb sql.NullString
	)
	if err := s.Scan(&p.AppName, &p.IsLocal, &baseURL, &ref, &usersTb); err != nil {
		return model.ProjectConfig{}, err
	}
	p.RemoteBaseURL = baseURL.String
	p.RemoteRef = ref.String
	p.UsersTable = usersTb.String
	if p.UsersTable == "" {
		p.UsersTable = model.DefaultUsersTable
	}
	return p, nil
}
