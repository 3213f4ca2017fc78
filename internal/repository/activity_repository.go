package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/model"
)

// ActivityRepo persists user-edit activity in the admin_activity table
// created by the embedded migrations.
type ActivityRepo struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewActivityRepo(db *sql.DB, d Dialect) *ActivityRepo { return &ActivityRepo{DB: db, Dialect: d} }

// Insert stores one activity entry.  Replayed events with a known event_id
// are ignored.
func (r *ActivityRepo) Insert(ctx context.Context, a model.Activity) error {
	fields, err := json.Marshal(a.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	p := r.Dialect.Placeholder
	query := fmt.Sprintf(
		"INSERT INTO admin_activity (event_id, app, user_id, table_name, fields, updated_at) VALUES (%s,%s,%s,%s,%s,%s)",
		p(1), p(2), p(3), p(4), p(5), p(6))
	if r.Dialect == Postgres {
		query += " ON CONFLICT (event_id) DO NOTHING"
	} else {
		query = "INSERT IGNORE" + query[len("INSERT"):]
	}
	_, err = r.DB.ExecContext(ctx, query, a.EventID, a.App, a.UserID, a.Table, string(fields), a.UpdatedAt.UTC())
	return err
}

// ListRecent returns the latest entries, newest first.
func (r *ActivityRepo) ListRecent(ctx context.Context, limit int) ([]model.Activity, error) {
	rows, err := r.DB.QueryContext(ctx, fmt.Sprintf(
		"SELECT event_id, app, user_id, table_name, fields, updated_at FROM admin_activity ORDER BY updated_at DESC LIMIT %d", limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Activity{}
	for rows.Next() {
		var (
			a      model.Activity
			fields string
		)
		if err := rows.Scan(&a.EventID, &a.App, &a.UserID, &a.Table, &fields, &a.UpdatedAt); err != nil {
			return nil, err
		}
		if fields != "" {
			if err := json.Unmarshal([]byte(fields), &a.Fields); err != nil {
				return nil, fmt.Errorf("decode fields for %s: %w", a.EventID, err)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
