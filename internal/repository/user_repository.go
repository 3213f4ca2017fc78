package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/model"
)

// UserRepo reads and updates app user tables that live in the shared
// database.  Table layouts differ per app, so rows are returned as loosely
// typed maps and updates take a column -> value payload.
type UserRepo struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewUserRepo(db *sql.DB, d Dialect) *UserRepo { return &UserRepo{DB: db, Dialect: d} }

// FetchUsers returns at most limit rows of table.
func (r *UserRepo) FetchUsers(ctx context.Context, table string, limit int) ([]model.RawUserRow, error) {
	qt, err := r.Dialect.QuoteIdent(table)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", qt, limit))
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []model.RawUserRow
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		row := make(model.RawUserRow, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return out, nil
}

// UpdateUser applies payload to the row of table whose id equals id.
func (r *UserRepo) UpdateUser(ctx context.Context, table, id string, payload map[string]any) error {
	query, args, err := BuildUpdate(r.Dialect, table, id, payload)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// BuildUpdate renders a single-row UPDATE keyed by id.  Columns are emitted
// in sorted order so the statement text is deterministic.
func BuildUpdate(d Dialect, table, id string, payload map[string]any) (string, []any, error) {
	if len(payload) == 0 {
		return "", nil, fmt.Errorf("update %s: empty payload", table)
	}
	qt, err := d.QuoteIdent(table)
	if err != nil {
		return "", nil, err
	}
	cols := make([]string, 0, len(payload))
	for c := range payload {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		qc, err := d.QuoteIdent(c)
		if err != nil {
			return "", nil, err
		}
		sets = append(sets, qc+" = "+d.Placeholder(i+1))
		args = append(args, payload[c])
	}
	idCol, _ := d.QuoteIdent("id")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		qt, strings.Join(sets, ", "), idCol, d.Placeholder(len(args)))
	return query, args, nil
}
