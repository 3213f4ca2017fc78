// Package writeback turns a normalized edit into an update against the one
// app that owns the user, using that app's real column and table names.
// Unlike aggregation, every failure here is fatal to the call: a targeted
// write has no meaningful partial outcome.
package writeback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/model"
	"github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/normalize"
	"github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/supabase"
)

var (
	// ErrInvalidRequest is returned when the user id or app name is missing.
	ErrInvalidRequest = errors.New("invalid update request")
	// ErrAppNotFound is returned when the app is not in the registry.
	ErrAppNotFound = errors.New("app not found")
	// ErrNoValidFields is returned when no supplied field maps to a column.
	ErrNoValidFields = errors.New("no valid fields to update")
	// ErrMissingCredential is returned when a remote app has no service key.
	ErrMissingCredential = errors.New("no service credential configured")
)

// UpdatedAtColumn is stamped on every write.
const UpdatedAtColumn = "updated_at"

type Registry interface {
	FindByName(ctx context.Context, app string) (model.ProjectConfig, error)
}

type LocalStore interface {
	UpdateUser(ctx context.Context, table, id string, payload map[string]any) error
}

type RemoteClient interface {
	PatchUser(ctx context.Context, p model.ProjectConfig, key, table, id string, payload map[string]any) error
}

// Request is one edit: which user, in which app, with which fields.
type Request struct {
	UserID string           `json:"userId"`
	App    string           `json:"app"`
	Fields model.UserFields `json:"fields"`
}

// Result describes the write that was issued.
type Result struct {
	App     string
	UserID  string
	Table   string
	IsLocal bool
	Payload map[string]any
}

type Translator struct {
	Registry Registry
	Local    LocalStore
	Remote   RemoteClient
	Creds    supabase.CredentialResolver
	Mappings *Mappings
	Now      func() time.Time
}

func New(reg Registry, local LocalStore, remote RemoteClient, creds supabase.CredentialResolver, m *Mappings) *Translator {
	return &Translator{Registry: reg, Local: local, Remote: remote, Creds: creds, Mappings: m, Now: time.Now}
}

// Update applies req to exactly one row of exactly one app.
func (t *Translator) Update(ctx context.Context, req Request) (Result, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.App = strings.TrimSpace(req.App)
	if req.UserID == "" || req.App == "" {
		return Result{}, fmt.Errorf("%w: userId and app are required", ErrInvalidRequest)
	}

	p, err := t.Registry.FindByName(ctx, req.App)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, fmt.Errorf("%w: %q", ErrAppNotFound, req.App)
	}
	if err != nil {
		return Result{}, fmt.Errorf("look up app %q: %w", req.App, err)
	}

	payload, err := BuildPayload(t.Mappings.For(p.AppName), req.Fields, t.Now().UTC())
	if err != nil {
		return Result{}, err
	}
	res := Result{
		App:     p.AppName,
		UserID:  req.UserID,
		Table:   t.Mappings.TableFor(p),
		IsLocal: p.IsLocal,
		Payload: payload,
	}

	if p.IsLocal {
		if err := t.Local.UpdateUser(ctx, res.Table, req.UserID, payload); err != nil {
			return Result{}, fmt.Errorf("update %s user %s: %w", p.AppName, req.UserID, err)
		}
		return res, nil
	}
	key, ok := t.Creds.ServiceKey(p.RemoteRef)
	if !ok {
		return Result{}, fmt.Errorf("%w: app %q (ref %q)", ErrMissingCredential, p.AppName, p.RemoteRef)
	}
	if err := t.Remote.PatchUser(ctx, p, key, res.Table, req.UserID, payload); err != nil {
		return Result{}, fmt.Errorf("update %s user %s: %w", p.AppName, req.UserID, err)
	}
	return res, nil
}

// BuildPayload maps fields onto m's columns and stamps updated_at.  It
// fails with ErrNoValidFields when nothing but the stamp would be written.
func BuildPayload(m ColumnMapping, f model.UserFields, now time.Time) (map[string]any, error) {
	payload := map[string]any{}

	first, last := deref(f.FirstName), deref(f.LastName)
	if m.Combined() && (first != "" || last != "") {
		payload[m.Name] = normalize.JoinName(first, last)
	} else {
		if f.FirstName != nil && m.FirstName != "" {
			payload[m.FirstName] = first
		}
		if f.LastName != nil && m.LastName != "" {
			payload[m.LastName] = last
		}
	}

	direct := []struct {
		val *string
		col string
	}{
		{f.Email, m.Email},
		{f.Phone, m.Phone},
		{f.Role, m.Role},
	}
	for _, d := range direct {
		if d.val != nil && d.col != "" {
			payload[d.col] = *d.val
		}
	}

	if f.Status != nil {
		if m.Status != "" {
			payload[m.Status] = *f.Status
		} else {
			active := *f.Status == model.StatusActive
			for _, col := range m.activeFlags() {
				payload[col] = active
			}
		}
	}

	if len(payload) == 0 {
		return nil, ErrNoValidFields
	}
	payload[UpdatedAtColumn] = now
	return payload, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
