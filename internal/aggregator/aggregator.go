// Package aggregator fans out to every registered app, fetches its raw
// user rows and merges them into one normalized, newest-first list.  A
// project that cannot be reached is skipped and logged; only a registry
// failure fails the whole call.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/logger"
	"github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/model"
	"github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/normalize"
	"github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/supabase"
)

// RowLimit caps how many rows are read from each project per aggregation.
const RowLimit = 200

// ErrRegistryUnavailable wraps any failure to read the registry.
var ErrRegistryUnavailable = errors.New("project registry unavailable")

// errMissingCredential marks a remote project without a service key.
var errMissingCredential = errors.New("no service credential configured")

type Registry interface {
	ListConnectable(ctx context.Context) ([]model.ProjectConfig, error)
}

type LocalStore interface {
	FetchUsers(ctx context.Context, table string, limit int) ([]model.RawUserRow, error)
}

type RemoteClient interface {
	FetchUsers(ctx context.Context, p model.ProjectConfig, key string, limit int) ([]model.RawUserRow, error)
}

// Skipped records a project left out of a result and why.
type Skipped struct {
	App    string `json:"app"`
	Reason string `json:"reason"`
}

// Result is the merged user list plus the projects that did not contribute.
type Result struct {
	Users   []model.NormalizedUser
	Skipped []Skipped
}

type Aggregator struct {
	Registry Registry
	Local    LocalStore
	Remote   RemoteClient
	Creds    supabase.CredentialResolver
	Log      logger.Logger
}

func New(reg Registry, local LocalStore, remote RemoteClient, creds supabase.CredentialResolver, log logger.Logger) *Aggregator {
	if log == nil {
		log = logger.Nop()
	}
	return &Aggregator{Registry: reg, Local: local, Remote: remote, Creds: creds, Log: log.Action("aggregate_users")}
}

type fetchOutcome struct {
	users []model.NormalizedUser
	err   error
}

// AllUsers reads the registry, fetches every project concurrently and
// returns the merged list sorted by created_at descending.  One slow or
// failing project never cancels its siblings.
func (a *Aggregator) AllUsers(ctx context.Context) (Result, error) {
	projects, err := a.Registry.ListConnectable(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}

	// Each goroutine owns one slot; results are merged after the barrier.
	outcomes := make([]fetchOutcome, len(projects))
	var wg sync.WaitGroup
	for i, p := range projects {
		wg.Add(1)
		go func(i int, p model.ProjectConfig) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					outcomes[i] = fetchOutcome{err: fmt.Errorf("panic: %v", rec)}
				}
			}()
			rows, err := a.fetch(ctx, p)
			if err != nil {
				outcomes[i] = fetchOutcome{err: err}
				return
			}
			outcomes[i] = fetchOutcome{users: normalize.Users(p.AppName, rows)}
		}(i, p)
	}
	wg.Wait()

	res := Result{Users: []model.NormalizedUser{}}
	for i, o := range outcomes {
		app := projects[i].AppName
		if o.err != nil {
			a.Log.Warn("skipping project", "app", app, "local", projects[i].IsLocal, "reason", o.err.Error())
			res.Skipped = append(res.Skipped, Skipped{App: app, Reason: o.err.Error()})
			continue
		}
		res.Users = append(res.Users, o.users...)
	}
	if dup := duplicateKeys(res.Users); dup > 0 {
		a.Log.Warn("duplicate (app, id) pairs in aggregated users", "count", dup)
	}
	normalize.SortByCreatedDesc(res.Users)
	a.Log.Info("aggregation complete", "projects", len(projects), "skipped", len(res.Skipped), "users", len(res.Users))
	return res, nil
}

func (a *Aggregator) fetch(ctx context.Context, p model.ProjectConfig) ([]model.RawUserRow, error) {
	if p.IsLocal {
		return a.Local.FetchUsers(ctx, p.Table(), RowLimit)
	}
	key, ok := a.Creds.ServiceKey(p.RemoteRef)
	if !ok {
		return nil, fmt.Errorf("%w for ref %q", errMissingCredential, p.RemoteRef)
	}
	return a.Remote.FetchUsers(ctx, p, key, RowLimit)
}

// duplicateKeys counts users sharing an (app, id) pair.  Ids are only unique
// within one app's table, and the dashboard keys rows by the pair.
func duplicateKeys(users []model.NormalizedUser) int {
	seen := make(map[string]struct{}, len(users))
	dup := 0
	for _, u := range users {
		k := u.Key()
		if _, ok := seen[k]; ok {
			dup++
			continue
		}
		seen[k] = struct{}{}
	}
	return dup
}
