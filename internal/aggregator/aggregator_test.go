package aggregator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/model"
	"github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/supabase"
)

type fakeRegistry struct {
	projects []model.ProjectConfig
	err      error
}

func (f fakeRegistry) ListConnectable(context.Context) ([]model.ProjectConfig, error) {
	return f.projects, f.err
}

type fakeLocal struct {
	tables map[string][]model.RawUserRow
}

func (f fakeLocal) FetchUsers(_ context.Context, table string, limit int) ([]model.RawUserRow, error) {
	rows, ok := f.tables[table]
	if !ok {
		return nil, errors.New("relation does not exist")
	}
	if limit != RowLimit {
		return nil, errors.New("unexpected limit")
	}
	return rows, nil
}

type fakeRemote struct {
	rows  map[string][]model.RawUserRow
	fail  map[string]error
	delay time.Duration
	// gate, when set, blocks every call until all expected calls are in flight.
	gate     *sync.WaitGroup
	inFlight int32
	maxSeen  int32
}

func (f *fakeRemote) FetchUsers(ctx context.Context, p model.ProjectConfig, key string, limit int) ([]model.RawUserRow, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		m := atomic.LoadInt32(&f.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxSeen, m, n) {
			break
		}
	}
	if f.gate != nil {
		f.gate.Done()
		f.gate.Wait()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if key != "key-"+p.RemoteRef {
		return nil, errors.New("bad key")
	}
	if err := f.fail[p.AppName]; err != nil {
		return nil, err
	}
	return f.rows[p.AppName], nil
}

func fixture() ([]model.ProjectConfig, fakeLocal, *fakeRemote, supabase.StaticCredentials) {
	projects := []model.ProjectConfig{
		{AppName: "Hub", IsLocal: true, UsersTable: "hub_users"},
		{AppName: "Votely", RemoteBaseURL: "https://votely.example", RemoteRef: "vt", UsersTable: "profiles"},
		{AppName: "DealerHub", RemoteBaseURL: "https://dealer.example", RemoteRef: "dh", UsersTable: "users"},
		{AppName: "Orphan", RemoteBaseURL: "https://orphan.example", RemoteRef: "nokey"},
	}
	local := fakeLocal{tables: map[string][]model.RawUserRow{
		"hub_users": {
			{"id": int64(1), "name": "Local One", "created_at": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
	}}
	remote := &fakeRemote{rows: map[string][]model.RawUserRow{
		"Votely": {
			{"id": "v1", "display_name": "Vee", "created_at": "2025-06-01T00:00:00Z"},
			{"id": "v2", "email": "nodate@x.io"},
		},
		"DealerHub": {
			{"id": "d1", "first_name": "Dee", "role": "dealer", "created_at": "2024-06-01T00:00:00Z"},
		},
	}, fail: map[string]error{}}
	creds := supabase.StaticCredentials{"vt": "key-vt", "dh": "key-dh"}
	return projects, local, remote, creds
}

func TestAllUsersMergesAndSorts(t *testing.T) {
	projects, local, remote, creds := fixture()
	a := New(fakeRegistry{projects: projects}, local, remote, creds, nil)

	res, err := a.AllUsers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, u := range res.Users {
		got = append(got, u.App+"/"+u.ID)
	}
	want := []string{"Votely/v1", "DealerHub/d1", "Hub/1", "Votely/v2"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
	if res.Users[1].Role != "user" || res.Users[1].Name != "Dee" {
		t.Errorf("Expected normalized dealer row, got %+v", res.Users[1])
	}
	if len(res.Skipped) != 1 || res.Skipped[0].App != "Orphan" {
		t.Errorf("Expected Orphan skipped for missing credential, got %+v", res.Skipped)
	}
}

func TestUnreachableProjectDoesNotCascade(t *testing.T) {
	projects, local, remote, creds := fixture()
	a := New(fakeRegistry{projects: projects}, local, remote, creds, nil)
	baseline, err := a.AllUsers(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	remote.fail["DealerHub"] = errors.New("dial tcp: connection refused")
	degraded, err := a.AllUsers(context.Background())
	if err != nil {
		t.Fatalf("Expected partial result, got error %v", err)
	}
	var want []model.NormalizedUser
	for _, u := range baseline.Users {
		if u.App != "DealerHub" {
			want = append(want, u)
		}
	}
	if len(degraded.Users) != len(want) {
		t.Fatalf("Expected %d users from reachable projects, got %d", len(want), len(degraded.Users))
	}
	for i := range want {
		if degraded.Users[i].Key() != want[i].Key() || degraded.Users[i].Name != want[i].Name {
			t.Errorf("Row %d changed: expected %+v, got %+v", i, want[i], degraded.Users[i])
		}
	}
	if len(degraded.Skipped) != 2 {
		t.Errorf("Expected DealerHub and Orphan skipped, got %+v", degraded.Skipped)
	}
}

func TestLocalFailureIsSkipped(t *testing.T) {
	projects, _, remote, creds := fixture()
	a := New(fakeRegistry{projects: projects}, fakeLocal{}, remote, creds, nil)
	res, err := a.AllUsers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range res.Users {
		if u.App == "Hub" {
			t.Errorf("Expected no rows from failing local project, got %+v", u)
		}
	}
}

func TestRegistryFailureIsFatal(t *testing.T) {
	a := New(fakeRegistry{err: errors.New("connection reset")}, fakeLocal{}, &fakeRemote{}, supabase.StaticCredentials{}, nil)
	_, err := a.AllUsers(context.Background())
	if !errors.Is(err, ErrRegistryUnavailable) {
		t.Errorf("Expected ErrRegistryUnavailable, got %v", err)
	}
}

func TestEmptyRegistryYieldsEmptyList(t *testing.T) {
	a := New(fakeRegistry{}, fakeLocal{}, &fakeRemote{}, supabase.StaticCredentials{}, nil)
	res, err := a.AllUsers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Users == nil || len(res.Users) != 0 {
		t.Errorf("Expected empty non-nil list, got %#v", res.Users)
	}
}

func TestFetchesRunConcurrently(t *testing.T) {
	projects := []model.ProjectConfig{
		{AppName: "A", RemoteBaseURL: "https://a", RemoteRef: "a"},
		{AppName: "B", RemoteBaseURL: "https://b", RemoteRef: "b"},
		{AppName: "C", RemoteBaseURL: "https://c", RemoteRef: "c"},
	}
	gate := &sync.WaitGroup{}
	gate.Add(len(projects))
	remote := &fakeRemote{rows: map[string][]model.RawUserRow{}, fail: map[string]error{}, gate: gate}
	creds := supabase.StaticCredentials{"a": "key-a", "b": "key-b", "c": "key-c"}

	done := make(chan struct{})
	go func() {
		defer close(done)
		a := New(fakeRegistry{projects: projects}, fakeLocal{}, remote, creds, nil)
		if _, err := a.AllUsers(context.Background()); err != nil {
			t.Error(err)
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected all fetches to be in flight at once; sequential fetching deadlocked the gate")
	}
	if atomic.LoadInt32(&remote.maxSeen) != int32(len(projects)) {
		t.Errorf("Expected %d concurrent fetches, saw %d", len(projects), remote.maxSeen)
	}
}

func TestConcurrentAggregationsAreSetEqual(t *testing.T) {
	projects, local, remote, creds := fixture()
	remote.delay = 5 * time.Millisecond
	a := New(fakeRegistry{projects: projects}, local, remote, creds, nil)

	const n = 8
	results := make([][]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := a.AllUsers(context.Background())
			if err != nil {
				t.Error(err)
				return
			}
			for _, u := range res.Users {
				results[i] = append(results[i], u.Key())
			}
			sort.Strings(results[i])
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if len(results[i]) != len(results[0]) {
			t.Fatalf("Result %d differs: %v vs %v", i, results[i], results[0])
		}
		for j := range results[0] {
			if results[i][j] != results[0][j] {
				t.Fatalf("Result %d differs: %v vs %v", i, results[i], results[0])
			}
		}
	}
}

func TestDuplicateKeys(t *testing.T) {
	users := []model.NormalizedUser{{App: "A", ID: "1"}, {App: "B", ID: "1"}, {App: "A", ID: "1"}}
	if got := duplicateKeys(users); got != 1 {
		t.Errorf("Expected 1 duplicate, got %d", got)
	}
}
