package writeback

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/model"
	"github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/normalize"
	"github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/supabase"
)

var fixedNow = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func sp(s string) *string { return &s }

type fakeRegistry map[string]model.ProjectConfig

func (f fakeRegistry) FindByName(_ context.Context, app string) (model.ProjectConfig, error) {
	p, ok := f[app]
	if !ok {
		return model.ProjectConfig{}, sql.ErrNoRows
	}
	return p, nil
}

type call struct {
	table, id, key string
	payload        map[string]any
}

type fakeLocal struct {
	calls []call
	err   error
}

func (f *fakeLocal) UpdateUser(_ context.Context, table, id string, payload map[string]any) error {
	f.calls = append(f.calls, call{table: table, id: id, payload: payload})
	return f.err
}

type fakeRemote struct {
	calls []call
	err   error
}

func (f *fakeRemote) PatchUser(_ context.Context, p model.ProjectConfig, key, table, id string, payload map[string]any) error {
	f.calls = append(f.calls, call{table: table, id: id, key: key, payload: payload})
	return f.err
}

func newTranslator(t *testing.T) (*Translator, *fakeLocal, *fakeRemote) {
	t.Helper()
	m, err := LoadMappings("")
	if err != nil {
		t.Fatal(err)
	}
	reg := fakeRegistry{
		"Hub":         {AppName: "Hub", IsLocal: true, UsersTable: "hub_users"},
		"BuyerBridge": {AppName: "BuyerBridge", RemoteBaseURL: "https://bb", RemoteRef: "bb", UsersTable: "users"},
		"Votely":      {AppName: "Votely", RemoteBaseURL: "https://vt", RemoteRef: "vt", UsersTable: "profiles"},
		"DealerHub":   {AppName: "DealerHub", RemoteBaseURL: "https://dh", RemoteRef: "dh", UsersTable: "dealer_users_view"},
		"NoKey":       {AppName: "NoKey", RemoteBaseURL: "https://nk", RemoteRef: "nk"},
	}
	local, remote := &fakeLocal{}, &fakeRemote{}
	tr := New(reg, local, remote, supabase.StaticCredentials{"bb": "kb", "vt": "kv", "dh": "kd"}, m)
	tr.Now = func() time.Time { return fixedNow }
	return tr, local, remote
}

func keys(m map[string]any) string {
	var ks []string
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return strings.Join(ks, ",")
}

func TestCombinedNameColumn(t *testing.T) {
	tr, _, remote := newTranslator(t)
	res, err := tr.Update(context.Background(), Request{UserID: "u1", App: "BuyerBridge",
		Fields: model.UserFields{FirstName: sp("A"), LastName: sp("B")}})
	if err != nil {
		t.Fatal(err)
	}
	if keys(res.Payload) != "name,updated_at" || res.Payload["name"] != "A B" {
		t.Errorf("Expected {name: A B, updated_at}, got %v", res.Payload)
	}
	if len(remote.calls) != 1 || remote.calls[0].key != "kb" || remote.calls[0].id != "u1" {
		t.Errorf("Expected one remote PATCH with key kb, got %+v", remote.calls)
	}
}

func TestCombinedDisplayNameSkipsEmptyPart(t *testing.T) {
	tr, _, _ := newTranslator(t)
	res, err := tr.Update(context.Background(), Request{UserID: "u1", App: "Votely",
		Fields: model.UserFields{FirstName: sp(""), LastName: sp("Solo")}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Payload["display_name"] != "Solo" || keys(res.Payload) != "display_name,updated_at" {
		t.Errorf("Expected display_name Solo only, got %v", res.Payload)
	}
}

func TestDiscreteColumnsOnDefaultMapping(t *testing.T) {
	tr, local, _ := newTranslator(t)
	res, err := tr.Update(context.Background(), Request{UserID: "7", App: "Hub",
		Fields: model.UserFields{FirstName: sp("Jane"), Email: sp("j@x.io"), Status: sp("suspended")}})
	if err != nil {
		t.Fatal(err)
	}
	if keys(res.Payload) != "email,first_name,status,updated_at" {
		t.Errorf("Unexpected payload keys %s", keys(res.Payload))
	}
	stamp, _ := res.Payload["updated_at"].(time.Time)
	if res.Payload["status"] != "suspended" || !stamp.Equal(fixedNow) {
		t.Errorf("Expected verbatim status and stamp, got %v", res.Payload)
	}
	if len(local.calls) != 1 || local.calls[0].table != "hub_users" || local.calls[0].id != "7" {
		t.Errorf("Expected local update on hub_users, got %+v", local.calls)
	}
}

func TestStatusBooleanTranslation(t *testing.T) {
	m := ColumnMapping{Email: "email"}
	p, err := BuildPayload(m, model.UserFields{Status: sp("active")}, fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	if keys(p) != "is_active,updated_at" || p["is_active"] != true {
		t.Errorf("Expected is_active true, got %v", p)
	}
	p, _ = BuildPayload(m, model.UserFields{Status: sp("suspended")}, fixedNow)
	if p["is_active"] != false {
		t.Errorf("Expected is_active false, got %v", p)
	}
}

func TestLegacyActiveFlagAndTableOverride(t *testing.T) {
	tr, _, remote := newTranslator(t)
	res, err := tr.Update(context.Background(), Request{UserID: "d9", App: "DealerHub",
		Fields: model.UserFields{Status: sp("active"), Phone: sp("555")}})
	if err != nil {
		t.Fatal(err)
	}
	if keys(res.Payload) != "active,is_active,mobile,updated_at" {
		t.Errorf("Unexpected payload keys %s", keys(res.Payload))
	}
	if res.Payload["active"] != true || res.Payload["is_active"] != true {
		t.Errorf("Expected both flags true, got %v", res.Payload)
	}
	if res.Table != "dealer_users" || remote.calls[0].table != "dealer_users" {
		t.Errorf("Expected writable override table, got %s", res.Table)
	}
}

func TestUnknownAppAlwaysFails(t *testing.T) {
	tr, local, remote := newTranslator(t)
	for _, f := range []model.UserFields{{}, {Email: sp("x@y.z")}, {FirstName: sp("A"), Status: sp("active")}} {
		_, err := tr.Update(context.Background(), Request{UserID: "1", App: "Ghost", Fields: f})
		if !errors.Is(err, ErrAppNotFound) || !strings.Contains(err.Error(), "Ghost") {
			t.Errorf("Expected app-identifying ErrAppNotFound, got %v", err)
		}
	}
	if len(local.calls)+len(remote.calls) != 0 {
		t.Error("Expected no writes for unknown app")
	}
}

func TestNoValidFields(t *testing.T) {
	tr, local, remote := newTranslator(t)
	// Empty name parts do not count as supplied for a combined name column.
	cases := []Request{
		{UserID: "1", App: "Hub"},
		{UserID: "1", App: "BuyerBridge", Fields: model.UserFields{FirstName: sp(""), LastName: sp("")}},
	}
	for _, req := range cases {
		if _, err := tr.Update(context.Background(), req); !errors.Is(err, ErrNoValidFields) {
			t.Errorf("%s: expected ErrNoValidFields, got %v", req.App, err)
		}
	}
	if len(local.calls)+len(remote.calls) != 0 {
		t.Error("Expected no writes when nothing maps")
	}
}

func TestInvalidRequest(t *testing.T) {
	tr, _, _ := newTranslator(t)
	for _, req := range []Request{{App: "Hub"}, {UserID: "1"}, {UserID: "  ", App: "Hub"}} {
		if _, err := tr.Update(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("Expected ErrInvalidRequest for %+v, got %v", req, err)
		}
	}
}

func TestMissingCredentialIsFatal(t *testing.T) {
	tr, _, remote := newTranslator(t)
	_, err := tr.Update(context.Background(), Request{UserID: "1", App: "NoKey", Fields: model.UserFields{Email: sp("a@b.c")}})
	if !errors.Is(err, ErrMissingCredential) {
		t.Errorf("Expected ErrMissingCredential, got %v", err)
	}
	if len(remote.calls) != 0 {
		t.Error("Expected no remote call without credential")
	}
}

func TestRemoteFailureCarriesStatusAndBody(t *testing.T) {
	tr, _, remote := newTranslator(t)
	remote.err = &supabase.RemoteError{Method: "PATCH", URL: "https://vt/rest/v1/profiles", Status: 403, Body: "permission denied"}
	_, err := tr.Update(context.Background(), Request{UserID: "1", App: "Votely", Fields: model.UserFields{Role: sp("admin")}})
	var re *supabase.RemoteError
	if !errors.As(err, &re) || re.Status != 403 {
		t.Fatalf("Expected wrapped RemoteError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Votely") || !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("Expected app name and body in error, got %v", err)
	}
}

func TestRoundTripUnchangedUserHasNothingToWrite(t *testing.T) {
	raw := model.RawUserRow{"id": "5", "first_name": "Jane", "last_name": "Doe", "email": "j@d.io", "status": "active"}
	u := normalize.User("Hub", raw)
	fields := ChangedFields(u, u)
	if !fields.Empty() {
		t.Fatalf("Expected no changed fields, got %+v", fields)
	}
	if _, err := BuildPayload(ColumnMapping{FirstName: "first_name", LastName: "last_name", Email: "email", Status: "status"}, fields, fixedNow); !errors.Is(err, ErrNoValidFields) {
		t.Errorf("Expected ErrNoValidFields for unchanged user, got %v", err)
	}
}

func TestChangedFieldsSplitsRenamedUser(t *testing.T) {
	before := model.NormalizedUser{Name: "Jane Doe", Email: "a@b.c", Role: "user"}
	after := before
	after.Name = "Mary Ann Smith"
	after.Role = "manager"
	f := ChangedFields(before, after)
	if f.FirstName == nil || *f.FirstName != "Mary" || f.LastName == nil || *f.LastName != "Ann Smith" {
		t.Errorf("Expected Mary / Ann Smith, got %+v", f)
	}
	if f.Email != nil || f.Role == nil || *f.Role != "manager" {
		t.Errorf("Expected only role and name changes, got %+v", f)
	}
}

func TestMappingFallbackAndFileOverride(t *testing.T) {
	m, err := LoadMappings("")
	if err != nil {
		t.Fatal(err)
	}
	if got := m.For("NotListed"); got.FirstName != "first_name" || got.Status != "status" {
		t.Errorf("Expected default mapping, got %+v", got)
	}
	if got := m.TableFor(model.ProjectConfig{AppName: "Hub"}); got != "users" {
		t.Errorf("Expected users default table, got %s", got)
	}

	path := filepath.Join(t.TempDir(), "map.yaml")
	os.WriteFile(path, []byte("default:\n  email: mail\napps:\n  X:\n    name: full_name\n"), 0o644)
	m, err = LoadMappings(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.For("Y").Email != "mail" || !m.For("X").Combined() {
		t.Errorf("Unexpected mappings from file: %+v", m)
	}
	if _, err := ParseMappings([]byte("apps: {}\n")); err == nil {
		t.Error("Expected error for missing default mapping")
	}
}
