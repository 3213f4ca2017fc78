// Package normalize converts heterogeneous per-app user rows into the
// common NormalizedUser shape.  Every rule here is table driven: field
// fallbacks and role synonyms are plain data, and a missing or null field
// simply moves on to the next candidate.
package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/model"
)

// UnknownName is used when no name-like field or email is present.
const UnknownName = "Unknown"

// roleSynonyms maps raw role values onto the closed normalized set.
var roleSynonyms = map[string]string{
	"admin":         model.RoleAdmin,
	"super_admin":   model.RoleAdmin,
	"superadmin":    model.RoleAdmin,
	"administrator": model.RoleAdmin,
	"manager":       model.RoleManager,
	"user":          model.RoleUser,
	"member":        model.RoleUser,
	"consultant":    model.RoleUser,
	"dealer":        model.RoleUser,
	"wholesaler":    model.RoleUser,
	"viewer":        model.RoleViewer,
	"readonly":      model.RoleViewer,
}

var (
	idFields       = []string{"id", "user_id"}
	phoneFields    = []string{"phone", "mobile", "mfa_phone"}
	lastSignFields = []string{"last_sign_in_at", "last_login_at", "last_login", "last_active_at", "last_seen_at"}
)

// User normalizes one raw row belonging to app.
func User(app string, row model.RawUserRow) model.NormalizedUser {
	return model.NormalizedUser{
		ID:           firstString(row, idFields...),
		Name:         Name(row),
		Email:        str(row["email"]),
		Phone:        Phone(row),
		Role:         Role(row),
		Status:       Status(row),
		App:          app,
		CreatedAt:    Timestamp(row["created_at"]),
		LastSignInAt: firstTimestamp(row, lastSignFields...),
	}
}

// Users normalizes a batch of rows from one app.
func Users(app string, rows []model.RawUserRow) []model.NormalizedUser {
	out := make([]model.NormalizedUser, 0, len(rows))
	for _, r := range rows {
		out = append(out, User(app, r))
	}
	return out
}

// Name derives a display name: display_name, name, first_name + last_name,
// email, then UnknownName.
func Name(row model.RawUserRow) string {
	if v := str(row["display_name"]); v != "" {
		return v
	}
	if v := str(row["name"]); v != "" {
		return v
	}
	if v := JoinName(str(row["first_name"]), str(row["last_name"])); v != "" {
		return v
	}
	if v := str(row["email"]); v != "" {
		return v
	}
	return UnknownName
}

// JoinName space-joins the non-empty parts.
func JoinName(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// Role maps the raw role through roleSynonyms.  Unknown roles are returned
// verbatim; a row without any role is treated as a plain user.
func Role(row model.RawUserRow) string {
	raw := str(row["role"])
	if raw == "" {
		return model.RoleUser
	}
	if v, ok := roleSynonyms[raw]; ok {
		return v
	}
	if v, ok := roleSynonyms[strings.ToLower(raw)]; ok {
		return v
	}
	return raw
}

// Status applies the first matching signal: explicit status, is_active or
// active set to false, banned_until set, deleted_at set, else active.
func Status(row model.RawUserRow) string {
	if v := str(row["status"]); v != "" {
		return v
	}
	if isFalse(row["is_active"]) || isFalse(row["active"]) {
		return model.StatusInactive
	}
	if present(row, "banned_until") {
		return model.StatusSuspended
	}
	if present(row, "deleted_at") {
		return model.StatusInactive
	}
	return model.StatusActive
}

// Phone returns the first non-empty of phone, mobile, mfa_phone.
func Phone(row model.RawUserRow) string {
	return firstString(row, phoneFields...)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Timestamp converts a raw timestamp value into a UTC time.  Values that
// cannot be interpreted yield nil.
func Timestamp(v any) *time.Time {
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case *time.Time:
		if x == nil {
			return nil
		}
		t = *x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		parsed, ok := parseTime(s)
		if !ok {
			return nil
		}
		t = parsed
	case []byte:
		return Timestamp(string(x))
	default:
		return nil
	}
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SortByCreatedDesc orders users newest first.  Users without a creation
// time go last; ties keep their input order.
func SortByCreatedDesc(users []model.NormalizedUser) {
	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i].CreatedAt, users[j].CreatedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

func firstString(row model.RawUserRow, keys ...string) string {
	for _, k := range keys {
		if v := str(row[k]); v != "" {
			return v
		}
	}
	return ""
}

func firstTimestamp(row model.RawUserRow, keys ...string) *time.Time {
	for _, k := range keys {
		if t := Timestamp(row[k]); t != nil {
			return t
		}
	}
	return nil
}

func present(row model.RawUserRow, key string) bool {
	v, ok := row[key]
	if !ok || v == nil {
		return false
	}
	if p, isPtr := v.(*time.Time); isPtr && p == nil {
		return false
	}
	return true
}

// isFalse reports an explicit false flag: a boolean false, or a zero
// integer as MySQL returns TINYINT(1) columns (binary or text protocol).
func isFalse(v any) bool {
	switch x := v.(type) {
	case bool:
		return !x
	case int64:
		return x == 0
	case int:
		return x == 0
	case []byte:
		return string(x) == "0"
	case string:
		return x == "0"
	}
	return false
}

// str renders scalar values as strings; nil and composite values become "".
func str(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case []byte:
		return strings.TrimSpace(string(x))
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool, int32, uint64, uint32, float32:
		return fmt.Sprint(x)
	case fmt.Stringer:
		return x.String()
	default:
		return ""
	}
}
