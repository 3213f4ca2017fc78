package model

import "time"

// RawUserRow is one user record exactly as a source app stores it.  Column
// names differ per app, so rows are kept as loosely typed maps and
// normalized by the normalize package.
type RawUserRow map[string]any

// Normalized role values.  Unrecognized raw roles pass through unchanged,
// so Role fields are not restricted to this set.
const (
    RoleAdmin   = "admin"
    RoleManager = "manager"
    RoleUser    = "user"
    RoleViewer  = "viewer"
)

// Normalized status values.
const (
    StatusActive    = "active"
    StatusInactive  = "inactive"
    StatusSuspended = "suspended"
)

// NormalizedUser is the common shape every source row is converted into.
// Values are built fresh for each aggregation and never persisted.  ID is
// only unique within one app; (App, ID) is the stable compound identity.
type NormalizedUser struct {
    ID           string     `json:"id"`
    Name         string     `json:"name"`
    Email        string     `json:"email"`
    Phone        string     `json:"phone"`
    Role         string     `json:"role"`
    Status       string     `json:"status"`
    App          string     `json:"app"`
    CreatedAt    *time.Time `json:"created_at"`
    LastSignInAt *time.Time `json:"last_sign_in_at"`
}

// Key returns the (app, id) compound identity as a single string.
func (u NormalizedUser) Key() string {
    return u.App + "/" + u.ID
}

// UserFields is the partial set of normalized fields an edit may carry.
// A nil pointer means "not supplied".
type UserFields struct {
    FirstName *string `json:"firstName,omitempty"`
    LastName  *string `json:"lastName,omitempty"`
    Email     *string `json:"email,omitempty"`
    Phone     *string `json:"phone,omitempty"`
    Role      *string `json:"role,omitempty"`
    Status    *string `json:"status,omitempty"`
}

// Empty reports whether no field was supplied at all.
func (f UserFields) Empty() bool {
    return f.FirstName == nil && f.LastName == nil && f.Email == nil &&
        f.Phone == nil && f.Role == nil && f.Status == nil
}
