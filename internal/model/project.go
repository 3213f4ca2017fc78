package model

// ProjectConfig represents one row of the app registry.  Each registered
// application in the portfolio has exactly one record describing where its
// user data lives.  The registry is read-only to this service.
//
// Fields:
//  AppName       – unique display name; the join key used by every caller.
//  IsLocal       – true when the app's users live in the shared database.
//  RemoteBaseURL – base URL of the hosted project (remote apps only).
//  RemoteRef     – project reference used to look up the service credential.
//  UsersTable    – literal table (or view) name holding the app's user rows.
type ProjectConfig struct {
    AppName       string `json:"app_name"`       // apps.name
    IsLocal       bool   `json:"is_local"`       // apps.is_local
    RemoteBaseURL string `json:"remote_base_url,omitempty"` // apps.remote_base_url (nullable)
    RemoteRef     string `json:"remote_ref,omitempty"`      // apps.remote_ref (nullable)
    UsersTable    string `json:"users_table"`    // apps.users_table, "users" when empty
}

// DefaultUsersTable is used when a registry row leaves users_table empty.
const DefaultUsersTable = "users"

// Table returns the configured users table or DefaultUsersTable.
func (p ProjectConfig) Table() string {
    if p.UsersTable == "" {
        return DefaultUsersTable
    }
    return p.UsersTable
}

// Connectable reports whether the record carries enough information to
// reach the app's data: local apps always do, remote apps need a base URL.
func (p ProjectConfig) Connectable() bool {
    return p.IsLocal || p.RemoteBaseURL != ""
}
