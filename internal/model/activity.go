package model

import "time"

// Activity is one recorded user edit, stored in the admin_activity table by
// the event consumer and listed on the dashboard's activity view.
type Activity struct {
    EventID   string         `json:"event_id"`
    App       string         `json:"app"`
    UserID    string         `json:"user_id"`
    Table     string         `json:"table"`
    Fields    map[string]any `json:"fields"`
    UpdatedAt time.Time      `json:"updated_at"`
}
