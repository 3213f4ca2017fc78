// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

import "time"

// UserUpdatedQueue is the durable queue carrying write-back activity.
const UserUpdatedQueue = "admin.user.updated"

// UserUpdatedEvent is published after a normalized edit has been written
// back to an app.  It carries the applied column payload so the activity
// feed can show what changed without querying the app again.
type UserUpdatedEvent struct {
    EventID   string         `json:"event_id"`
    App       string         `json:"app"`
    UserID    string         `json:"user_id"`
    Table     string         `json:"table"`
    IsLocal   bool           `json:"is_local"`
    Fields    map[string]any `json:"fields"`
    UpdatedAt time.Time      `json:"updated_at"`
}
