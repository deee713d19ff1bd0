// Package activity defines the append-only activity event sink fed by
// the orchestrator and the research pipeline. Appends are best-effort:
// callers log failures and continue.
package activity

import "context"

// Event is one activity-log entry.
type Event struct {
	ActivityType string         `json:"activity_type"`
	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	EntityName   string         `json:"entity_name,omitempty"`
	UserID       string         `json:"user_id,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Logger appends events to the activity log.
type Logger interface {
	Append(ctx context.Context, ev Event) error
}

// Nop is a Logger that discards every event.
type Nop struct{}

// Append implements Logger.
func (Nop) Append(context.Context, Event) error { return nil }
