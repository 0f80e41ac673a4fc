package audit

import "context"

// Entry is one pending audit record: what happened to which entity, with
// before/after snapshots. Snapshots are marshaled to JSON at persistence time.
type Entry struct {
	Action     string
	EntityType string
	EntityID   string
	OldValues  interface{}
	NewValues  interface{}
	ActorID    string
}

// Recorder receives audit entries for committed mutations. Delivery is
// best-effort: callers log a Record failure and move on, it never rolls back
// the business transaction that produced the entries.
type Recorder interface {
	Record(ctx context.Context, entries []Entry) error
}
