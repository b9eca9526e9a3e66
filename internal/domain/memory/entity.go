package memory

import (
	"time"

	"github.com/google/uuid"
)

// Scope is a named, durable conversation store. One logical scope exists per
// deployment; resolution is lookup-or-create by name prefix.
type Scope struct {
	ID            uuid.UUID `db:"id"`
	Name          string    `db:"name"`
	Description   string    `db:"description"`
	RetentionDays int       `db:"retention_days"`
	CreatedAt     time.Time `db:"created_at"`
}

// Event is one append-only interaction record inside a scope, keyed by actor
// and session. Events expire after the scope's retention window.
type Event struct {
	ID        uuid.UUID `db:"id"`
	ScopeID   uuid.UUID `db:"scope_id"`
	ActorID   string    `db:"actor_id"`
	SessionID string    `db:"session_id"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}
