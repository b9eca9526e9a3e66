package memory

import (
	"context"

	"github.com/google/uuid"
)

// Repository handles scope and event persistence
type Repository interface {
	// FindScopesByPrefix returns scopes whose name starts with prefix,
	// oldest first
	FindScopesByPrefix(ctx context.Context, prefix string) ([]*Scope, error)

	// CreateScope persists a new scope
	CreateScope(ctx context.Context, scope *Scope) error

	// AppendEvent persists a new event
	AppendEvent(ctx context.Context, event *Event) error

	// RecentEvents returns up to limit unexpired events for the
	// (scope, actor, session) triple, newest-last
	RecentEvents(ctx context.Context, scopeID uuid.UUID, actorID, sessionID string, limit int) ([]*Event, error)
}
