package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"minerva/internal/domain/memory"
)

// Compile-time check
var _ memory.Repository = (*MemoryRepository)(nil)

// MemoryRepository implements memory.Repository using sqlx
type MemoryRepository struct {
	db *sqlx.DB
}

// NewMemoryRepository creates a new memory repository
func NewMemoryRepository(db *sqlx.DB) *MemoryRepository {
	return &MemoryRepository{db: db}
}

// FindScopesByPrefix returns scopes whose name starts with prefix, oldest
// first so repeated resolution is deterministic.
func (r *MemoryRepository) FindScopesByPrefix(ctx context.Context, prefix string) ([]*memory.Scope, error) {
	var scopes []*memory.Scope

	query := `
		SELECT * FROM memory_scopes
		WHERE name LIKE $1 || '%'
		ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &scopes, query, prefix)
	if err != nil {
		return nil, err
	}

	return scopes, nil
}

// CreateScope inserts a new memory scope
func (r *MemoryRepository) CreateScope(ctx context.Context, scope *memory.Scope) error {
	query := `
		INSERT INTO memory_scopes (
			id, name, description, retention_days, created_at
		) VALUES (
			$1, $2, $3, $4, $5
		)`

	_, err := r.db.ExecContext(ctx, query,
		scope.ID, scope.Name, scope.Description, scope.RetentionDays, scope.CreatedAt,
	)

	return err
}

// AppendEvent inserts an interaction event
func (r *MemoryRepository) AppendEvent(ctx context.Context, event *memory.Event) error {
	query := `
		INSERT INTO memory_events (
			id, scope_id, actor_id, session_id, text, created_at, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)`

	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.ScopeID, event.ActorID, event.SessionID, event.Text,
		event.CreatedAt, event.ExpiresAt,
	)

	return err
}

// RecentEvents returns up to limit unexpired events for (actor, session) in
// the scope, newest-last.
func (r *MemoryRepository) RecentEvents(ctx context.Context, scopeID uuid.UUID, actorID, sessionID string, limit int) ([]*memory.Event, error) {
	var events []*memory.Event

	query := `
		SELECT * FROM (
			SELECT * FROM memory_events
			WHERE scope_id = $1 AND actor_id = $2 AND session_id = $3
			  AND (expires_at IS NULL OR expires_at > NOW())
			ORDER BY created_at DESC
			LIMIT $4
		) recent
		ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &events, query, scopeID, actorID, sessionID, limit)
	if err != nil {
		return nil, err
	}

	return events, nil
}
