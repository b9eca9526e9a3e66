package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// Service manages the lifecycle of the single logical memory scope: resolve
// it without the caller holding an identifier, append interaction events, and
// read back a bounded window of recent turns.
type Service struct {
	repo          Repository
	retentionDays int
	log           *logger.Logger
}

// NewService constructs a memory service
func NewService(repo Repository, retentionDays int) *Service {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &Service{
		repo:          repo,
		retentionDays: retentionDays,
		log:           logger.Get().With("component", "memory"),
	}
}

// ResolveOrCreate returns the id of the first scope whose name matches the
// prefix, creating one if none exists. Concurrent first-time runs may race
// and create duplicate scopes; that is accepted best-effort behavior, later
// calls consistently resolve to the oldest scope.
func (s *Service) ResolveOrCreate(ctx context.Context, prefix string) (uuid.UUID, error) {
	if prefix == "" {
		return uuid.Nil, errors.ErrInvalidInput
	}

	scopes, err := s.repo.FindScopesByPrefix(ctx, prefix)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "list memory scopes")
	}

	if len(scopes) > 0 {
		return scopes[0].ID, nil
	}

	scope := &Scope{
		ID:            uuid.New(),
		Name:          prefix,
		Description:   "Memory for the financial agent to keep past user interactions",
		RetentionDays: s.retentionDays,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.CreateScope(ctx, scope); err != nil {
		return uuid.Nil, errors.Wrap(err, "create memory scope")
	}

	s.log.Infof("Created memory scope %s (%s)", scope.Name, scope.ID)
	return scope.ID, nil
}

// AppendEvent records an interaction. Fire-and-forget: failures are logged
// and never surfaced to the pipeline.
func (s *Service) AppendEvent(ctx context.Context, scopeID uuid.UUID, actorID, sessionID, text string) {
	if scopeID == uuid.Nil || actorID == "" || sessionID == "" {
		s.log.Warn("Skipping memory append: missing scope, actor or session id")
		return
	}

	now := time.Now().UTC()
	event := &Event{
		ID:        uuid.New(),
		ScopeID:   scopeID,
		ActorID:   actorID,
		SessionID: sessionID,
		Text:      text,
		CreatedAt: now,
		ExpiresAt: now.AddDate(0, 0, s.retentionDays),
	}

	if err := s.repo.AppendEvent(ctx, event); err != nil {
		s.log.Warnf("Could not save interaction to memory: %v", err)
		return
	}

	s.log.Debug("Interaction saved to memory")
}

// ReadRecent returns up to k most recent turns for (actor, session) in the
// scope, newest-last. Returns nil (not an error) when either identifier is
// empty or nothing is stored.
func (s *Service) ReadRecent(ctx context.Context, scopeID uuid.UUID, actorID, sessionID string, k int) []*Event {
	if scopeID == uuid.Nil || actorID == "" || sessionID == "" {
		s.log.Debug("Missing actor or session id, skipping memory read")
		return nil
	}
	if k <= 0 {
		return nil
	}

	events, err := s.repo.RecentEvents(ctx, scopeID, actorID, sessionID, k)
	if err != nil {
		s.log.Warnf("Memory load error: %v", err)
		return nil
	}

	if len(events) == 0 {
		return nil
	}

	return events
}
