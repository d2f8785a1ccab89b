package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/member-management/internal"
	auditDatamodel "github.com/frahmantamala/member-management/internal/core/datamodel/audit"
	"github.com/frahmantamala/member-management/internal/core/events"
)

const (
	DefaultRecentLimit = 50
	MaxRecentLimit     = 500
)

type RepositoryAPI interface {
	Create(ctx context.Context, row *auditDatamodel.AuditLog) error
	ListRecent(ctx context.Context, limit int) ([]*auditDatamodel.AuditLog, error)
}

// Sink persists every event published on the bus.
type Sink struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewSink(repo RepositoryAPI, logger *slog.Logger) *Sink {
	return &Sink{repo: repo, logger: logger}
}

func (s *Sink) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.Wildcard, s.Handle)
}

func (s *Sink) Handle(ctx context.Context, evt events.Event) error {
	entry, err := EntryFromEvent(evt)
	if err != nil {
		return fmt.Errorf("failed to build audit entry for %s: %w", evt.EventType(), err)
	}
	if err := s.repo.Create(ctx, entry.ToDataModel()); err != nil {
		return fmt.Errorf("failed to store audit entry for %s: %w", evt.EventType(), err)
	}

	s.logger.Debug("audit entry stored", "action", entry.Action, "entity_type", entry.EntityType, "entity_id", entry.EntityID)
	return nil
}

// Recent returns the newest entries first. A zero limit means
// DefaultRecentLimit; larger limits are clamped to MaxRecentLimit.
func (s *Sink) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	rows, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, internal.NewInternalError("failed to list audit entries", err)
	}
	out := make([]*Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out, nil
}
