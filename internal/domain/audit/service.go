package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/internal/platform/db"
)

type Service struct {
	repo          Repository
	run           db.TxRunner
	retentionDays int
	logger        zerolog.Logger
}

func NewService(repo Repository, run db.TxRunner, retentionDays int, logger zerolog.Logger) *Service {
	return &Service{repo: repo, run: run, retentionDays: retentionDays, logger: logger}
}

// Entry describes one auditable event.
type Entry struct {
	UserID       string
	Action       string
	ResourceType string
	ResourceID   *uuid.UUID
	OldValues    map[string]interface{}
	NewValues    map[string]interface{}
}

// Log appends an audit record if the classification policy requires one.
// The append goes through the context connection, so inside a transaction
// the record commits or rolls back together with the mutation it describes.
func (s *Service) Log(ctx context.Context, e Entry) error {
	if !ShouldLog(e.Action, e.ResourceType) {
		return nil
	}

	l := &Log{
		UserID:       e.UserID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		OldValues:    e.OldValues,
		NewValues:    e.NewValues,
		Timestamp:    time.Now().UTC(),
	}
	if info, ok := RequestInfoFromContext(ctx); ok {
		l.IPAddress = optional(info.IPAddress)
		l.UserAgent = optional(info.UserAgent)
		l.Endpoint = optional(info.Endpoint)
		l.Method = optional(info.Method)
		l.RequestID = optional(info.RequestID)
	}

	if err := s.repo.Create(ctx, l); err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	return nil
}

func (s *Service) ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID, limit, offset int) ([]*Log, int, error) {
	return s.repo.ListByResource(ctx, resourceType, resourceID, limit, offset)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Log, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

func (s *Service) Summary(ctx context.Context, from, to time.Time) (*Summary, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	return s.repo.Summary(ctx, from, to)
}

// Purge deletes audit entries older than the configured retention horizon.
// This is the only permitted deletion of audit data, and the purge itself is
// logged in the same transaction so the trail records its own truncation.
func (s *Service) Purge(ctx context.Context, actor string) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)

	var deleted int64
	err := s.run(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = s.repo.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("purge audit logs: %w", err)
		}
		return s.Log(ctx, Entry{
			UserID:       actor,
			Action:       ActionPurge,
			ResourceType: "audit_log",
			NewValues: map[string]interface{}{
				"deleted_count":  deleted,
				"cutoff":         cutoff.Format(time.RFC3339),
				"retention_days": s.retentionDays,
			},
		})
	})
	if err != nil {
		return 0, apperr.Internal(err)
	}

	s.logger.Info().
		Int64("deleted", deleted).
		Time("cutoff", cutoff).
		Str("actor", actor).
		Msg("audit retention purge")
	return deleted, nil
}

// RetentionDays reports the configured retention horizon.
func (s *Service) RetentionDays() int {
	return s.retentionDays
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
