package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, l *Log) error
	ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID, limit, offset int) ([]*Log, int, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Log, int, error)
	Summary(ctx context.Context, from, to time.Time) (*Summary, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
