package visit

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)
	List(ctx context.Context, limit, offset int) ([]*Visit, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Visit, int, error)
	UpdateFields(ctx context.Context, v *Visit) error
	// UpdateStatus applies a conditional status transition, returning false
	// when the visit was no longer in the expected prior status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, actor string) (bool, error)
}
