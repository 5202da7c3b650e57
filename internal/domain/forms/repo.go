package forms

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, s *Submission) error
	GetByID(ctx context.Context, id uuid.UUID) (*Submission, error)
	GetActiveByVisitAndType(ctx context.Context, visitID uuid.UUID, formType FormType) (*Submission, error)
	ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*Submission, error)
	// UpdateStatus moves a submission from one status to another, returning
	// false if the submission was not in the expected status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string, approvedBy *string, rejectionReason *string) (bool, error)
}
