package assessment

import (
	"context"

	"github.com/google/uuid"
)

type NursingRepository interface {
	Create(ctx context.Context, a *NursingAssessment) error
	GetByID(ctx context.Context, id uuid.UUID) (*NursingAssessment, error)
	GetByVisit(ctx context.Context, visitID uuid.UUID) (*NursingAssessment, error)
	Update(ctx context.Context, a *NursingAssessment) error
}

type RadiologyRepository interface {
	Create(ctx context.Context, a *RadiologyAssessment) error
	GetByID(ctx context.Context, id uuid.UUID) (*RadiologyAssessment, error)
	GetByVisit(ctx context.Context, visitID uuid.UUID) (*RadiologyAssessment, error)
	Update(ctx context.Context, a *RadiologyAssessment) error
}
