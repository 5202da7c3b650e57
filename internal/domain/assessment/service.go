package assessment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/domain/audit"
	"github.com/careflow/careflow/internal/domain/forms"
	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/internal/platform/db"
)

// VisitGuard verifies a visit exists and still accepts clinical writes.
type VisitGuard interface {
	EnsureOpen(ctx context.Context, id uuid.UUID) error
}

// Binder creates the form submission that ties an assessment to its visit.
type Binder interface {
	Submit(ctx context.Context, visitID uuid.UUID, formType forms.FormType, actor string) (*forms.Submission, error)
}

type Service struct {
	nursing   NursingRepository
	radiology RadiologyRepository
	binder    Binder
	guard     VisitGuard
	audit     *audit.Service
	run       db.TxRunner
}

func NewService(nursing NursingRepository, radiology RadiologyRepository, binder Binder, guard VisitGuard, auditSvc *audit.Service, run db.TxRunner) *Service {
	return &Service{
		nursing:   nursing,
		radiology: radiology,
		binder:    binder,
		guard:     guard,
		audit:     auditSvc,
		run:       run,
	}
}

// CreateNursing records the nursing assessment for a visit. The submission
// binding and the assessment row persist in one transaction; a duplicate
// kind for the visit surfaces as a conflict from storage.
func (s *Service) CreateNursing(ctx context.Context, visitID uuid.UUID, a *NursingAssessment, actor string) error {
	if err := s.guard.EnsureOpen(ctx, visitID); err != nil {
		return err
	}
	if err := a.Validate(); err != nil {
		return err
	}
	a.ComputeBMI()
	a.VisitID = visitID
	a.AssessedBy = actor
	a.AssessedAt = time.Now().UTC()

	return s.run(ctx, func(ctx context.Context) error {
		sub, err := s.binder.Submit(ctx, visitID, forms.TypeNursing, actor)
		if err != nil {
			return err
		}
		a.SubmissionID = sub.ID
		if err := s.nursing.Create(ctx, a); err != nil {
			return err
		}
		return s.audit.Log(ctx, audit.Entry{
			UserID:       actor,
			Action:       audit.ActionCreate,
			ResourceType: "nursing_assessment",
			ResourceID:   &a.ID,
			NewValues: map[string]interface{}{
				"visit_id":      visitID.String(),
				"submission_id": sub.ID.String(),
			},
		})
	})
}

// UpdateNursing patches an existing nursing assessment. BMI is recomputed
// from the patched measurements merged with stored values.
func (s *Service) UpdateNursing(ctx context.Context, id uuid.UUID, patch NursingPatch, actor string) (*NursingAssessment, error) {
	a, err := s.nursing.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.EnsureOpen(ctx, a.VisitID); err != nil {
		if apperr.IsKind(err, apperr.KindState) {
			return nil, apperr.State("cannot update assessment for a completed or cancelled visit")
		}
		return nil, err
	}
	if patch.Empty() {
		return a, nil
	}

	old := map[string]interface{}{
		"bmi": derefFloat(a.BMI),
	}
	patch.Apply(a)
	if err := a.Validate(); err != nil {
		return nil, err
	}
	a.ComputeBMI()

	err = s.run(ctx, func(ctx context.Context) error {
		if err := s.nursing.Update(ctx, a); err != nil {
			return err
		}
		return s.audit.Log(ctx, audit.Entry{
			UserID:       actor,
			Action:       audit.ActionUpdate,
			ResourceType: "nursing_assessment",
			ResourceID:   &a.ID,
			OldValues:    old,
			NewValues:    map[string]interface{}{"bmi": derefFloat(a.BMI)},
		})
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) GetNursing(ctx context.Context, id uuid.UUID) (*NursingAssessment, error) {
	return s.nursing.GetByID(ctx, id)
}

func (s *Service) GetNursingByVisit(ctx context.Context, visitID uuid.UUID) (*NursingAssessment, error) {
	return s.nursing.GetByVisit(ctx, visitID)
}

// CreateRadiology records the radiology assessment for a visit, mirroring
// the nursing flow.
func (s *Service) CreateRadiology(ctx context.Context, visitID uuid.UUID, a *RadiologyAssessment, actor string) error {
	if err := s.guard.EnsureOpen(ctx, visitID); err != nil {
		return err
	}
	a.Normalize()
	if err := a.Validate(); err != nil {
		return err
	}
	a.VisitID = visitID
	a.AssessedBy = actor
	a.AssessedAt = time.Now().UTC()

	return s.run(ctx, func(ctx context.Context) error {
		sub, err := s.binder.Submit(ctx, visitID, forms.TypeRadiology, actor)
		if err != nil {
			return err
		}
		a.SubmissionID = sub.ID
		if err := s.radiology.Create(ctx, a); err != nil {
			return err
		}
		return s.audit.Log(ctx, audit.Entry{
			UserID:       actor,
			Action:       audit.ActionCreate,
			ResourceType: "radiology_assessment",
			ResourceID:   &a.ID,
			NewValues: map[string]interface{}{
				"visit_id":      visitID.String(),
				"submission_id": sub.ID.String(),
			},
		})
	})
}

func (s *Service) UpdateRadiology(ctx context.Context, id uuid.UUID, patch RadiologyPatch, actor string) (*RadiologyAssessment, error) {
	a, err := s.radiology.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.EnsureOpen(ctx, a.VisitID); err != nil {
		if apperr.IsKind(err, apperr.KindState) {
			return nil, apperr.State("cannot update assessment for a completed or cancelled visit")
		}
		return nil, err
	}
	if patch.Empty() {
		return a, nil
	}

	old := map[string]interface{}{
		"findings": a.Findings,
	}
	patch.Apply(a)
	a.Normalize()
	if err := a.Validate(); err != nil {
		return nil, err
	}

	err = s.run(ctx, func(ctx context.Context) error {
		if err := s.radiology.Update(ctx, a); err != nil {
			return err
		}
		return s.audit.Log(ctx, audit.Entry{
			UserID:       actor,
			Action:       audit.ActionUpdate,
			ResourceType: "radiology_assessment",
			ResourceID:   &a.ID,
			OldValues:    old,
			NewValues:    map[string]interface{}{"findings": a.Findings},
		})
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) GetRadiology(ctx context.Context, id uuid.UUID) (*RadiologyAssessment, error) {
	return s.radiology.GetByID(ctx, id)
}

func (s *Service) GetRadiologyByVisit(ctx context.Context, visitID uuid.UUID) (*RadiologyAssessment, error) {
	return s.radiology.GetByVisit(ctx, visitID)
}

func derefFloat(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
