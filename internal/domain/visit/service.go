package visit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/domain/audit"
	"github.com/careflow/careflow/internal/domain/forms"
	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/internal/platform/auth"
	"github.com/careflow/careflow/internal/platform/db"
)

// Directory is the patient directory port consulted before a visit is
// created.
type Directory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// CompletionGate reports which assessment kinds a visit has on file. It is
// queried as a precondition of the completed transition.
type CompletionGate interface {
	Completion(ctx context.Context, visitID uuid.UUID) (*forms.CompletionStatus, error)
}

// ReopenRole is the privilege required to move a completed visit back to
// open. Admin implies it.
const ReopenRole = "supervisor"

type Service struct {
	repo      Repository
	directory Directory
	gate      CompletionGate
	audit     *audit.Service
	run       db.TxRunner
}

func NewService(repo Repository, directory Directory, gate CompletionGate, auditSvc *audit.Service, run db.TxRunner) *Service {
	return &Service{repo: repo, directory: directory, gate: gate, audit: auditSvc, run: run}
}

func (s *Service) CreateVisit(ctx context.Context, v *Visit, actor string) error {
	if v.PatientID == uuid.Nil {
		return apperr.Validation("patient_id", "is required")
	}
	exists, err := s.directory.Exists(ctx, v.PatientID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("patient")
	}

	v.Status = StatusOpen
	if v.VisitDate.IsZero() {
		v.VisitDate = time.Now().UTC()
	}
	v.CreatedBy = actor
	v.UpdatedBy = actor

	return s.run(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, v); err != nil {
			return err
		}
		return s.audit.Log(ctx, audit.Entry{
			UserID:       actor,
			Action:       audit.ActionCreate,
			ResourceType: "visit",
			ResourceID:   &v.ID,
			NewValues: map[string]interface{}{
				"patient_id": v.PatientID.String(),
				"status":     string(v.Status),
			},
		})
	})
}

func (s *Service) GetVisit(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListVisits(ctx context.Context, limit, offset int) ([]*Visit, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListVisitsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListVisitsByStatus(ctx context.Context, status Status, limit, offset int) ([]*Visit, int, error) {
	if !status.Valid() {
		return nil, 0, apperr.Validation("status", "must be open, completed, or cancelled")
	}
	return s.repo.ListByStatus(ctx, status, limit, offset)
}

// UpdateVisit patches chief complaint, notes, or visit date. Only open
// visits accept field mutations.
func (s *Service) UpdateVisit(ctx context.Context, id uuid.UUID, patch UpdateParams, actor string) (*Visit, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !v.IsOpen() {
		return nil, apperr.State(fmt.Sprintf("cannot update a %s visit", v.Status))
	}
	if patch.Empty() {
		return v, nil
	}

	old := map[string]interface{}{}
	updated := map[string]interface{}{}
	if patch.VisitDate != nil {
		old["visit_date"] = v.VisitDate.Format(time.RFC3339)
		v.VisitDate = *patch.VisitDate
		updated["visit_date"] = v.VisitDate.Format(time.RFC3339)
	}
	if patch.ChiefComplaint != nil {
		old["chief_complaint"] = strPtrValue(v.ChiefComplaint)
		v.ChiefComplaint = patch.ChiefComplaint
		updated["chief_complaint"] = *patch.ChiefComplaint
	}
	if patch.Notes != nil {
		old["notes"] = strPtrValue(v.Notes)
		v.Notes = patch.Notes
		updated["notes"] = *patch.Notes
	}
	v.UpdatedBy = actor

	err = s.run(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateFields(ctx, v); err != nil {
			return err
		}
		return s.audit.Log(ctx, audit.Entry{
			UserID:       actor,
			Action:       audit.ActionUpdate,
			ResourceType: "visit",
			ResourceID:   &v.ID,
			OldValues:    old,
			NewValues:    updated,
		})
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// CompleteVisit moves an open visit to completed. Both assessments must be
// on file; the gate is re-evaluated on every attempt.
func (s *Service) CompleteVisit(ctx context.Context, id uuid.UUID, actor string) (*Visit, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !v.Status.CanTransitionTo(StatusCompleted) {
		return nil, apperr.State(fmt.Sprintf("cannot complete a %s visit", v.Status))
	}

	cs, err := s.gate.Completion(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cs.Complete {
		return nil, apperr.Precondition(missingAssessments(cs))
	}

	return s.transition(ctx, v, StatusCompleted, audit.ActionComplete, actor)
}

// CancelVisit moves an open visit to the terminal cancelled state.
func (s *Service) CancelVisit(ctx context.Context, id uuid.UUID, actor string) (*Visit, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !v.Status.CanTransitionTo(StatusCancelled) {
		return nil, apperr.State(fmt.Sprintf("cannot cancel a %s visit", v.Status))
	}
	return s.transition(ctx, v, StatusCancelled, audit.ActionCancel, actor)
}

// ReopenVisit moves a completed visit back to open. Administrative
// correction only; requires the reopen privilege.
func (s *Service) ReopenVisit(ctx context.Context, id uuid.UUID, actor string, roles []string) (*Visit, error) {
	if !auth.HasRole(roles, ReopenRole) {
		return nil, apperr.Permission("reopening a completed visit requires the " + ReopenRole + " role")
	}

	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !v.Status.CanTransitionTo(StatusOpen) {
		return nil, apperr.State(fmt.Sprintf("cannot reopen a %s visit", v.Status))
	}
	return s.transition(ctx, v, StatusOpen, audit.ActionReopen, actor)
}

// CompletionStatus exposes the gate for the status endpoint.
func (s *Service) CompletionStatus(ctx context.Context, id uuid.UUID) (*forms.CompletionStatus, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.gate.Completion(ctx, id)
}

// EnsureOpen verifies the visit exists and is open. Assessment services use
// this as their visit guard.
func (s *Service) EnsureOpen(ctx context.Context, id uuid.UUID) error {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !v.IsOpen() {
		return apperr.State(fmt.Sprintf("visit is %s", v.Status))
	}
	return nil
}

func (s *Service) transition(ctx context.Context, v *Visit, to Status, action, actor string) (*Visit, error) {
	from := v.Status
	err := s.run(ctx, func(ctx context.Context) error {
		ok, err := s.repo.UpdateStatus(ctx, v.ID, from, to, actor)
		if err != nil {
			return err
		}
		// The row moved between our read and the conditional write: a
		// concurrent transition won.
		if !ok {
			return apperr.State("visit status changed concurrently")
		}
		return s.audit.Log(ctx, audit.Entry{
			UserID:       actor,
			Action:       action,
			ResourceType: "visit",
			ResourceID:   &v.ID,
			OldValues:    map[string]interface{}{"status": string(from)},
			NewValues:    map[string]interface{}{"status": string(to)},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, v.ID)
}

func missingAssessments(cs *forms.CompletionStatus) string {
	switch {
	case !cs.HasNursing && !cs.HasRadiology:
		return "assessments incomplete: nursing and radiology assessments are missing"
	case !cs.HasNursing:
		return "assessments incomplete: nursing assessment is missing"
	default:
		return "assessments incomplete: radiology assessment is missing"
	}
}

func strPtrValue(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
