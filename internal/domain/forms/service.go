package forms

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/domain/audit"
	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/internal/platform/db"
)

type Service struct {
	repo  Repository
	audit *audit.Service
	run   db.TxRunner
}

func NewService(repo Repository, auditSvc *audit.Service, run db.TxRunner) *Service {
	return &Service{repo: repo, audit: auditSvc, run: run}
}

// Submit binds an assessment of the given kind to the visit. Assessment
// services call this inside their own transaction so the submission and the
// assessment row persist atomically; storage rejects a duplicate kind for
// the visit with a conflict.
func (s *Service) Submit(ctx context.Context, visitID uuid.UUID, formType FormType, actor string) (*Submission, error) {
	if !formType.Valid() {
		return nil, apperr.Validation("form_type", "must be nursing or radiology")
	}

	sub := &Submission{
		VisitID:     visitID,
		FormType:    formType,
		Status:      StatusSubmitted,
		SubmittedBy: actor,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, err
	}

	if err := s.audit.Log(ctx, audit.Entry{
		UserID:       actor,
		Action:       audit.ActionCreate,
		ResourceType: "form_submission",
		ResourceID:   &sub.ID,
		NewValues: map[string]interface{}{
			"visit_id":  visitID.String(),
			"form_type": string(formType),
			"status":    sub.Status,
		},
	}); err != nil {
		return nil, err
	}
	return sub, nil
}

// Completion reports which assessment kinds the visit has on file. It always
// re-reads current submission state; no caching, since this gates a
// regulated clinical action.
func (s *Service) Completion(ctx context.Context, visitID uuid.UUID) (*CompletionStatus, error) {
	cs := &CompletionStatus{}

	if _, err := s.repo.GetActiveByVisitAndType(ctx, visitID, TypeNursing); err == nil {
		cs.HasNursing = true
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	if _, err := s.repo.GetActiveByVisitAndType(ctx, visitID, TypeRadiology); err == nil {
		cs.HasRadiology = true
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	cs.Complete = cs.HasNursing && cs.HasRadiology
	return cs, nil
}

func (s *Service) GetSubmission(ctx context.Context, id uuid.UUID) (*Submission, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*Submission, error) {
	return s.repo.ListByVisit(ctx, visitID)
}

// Approve moves a submitted form to approved.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, actor string) (*Submission, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status != StatusSubmitted {
		return nil, apperr.State("only submitted forms can be approved")
	}

	err = s.run(ctx, func(ctx context.Context) error {
		ok, err := s.repo.UpdateStatus(ctx, id, StatusSubmitted, StatusApproved, &actor, nil)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.State("submission status changed concurrently")
		}
		return s.audit.Log(ctx, audit.Entry{
			UserID:       actor,
			Action:       audit.ActionApprove,
			ResourceType: "form_submission",
			ResourceID:   &id,
			OldValues:    map[string]interface{}{"status": StatusSubmitted},
			NewValues:    map[string]interface{}{"status": StatusApproved},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Reject moves a submitted form to rejected, freeing the (visit, kind) slot
// so a corrected assessment can be resubmitted.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, actor, reason string) (*Submission, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("reason", "is required")
	}

	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status != StatusSubmitted {
		return nil, apperr.State("only submitted forms can be rejected")
	}

	err = s.run(ctx, func(ctx context.Context) error {
		ok, err := s.repo.UpdateStatus(ctx, id, StatusSubmitted, StatusRejected, nil, &reason)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.State("submission status changed concurrently")
		}
		return s.audit.Log(ctx, audit.Entry{
			UserID:       actor,
			Action:       audit.ActionReject,
			ResourceType: "form_submission",
			ResourceID:   &id,
			OldValues:    map[string]interface{}{"status": StatusSubmitted},
			NewValues:    map[string]interface{}{"status": StatusRejected, "reason": reason},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}
