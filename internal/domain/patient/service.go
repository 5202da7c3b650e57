package patient

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

func (s *Service) CreatePatient(ctx context.Context, p *Patient, actor string) error {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	if p.FirstName == "" {
		return apperr.Validation("first_name", "is required")
	}
	if p.LastName == "" {
		return apperr.Validation("last_name", "is required")
	}
	if p.MRN == "" {
		return apperr.Validation("mrn", "is required")
	}
	p.CreatedBy = actor

	return s.run(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		return s.audit.Log(ctx, audit.Entry{
			UserID:       actor,
			Action:       audit.ActionCreate,
			ResourceType: "patient",
			ResourceID:   &p.ID,
			NewValues:    map[string]interface{}{"mrn": p.MRN, "name": p.FullName()},
		})
	})
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// DeactivatePatient tombstones the record. Patients are never physically
// deleted.
func (s *Service) DeactivatePatient(ctx context.Context, id uuid.UUID, actor string) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return apperr.State("patient is already deactivated")
	}

	return s.run(ctx, func(ctx context.Context) error {
		ok, err := s.repo.Deactivate(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.State("patient is already deactivated")
		}
		return s.audit.Log(ctx, audit.Entry{
			UserID:       actor,
			Action:       audit.ActionDeactivate,
			ResourceType: "patient",
			ResourceID:   &id,
			OldValues:    map[string]interface{}{"is_active": true},
			NewValues:    map[string]interface{}{"is_active": false},
		})
	})
}

// Exists reports whether an active patient with the given id exists. The
// visit service consumes this as its patient directory port.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, id)
}
