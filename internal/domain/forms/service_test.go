package forms

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/domain/audit"
	"github.com/careflow/careflow/internal/platform/apperr"
)

// -- Mock Repositories --

type mockRepo struct {
	records map[uuid.UUID]*Submission
}

func newMockRepo() *mockRepo {
	return &mockRepo{records: make(map[uuid.UUID]*Submission)}
}

func (m *mockRepo) Create(_ context.Context, s *Submission) error {
	// Mirrors the partial unique index: one non-rejected submission per
	// (visit, form type)
	for _, existing := range m.records {
		if existing.VisitID == s.VisitID && existing.FormType == s.FormType && existing.Status != StatusRejected {
			return apperr.Conflict(fmt.Sprintf("a %s assessment already exists for this visit", s.FormType))
		}
	}
	s.ID = uuid.New()
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = time.Now().UTC()
	}
	s.CreatedAt = time.Now()
	s.UpdatedAt = time.Now()
	m.records[s.ID] = s
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Submission, error) {
	s, ok := m.records[id]
	if !ok {
		return nil, apperr.NotFound("form submission")
	}
	return s, nil
}

func (m *mockRepo) GetActiveByVisitAndType(_ context.Context, visitID uuid.UUID, formType FormType) (*Submission, error) {
	for _, s := range m.records {
		if s.VisitID == visitID && s.FormType == formType && s.Status != StatusRejected {
			return s, nil
		}
	}
	return nil, apperr.NotFound("form submission")
}

func (m *mockRepo) ListByVisit(_ context.Context, visitID uuid.UUID) ([]*Submission, error) {
	var result []*Submission
	for _, s := range m.records {
		if s.VisitID == visitID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to string, approvedBy *string, rejectionReason *string) (bool, error) {
	s, ok := m.records[id]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	if approvedBy != nil {
		s.ApprovedBy = approvedBy
		now := time.Now().UTC()
		s.ApprovedAt = &now
	}
	if rejectionReason != nil {
		s.RejectionReason = rejectionReason
	}
	return true, nil
}

type mockAuditRepo struct {
	records []*audit.Log
}

func (m *mockAuditRepo) Create(_ context.Context, l *audit.Log) error {
	l.ID = uuid.New()
	m.records = append(m.records, l)
	return nil
}

func (m *mockAuditRepo) ListByResource(_ context.Context, _ string, _ uuid.UUID, _, _ int) ([]*audit.Log, int, error) {
	return m.records, len(m.records), nil
}

func (m *mockAuditRepo) List(_ context.Context, _ audit.Filter, _, _ int) ([]*audit.Log, int, error) {
	return m.records, len(m.records), nil
}

func (m *mockAuditRepo) Summary(_ context.Context, from, to time.Time) (*audit.Summary, error) {
	return &audit.Summary{From: from, To: to}, nil
}

func (m *mockAuditRepo) DeleteOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService() (*Service, *mockRepo, *mockAuditRepo) {
	repo := newMockRepo()
	auditRepo := &mockAuditRepo{}
	auditSvc := audit.NewService(auditRepo, passthroughTx, 2555, zerolog.Nop())
	return NewService(repo, auditSvc, passthroughTx), repo, auditRepo
}

// -- Tests --

func TestSubmit(t *testing.T) {
	svc, _, auditRepo := newTestService()
	visitID := uuid.New()

	sub, err := svc.Submit(context.Background(), visitID, TypeNursing, "nurse-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Status != StatusSubmitted {
		t.Errorf("expected status submitted, got %s", sub.Status)
	}
	if sub.SubmittedBy != "nurse-1" {
		t.Errorf("expected submitted_by nurse-1, got %s", sub.SubmittedBy)
	}
	if len(auditRepo.records) != 1 || auditRepo.records[0].Action != audit.ActionCreate {
		t.Error("expected a CREATE audit entry")
	}
}

func TestSubmit_InvalidType(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Submit(context.Background(), uuid.New(), FormType("lab"), "user-1")
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestSubmit_DuplicateKind(t *testing.T) {
	svc, _, _ := newTestService()
	visitID := uuid.New()

	if _, err := svc.Submit(context.Background(), visitID, TypeNursing, "nurse-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.Submit(context.Background(), visitID, TypeNursing, "nurse-2")
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict error, got %v", err)
	}

	// A different kind is fine
	if _, err := svc.Submit(context.Background(), visitID, TypeRadiology, "rad-1"); err != nil {
		t.Errorf("unexpected error for second kind: %v", err)
	}
}

func TestCompletion(t *testing.T) {
	svc, _, _ := newTestService()
	visitID := uuid.New()

	cs, err := svc.Completion(context.Background(), visitID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs.HasNursing || cs.HasRadiology || cs.Complete {
		t.Errorf("expected empty completion status, got %+v", cs)
	}

	if _, err := svc.Submit(context.Background(), visitID, TypeNursing, "nurse-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cs, _ = svc.Completion(context.Background(), visitID)
	if !cs.HasNursing || cs.HasRadiology || cs.Complete {
		t.Errorf("expected only nursing present, got %+v", cs)
	}

	if _, err := svc.Submit(context.Background(), visitID, TypeRadiology, "rad-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cs, _ = svc.Completion(context.Background(), visitID)
	if !cs.Complete {
		t.Errorf("expected complete, got %+v", cs)
	}
}

func TestCompletion_IgnoresRejected(t *testing.T) {
	svc, _, _ := newTestService()
	visitID := uuid.New()

	sub, err := svc.Submit(context.Background(), visitID, TypeNursing, "nurse-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Reject(context.Background(), sub.ID, "supervisor-1", "incomplete vitals"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cs, _ := svc.Completion(context.Background(), visitID)
	if cs.HasNursing {
		t.Error("expected rejected submission to not count toward completion")
	}

	// The slot is free for resubmission
	if _, err := svc.Submit(context.Background(), visitID, TypeNursing, "nurse-2"); err != nil {
		t.Errorf("expected resubmission after rejection to succeed, got %v", err)
	}
}

func TestApprove(t *testing.T) {
	svc, _, auditRepo := newTestService()
	visitID := uuid.New()

	sub, err := svc.Submit(context.Background(), visitID, TypeNursing, "nurse-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	approved, err := svc.Approve(context.Background(), sub.ID, "physician-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if approved.Status != StatusApproved {
		t.Errorf("expected approved, got %s", approved.Status)
	}
	if approved.ApprovedBy == nil || *approved.ApprovedBy != "physician-1" {
		t.Errorf("expected approved_by physician-1, got %v", approved.ApprovedBy)
	}

	// Double approval is a state error
	if _, err := svc.Approve(context.Background(), sub.ID, "physician-1"); !apperr.IsKind(err, apperr.KindState) {
		t.Errorf("expected state error on double approval, got %v", err)
	}

	var found bool
	for _, l := range auditRepo.records {
		if l.Action == audit.ActionApprove {
			found = true
		}
	}
	if !found {
		t.Error("expected an APPROVE audit entry")
	}
}

func TestReject_RequiresReason(t *testing.T) {
	svc, _, _ := newTestService()
	visitID := uuid.New()

	sub, err := svc.Submit(context.Background(), visitID, TypeNursing, "nurse-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Reject(context.Background(), sub.ID, "supervisor-1", "   "); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for blank reason, got %v", err)
	}
}

func TestApprove_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Approve(context.Background(), uuid.New(), "physician-1"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not found error, got %v", err)
	}
}
