package assessment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/domain/audit"
	"github.com/careflow/careflow/internal/domain/forms"
	"github.com/careflow/careflow/internal/platform/apperr"
)

// -- Mocks --

type mockNursingRepo struct {
	records map[uuid.UUID]*NursingAssessment
}

func (m *mockNursingRepo) Create(_ context.Context, a *NursingAssessment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	m.records[a.ID] = a
	return nil
}

func (m *mockNursingRepo) GetByID(_ context.Context, id uuid.UUID) (*NursingAssessment, error) {
	a, ok := m.records[id]
	if !ok {
		return nil, apperr.NotFound("nursing assessment")
	}
	copied := *a
	return &copied, nil
}

func (m *mockNursingRepo) GetByVisit(_ context.Context, visitID uuid.UUID) (*NursingAssessment, error) {
	for _, a := range m.records {
		if a.VisitID == visitID {
			return a, nil
		}
	}
	return nil, apperr.NotFound("nursing assessment")
}

func (m *mockNursingRepo) Update(_ context.Context, a *NursingAssessment) error {
	if _, ok := m.records[a.ID]; !ok {
		return apperr.NotFound("nursing assessment")
	}
	copied := *a
	m.records[a.ID] = &copied
	return nil
}

type mockRadiologyRepo struct {
	records map[uuid.UUID]*RadiologyAssessment
}

func (m *mockRadiologyRepo) Create(_ context.Context, a *RadiologyAssessment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	m.records[a.ID] = a
	return nil
}

func (m *mockRadiologyRepo) GetByID(_ context.Context, id uuid.UUID) (*RadiologyAssessment, error) {
	a, ok := m.records[id]
	if !ok {
		return nil, apperr.NotFound("radiology assessment")
	}
	copied := *a
	return &copied, nil
}

func (m *mockRadiologyRepo) GetByVisit(_ context.Context, visitID uuid.UUID) (*RadiologyAssessment, error) {
	for _, a := range m.records {
		if a.VisitID == visitID {
			return a, nil
		}
	}
	return nil, apperr.NotFound("radiology assessment")
}

func (m *mockRadiologyRepo) Update(_ context.Context, a *RadiologyAssessment) error {
	if _, ok := m.records[a.ID]; !ok {
		return apperr.NotFound("radiology assessment")
	}
	copied := *a
	m.records[a.ID] = &copied
	return nil
}

// mockBinder mirrors the one-active-submission-per-kind storage constraint.
type mockBinder struct {
	submissions []*forms.Submission
}

func (m *mockBinder) Submit(_ context.Context, visitID uuid.UUID, formType forms.FormType, actor string) (*forms.Submission, error) {
	for _, s := range m.submissions {
		if s.VisitID == visitID && s.FormType == formType && s.Status != forms.StatusRejected {
			return nil, apperr.Conflict(fmt.Sprintf("a %s assessment already exists for this visit", formType))
		}
	}
	sub := &forms.Submission{
		ID:          uuid.New(),
		VisitID:     visitID,
		FormType:    formType,
		Status:      forms.StatusSubmitted,
		SubmittedBy: actor,
	}
	m.submissions = append(m.submissions, sub)
	return sub, nil
}

type mockGuard struct {
	open   map[uuid.UUID]bool
	closed map[uuid.UUID]bool
}

func (m *mockGuard) EnsureOpen(_ context.Context, id uuid.UUID) error {
	if m.open[id] {
		return nil
	}
	if m.closed[id] {
		return apperr.State("visit is completed")
	}
	return apperr.NotFound("visit")
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

type fixture struct {
	svc       *Service
	guard     *mockGuard
	binder    *mockBinder
	auditRepo *mockAuditRepo
}

func newFixture() *fixture {
	guard := &mockGuard{open: make(map[uuid.UUID]bool), closed: make(map[uuid.UUID]bool)}
	binder := &mockBinder{}
	auditRepo := &mockAuditRepo{}
	auditSvc := audit.NewService(auditRepo, passthroughTx, 2555, zerolog.Nop())
	svc := NewService(
		&mockNursingRepo{records: make(map[uuid.UUID]*NursingAssessment)},
		&mockRadiologyRepo{records: make(map[uuid.UUID]*RadiologyAssessment)},
		binder, guard, auditSvc, passthroughTx,
	)
	return &fixture{svc: svc, guard: guard, binder: binder, auditRepo: auditRepo}
}

func (fx *fixture) openVisit() uuid.UUID {
	id := uuid.New()
	fx.guard.open[id] = true
	return id
}

func validFindings() string {
	return "Chest radiograph shows clear lung fields with no acute cardiopulmonary process."
}

// -- Tests --

func TestCreateNursing(t *testing.T) {
	fx := newFixture()
	visitID := fx.openVisit()

	a := &NursingAssessment{
		TemperatureC: f(37.2),
		PulseBPM:     i(72),
		WeightKG:     f(70.0),
		HeightCM:     f(175.0),
	}
	if err := fx.svc.CreateNursing(context.Background(), visitID, a, "nurse-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.BMI == nil || *a.BMI != 22.9 {
		t.Errorf("expected BMI 22.9, got %v", a.BMI)
	}
	if a.SubmissionID == uuid.Nil {
		t.Error("expected submission binding")
	}
	if a.AssessedBy != "nurse-1" {
		t.Errorf("expected assessor nurse-1, got %s", a.AssessedBy)
	}

	// One entry for the submission, one for the assessment
	var actions []string
	for _, l := range fx.auditRepo.records {
		actions = append(actions, l.ResourceType)
	}
	if len(actions) != 2 {
		t.Errorf("expected 2 audit entries, got %v", actions)
	}
}

func TestCreateNursing_Duplicate(t *testing.T) {
	fx := newFixture()
	visitID := fx.openVisit()

	if err := fx.svc.CreateNursing(context.Background(), visitID, &NursingAssessment{}, "nurse-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := fx.svc.CreateNursing(context.Background(), visitID, &NursingAssessment{}, "nurse-2")
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict error, got %v", err)
	}
}

func TestCreateNursing_ClosedVisit(t *testing.T) {
	fx := newFixture()
	visitID := uuid.New()
	fx.guard.closed[visitID] = true

	err := fx.svc.CreateNursing(context.Background(), visitID, &NursingAssessment{}, "nurse-1")
	if !apperr.IsKind(err, apperr.KindState) {
		t.Errorf("expected state error, got %v", err)
	}
}

func TestCreateNursing_InvalidVitals(t *testing.T) {
	fx := newFixture()
	visitID := fx.openVisit()

	err := fx.svc.CreateNursing(context.Background(), visitID, &NursingAssessment{PulseBPM: i(300)}, "nurse-1")
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if len(fx.binder.submissions) != 0 {
		t.Error("expected no submission for invalid vitals")
	}
}

func TestUpdateNursing_RecomputesBMI(t *testing.T) {
	fx := newFixture()
	visitID := fx.openVisit()

	a := &NursingAssessment{WeightKG: f(70.0), HeightCM: f(175.0)}
	if err := fx.svc.CreateNursing(context.Background(), visitID, a, "nurse-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Patch weight only; height merges from the stored record
	updated, err := fx.svc.UpdateNursing(context.Background(), a.ID, NursingPatch{WeightKG: f(80.0)}, "nurse-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.BMI == nil || *updated.BMI != 26.1 {
		t.Errorf("expected BMI 26.1, got %v", updated.BMI)
	}
	if updated.HeightCM == nil || *updated.HeightCM != 175.0 {
		t.Errorf("expected stored height to survive, got %v", updated.HeightCM)
	}
}

func TestUpdateNursing_ClosedVisit(t *testing.T) {
	fx := newFixture()
	visitID := fx.openVisit()

	a := &NursingAssessment{}
	if err := fx.svc.CreateNursing(context.Background(), visitID, a, "nurse-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Visit closes after the assessment is recorded
	delete(fx.guard.open, visitID)
	fx.guard.closed[visitID] = true

	_, err := fx.svc.UpdateNursing(context.Background(), a.ID, NursingPatch{PulseBPM: i(80)}, "nurse-1")
	if !apperr.IsKind(err, apperr.KindState) {
		t.Fatalf("expected state error, got %v", err)
	}
	if err.Error() != "cannot update assessment for a completed or cancelled visit" {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestUpdateNursing_InvalidPatch(t *testing.T) {
	fx := newFixture()
	visitID := fx.openVisit()

	a := &NursingAssessment{}
	if err := fx.svc.CreateNursing(context.Background(), visitID, a, "nurse-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := fx.svc.UpdateNursing(context.Background(), a.ID, NursingPatch{TemperatureC: f(50.0)}, "nurse-1")
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreateRadiology(t *testing.T) {
	fx := newFixture()
	visitID := fx.openVisit()

	a := &RadiologyAssessment{Findings: validFindings()}
	if err := fx.svc.CreateRadiology(context.Background(), visitID, a, "rad-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.SubmissionID == uuid.Nil {
		t.Error("expected submission binding")
	}
	if a.HasDiagnosis() {
		t.Error("expected no diagnosis")
	}
}

func TestCreateRadiology_ShortFindings(t *testing.T) {
	fx := newFixture()
	visitID := fx.openVisit()

	err := fx.svc.CreateRadiology(context.Background(), visitID, &RadiologyAssessment{Findings: "normal"}, "rad-1")
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreateRadiology_IndependentOfNursing(t *testing.T) {
	fx := newFixture()
	visitID := fx.openVisit()

	if err := fx.svc.CreateNursing(context.Background(), visitID, &NursingAssessment{}, "nurse-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fx.svc.CreateRadiology(context.Background(), visitID, &RadiologyAssessment{Findings: validFindings()}, "rad-1"); err != nil {
		t.Errorf("expected radiology to coexist with nursing, got %v", err)
	}
}

func TestUpdateRadiology(t *testing.T) {
	fx := newFixture()
	visitID := fx.openVisit()

	a := &RadiologyAssessment{Findings: validFindings()}
	if err := fx.svc.CreateRadiology(context.Background(), visitID, a, "rad-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	diagnosis := "Community acquired pneumonia, right lower lobe."
	updated, err := fx.svc.UpdateRadiology(context.Background(), a.ID, RadiologyPatch{Diagnosis: &diagnosis}, "rad-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.HasDiagnosis() {
		t.Error("expected diagnosis present after patch")
	}
	if updated.Findings != a.Findings {
		t.Error("expected findings untouched by diagnosis patch")
	}
}
