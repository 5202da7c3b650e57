package assessment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/internal/platform/db"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type nursingRepoPG struct {
	pool *pgxpool.Pool
}

func NewNursingRepo(pool *pgxpool.Pool) NursingRepository {
	return &nursingRepoPG{pool: pool}
}

func (r *nursingRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const nursingCols = `id, visit_id, submission_id,
	temperature_c, pulse_bpm, systolic_bp, diastolic_bp, respiratory_rate, oxygen_saturation,
	weight_kg, height_cm, bmi,
	general_condition, consciousness_level, mobility, pain_notes, fall_risk_notes,
	assessed_by, assessed_at, created_at, updated_at`

func (r *nursingRepoPG) Create(ctx context.Context, a *NursingAssessment) error {
	a.ID = uuid.New()
	if a.AssessedAt.IsZero() {
		a.AssessedAt = time.Now().UTC()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO nursing_assessments (id, visit_id, submission_id,
			temperature_c, pulse_bpm, systolic_bp, diastolic_bp, respiratory_rate, oxygen_saturation,
			weight_kg, height_cm, bmi,
			general_condition, consciousness_level, mobility, pain_notes, fall_risk_notes,
			assessed_by, assessed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		a.ID, a.VisitID, a.SubmissionID,
		a.TemperatureC, a.PulseBPM, a.SystolicBP, a.DiastolicBP, a.RespiratoryRate, a.OxygenSaturation,
		a.WeightKG, a.HeightCM, a.BMI,
		a.GeneralCondition, a.ConsciousnessLevel, a.Mobility, a.PainNotes, a.FallRiskNotes,
		a.AssessedBy, a.AssessedAt,
	)
	return err
}

func (r *nursingRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*NursingAssessment, error) {
	a, err := scanNursing(r.conn(ctx).QueryRow(ctx,
		`SELECT `+nursingCols+` FROM nursing_assessments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("nursing assessment")
	}
	return a, err
}

func (r *nursingRepoPG) GetByVisit(ctx context.Context, visitID uuid.UUID) (*NursingAssessment, error) {
	// Rejected submissions leave orphaned assessment rows behind; only the
	// active binding counts.
	a, err := scanNursing(r.conn(ctx).QueryRow(ctx, `
		SELECT `+nursingCols+` FROM nursing_assessments
		WHERE visit_id = $1 AND submission_id IN (
			SELECT id FROM form_submissions WHERE visit_id = $1 AND status <> 'rejected')`, visitID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("nursing assessment")
	}
	return a, err
}

func (r *nursingRepoPG) Update(ctx context.Context, a *NursingAssessment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE nursing_assessments SET
			temperature_c = $2, pulse_bpm = $3, systolic_bp = $4, diastolic_bp = $5,
			respiratory_rate = $6, oxygen_saturation = $7,
			weight_kg = $8, height_cm = $9, bmi = $10,
			general_condition = $11, consciousness_level = $12, mobility = $13,
			pain_notes = $14, fall_risk_notes = $15,
			updated_at = NOW()
		WHERE id = $1`,
		a.ID,
		a.TemperatureC, a.PulseBPM, a.SystolicBP, a.DiastolicBP,
		a.RespiratoryRate, a.OxygenSaturation,
		a.WeightKG, a.HeightCM, a.BMI,
		a.GeneralCondition, a.ConsciousnessLevel, a.Mobility,
		a.PainNotes, a.FallRiskNotes,
	)
	return err
}

func scanNursing(row pgx.Row) (*NursingAssessment, error) {
	var a NursingAssessment
	err := row.Scan(
		&a.ID, &a.VisitID, &a.SubmissionID,
		&a.TemperatureC, &a.PulseBPM, &a.SystolicBP, &a.DiastolicBP, &a.RespiratoryRate, &a.OxygenSaturation,
		&a.WeightKG, &a.HeightCM, &a.BMI,
		&a.GeneralCondition, &a.ConsciousnessLevel, &a.Mobility, &a.PainNotes, &a.FallRiskNotes,
		&a.AssessedBy, &a.AssessedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

type radiologyRepoPG struct {
	pool *pgxpool.Pool
}

func NewRadiologyRepo(pool *pgxpool.Pool) RadiologyRepository {
	return &radiologyRepoPG{pool: pool}
}

func (r *radiologyRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const radiologyCols = `id, visit_id, submission_id,
	findings, diagnosis, recommendations, modality, body_region, contrast_used,
	assessed_by, assessed_at, created_at, updated_at`

func (r *radiologyRepoPG) Create(ctx context.Context, a *RadiologyAssessment) error {
	a.ID = uuid.New()
	if a.AssessedAt.IsZero() {
		a.AssessedAt = time.Now().UTC()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO radiology_assessments (id, visit_id, submission_id,
			findings, diagnosis, recommendations, modality, body_region, contrast_used,
			assessed_by, assessed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		a.ID, a.VisitID, a.SubmissionID,
		a.Findings, a.Diagnosis, a.Recommendations, a.Modality, a.BodyRegion, a.ContrastUsed,
		a.AssessedBy, a.AssessedAt,
	)
	return err
}

func (r *radiologyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*RadiologyAssessment, error) {
	a, err := scanRadiology(r.conn(ctx).QueryRow(ctx,
		`SELECT `+radiologyCols+` FROM radiology_assessments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("radiology assessment")
	}
	return a, err
}

func (r *radiologyRepoPG) GetByVisit(ctx context.Context, visitID uuid.UUID) (*RadiologyAssessment, error) {
	a, err := scanRadiology(r.conn(ctx).QueryRow(ctx, `
		SELECT `+radiologyCols+` FROM radiology_assessments
		WHERE visit_id = $1 AND submission_id IN (
			SELECT id FROM form_submissions WHERE visit_id = $1 AND status <> 'rejected')`, visitID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("radiology assessment")
	}
	return a, err
}

func (r *radiologyRepoPG) Update(ctx context.Context, a *RadiologyAssessment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE radiology_assessments SET
			findings = $2, diagnosis = $3, recommendations = $4,
			modality = $5, body_region = $6, contrast_used = $7,
			updated_at = NOW()
		WHERE id = $1`,
		a.ID,
		a.Findings, a.Diagnosis, a.Recommendations,
		a.Modality, a.BodyRegion, a.ContrastUsed,
	)
	return err
}

func scanRadiology(row pgx.Row) (*RadiologyAssessment, error) {
	var a RadiologyAssessment
	err := row.Scan(
		&a.ID, &a.VisitID, &a.SubmissionID,
		&a.Findings, &a.Diagnosis, &a.Recommendations, &a.Modality, &a.BodyRegion, &a.ContrastUsed,
		&a.AssessedBy, &a.AssessedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
