package assessment

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/apperr"
)

// NursingAssessment maps to the nursing_assessments table. One per visit,
// bound through its form submission.
type NursingAssessment struct {
	ID           uuid.UUID `db:"id" json:"id"`
	VisitID      uuid.UUID `db:"visit_id" json:"visit_id"`
	SubmissionID uuid.UUID `db:"submission_id" json:"submission_id"`

	TemperatureC     *float64 `db:"temperature_c" json:"temperature_c,omitempty"`
	PulseBPM         *int     `db:"pulse_bpm" json:"pulse_bpm,omitempty"`
	SystolicBP       *int     `db:"systolic_bp" json:"systolic_bp,omitempty"`
	DiastolicBP      *int     `db:"diastolic_bp" json:"diastolic_bp,omitempty"`
	RespiratoryRate  *int     `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	OxygenSaturation *float64 `db:"oxygen_saturation" json:"oxygen_saturation,omitempty"`

	WeightKG *float64 `db:"weight_kg" json:"weight_kg,omitempty"`
	HeightCM *float64 `db:"height_cm" json:"height_cm,omitempty"`
	// BMI is derived from weight and height, never written directly.
	BMI *float64 `db:"bmi" json:"bmi,omitempty"`

	GeneralCondition   *string `db:"general_condition" json:"general_condition,omitempty"`
	ConsciousnessLevel *string `db:"consciousness_level" json:"consciousness_level,omitempty"`
	Mobility           *string `db:"mobility" json:"mobility,omitempty"`
	PainNotes          *string `db:"pain_notes" json:"pain_notes,omitempty"`
	FallRiskNotes      *string `db:"fall_risk_notes" json:"fall_risk_notes,omitempty"`

	AssessedBy string    `db:"assessed_by" json:"assessed_by"`
	AssessedAt time.Time `db:"assessed_at" json:"assessed_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Validate checks every vital against its clinical range, reporting the
// first offending field.
func (a *NursingAssessment) Validate() error {
	if a.TemperatureC != nil && (*a.TemperatureC < 30.0 || *a.TemperatureC > 45.0) {
		return apperr.Validation("temperature_c", "must be between 30.0 and 45.0")
	}
	if a.PulseBPM != nil && (*a.PulseBPM < 30 || *a.PulseBPM > 200) {
		return apperr.Validation("pulse_bpm", "must be between 30 and 200")
	}
	if a.SystolicBP != nil && (*a.SystolicBP < 70 || *a.SystolicBP > 250) {
		return apperr.Validation("systolic_bp", "must be between 70 and 250")
	}
	if a.DiastolicBP != nil && (*a.DiastolicBP < 40 || *a.DiastolicBP > 150) {
		return apperr.Validation("diastolic_bp", "must be between 40 and 150")
	}
	if a.SystolicBP != nil && a.DiastolicBP != nil && *a.SystolicBP <= *a.DiastolicBP {
		return apperr.Validation("systolic_bp", "must be greater than diastolic")
	}
	if a.RespiratoryRate != nil && (*a.RespiratoryRate < 8 || *a.RespiratoryRate > 60) {
		return apperr.Validation("respiratory_rate", "must be between 8 and 60")
	}
	if a.OxygenSaturation != nil && (*a.OxygenSaturation < 70.0 || *a.OxygenSaturation > 100.0) {
		return apperr.Validation("oxygen_saturation", "must be between 70.0 and 100.0")
	}
	if a.WeightKG != nil && (*a.WeightKG <= 0 || *a.WeightKG > 500) {
		return apperr.Validation("weight_kg", "must be greater than 0 and at most 500")
	}
	if a.HeightCM != nil && (*a.HeightCM <= 0 || *a.HeightCM > 300) {
		return apperr.Validation("height_cm", "must be greater than 0 and at most 300")
	}
	return nil
}

// ComputeBMI derives BMI from weight and height, rounded to one decimal.
// BMI is cleared when either measurement is absent.
func (a *NursingAssessment) ComputeBMI() {
	if a.WeightKG == nil || a.HeightCM == nil {
		a.BMI = nil
		return
	}
	m := *a.HeightCM / 100
	bmi := math.Round(*a.WeightKG/(m*m)*10) / 10
	a.BMI = &bmi
}

// BloodPressureString formats the reading as "systolic/diastolic", or empty
// when either side is missing.
func (a *NursingAssessment) BloodPressureString() string {
	if a.SystolicBP == nil || a.DiastolicBP == nil {
		return ""
	}
	return fmt.Sprintf("%d/%d", *a.SystolicBP, *a.DiastolicBP)
}

// IsCriticalVitals flags readings that need immediate clinical attention.
func (a *NursingAssessment) IsCriticalVitals() bool {
	if a.TemperatureC != nil && (*a.TemperatureC < 35.0 || *a.TemperatureC > 40.0) {
		return true
	}
	if a.PulseBPM != nil && (*a.PulseBPM < 50 || *a.PulseBPM > 150) {
		return true
	}
	if a.OxygenSaturation != nil && *a.OxygenSaturation < 90.0 {
		return true
	}
	return false
}

// NursingPatch updates a subset of nursing fields. Nil fields are left
// untouched.
type NursingPatch struct {
	TemperatureC     *float64 `json:"temperature_c,omitempty"`
	PulseBPM         *int     `json:"pulse_bpm,omitempty"`
	SystolicBP       *int     `json:"systolic_bp,omitempty"`
	DiastolicBP      *int     `json:"diastolic_bp,omitempty"`
	RespiratoryRate  *int     `json:"respiratory_rate,omitempty"`
	OxygenSaturation *float64 `json:"oxygen_saturation,omitempty"`
	WeightKG         *float64 `json:"weight_kg,omitempty"`
	HeightCM         *float64 `json:"height_cm,omitempty"`

	GeneralCondition   *string `json:"general_condition,omitempty"`
	ConsciousnessLevel *string `json:"consciousness_level,omitempty"`
	Mobility           *string `json:"mobility,omitempty"`
	PainNotes          *string `json:"pain_notes,omitempty"`
	FallRiskNotes      *string `json:"fall_risk_notes,omitempty"`
}

func (p NursingPatch) Empty() bool {
	return p.TemperatureC == nil && p.PulseBPM == nil && p.SystolicBP == nil &&
		p.DiastolicBP == nil && p.RespiratoryRate == nil && p.OxygenSaturation == nil &&
		p.WeightKG == nil && p.HeightCM == nil && p.GeneralCondition == nil &&
		p.ConsciousnessLevel == nil && p.Mobility == nil && p.PainNotes == nil &&
		p.FallRiskNotes == nil
}

// Apply merges the patch into the assessment.
func (p NursingPatch) Apply(a *NursingAssessment) {
	if p.TemperatureC != nil {
		a.TemperatureC = p.TemperatureC
	}
	if p.PulseBPM != nil {
		a.PulseBPM = p.PulseBPM
	}
	if p.SystolicBP != nil {
		a.SystolicBP = p.SystolicBP
	}
	if p.DiastolicBP != nil {
		a.DiastolicBP = p.DiastolicBP
	}
	if p.RespiratoryRate != nil {
		a.RespiratoryRate = p.RespiratoryRate
	}
	if p.OxygenSaturation != nil {
		a.OxygenSaturation = p.OxygenSaturation
	}
	if p.WeightKG != nil {
		a.WeightKG = p.WeightKG
	}
	if p.HeightCM != nil {
		a.HeightCM = p.HeightCM
	}
	if p.GeneralCondition != nil {
		a.GeneralCondition = p.GeneralCondition
	}
	if p.ConsciousnessLevel != nil {
		a.ConsciousnessLevel = p.ConsciousnessLevel
	}
	if p.Mobility != nil {
		a.Mobility = p.Mobility
	}
	if p.PainNotes != nil {
		a.PainNotes = p.PainNotes
	}
	if p.FallRiskNotes != nil {
		a.FallRiskNotes = p.FallRiskNotes
	}
}

// RadiologyAssessment maps to the radiology_assessments table. One per
// visit, bound through its form submission.
type RadiologyAssessment struct {
	ID           uuid.UUID `db:"id" json:"id"`
	VisitID      uuid.UUID `db:"visit_id" json:"visit_id"`
	SubmissionID uuid.UUID `db:"submission_id" json:"submission_id"`

	Findings        string  `db:"findings" json:"findings"`
	Diagnosis       *string `db:"diagnosis" json:"diagnosis,omitempty"`
	Recommendations *string `db:"recommendations" json:"recommendations,omitempty"`
	Modality        *string `db:"modality" json:"modality,omitempty"`
	BodyRegion      *string `db:"body_region" json:"body_region,omitempty"`
	ContrastUsed    *bool   `db:"contrast_used" json:"contrast_used,omitempty"`

	AssessedBy string    `db:"assessed_by" json:"assessed_by"`
	AssessedAt time.Time `db:"assessed_at" json:"assessed_at"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Normalize trims findings and drops a whitespace-only diagnosis.
func (a *RadiologyAssessment) Normalize() {
	a.Findings = strings.TrimSpace(a.Findings)
	if a.Diagnosis != nil {
		d := strings.TrimSpace(*a.Diagnosis)
		if d == "" {
			a.Diagnosis = nil
		} else {
			a.Diagnosis = &d
		}
	}
}

func (a *RadiologyAssessment) Validate() error {
	// Length limits count characters, not bytes, so non-ASCII clinical text
	// is measured the same as ASCII.
	if n := utf8.RuneCountInString(a.Findings); n < 10 || n > 1000 {
		return apperr.Validation("findings", "must be between 10 and 1000 characters")
	}
	if a.Diagnosis != nil {
		if n := utf8.RuneCountInString(*a.Diagnosis); n < 10 || n > 500 {
			return apperr.Validation("diagnosis", "must be between 10 and 500 characters")
		}
	}
	return nil
}

func (a *RadiologyAssessment) HasDiagnosis() bool {
	return a.Diagnosis != nil && strings.TrimSpace(*a.Diagnosis) != ""
}

// FindingsSummary truncates findings for list views, keeping the result at
// 100 characters including the ellipsis. Truncation happens on rune
// boundaries so multi-byte text is never split mid-character.
func (a *RadiologyAssessment) FindingsSummary() string {
	runes := []rune(a.Findings)
	if len(runes) <= 100 {
		return a.Findings
	}
	return string(runes[:97]) + "..."
}

// RadiologyPatch updates a subset of radiology fields. Nil fields are left
// untouched.
type RadiologyPatch struct {
	Findings        *string `json:"findings,omitempty"`
	Diagnosis       *string `json:"diagnosis,omitempty"`
	Recommendations *string `json:"recommendations,omitempty"`
	Modality        *string `json:"modality,omitempty"`
	BodyRegion      *string `json:"body_region,omitempty"`
	ContrastUsed    *bool   `json:"contrast_used,omitempty"`
}

func (p RadiologyPatch) Empty() bool {
	return p.Findings == nil && p.Diagnosis == nil && p.Recommendations == nil &&
		p.Modality == nil && p.BodyRegion == nil && p.ContrastUsed == nil
}

func (p RadiologyPatch) Apply(a *RadiologyAssessment) {
	if p.Findings != nil {
		a.Findings = *p.Findings
	}
	if p.Diagnosis != nil {
		a.Diagnosis = p.Diagnosis
	}
	if p.Recommendations != nil {
		a.Recommendations = p.Recommendations
	}
	if p.Modality != nil {
		a.Modality = p.Modality
	}
	if p.BodyRegion != nil {
		a.BodyRegion = p.BodyRegion
	}
	if p.ContrastUsed != nil {
		a.ContrastUsed = p.ContrastUsed
	}
}
