package visit

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a visit.
type Status string

const (
	StatusOpen      Status = "open"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	return s == StatusOpen || s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether the state machine allows moving to target.
// Cancelled is terminal; completed visits can only be reopened.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusOpen:
		return target == StatusCompleted || target == StatusCancelled
	case StatusCompleted:
		return target == StatusOpen
	default:
		return false
	}
}

// Visit maps to the patient_visits table. Visits are never physically
// deleted; the lifecycle is soft, via status.
type Visit struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	Status         Status    `db:"status" json:"status"`
	VisitDate      time.Time `db:"visit_date" json:"visit_date"`
	ChiefComplaint *string   `db:"chief_complaint" json:"chief_complaint,omitempty"`
	Notes          *string   `db:"notes" json:"notes,omitempty"`
	CreatedBy      string    `db:"created_by" json:"created_by"`
	UpdatedBy      string    `db:"updated_by" json:"updated_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// IsOpen reports whether the visit still accepts field mutations and new
// assessments.
func (v *Visit) IsOpen() bool {
	return v.Status == StatusOpen
}

// UpdateParams is the patch for mutable visit fields. Nil fields are left
// untouched.
type UpdateParams struct {
	VisitDate      *time.Time `json:"visit_date,omitempty"`
	ChiefComplaint *string    `json:"chief_complaint,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

func (p UpdateParams) Empty() bool {
	return p.VisitDate == nil && p.ChiefComplaint == nil && p.Notes == nil
}
