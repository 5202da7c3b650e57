package forms

import (
	"time"

	"github.com/google/uuid"
)

// FormType identifies the assessment kind a submission binds to a visit.
type FormType string

const (
	TypeNursing   FormType = "nursing"
	TypeRadiology FormType = "radiology"
)

func (t FormType) Valid() bool {
	return t == TypeNursing || t == TypeRadiology
}

// Submission statuses. A rejected submission frees the (visit, kind) slot
// for resubmission; any other status holds it.
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

// Submission maps to the form_submissions table. At most one non-rejected
// submission may exist per (visit, form type), enforced by a partial unique
// index in storage.
type Submission struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	VisitID         uuid.UUID  `db:"visit_id" json:"visit_id"`
	FormType        FormType   `db:"form_type" json:"form_type"`
	Status          string     `db:"status" json:"status"`
	SubmittedBy     string     `db:"submitted_by" json:"submitted_by"`
	SubmittedAt     time.Time  `db:"submitted_at" json:"submitted_at"`
	ApprovedBy      *string    `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	RejectionReason *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// CompletionStatus reports which assessment kinds a visit has on file.
type CompletionStatus struct {
	HasNursing   bool `json:"has_nursing"`
	HasRadiology bool `json:"has_radiology"`
	Complete     bool `json:"complete"`
}
