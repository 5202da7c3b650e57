package audit

import (
	"time"

	"github.com/google/uuid"
)

// Actions recorded in the audit trail.
const (
	ActionCreate       = "CREATE"
	ActionUpdate       = "UPDATE"
	ActionDelete       = "DELETE"
	ActionRead         = "READ"
	ActionComplete     = "COMPLETE"
	ActionCancel       = "CANCEL"
	ActionReopen       = "REOPEN"
	ActionApprove      = "APPROVE"
	ActionReject       = "REJECT"
	ActionDeactivate   = "DEACTIVATE"
	ActionPurge        = "PURGE"
	ActionLogin        = "LOGIN"
	ActionLogout       = "LOGOUT"
	ActionTokenRefresh = "TOKEN_REFRESH"
)

// Log maps to the audit_logs table. Entries are append-only; the retention
// purge is the only permitted deletion.
type Log struct {
	ID           uuid.UUID              `db:"id" json:"id"`
	UserID       string                 `db:"user_id" json:"user_id"`
	Action       string                 `db:"action" json:"action"`
	ResourceType string                 `db:"resource_type" json:"resource_type"`
	ResourceID   *uuid.UUID             `db:"resource_id" json:"resource_id,omitempty"`
	OldValues    map[string]interface{} `db:"old_values" json:"old_values,omitempty"`
	NewValues    map[string]interface{} `db:"new_values" json:"new_values,omitempty"`
	IPAddress    *string                `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent    *string                `db:"user_agent" json:"user_agent,omitempty"`
	Endpoint     *string                `db:"endpoint" json:"endpoint,omitempty"`
	Method       *string                `db:"method" json:"method,omitempty"`
	RequestID    *string                `db:"request_id" json:"request_id,omitempty"`
	Timestamp    time.Time              `db:"timestamp" json:"timestamp"`
}

// Filter narrows audit log queries.
type Filter struct {
	UserID       string
	Action       string
	ResourceType string
	From         *time.Time
	To           *time.Time
}

// Summary aggregates audit activity over a time window.
type Summary struct {
	Total            int            `json:"total"`
	ByAction         map[string]int `json:"by_action"`
	ByUser           map[string]int `json:"by_user"`
	SensitiveActions int            `json:"sensitive_actions"`
	From             time.Time      `json:"from"`
	To               time.Time      `json:"to"`
}

var mutatingActions = map[string]bool{
	ActionCreate:     true,
	ActionUpdate:     true,
	ActionDelete:     true,
	ActionComplete:   true,
	ActionCancel:     true,
	ActionReopen:     true,
	ActionApprove:    true,
	ActionReject:     true,
	ActionDeactivate: true,
	ActionPurge:      true,
}

var phiResources = map[string]bool{
	"patient":              true,
	"visit":                true,
	"nursing_assessment":   true,
	"radiology_assessment": true,
	"form_submission":      true,
	"document":             true,
}

var authActions = map[string]bool{
	ActionLogin:        true,
	ActionLogout:       true,
	ActionTokenRefresh: true,
}

// ShouldLog decides whether an action on a resource type needs an audit
// record. Mutations are always logged, as is any access to PHI-bearing
// resources, authentication events, and admin actions on user accounts.
// Reads on non-PHI resources are not logged by default.
func ShouldLog(action, resourceType string) bool {
	if mutatingActions[action] {
		return true
	}
	if phiResources[resourceType] {
		return true
	}
	if authActions[action] {
		return true
	}
	if resourceType == "user" {
		return true
	}
	return false
}
