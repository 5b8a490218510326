package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing per sink.
type EventCategory string

const (
	// CategoryCompliance covers changes to client data: submissions created or removed.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers admin gate decisions, including the static-token bypass.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine reads and exports.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// Subject is the entity acted upon: a submission id, or the request path for gate decisions.
	Subject string
	Action  string
	// ActorID identifies the admin (email) or "static-admin-token". Empty for public submissions.
	ActorID   string
	Decision  string
	Reason    string
	IP        string
	UserAgent string
	// Browser is the User-Agent summary, e.g. "Chrome on Linux" or "bot".
	Browser   string
	RequestID string
}

type AuditEvent string

const (
	// Submission events
	EventSubmissionCreated  AuditEvent = "submission_created"
	EventSubmissionDeleted  AuditEvent = "submission_deleted"
	EventSubmissionsListed  AuditEvent = "submissions_listed"
	EventSubmissionExported AuditEvent = "submission_exported"

	// Gate events
	EventAdminAccessGranted AuditEvent = "admin_access_granted"
	EventAdminAccessDenied  AuditEvent = "admin_access_denied"
	EventStaticTokenUsed    AuditEvent = "admin_static_token_used"
)

// StaticTokenActor is recorded as ActorID when the shared admin token admitted a request.
const StaticTokenActor = "static-admin-token"

var eventCategories = map[AuditEvent]EventCategory{
	EventSubmissionCreated: CategoryCompliance,
	EventSubmissionDeleted: CategoryCompliance,

	EventAdminAccessGranted: CategorySecurity,
	EventAdminAccessDenied:  CategorySecurity,
	EventStaticTokenUsed:    CategorySecurity,

	EventSubmissionsListed:  CategoryOperations,
	EventSubmissionExported: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
}
