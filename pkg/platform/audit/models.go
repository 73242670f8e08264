package audit

import (
	"context"
	"time"

	id "trustbank/pkg/domain"
)

// EventCategory classifies audit events by their retention needs.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance: every
	// automated decision, every override and every consent change.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from services to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	// Subject is the entity acted on, e.g. a decision or transaction ID.
	Subject string
	Action  string
	// Decision carries the outcome string (e.g. "approved", "high-risk").
	Decision  string
	Reason    string
	RequestID string
	// ActorID identifies who performed the action when different from UserID,
	// e.g. the admin overriding a decision.
	ActorID string
}

type AuditEvent string

const (
	EventDecisionMade        AuditEvent = "decision_made"
	EventDecisionOverridden  AuditEvent = "decision_overridden"
	EventConsentUpdated      AuditEvent = "consent_updated"
	EventConsentDefaulted    AuditEvent = "consent_defaulted"
	EventProfileUpserted     AuditEvent = "profile_upserted"
	EventTransactionScreened AuditEvent = "transaction_screened"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventDecisionMade:       CategoryCompliance,
	EventDecisionOverridden: CategoryCompliance,
	EventConsentUpdated:     CategoryCompliance,

	EventConsentDefaulted:    CategoryOperations,
	EventProfileUpserted:     CategoryOperations,
	EventTransactionScreened: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Append must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}
