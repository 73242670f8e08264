// Package domain holds identifier primitives shared across modules.
//
// IDs are distinct named UUID types so a DecisionID can never be passed where
// a UserID is expected. Construct them from external input only through the
// Parse functions, which reject empty, malformed and nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "trustbank/pkg/domain-errors"
)

type (
	UserID        uuid.UUID
	DecisionID    uuid.UUID
	TransactionID uuid.UUID
)

// NewDecisionID returns a fresh random decision ID.
func NewDecisionID() DecisionID { return DecisionID(uuid.New()) }

// NewTransactionID returns a fresh random transaction ID.
func NewTransactionID() TransactionID { return TransactionID(uuid.New()) }

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

// ParseUserID parses a user ID from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

// ParseDecisionID parses a decision ID from external input.
func ParseDecisionID(s string) (DecisionID, error) {
	u, err := parseUUID(s, "decision_id")
	return DecisionID(u), err
}

// ParseTransactionID parses a transaction ID from external input.
func ParseTransactionID(s string) (TransactionID, error) {
	u, err := parseUUID(s, "transaction_id")
	return TransactionID(u), err
}

func (id UserID) String() string { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}
func (id *UserID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id DecisionID) String() string { return uuid.UUID(id).String() }
func (id DecisionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DecisionID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}
func (id *DecisionID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id TransactionID) String() string { return uuid.UUID(id).String() }
func (id TransactionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id TransactionID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}
func (id *TransactionID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
