package models

import (
	"time"

	id "trustbank/pkg/domain"
	dErrors "trustbank/pkg/domain-errors"
)

type Type string

const (
	TypeDebit  Type = "debit"
	TypeCredit Type = "credit"
)

func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeDebit, TypeCredit:
		return t, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "type must be debit or credit")
	}
}

// Transaction is a screened card or account movement. Flagged and RiskLevel
// are filled in from the fraud decision, never by the caller.
type Transaction struct {
	ID            id.TransactionID
	UserID        id.UserID
	Amount        float64
	Merchant      string
	Category      string
	Location      string
	DeviceChanged bool
	Type          Type
	Timestamp     time.Time
	Flagged       bool
	RiskLevel     string
}
