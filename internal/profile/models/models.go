package models

import (
	"time"

	id "trustbank/pkg/domain"
	dErrors "trustbank/pkg/domain-errors"
)

type EmploymentType string

const (
	EmploymentSalaried     EmploymentType = "salaried"
	EmploymentSelfEmployed EmploymentType = "self-employed"
	EmploymentUnemployed   EmploymentType = "unemployed"
)

// ParseEmploymentType accepts the three known employment types.
func ParseEmploymentType(s string) (EmploymentType, error) {
	switch t := EmploymentType(s); t {
	case EmploymentSalaried, EmploymentSelfEmployed, EmploymentUnemployed:
		return t, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "employment_type must be one of salaried, self-employed, unemployed")
	}
}

// Defaults for a profile first created from a loan application.
const (
	DefaultAge       = 30
	DefaultRiskScore = 30
	DefaultSegment   = "Standard applicant"
)

// Profile is a customer's financial profile. Application fields are last
// write wins.
type Profile struct {
	UserID         id.UserID
	Income         float64
	CreditScore    int
	Age            int
	ExistingLoans  int
	EmploymentType EmploymentType
	RiskScore      int
	Segment        string
	UpdatedAt      time.Time
}

// ApplicationData is the part of a loan application that refreshes a profile.
type ApplicationData struct {
	Income         float64
	CreditScore    int
	ExistingLoans  int
	EmploymentType EmploymentType
}

// NewFromApplication builds the profile used when none exists yet.
func NewFromApplication(userID id.UserID, data ApplicationData, now time.Time) *Profile {
	p := &Profile{
		UserID:    userID,
		Age:       DefaultAge,
		RiskScore: DefaultRiskScore,
		Segment:   DefaultSegment,
	}
	p.ApplyApplication(data, now)
	return p
}

// ApplyApplication overwrites the application-supplied fields.
func (p *Profile) ApplyApplication(data ApplicationData, now time.Time) {
	p.Income = data.Income
	p.CreditScore = data.CreditScore
	p.ExistingLoans = data.ExistingLoans
	p.EmploymentType = data.EmploymentType
	p.UpdatedAt = now
}
