package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "trustbank/pkg/domain"
	dErrors "trustbank/pkg/domain-errors"
)

func TestParseEmploymentType(t *testing.T) {
	for _, valid := range []string{"salaried", "self-employed", "unemployed"} {
		got, err := ParseEmploymentType(valid)
		require.NoError(t, err)
		assert.Equal(t, EmploymentType(valid), got)
	}

	_, err := ParseEmploymentType("Salaried")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestNewFromApplication(t *testing.T) {
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	userID := id.UserID(uuid.New())
	p := NewFromApplication(userID, ApplicationData{
		Income: 75000, CreditScore: 720, ExistingLoans: 1, EmploymentType: EmploymentSalaried,
	}, now)

	assert.Equal(t, DefaultAge, p.Age)
	assert.Equal(t, DefaultRiskScore, p.RiskScore)
	assert.Equal(t, DefaultSegment, p.Segment)
	assert.Equal(t, 75000.0, p.Income)
	assert.Equal(t, now, p.UpdatedAt)
}

func TestApplyApplicationKeepsNonApplicationFields(t *testing.T) {
	p := &Profile{Age: 44, RiskScore: 12, Segment: "Premium", CreditScore: 600}
	p.ApplyApplication(ApplicationData{CreditScore: 780, EmploymentType: EmploymentSelfEmployed}, time.Now())

	assert.Equal(t, 44, p.Age)
	assert.Equal(t, "Premium", p.Segment)
	assert.Equal(t, 780, p.CreditScore)
	assert.Equal(t, EmploymentSelfEmployed, p.EmploymentType)
}
