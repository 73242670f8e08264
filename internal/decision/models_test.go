package decision

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "trustbank/pkg/domain-errors"
)

func TestParseResultIsKindSpecific(t *testing.T) {
	r, err := ParseResult(KindLoan, "approved")
	require.NoError(t, err)
	assert.Equal(t, ResultApproved, r)

	_, err = ParseResult(KindLoan, "suspicious")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	r, err = ParseResult(KindFraud, "high-risk")
	require.NoError(t, err)
	assert.Equal(t, ResultHighRisk, r)

	_, err = ParseResult(KindFraud, "approved")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("fraud")
	require.NoError(t, err)
	assert.Equal(t, KindFraud, k)

	_, err = ParseKind("mortgage")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestFactorValueJSON(t *testing.T) {
	f := Factor{Name: "Credit Score", Value: Number(720), Impact: ImpactPositive, Weight: 0.3}
	b, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Credit Score","value":720,"impact":"positive","weight":0.3}`, string(b))

	var decoded []Factor
	require.NoError(t, json.Unmarshal([]byte(`[{"name":"a","value":"Salaried","impact":"positive","weight":0.15},{"name":"b","value":3,"impact":"negative","weight":0.15}]`), &decoded))
	assert.Equal(t, Text("Salaried"), decoded[0].Value)
	assert.Equal(t, Number(3), decoded[1].Value)

	var bad FactorValue
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &bad))
}

func TestApplyOverride(t *testing.T) {
	d := newTestEngine().EvaluateLoan(scenarioApplication(), nil, allConsent())
	snapshot := d.ConsentSnapshot
	at := fixedTime.Add(time.Hour)

	err := d.ApplyOverride(ResultSuspicious, "manual review", "Admin User", at)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.False(t, d.Overridden)

	err = d.ApplyOverride(ResultRejected, "   ", "Admin User", at)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	err = d.ApplyOverride(ResultRejected, "reason", "", at)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	require.NoError(t, d.ApplyOverride(ResultRejected, " income could not be verified ", "Admin User", at))
	assert.Equal(t, ResultRejected, d.Result)
	assert.True(t, d.Overridden)
	assert.Equal(t, "income could not be verified", d.OverrideReason)
	assert.Equal(t, "Admin User", d.OverriddenBy)
	assert.Equal(t, at, d.OverrideTimestamp)
	assert.Equal(t, snapshot, d.ConsentSnapshot)

	later := at.Add(time.Minute)
	require.NoError(t, d.ApplyOverride(ResultApproved, "verified by phone", "Second Admin", later))
	assert.Equal(t, ResultApproved, d.Result)
	assert.Equal(t, "Second Admin", d.OverriddenBy)
	assert.Equal(t, later, d.OverrideTimestamp)
}

func TestCloneDoesNotShareFactors(t *testing.T) {
	d := newTestEngine().EvaluateLoan(scenarioApplication(), nil, allConsent())
	c := d.Clone()
	c.Factors[0].Name = "changed"
	assert.Equal(t, "Credit Score", d.Factors[0].Name)

	var nilDecision *Decision
	assert.Nil(t, nilDecision.Clone())
}

func TestTopFactors(t *testing.T) {
	d := newTestEngine().EvaluateLoan(scenarioApplication(), nil, allConsent())
	top := d.TopFactors(3)
	require.Len(t, top, 3)
	assert.Equal(t, "Credit Score", top[0].Name)
	assert.Equal(t, "Employment Type", top[2].Name)

	fraud := newTestEngine().EvaluateFraud(scenarioTransaction(), allConsent())
	fraud.Factors = fraud.Factors[:1]
	assert.Len(t, fraud.TopFactors(3), 1)
}
