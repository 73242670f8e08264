package decision

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	consentmodels "trustbank/internal/consent/models"
	profilemodels "trustbank/internal/profile/models"
	txmodels "trustbank/internal/transaction/models"
)

func allConsent() consentmodels.Snapshot {
	return consentmodels.Snapshot{
		Income:             true,
		Location:           true,
		TransactionHistory: true,
		DeviceInfo:         true,
		BehavioralData:     true,
	}
}

func TestClassifyLoanBoundary(t *testing.T) {
	assert.Equal(t, ResultRejected, ClassifyLoan(59.9))
	assert.Equal(t, ResultApproved, ClassifyLoan(60))
	assert.Equal(t, ResultApproved, ClassifyLoan(100))
	assert.Equal(t, ResultRejected, ClassifyLoan(0))
}

func TestClassifyFraudBoundaries(t *testing.T) {
	cases := []struct {
		confidence float64
		want       Result
	}{
		{0, ResultNormal},
		{29.9, ResultNormal},
		{30, ResultSuspicious},
		{59.9, ResultSuspicious},
		{60, ResultHighRisk},
		{100, ResultHighRisk},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyFraud(tc.confidence), "confidence %v", tc.confidence)
	}
}

func TestScoreLoanCreditScoreBoundary(t *testing.T) {
	consent := allConsent()
	consent.BehavioralData = false
	app := LoanApplication{
		Income:         20,
		ExistingLoans:  1,
		CreditScore:    699,
		EmploymentType: profilemodels.EmploymentSalaried,
	}

	// 50 + 9.9 - 10 (ratio 0.6) + 10 + 0
	confidence, factors := ScoreLoan(app, consent)
	assert.InDelta(t, 59.9, confidence, 1e-9)
	assert.Equal(t, ResultRejected, ClassifyLoan(confidence))
	assert.Equal(t, ImpactNeutral, factors[0].Impact)

	app.CreditScore = 700
	confidence, factors = ScoreLoan(app, consent)
	assert.InDelta(t, 60, confidence, 1e-9)
	assert.Equal(t, ResultApproved, ClassifyLoan(confidence))
	assert.Equal(t, ImpactPositive, factors[0].Impact)
}

func TestScoreLoanCreditScoreImpact(t *testing.T) {
	cases := map[int]Impact{
		649: ImpactNegative,
		650: ImpactNeutral,
		699: ImpactNeutral,
		700: ImpactPositive,
	}
	for score, want := range cases {
		_, factors := ScoreLoan(LoanApplication{Income: 50000, CreditScore: score, EmploymentType: profilemodels.EmploymentSalaried}, allConsent())
		assert.Equal(t, want, factors[0].Impact, "credit score %d", score)
		assert.Equal(t, strconv.Itoa(score), factors[0].Value.String())
	}
}

// The ratio multiplies a loan count by twelve and divides by annual income.
// These cases pin that formula as-is.
func TestScoreLoanDebtToIncomeQuirk(t *testing.T) {
	cases := []struct {
		name   string
		income float64
		loans  int
		value  string
		impact Impact
		delta  float64
	}{
		{"tiny ratio", 75000, 1, "0.0%", ImpactPositive, 15},
		{"just under 0.3", 41, 1, "29.3%", ImpactPositive, 15},
		{"exactly 0.3", 40, 1, "30.0%", ImpactNeutral, 5},
		{"under 0.5", 30, 1, "40.0%", ImpactNeutral, 5},
		{"exactly 0.5", 24, 1, "50.0%", ImpactNegative, -10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := LoanApplication{Income: tc.income, ExistingLoans: tc.loans, CreditScore: 600, EmploymentType: profilemodels.EmploymentSelfEmployed}
			consent := allConsent()
			consent.BehavioralData = false
			confidence, factors := ScoreLoan(app, consent)
			dti := factors[1]
			assert.Equal(t, "Debt-to-Income Ratio", dti.Name)
			assert.Equal(t, tc.value, dti.Value.String())
			assert.Equal(t, tc.impact, dti.Impact)
			assert.InDelta(t, 0.25, dti.Weight, 1e-12)
			// baseline 50, credit 0, self-employed +5, one loan 0
			assert.InDelta(t, 55+tc.delta, confidence, 1e-9)
		})
	}
}

func TestScoreLoanEmploymentAndLoans(t *testing.T) {
	consent := allConsent()
	_, factors := ScoreLoan(LoanApplication{Income: 100000, CreditScore: 700, EmploymentType: profilemodels.EmploymentUnemployed, ExistingLoans: 3}, consent)
	assert.Equal(t, Factor{Name: "Employment Type", Value: Text("Unemployed"), Impact: ImpactNegative, Weight: 0.15}, factors[2])
	assert.Equal(t, Factor{Name: "Existing Loans", Value: Number(3), Impact: ImpactNegative, Weight: 0.15}, factors[3])

	_, factors = ScoreLoan(LoanApplication{Income: 100000, CreditScore: 700, EmploymentType: profilemodels.EmploymentSelfEmployed}, consent)
	assert.Equal(t, Factor{Name: "Employment Type", Value: Text("Self-employed"), Impact: ImpactNeutral, Weight: 0.15}, factors[2])
	assert.Equal(t, Factor{Name: "Existing Loans", Value: Number(0), Impact: ImpactPositive, Weight: 0.15}, factors[3])
}

func TestScoreLoanOmitsBehavioralWhenWithheld(t *testing.T) {
	consent := allConsent()
	consent.BehavioralData = false
	_, factors := ScoreLoan(LoanApplication{Income: 100000, CreditScore: 700, EmploymentType: profilemodels.EmploymentSalaried}, consent)
	assert.Len(t, factors, 4)
	for _, f := range factors {
		assert.NotEqual(t, "Behavioral Pattern", f.Name)
	}
}

// Below a credit score of 600 the credit factor subtracts more than the
// missing-income penalty, so withholding income raises the score there.
func TestScoreLoanWithholdingIncomeBelow600(t *testing.T) {
	app := LoanApplication{Income: 1000, ExistingLoans: 5, CreditScore: 300, EmploymentType: profilemodels.EmploymentSalaried}
	withIncome, _ := ScoreLoan(app, allConsent())
	consent := allConsent()
	consent.Income = false
	withoutIncome, _ := ScoreLoan(app, consent)
	assert.Greater(t, withoutIncome, withIncome)
}

func TestScoreFraudAmount(t *testing.T) {
	none := consentmodels.Snapshot{}

	risk, factors := ScoreFraud(txmodels.Transaction{Amount: 2000}, none)
	assert.Zero(t, risk)
	assert.Equal(t, Factor{Name: "Transaction Amount", Value: Text("$2000.00"), Impact: ImpactPositive, Weight: 0.1}, factors[0])

	risk, factors = ScoreFraud(txmodels.Transaction{Amount: 2000.01}, none)
	assert.InDelta(t, 30, risk, 1e-9)
	assert.Equal(t, Factor{Name: "Transaction Amount", Value: Text("$2000.01"), Impact: ImpactNegative, Weight: 0.3}, factors[0])
}

func TestScoreFraudLocationIsCaseSensitive(t *testing.T) {
	consent := consentmodels.Snapshot{Location: true}

	risk, factors := ScoreFraud(txmodels.Transaction{Amount: 10, Location: "Foreign ATM"}, consent)
	assert.InDelta(t, 25, risk, 1e-9)
	assert.Equal(t, ImpactNegative, factors[1].Impact)

	risk, factors = ScoreFraud(txmodels.Transaction{Amount: 10, Location: "lagos, nigeria"}, consent)
	assert.Zero(t, risk)
	assert.Equal(t, Factor{Name: "Transaction Location", Value: Text("lagos, nigeria"), Impact: ImpactPositive, Weight: 0.1}, factors[1])
}

func TestScoreFraudDeviceOmittedWithoutConsent(t *testing.T) {
	consent := allConsent()
	consent.DeviceInfo = false
	tx := txmodels.Transaction{Amount: 50, Location: "Austin, TX", Category: "Groceries", DeviceChanged: true}

	risk, factors := ScoreFraud(tx, consent)
	assert.Zero(t, risk)
	assert.Len(t, factors, 3)
	for _, f := range factors {
		assert.NotEqual(t, "Device Information", f.Name)
	}
}

func TestScoreFraudDeviceOmittedWhenUnchanged(t *testing.T) {
	_, factors := ScoreFraud(txmodels.Transaction{Amount: 50, Location: "Austin, TX", Category: "Groceries"}, allConsent())
	assert.Len(t, factors, 3)
}

func TestScoreFraudMerchantCategory(t *testing.T) {
	consent := consentmodels.Snapshot{TransactionHistory: true}
	for _, category := range []string{"Transfer", "Wire"} {
		risk, factors := ScoreFraud(txmodels.Transaction{Amount: 1, Category: category}, consent)
		assert.InDelta(t, 15, risk, 1e-9)
		assert.Equal(t, Factor{Name: "Merchant Category", Value: Text(category), Impact: ImpactNegative, Weight: 0.15}, factors[1])
	}
	risk, factors := ScoreFraud(txmodels.Transaction{Amount: 1, Category: "wire"}, consent)
	assert.Zero(t, risk)
	assert.Equal(t, ImpactPositive, factors[1].Impact)
}

func TestToFixed(t *testing.T) {
	cases := []struct {
		x      float64
		places int32
		want   string
	}{
		{2500, 2, "2500.00"},
		{1.005, 2, "1.00"},
		{1.125, 2, "1.13"},
		{2.5, 0, "3"},
		{-2.5, 0, "-3"},
		{0.016, 1, "0.0"},
		{29.268292682926827, 1, "29.3"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, toFixed(tc.x, tc.places), "toFixed(%v, %d)", tc.x, tc.places)
	}
}
