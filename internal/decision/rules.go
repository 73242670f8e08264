package decision

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	consentmodels "trustbank/internal/consent/models"
	profilemodels "trustbank/internal/profile/models"
	txmodels "trustbank/internal/transaction/models"
)

// Scoring rules. Pure functions: no I/O, no clock, no randomness.

const (
	loanBaseline          = 50.0
	loanApprovalThreshold = 60.0

	fraudSuspiciousThreshold = 30.0
	fraudHighRiskThreshold   = 60.0

	largeTransactionAmount = 2000.0
)

// ScoreLoan computes the loan factors in their fixed order and the clamped
// confidence.
func ScoreLoan(app LoanApplication, consent consentmodels.Snapshot) (float64, []Factor) {
	score := loanBaseline
	factors := make([]Factor, 0, 5)

	// Credit Score. Gated on income consent; withholding carries no penalty here.
	if consent.Income {
		score += float64(app.CreditScore-600) / 10
		impact := ImpactNegative
		switch {
		case app.CreditScore >= 700:
			impact = ImpactPositive
		case app.CreditScore >= 650:
			impact = ImpactNeutral
		}
		factors = append(factors, Factor{Name: "Credit Score", Value: Number(float64(app.CreditScore)), Impact: impact, Weight: 0.3})
	} else {
		factors = append(factors, Factor{Name: "Credit Score", Value: Text("Data not provided"), Impact: ImpactNeutral, Weight: 0})
	}

	// Debt-to-Income. The loan count times twelve stands in for annual debt
	// payments; this mixes a count with a currency amount and is kept as is.
	if consent.Income {
		ratio := float64(app.ExistingLoans*12) / app.Income
		var impact Impact
		switch {
		case ratio < 0.3:
			score += 15
			impact = ImpactPositive
		case ratio < 0.5:
			score += 5
			impact = ImpactNeutral
		default:
			score -= 10
			impact = ImpactNegative
		}
		factors = append(factors, Factor{Name: "Debt-to-Income Ratio", Value: Text(toFixed(ratio*100, 1) + "%"), Impact: impact, Weight: 0.25})
	} else {
		score -= 10
		factors = append(factors, Factor{Name: "Income Data", Value: Text("Not provided"), Impact: ImpactNegative, Weight: 0.1})
	}

	switch app.EmploymentType {
	case profilemodels.EmploymentSalaried:
		score += 10
		factors = append(factors, Factor{Name: "Employment Type", Value: Text("Salaried"), Impact: ImpactPositive, Weight: 0.15})
	case profilemodels.EmploymentSelfEmployed:
		score += 5
		factors = append(factors, Factor{Name: "Employment Type", Value: Text("Self-employed"), Impact: ImpactNeutral, Weight: 0.15})
	default:
		score -= 15
		factors = append(factors, Factor{Name: "Employment Type", Value: Text("Unemployed"), Impact: ImpactNegative, Weight: 0.15})
	}

	switch {
	case app.ExistingLoans == 0:
		score += 10
		factors = append(factors, Factor{Name: "Existing Loans", Value: Number(0), Impact: ImpactPositive, Weight: 0.15})
	case app.ExistingLoans <= 2:
		factors = append(factors, Factor{Name: "Existing Loans", Value: Number(float64(app.ExistingLoans)), Impact: ImpactNeutral, Weight: 0.15})
	default:
		score -= 10
		factors = append(factors, Factor{Name: "Existing Loans", Value: Number(float64(app.ExistingLoans)), Impact: ImpactNegative, Weight: 0.15})
	}

	// Behavioral Pattern is omitted outright when withheld.
	if consent.BehavioralData {
		score += 5
		factors = append(factors, Factor{Name: "Behavioral Pattern", Value: Text("Consistent payment history"), Impact: ImpactPositive, Weight: 0.15})
	}

	return math.Min(math.Max(score, 0), 100), factors
}

// ClassifyLoan approves at or above the threshold. No rounding first.
func ClassifyLoan(confidence float64) Result {
	if confidence >= loanApprovalThreshold {
		return ResultApproved
	}
	return ResultRejected
}

// ScoreFraud computes the fraud factors in their fixed order and the capped
// risk. Risk only ever increases.
func ScoreFraud(tx txmodels.Transaction, consent consentmodels.Snapshot) (float64, []Factor) {
	risk := 0.0
	factors := make([]Factor, 0, 4)

	amount := Text("$" + toFixed(tx.Amount, 2))
	if tx.Amount > largeTransactionAmount {
		risk += 30
		factors = append(factors, Factor{Name: "Transaction Amount", Value: amount, Impact: ImpactNegative, Weight: 0.3})
	} else {
		factors = append(factors, Factor{Name: "Transaction Amount", Value: amount, Impact: ImpactPositive, Weight: 0.1})
	}

	if consent.Location {
		if strings.Contains(tx.Location, "Nigeria") || strings.Contains(tx.Location, "Foreign") {
			risk += 25
			factors = append(factors, Factor{Name: "Transaction Location", Value: Text(tx.Location), Impact: ImpactNegative, Weight: 0.25})
		} else {
			factors = append(factors, Factor{Name: "Transaction Location", Value: Text(tx.Location), Impact: ImpactPositive, Weight: 0.1})
		}
	}

	// Omitted, not zero-weighted, when withheld or unchanged.
	if consent.DeviceInfo && tx.DeviceChanged {
		risk += 20
		factors = append(factors, Factor{Name: "Device Information", Value: Text("New device detected"), Impact: ImpactNegative, Weight: 0.2})
	}

	if consent.TransactionHistory {
		if tx.Category == "Transfer" || tx.Category == "Wire" {
			risk += 15
			factors = append(factors, Factor{Name: "Merchant Category", Value: Text(tx.Category), Impact: ImpactNegative, Weight: 0.15})
		} else {
			factors = append(factors, Factor{Name: "Merchant Category", Value: Text(tx.Category), Impact: ImpactPositive, Weight: 0.1})
		}
	}

	return math.Min(risk, 100), factors
}

// ClassifyFraud maps risk to a result. 30 and 60 belong to the higher band.
func ClassifyFraud(confidence float64) Result {
	switch {
	case confidence < fraudSuspiciousThreshold:
		return ResultNormal
	case confidence < fraudHighRiskThreshold:
		return ResultSuspicious
	default:
		return ResultHighRisk
	}
}

// toFixed formats x with the given number of decimals, rounding the exact
// binary value half away from zero.
func toFixed(x float64, places int32) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Infinity"
	case math.IsInf(x, -1):
		return "-Infinity"
	}
	d, err := decimal.NewFromString(strconv.FormatFloat(x, 'f', 1100, 64))
	if err != nil {
		return strconv.FormatFloat(x, 'f', int(places), 64)
	}
	return d.StringFixed(places)
}
