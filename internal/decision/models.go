package decision

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	consentmodels "trustbank/internal/consent/models"
	profilemodels "trustbank/internal/profile/models"
	id "trustbank/pkg/domain"
	dErrors "trustbank/pkg/domain-errors"
)

// Kind tags a decision as a loan assessment or a fraud screen.
type Kind string

const (
	KindLoan  Kind = "loan"
	KindFraud Kind = "fraud"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindLoan, KindFraud:
		return k, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "kind must be loan or fraud")
	}
}

// Result is the outcome of a decision. Which results are valid depends on
// the decision's Kind.
type Result string

const (
	ResultApproved   Result = "approved"
	ResultRejected   Result = "rejected"
	ResultNormal     Result = "normal"
	ResultSuspicious Result = "suspicious"
	ResultHighRisk   Result = "high-risk"
)

var allowedResults = map[Kind][]Result{
	KindLoan:  {ResultApproved, ResultRejected},
	KindFraud: {ResultNormal, ResultSuspicious, ResultHighRisk},
}

// Allows reports whether r is a valid result for decisions of kind k.
func (k Kind) Allows(r Result) bool {
	for _, allowed := range allowedResults[k] {
		if allowed == r {
			return true
		}
	}
	return false
}

// ParseResult validates s against the results allowed for kind.
func ParseResult(kind Kind, s string) (Result, error) {
	r := Result(s)
	if !kind.Allows(r) {
		names := make([]string, 0, len(allowedResults[kind]))
		for _, a := range allowedResults[kind] {
			names = append(names, string(a))
		}
		return "", dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("result for a %s decision must be one of %s", kind, strings.Join(names, ", ")))
	}
	return r, nil
}

type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactNegative Impact = "negative"
	ImpactNeutral  Impact = "neutral"
)

// FactorValue is a factor's display value: either text or a number.
type FactorValue struct {
	text     string
	number   float64
	isNumber bool
}

func Text(s string) FactorValue {
	return FactorValue{text: s}
}

func Number(n float64) FactorValue {
	return FactorValue{number: n, isNumber: true}
}

func (v FactorValue) String() string {
	if v.isNumber {
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	}
	return v.text
}

func (v FactorValue) MarshalJSON() ([]byte, error) {
	if v.isNumber {
		return json.Marshal(v.number)
	}
	return json.Marshal(v.text)
}

func (v *FactorValue) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*v = Number(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("factor value must be a string or number: %w", err)
	}
	*v = Text(s)
	return nil
}

// Factor is one weighted input to a decision. Weight is declared importance
// for display; it plays no part in the score.
type Factor struct {
	Name   string      `json:"name"`
	Value  FactorValue `json:"value"`
	Impact Impact      `json:"impact"`
	Weight float64     `json:"weight"`
}

// LoanApplication is the transient input of a loan assessment.
type LoanApplication struct {
	UserID         id.UserID
	Amount         float64
	Purpose        string
	Income         float64
	ExistingLoans  int
	CreditScore    int
	EmploymentType profilemodels.EmploymentType
}

// ProfileData is the slice of the application that refreshes the profile.
func (a LoanApplication) ProfileData() profilemodels.ApplicationData {
	return profilemodels.ApplicationData{
		Income:         a.Income,
		CreditScore:    a.CreditScore,
		ExistingLoans:  a.ExistingLoans,
		EmploymentType: a.EmploymentType,
	}
}

// Decision is the record of one evaluation. Everything except the override
// fields is fixed at creation.
type Decision struct {
	ID                id.DecisionID
	UserID            id.UserID
	Kind              Kind
	Result            Result
	Confidence        float64
	Factors           []Factor
	Explanation       string
	Timestamp         time.Time
	ConsentSnapshot   consentmodels.Snapshot
	Overridden        bool
	OverrideReason    string
	OverriddenBy      string
	OverrideTimestamp time.Time
}

// Clone returns a copy that shares no memory with d.
func (d *Decision) Clone() *Decision {
	if d == nil {
		return nil
	}
	c := *d
	c.Factors = append([]Factor(nil), d.Factors...)
	return &c
}

// TopFactors returns the first n factors in evaluation order.
func (d *Decision) TopFactors(n int) []Factor {
	if n > len(d.Factors) {
		n = len(d.Factors)
	}
	if n < 0 {
		n = 0
	}
	return d.Factors[:n]
}

// ApplyOverride replaces the result on behalf of an administrator. A later
// override replaces an earlier one. The consent snapshot is never touched.
func (d *Decision) ApplyOverride(result Result, reason, by string, at time.Time) error {
	if !d.Kind.Allows(result) {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("result %q is not valid for a %s decision", result, d.Kind))
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return dErrors.New(dErrors.CodeValidation, "override reason is required")
	}
	if strings.TrimSpace(by) == "" {
		return dErrors.New(dErrors.CodeValidation, "override requires an acting administrator")
	}
	d.Result = result
	d.Overridden = true
	d.OverrideReason = reason
	d.OverriddenBy = by
	d.OverrideTimestamp = at
	return nil
}
