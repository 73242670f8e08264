package decision

import (
	"time"

	consentmodels "trustbank/internal/consent/models"
	profilemodels "trustbank/internal/profile/models"
	txmodels "trustbank/internal/transaction/models"
	id "trustbank/pkg/domain"
)

// Engine turns applications and transactions into decisions. Apart from the
// ID and timestamp it stamps on each decision, evaluation is pure and the
// Engine is safe for concurrent use.
type Engine struct {
	newID func() id.DecisionID
	now   func() time.Time
}

type EngineOption func(*Engine)

// WithIDGenerator overrides the decision ID source.
func WithIDGenerator(fn func() id.DecisionID) EngineOption {
	return func(e *Engine) {
		e.newID = fn
	}
}

// WithClock overrides the decision timestamp source.
func WithClock(fn func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = fn
	}
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		newID: id.NewDecisionID,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvaluateLoan scores a loan application. The profile is accepted alongside
// the application but scoring reads the application fields, which the caller
// has already written to the profile.
func (e *Engine) EvaluateLoan(app LoanApplication, profile *profilemodels.Profile, consent consentmodels.Snapshot) *Decision {
	confidence, factors := ScoreLoan(app, consent)
	result := ClassifyLoan(confidence)
	return e.newDecision(app.UserID, KindLoan, result, confidence, factors, consent)
}

// EvaluateFraud screens a transaction.
func (e *Engine) EvaluateFraud(tx txmodels.Transaction, consent consentmodels.Snapshot) *Decision {
	confidence, factors := ScoreFraud(tx, consent)
	result := ClassifyFraud(confidence)
	return e.newDecision(tx.UserID, KindFraud, result, confidence, factors, consent)
}

func (e *Engine) newDecision(userID id.UserID, kind Kind, result Result, confidence float64, factors []Factor, consent consentmodels.Snapshot) *Decision {
	return &Decision{
		ID:              e.newID(),
		UserID:          userID,
		Kind:            kind,
		Result:          result,
		Confidence:      confidence,
		Factors:         factors,
		Explanation:     GenerateExplanation(kind, result, factors, consent),
		Timestamp:       e.now(),
		ConsentSnapshot: consent,
	}
}
