package handler

import (
	"time"

	consentmodels "trustbank/internal/consent/models"
	"trustbank/internal/decision"
	txmodels "trustbank/internal/transaction/models"
)

// topFactorCount is how many factors a decision card summarizes.
const topFactorCount = 3

// DecisionResponse is the HTTP view of a decision.
type DecisionResponse struct {
	ID                string                 `json:"id"`
	UserID            string                 `json:"user_id"`
	Type              string                 `json:"type"`
	Result            string                 `json:"result"`
	Confidence        float64                `json:"confidence"`
	Factors           []decision.Factor      `json:"factors"`
	TopFactors        []decision.Factor      `json:"top_factors"`
	Explanation       string                 `json:"explanation"`
	Timestamp         time.Time              `json:"timestamp"`
	ConsentSnapshot   consentmodels.Snapshot `json:"consent_snapshot"`
	Overridden        bool                   `json:"overridden"`
	OverrideReason    string                 `json:"override_reason,omitempty"`
	OverriddenBy      string                 `json:"overridden_by,omitempty"`
	OverrideTimestamp *time.Time             `json:"override_timestamp,omitempty"`
}

type DecisionListResponse struct {
	Decisions []*DecisionResponse `json:"decisions"`
}

// TransactionResponse is the HTTP view of a screened transaction.
type TransactionResponse struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Amount        float64   `json:"amount"`
	Merchant      string    `json:"merchant"`
	Category      string    `json:"category"`
	Location      string    `json:"location"`
	DeviceChanged bool      `json:"device_changed"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	Flagged       bool      `json:"flagged"`
	RiskLevel     string    `json:"risk_level"`
}

type TransactionListResponse struct {
	Transactions []*TransactionResponse `json:"transactions"`
}

// ScreenResponse is the HTTP response for POST /transactions/screen.
type ScreenResponse struct {
	Transaction *TransactionResponse `json:"transaction"`
	Decision    *DecisionResponse    `json:"decision"`
}

func toDecisionResponse(d *decision.Decision) *DecisionResponse {
	resp := &DecisionResponse{
		ID:              d.ID.String(),
		UserID:          d.UserID.String(),
		Type:            string(d.Kind),
		Result:          string(d.Result),
		Confidence:      d.Confidence,
		Factors:         nonNil(d.Factors),
		TopFactors:      nonNil(d.TopFactors(topFactorCount)),
		Explanation:     d.Explanation,
		Timestamp:       d.Timestamp,
		ConsentSnapshot: d.ConsentSnapshot,
		Overridden:      d.Overridden,
		OverrideReason:  d.OverrideReason,
		OverriddenBy:    d.OverriddenBy,
	}
	if d.Overridden && !d.OverrideTimestamp.IsZero() {
		ts := d.OverrideTimestamp
		resp.OverrideTimestamp = &ts
	}
	return resp
}

func toDecisionList(ds []*decision.Decision) *DecisionListResponse {
	out := make([]*DecisionResponse, len(ds))
	for i, d := range ds {
		out[i] = toDecisionResponse(d)
	}
	return &DecisionListResponse{Decisions: out}
}

func toTransactionResponse(tx *txmodels.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:            tx.ID.String(),
		UserID:        tx.UserID.String(),
		Amount:        tx.Amount,
		Merchant:      tx.Merchant,
		Category:      tx.Category,
		Location:      tx.Location,
		DeviceChanged: tx.DeviceChanged,
		Type:          string(tx.Type),
		Timestamp:     tx.Timestamp,
		Flagged:       tx.Flagged,
		RiskLevel:     tx.RiskLevel,
	}
}

func nonNil(fs []decision.Factor) []decision.Factor {
	if fs == nil {
		return []decision.Factor{}
	}
	return fs
}
