package handler

import (
	"trustbank/internal/decision"
	profilemodels "trustbank/internal/profile/models"
	txmodels "trustbank/internal/transaction/models"
	id "trustbank/pkg/domain"
	dErrors "trustbank/pkg/domain-errors"
)

const (
	minCreditScore = 300
	maxCreditScore = 900
	maxTextLength  = 200
)

// LoanApplicationRequest is the HTTP request body for POST /loans/apply.
type LoanApplicationRequest struct {
	Amount         float64 `json:"amount"`
	Purpose        string  `json:"purpose"`
	Income         float64 `json:"income"`
	ExistingLoans  int     `json:"existing_loans"`
	CreditScore    int     `json:"credit_score"`
	EmploymentType string  `json:"employment_type" sanitize:"lower"`

	// Parsed values (populated by Validate)
	parsedEmployment profilemodels.EmploymentType
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *LoanApplicationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Purpose) > maxTextLength {
		return dErrors.New(dErrors.CodeValidation, "purpose must be at most 200 characters")
	}
	if r.Purpose == "" {
		return dErrors.New(dErrors.CodeValidation, "purpose is required")
	}
	if !(r.Amount > 0) {
		return dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")
	}
	// The debt-to-income ratio divides by income.
	if !(r.Income > 0) {
		return dErrors.New(dErrors.CodeValidation, "income must be greater than zero")
	}
	if r.ExistingLoans < 0 {
		return dErrors.New(dErrors.CodeValidation, "existing_loans cannot be negative")
	}
	if r.CreditScore < minCreditScore || r.CreditScore > maxCreditScore {
		return dErrors.New(dErrors.CodeValidation, "credit_score must be between 300 and 900")
	}
	employment, err := profilemodels.ParseEmploymentType(r.EmploymentType)
	if err != nil {
		return err
	}
	r.parsedEmployment = employment
	return nil
}

func (r *LoanApplicationRequest) toApplication(userID id.UserID) decision.LoanApplication {
	return decision.LoanApplication{
		UserID:         userID,
		Amount:         r.Amount,
		Purpose:        r.Purpose,
		Income:         r.Income,
		ExistingLoans:  r.ExistingLoans,
		CreditScore:    r.CreditScore,
		EmploymentType: r.parsedEmployment,
	}
}

// ScreenTransactionRequest is the HTTP request body for POST /transactions/screen.
type ScreenTransactionRequest struct {
	Amount        float64 `json:"amount"`
	Merchant      string  `json:"merchant"`
	Category      string  `json:"category"`
	Location      string  `json:"location"`
	DeviceChanged bool    `json:"device_changed"`
	Type          string  `json:"type" sanitize:"lower"`

	parsedType txmodels.Type
}

func (r *ScreenTransactionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Merchant) > maxTextLength || len(r.Category) > maxTextLength || len(r.Location) > maxTextLength {
		return dErrors.New(dErrors.CodeValidation, "merchant, category and location must be at most 200 characters")
	}
	if !(r.Amount > 0) {
		return dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")
	}
	if r.Merchant == "" {
		return dErrors.New(dErrors.CodeValidation, "merchant is required")
	}
	if r.Category == "" {
		return dErrors.New(dErrors.CodeValidation, "category is required")
	}
	if r.Type == "" {
		r.Type = string(txmodels.TypeDebit)
	}
	t, err := txmodels.ParseType(r.Type)
	if err != nil {
		return err
	}
	r.parsedType = t
	return nil
}

func (r *ScreenTransactionRequest) toTransaction(userID id.UserID) txmodels.Transaction {
	return txmodels.Transaction{
		UserID:        userID,
		Amount:        r.Amount,
		Merchant:      r.Merchant,
		Category:      r.Category,
		Location:      r.Location,
		DeviceChanged: r.DeviceChanged,
		Type:          r.parsedType,
	}
}

// OverrideRequest is the HTTP request body for POST /admin/decisions/{id}/override.
// The result is checked against the decision's kind by the service.
type OverrideRequest struct {
	Result string `json:"result" sanitize:"lower"`
	Reason string `json:"reason"`
}

func (r *OverrideRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Result == "" {
		return dErrors.New(dErrors.CodeValidation, "result is required")
	}
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if len(r.Reason) > 1000 {
		return dErrors.New(dErrors.CodeValidation, "reason must be at most 1000 characters")
	}
	return nil
}
