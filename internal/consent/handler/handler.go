package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"trustbank/internal/consent/models"
	id "trustbank/pkg/domain"
	dErrors "trustbank/pkg/domain-errors"
	"trustbank/pkg/platform/httputil"
	"trustbank/pkg/requestcontext"
)

// Service defines the interface for consent operations.
type Service interface {
	Get(ctx context.Context, userID id.UserID) (*models.Settings, error)
	Update(ctx context.Context, userID id.UserID, update models.Update) (*models.Settings, error)
}

// Handler handles consent endpoints for the authenticated customer.
type Handler struct {
	logger  *slog.Logger
	consent Service
}

// New creates a new consent Handler.
func New(consent Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		consent: consent,
	}
}

// Register registers the consent routes. The router must already enforce
// authentication.
func (h *Handler) Register(r chi.Router) {
	r.Get("/consent", h.HandleGetConsent)
	r.Put("/consent", h.HandleUpdateConsent)
}

// UpdateConsentRequest toggles any subset of the five flags.
type UpdateConsentRequest struct {
	Income             *bool `json:"income"`
	Location           *bool `json:"location"`
	TransactionHistory *bool `json:"transaction_history"`
	DeviceInfo         *bool `json:"device_info"`
	BehavioralData     *bool `json:"behavioral_data"`
}

func (r *UpdateConsentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Income == nil && r.Location == nil && r.TransactionHistory == nil && r.DeviceInfo == nil && r.BehavioralData == nil {
		return dErrors.New(dErrors.CodeValidation, "at least one consent flag is required")
	}
	return nil
}

func (r *UpdateConsentRequest) toUpdate() models.Update {
	return models.Update{
		Income:             r.Income,
		Location:           r.Location,
		TransactionHistory: r.TransactionHistory,
		DeviceInfo:         r.DeviceInfo,
		BehavioralData:     r.BehavioralData,
	}
}

// ConsentResponse is the customer-facing view of consent settings.
type ConsentResponse struct {
	Income             bool      `json:"income"`
	Location           bool      `json:"location"`
	TransactionHistory bool      `json:"transaction_history"`
	DeviceInfo         bool      `json:"device_info"`
	BehavioralData     bool      `json:"behavioral_data"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toResponse(s *models.Settings) *ConsentResponse {
	return &ConsentResponse{
		Income:             s.Income,
		Location:           s.Location,
		TransactionHistory: s.TransactionHistory,
		DeviceInfo:         s.DeviceInfo,
		BehavioralData:     s.BehavioralData,
		UpdatedAt:          s.UpdatedAt,
	}
}

// HandleGetConsent returns the caller's settings, creating defaults on first access.
func (h *Handler) HandleGetConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	settings, err := h.consent.Get(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get consent",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(settings))
}

// HandleUpdateConsent applies a partial toggle of the caller's settings.
func (h *Handler) HandleUpdateConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateConsentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	settings, err := h.consent.Update(ctx, userID, req.toUpdate())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to update consent",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(settings))
}
