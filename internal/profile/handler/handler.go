package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"trustbank/internal/profile/models"
	id "trustbank/pkg/domain"
	dErrors "trustbank/pkg/domain-errors"
	"trustbank/pkg/platform/httputil"
	"trustbank/pkg/requestcontext"
)

// Service defines the interface for profile reads.
type Service interface {
	Get(ctx context.Context, userID id.UserID) (*models.Profile, error)
}

type Handler struct {
	logger  *slog.Logger
	profile Service
}

func New(profile Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, profile: profile}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/profile", h.HandleGetProfile)
}

// ProfileResponse is the customer-facing profile.
type ProfileResponse struct {
	UserID         string    `json:"user_id"`
	Income         float64   `json:"income"`
	CreditScore    int       `json:"credit_score"`
	Age            int       `json:"age"`
	ExistingLoans  int       `json:"existing_loans"`
	EmploymentType string    `json:"employment_type"`
	RiskScore      int       `json:"risk_score"`
	Segment        string    `json:"segment"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
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

	p, err := h.profile.Get(ctx, userID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "failed to get profile",
				"request_id", requestID,
				"user_id", userID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &ProfileResponse{
		UserID:         p.UserID.String(),
		Income:         p.Income,
		CreditScore:    p.CreditScore,
		Age:            p.Age,
		ExistingLoans:  p.ExistingLoans,
		EmploymentType: string(p.EmploymentType),
		RiskScore:      p.RiskScore,
		Segment:        p.Segment,
		UpdatedAt:      p.UpdatedAt,
	})
}
