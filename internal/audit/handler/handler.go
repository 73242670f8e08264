// Package handler exposes a customer's audit trail to administrators.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	id "trustbank/pkg/domain"
	dErrors "trustbank/pkg/domain-errors"
	audit "trustbank/pkg/platform/audit"
	"trustbank/pkg/platform/httputil"
	"trustbank/pkg/requestcontext"
)

// Service reads audit events. Both audit stores satisfy it.
type Service interface {
	ListByUser(ctx context.Context, userID id.UserID) ([]audit.Event, error)
}

type Handler struct {
	logger *slog.Logger
	events Service
}

func New(events Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, events: events}
}

// RegisterAdmin mounts the audit routes. The caller guards them with the
// admin role.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/users/{userID}/audit", h.HandleListUserEvents)
}

// EventResponse is one audit trail entry.
type EventResponse struct {
	Action    string    `json:"action"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	Subject   string    `json:"subject,omitempty"`
	Decision  string    `json:"decision,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	ActorID   string    `json:"actor_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// EventListResponse wraps a user's audit trail, oldest first.
type EventListResponse struct {
	UserID string          `json:"user_id"`
	Events []EventResponse `json:"events"`
}

// HandleListUserEvents handles GET /admin/users/{userID}/audit with an
// optional ?category=compliance|operations filter.
func (h *Handler) HandleListUserEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	category := audit.EventCategory(r.URL.Query().Get("category"))
	switch category {
	case "", audit.CategoryCompliance, audit.CategoryOperations:
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "category must be compliance or operations"))
		return
	}

	events, err := h.events.ListByUser(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit events",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := EventListResponse{UserID: userID.String(), Events: make([]EventResponse, 0, len(events))}
	for _, e := range events {
		if category != "" && e.Category != category {
			continue
		}
		resp.Events = append(resp.Events, EventResponse{
			Action:    e.Action,
			Category:  string(e.Category),
			Timestamp: e.Timestamp,
			Subject:   e.Subject,
			Decision:  e.Decision,
			Reason:    e.Reason,
			ActorID:   e.ActorID,
			RequestID: e.RequestID,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
