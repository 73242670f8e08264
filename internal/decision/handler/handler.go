package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"trustbank/internal/decision"
	"trustbank/internal/decision/service"
	txmodels "trustbank/internal/transaction/models"
	id "trustbank/pkg/domain"
	dErrors "trustbank/pkg/domain-errors"
	"trustbank/pkg/platform/httputil"
	strs "trustbank/pkg/platform/strings"
	"trustbank/pkg/requestcontext"
)

// Service defines the interface for decision operations.
type Service interface {
	ApplyForLoan(ctx context.Context, app decision.LoanApplication) (*decision.Decision, error)
	ScreenTransaction(ctx context.Context, tx txmodels.Transaction) (*txmodels.Transaction, *decision.Decision, error)
	Get(ctx context.Context, userID id.UserID, decisionID id.DecisionID) (*decision.Decision, error)
	GetAny(ctx context.Context, decisionID id.DecisionID) (*decision.Decision, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*decision.Decision, error)
	ListAll(ctx context.Context, kinds ...decision.Kind) ([]*decision.Decision, error)
	ListTransactions(ctx context.Context, userID id.UserID) ([]*txmodels.Transaction, error)
	Stats(ctx context.Context) (decision.Stats, error)
	Override(ctx context.Context, decisionID id.DecisionID, cmd service.OverrideCommand) (*decision.Decision, error)
}

// Handler wires decision endpoints to the decision service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a decision handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterCustomer mounts the customer endpoints. The router must already
// enforce authentication.
func (h *Handler) RegisterCustomer(r chi.Router) {
	r.Post("/loans/apply", h.HandleApplyForLoan)
	r.Post("/transactions/screen", h.HandleScreenTransaction)
	r.Get("/transactions", h.HandleListTransactions)
	r.Get("/decisions", h.HandleListDecisions)
	r.Get("/decisions/{id}", h.HandleGetDecision)
}

// RegisterAdmin mounts the administrator endpoints. The router must already
// enforce the admin role; paths are relative to its mount point.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/decisions", h.HandleAdminListDecisions)
	r.Get("/decisions/{id}", h.HandleAdminGetDecision)
	r.Post("/decisions/{id}/override", h.HandleOverride)
	r.Get("/stats", h.HandleStats)
}

// HandleApplyForLoan handles POST /loans/apply.
func (h *Handler) HandleApplyForLoan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[LoanApplicationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	d, err := h.service.ApplyForLoan(ctx, req.toApplication(userID))
	if err != nil {
		h.logger.ErrorContext(ctx, "loan application failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "loan application decided",
		"request_id", requestID,
		"user_id", userID,
		"decision_id", d.ID,
		"result", d.Result,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, toDecisionResponse(d))
}

// HandleScreenTransaction handles POST /transactions/screen.
func (h *Handler) HandleScreenTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[ScreenTransactionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tx, d, err := h.service.ScreenTransaction(ctx, req.toTransaction(userID))
	if err != nil {
		h.logger.ErrorContext(ctx, "transaction screening failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, &ScreenResponse{
		Transaction: toTransactionResponse(tx),
		Decision:    toDecisionResponse(d),
	})
}

// HandleListTransactions handles GET /transactions.
func (h *Handler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	txs, err := h.service.ListTransactions(ctx, userID)
	if err != nil {
		h.logError(ctx, "failed to list transactions", err)
		httputil.WriteError(w, err)
		return
	}

	out := make([]*TransactionResponse, len(txs))
	for i, tx := range txs {
		out[i] = toTransactionResponse(tx)
	}
	httputil.WriteJSON(w, http.StatusOK, &TransactionListResponse{Transactions: out})
}

// HandleListDecisions handles GET /decisions for the caller's own decisions.
func (h *Handler) HandleListDecisions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	ds, err := h.service.ListByUser(ctx, userID)
	if err != nil {
		h.logError(ctx, "failed to list decisions", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDecisionList(ds))
}

// HandleGetDecision handles GET /decisions/{id}.
func (h *Handler) HandleGetDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	decisionID, err := id.ParseDecisionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	d, err := h.service.Get(ctx, userID, decisionID)
	if err != nil {
		h.logError(ctx, "failed to get decision", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDecisionResponse(d))
}

// HandleAdminListDecisions handles GET /admin/decisions, optionally filtered
// by ?kind=loan, ?kind=fraud or a comma-separated list of both.
func (h *Handler) HandleAdminListDecisions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var kinds []decision.Kind
	for _, raw := range strs.NormalizeLower(strs.SplitCSV(r.URL.Query().Get("kind"))) {
		kind, err := decision.ParseKind(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		kinds = append(kinds, kind)
	}

	ds, err := h.service.ListAll(ctx, kinds...)
	if err != nil {
		h.logError(ctx, "failed to list all decisions", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDecisionList(ds))
}

// HandleAdminGetDecision handles GET /admin/decisions/{id}.
func (h *Handler) HandleAdminGetDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	decisionID, err := id.ParseDecisionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	d, err := h.service.GetAny(ctx, decisionID)
	if err != nil {
		h.logError(ctx, "failed to get decision", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDecisionResponse(d))
}

// HandleOverride handles POST /admin/decisions/{id}/override.
func (h *Handler) HandleOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	decisionID, err := id.ParseDecisionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[OverrideRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	d, err := h.service.Override(ctx, decisionID, service.OverrideCommand{
		Result:  req.Result,
		Reason:  req.Reason,
		Actor:   requestcontext.DisplayName(ctx),
		ActorID: requestcontext.UserID(ctx),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "decision override failed",
			"request_id", requestID,
			"decision_id", decisionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDecisionResponse(d))
}

// HandleStats handles GET /admin/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.service.Stats(ctx)
	if err != nil {
		h.logError(ctx, "failed to compute stats", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"user_id", requestcontext.UserID(ctx),
		"error", err,
	)
}
