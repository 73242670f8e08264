package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"trustbank/internal/audit/handler/mocks"
	id "trustbank/pkg/domain"
	audit "trustbank/pkg/platform/audit"
	"trustbank/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/audit-mocks.go -package=mocks Service

func newRouter(svc Service) chi.Router {
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterAdmin(r)
	return r
}

func TestHandleListUserEvents(t *testing.T) {
	userID := id.UserID(uuid.New())
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	events := []audit.Event{
		{Category: audit.CategoryOperations, Timestamp: at, UserID: userID, Action: string(audit.EventConsentDefaulted)},
		{Category: audit.CategoryCompliance, Timestamp: at.Add(time.Second), UserID: userID, Action: string(audit.EventDecisionMade), Subject: "d-1", Decision: "approved"},
	}

	t.Run("returns the trail oldest first", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockService(ctrl)
		svc.EXPECT().ListByUser(gomock.Any(), userID).Return(events, nil)

		rec := testutil.DoRequest(newRouter(svc), testutil.NewRequest(http.MethodGet, "/users/"+userID.String()+"/audit", ""))
		require.Equal(t, http.StatusOK, rec.Code)

		resp := testutil.UnmarshalResponse[EventListResponse](t, rec)
		assert.Equal(t, userID.String(), resp.UserID)
		require.Len(t, resp.Events, 2)
		assert.Equal(t, "consent_defaulted", resp.Events[0].Action)
		assert.Equal(t, "approved", resp.Events[1].Decision)
	})

	t.Run("filters by category", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockService(ctrl)
		svc.EXPECT().ListByUser(gomock.Any(), userID).Return(events, nil)

		rec := testutil.DoRequest(newRouter(svc), testutil.NewRequest(http.MethodGet, "/users/"+userID.String()+"/audit?category=compliance", ""))
		resp := testutil.UnmarshalResponse[EventListResponse](t, rec)
		require.Len(t, resp.Events, 1)
		assert.Equal(t, "decision_made", resp.Events[0].Action)
	})

	t.Run("empty trail is an empty list", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockService(ctrl)
		svc.EXPECT().ListByUser(gomock.Any(), userID).Return(nil, nil)

		rec := testutil.DoRequest(newRouter(svc), testutil.NewRequest(http.MethodGet, "/users/"+userID.String()+"/audit", ""))
		assert.JSONEq(t, `{"user_id":"`+userID.String()+`","events":[]}`, rec.Body.String())
	})

	t.Run("rejects a malformed user id", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		rec := testutil.DoRequest(newRouter(mocks.NewMockService(ctrl)), testutil.NewRequest(http.MethodGet, "/users/nope/audit", ""))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects an unknown category", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		rec := testutil.DoRequest(newRouter(mocks.NewMockService(ctrl)), testutil.NewRequest(http.MethodGet, "/users/"+userID.String()+"/audit?category=security", ""))
		testutil.AssertError(t, rec, http.StatusBadRequest, "validation_error")
	})

	t.Run("store failure hides details", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockService(ctrl)
		svc.EXPECT().ListByUser(gomock.Any(), userID).Return(nil, errors.New("connection reset"))

		rec := testutil.DoRequest(newRouter(svc), testutil.NewRequest(http.MethodGet, "/users/"+userID.String()+"/audit", ""))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection reset")
	})
}
