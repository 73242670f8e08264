package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	consentmodels "trustbank/internal/consent/models"
	"trustbank/internal/decision"
	id "trustbank/pkg/domain"
	"trustbank/pkg/platform/sentinel"
)

var base = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

func sampleDecision(userID id.UserID, kind decision.Kind, at time.Time) *decision.Decision {
	result := decision.ResultApproved
	if kind == decision.KindFraud {
		result = decision.ResultNormal
	}
	return &decision.Decision{
		ID:          id.NewDecisionID(),
		UserID:      userID,
		Kind:        kind,
		Result:      result,
		Confidence:  72,
		Factors:     []decision.Factor{{Name: "Credit Score", Value: decision.Number(720), Impact: decision.ImpactPositive, Weight: 0.3}},
		Explanation: "explanation",
		Timestamp:   at,
		ConsentSnapshot: consentmodels.Snapshot{
			Income: true, Location: true, TransactionHistory: true, DeviceInfo: true, BehavioralData: true,
		},
	}
}

func TestInMemorySaveAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	d := sampleDecision(id.UserID(uuid.New()), decision.KindLoan, base)

	require.NoError(t, s.Save(ctx, d))
	assert.ErrorIs(t, s.Save(ctx, d), sentinel.ErrConflict)

	d.Factors[0].Name = "mutated after save"
	got, err := s.FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Credit Score", got.Factors[0].Name)

	got.Factors[0].Name = "mutated after read"
	again, err := s.FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Credit Score", again.Factors[0].Name)

	_, err = s.FindByID(ctx, id.NewDecisionID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryUpdateTouchesOnlyOverrideFields(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	d := sampleDecision(id.UserID(uuid.New()), decision.KindLoan, base)
	require.NoError(t, s.Save(ctx, d))

	changed := d.Clone()
	require.NoError(t, changed.ApplyOverride(decision.ResultRejected, "manual review", "Admin User", base.Add(time.Hour)))
	changed.Explanation = "ignored"
	changed.ConsentSnapshot = consentmodels.Snapshot{}
	require.NoError(t, s.Update(ctx, changed))

	got, err := s.FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, decision.ResultRejected, got.Result)
	assert.True(t, got.Overridden)
	assert.Equal(t, "Admin User", got.OverriddenBy)
	assert.Equal(t, "explanation", got.Explanation)
	assert.True(t, got.ConsentSnapshot.Income)

	assert.ErrorIs(t, s.Update(ctx, sampleDecision(d.UserID, decision.KindLoan, base)), sentinel.ErrNotFound)
}

func TestInMemoryListing(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	alice, bob := id.UserID(uuid.New()), id.UserID(uuid.New())

	first := sampleDecision(alice, decision.KindLoan, base)
	second := sampleDecision(alice, decision.KindFraud, base.Add(time.Minute))
	third := sampleDecision(bob, decision.KindFraud, base.Add(2*time.Minute))
	for _, d := range []*decision.Decision{first, second, third} {
		require.NoError(t, s.Save(ctx, d))
	}

	mine, err := s.ListByUser(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, third.ID, all[0].ID)

	fraud, err := s.ListAll(ctx, decision.KindFraud)
	require.NoError(t, err)
	require.Len(t, fraud, 2)
	for _, d := range fraud {
		assert.Equal(t, decision.KindFraud, d.Kind)
	}
}

var columns = []string{"id", "user_id", "kind", "result", "confidence", "factors", "explanation", "consent_snapshot",
	"overridden", "override_reason", "overridden_by", "override_timestamp", "created_at"}

func TestPostgresSaveAndFind(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	uid := uuid.New()
	d := sampleDecision(id.UserID(uid), decision.KindLoan, base)
	did := uuid.UUID(d.ID)

	mock.ExpectExec("INSERT INTO decisions").
		WithArgs(did, uid, "loan", "approved", 72.0, sqlmock.AnyArg(), "explanation", sqlmock.AnyArg(),
			false, "", "", nil, base).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM decisions WHERE id = \\$1").WithArgs(did).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			did.String(), uid.String(), "loan", "approved", 72.0,
			`[{"name":"Credit Score","value":720,"impact":"positive","weight":0.3}]`,
			"explanation",
			`{"income":true,"location":true,"transaction_history":true,"device_info":true,"behavioral_data":true}`,
			false, "", "", nil, base,
		))

	s := NewPostgres(db)
	require.NoError(t, s.Save(context.Background(), d))

	got, err := s.FindByID(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, *d, *got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPartialSnapshotIsFailClosed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	did, uid := uuid.New(), uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM decisions WHERE id").WithArgs(did).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			did.String(), uid.String(), "fraud", "suspicious", 30.0, `[]`, "x",
			`{"income":true}`, false, "", "", nil, base,
		))

	got, err := NewPostgres(db).FindByID(context.Background(), id.DecisionID(did))
	require.NoError(t, err)
	assert.Equal(t, consentmodels.Snapshot{Income: true}, got.ConsentSnapshot)
}

func TestPostgresFindNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	did := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM decisions WHERE id").WithArgs(did).
		WillReturnRows(sqlmock.NewRows(columns))

	_, err = NewPostgres(db).FindByID(context.Background(), id.DecisionID(did))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	d := sampleDecision(id.UserID(uuid.New()), decision.KindLoan, base)
	at := base.Add(time.Hour)
	require.NoError(t, d.ApplyOverride(decision.ResultRejected, "manual review", "Admin User", at))

	mock.ExpectExec("UPDATE decisions").
		WithArgs(uuid.UUID(d.ID), "rejected", true, "manual review", "Admin User", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE decisions").
		WithArgs(uuid.UUID(d.ID), "rejected", true, "manual review", "Admin User", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewPostgres(db)
	require.NoError(t, s.Update(context.Background(), d))
	assert.ErrorIs(t, s.Update(context.Background(), d), sentinel.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListAllFiltersByKind(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	did, uid := uuid.New(), uuid.New()
	mock.ExpectQuery("WHERE kind = ANY").WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			did.String(), uid.String(), "fraud", "high-risk", 90.0, `[{"name":"Transaction Amount","value":"$2500.00","impact":"negative","weight":0.3}]`,
			"x", `{}`, true, "confirmed", "Admin User", base.Add(time.Hour), base,
		))

	got, err := NewPostgres(db).ListAll(context.Background(), decision.KindFraud)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, decision.Text("$2500.00"), got[0].Factors[0].Value)
	assert.True(t, got[0].Overridden)
	assert.Equal(t, base.Add(time.Hour), got[0].OverrideTimestamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}
