package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"trustbank/internal/consent/models"
	"trustbank/internal/consent/store"
	id "trustbank/pkg/domain"
	dErrors "trustbank/pkg/domain-errors"
	audit "trustbank/pkg/platform/audit"
	auditmemory "trustbank/pkg/platform/audit/store/memory"
	"trustbank/pkg/platform/sentinel"
	"trustbank/pkg/requestcontext"
)

type countingStore struct {
	*store.InMemoryStore
	mu      sync.Mutex
	saves   int
	creates int
}

func (c *countingStore) Create(ctx context.Context, s *models.Settings) (*models.Settings, error) {
	c.mu.Lock()
	c.creates++
	c.mu.Unlock()
	return c.InMemoryStore.Create(ctx, s)
}

func (c *countingStore) Save(ctx context.Context, s *models.Settings) error {
	c.mu.Lock()
	c.saves++
	c.mu.Unlock()
	return c.InMemoryStore.Save(ctx, s)
}

type failingAuditor struct{}

func (failingAuditor) Emit(context.Context, audit.Event) error { return errors.New("audit down") }

type ConsentServiceSuite struct {
	suite.Suite
	store   *countingStore
	audit   *auditmemory.InMemoryStore
	service *Service
	userID  id.UserID
	now     time.Time
	ctx     context.Context
}

func TestConsentServiceSuite(t *testing.T) {
	suite.Run(t, new(ConsentServiceSuite))
}

type storeAuditor struct{ store audit.Store }

func (a storeAuditor) Emit(ctx context.Context, e audit.Event) error { return a.store.Append(ctx, e) }

func (s *ConsentServiceSuite) SetupTest() {
	s.store = &countingStore{InMemoryStore: store.NewInMemoryStore()}
	s.audit = auditmemory.NewInMemoryStore()
	s.service = New(s.store,
		WithAuditor(storeAuditor{store: s.audit}),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.userID = id.UserID(uuid.New())
	s.now = time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *ConsentServiceSuite) TestGetCreatesDefaultsOnce() {
	first, err := s.service.Get(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Empty(first.Snapshot().Withheld())
	s.Equal(s.now, first.UpdatedAt)

	_, err = s.service.Get(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Equal(1, s.store.creates)
	s.Zero(s.store.saves)

	events, err := s.audit.ListByUser(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventConsentDefaulted), events[0].Action)
}

func (s *ConsentServiceSuite) TestConcurrentFirstReadsCreateOneRecord() {
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Get(s.ctx, s.userID)
			s.NoError(err)
		}()
	}
	wg.Wait()
	s.Equal(1, s.store.creates)
}

// restoreFailingStore accepts the first save and rejects the rest.
type restoreFailingStore struct {
	*store.InMemoryStore
	saves int
}

func (r *restoreFailingStore) Save(ctx context.Context, settings *models.Settings) error {
	r.saves++
	if r.saves > 1 {
		return errors.New("store unavailable")
	}
	return r.InMemoryStore.Save(ctx, settings)
}

func (s *ConsentServiceSuite) TestUpdateLogsFailedRestore() {
	var logs bytes.Buffer
	svc := New(&restoreFailingStore{InMemoryStore: store.NewInMemoryStore()},
		WithAuditor(failingAuditor{}),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)
	no := false
	_, err := svc.Update(s.ctx, s.userID, models.Update{Income: &no})
	s.Require().Error(err)
	s.Contains(logs.String(), "failed to restore consent after audit failure")
	s.Contains(logs.String(), "store unavailable")
}

// blindStore misses every Find, as a read racing another writer's commit does.
type blindStore struct {
	*store.InMemoryStore
}

func (blindStore) Find(context.Context, id.UserID) (*models.Settings, error) {
	return nil, sentinel.ErrNotFound
}

func (s *ConsentServiceSuite) TestDefaultsNeverRevertAConcurrentWithdrawal() {
	backing := store.NewInMemoryStore()
	withdrawn := models.DefaultSettings(s.userID, s.now.Add(-time.Minute))
	withdrawn.Income = false
	s.Require().NoError(backing.Save(s.ctx, withdrawn))

	svc := New(blindStore{InMemoryStore: backing},
		WithAuditor(storeAuditor{store: s.audit}),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	got, err := svc.Get(s.ctx, s.userID)
	s.Require().NoError(err)
	s.False(got.Income)

	stored, err := backing.Find(s.ctx, s.userID)
	s.Require().NoError(err)
	s.False(stored.Income)

	events, err := s.audit.ListByUser(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Empty(events, "no defaults were created")
}

func (s *ConsentServiceSuite) TestUpdate() {
	no := false

	s.Run("toggles and audits", func() {
		later := requestcontext.WithTime(s.ctx, s.now.Add(time.Hour))
		settings, err := s.service.Update(later, s.userID, models.Update{Income: &no, BehavioralData: &no})
		s.Require().NoError(err)
		s.False(settings.Income)
		s.False(settings.BehavioralData)
		s.True(settings.Location)
		s.Equal(s.now.Add(time.Hour), settings.UpdatedAt)

		events, err := s.audit.ListByUser(s.ctx, s.userID)
		s.Require().NoError(err)
		last := events[len(events)-1]
		s.Equal(string(audit.EventConsentUpdated), last.Action)
		s.Equal(audit.CategoryCompliance, last.Category)
		s.Equal("changed: income,behavioralData", last.Reason)
	})

	s.Run("no change is not audited", func() {
		before, err := s.audit.ListByUser(s.ctx, s.userID)
		s.Require().NoError(err)

		_, err = s.service.Update(s.ctx, s.userID, models.Update{Income: &no})
		s.Require().NoError(err)

		after, err := s.audit.ListByUser(s.ctx, s.userID)
		s.Require().NoError(err)
		s.Len(after, len(before))
	})
}

func (s *ConsentServiceSuite) TestUpdateFailsClosedWhenAuditFails() {
	svc := New(s.store,
		WithAuditor(failingAuditor{}),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	no := false
	_, err := svc.Update(s.ctx, s.userID, models.Update{Location: &no})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	settings, err := s.store.Find(s.ctx, s.userID)
	s.Require().NoError(err)
	s.True(settings.Location)
}
