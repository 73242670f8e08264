package service

import (
	"context"
	"errors"
	"log/slog"

	"trustbank/internal/profile/models"
	id "trustbank/pkg/domain"
	dErrors "trustbank/pkg/domain-errors"
	audit "trustbank/pkg/platform/audit"
	"trustbank/pkg/platform/sentinel"
	"trustbank/pkg/requestcontext"
)

type Store interface {
	Find(ctx context.Context, userID id.UserID) (*models.Profile, error)
	Upsert(ctx context.Context, p *models.Profile) (*models.Profile, error)
}

// AuditPublisher records profile refreshes. Failures are logged only.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store   Store
	auditor AuditPublisher
	logger  *slog.Logger
}

func New(store Store, auditor AuditPublisher, logger *slog.Logger) *Service {
	return &Service{store: store, auditor: auditor, logger: logger}
}

// Get returns the caller's profile, or not_found before their first application.
func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.Profile, error) {
	p, err := s.store.Find(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return p, nil
}

// UpsertFromApplication refreshes the profile with the values of a new loan
// application, creating it with defaults when absent.
func (s *Service) UpsertFromApplication(ctx context.Context, userID id.UserID, data models.ApplicationData) (*models.Profile, error) {
	p, err := s.store.Upsert(ctx, models.NewFromApplication(userID, data, requestcontext.Now(ctx)))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to upsert profile")
	}

	if s.auditor != nil {
		if err := s.auditor.Emit(ctx, audit.Event{
			UserID:    userID,
			Subject:   userID.String(),
			Action:    string(audit.EventProfileUpserted),
			RequestID: requestcontext.RequestID(ctx),
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to audit profile upsert",
				"user_id", userID,
				"error", err,
			)
		}
	}
	return p, nil
}
