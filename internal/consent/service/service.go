package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trustbank/internal/consent/models"
	id "trustbank/pkg/domain"
	dErrors "trustbank/pkg/domain-errors"
	audit "trustbank/pkg/platform/audit"
	"trustbank/pkg/platform/sentinel"
	txcontext "trustbank/pkg/platform/tx"
	"trustbank/pkg/requestcontext"
)

// Store persists consent settings keyed by user. Create must not overwrite an
// existing record; it returns whatever is stored after the call.
type Store interface {
	Find(ctx context.Context, userID id.UserID) (*models.Settings, error)
	Create(ctx context.Context, settings *models.Settings) (*models.Settings, error)
	Save(ctx context.Context, settings *models.Settings) error
}

// TxRunner is the transactional boundary for get-or-create and toggles.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuditPublisher records consent changes. Emit failures fail the update.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns the consent lifecycle: lazy all-true creation on first access
// and explicit toggles afterwards. Settings are never deleted.
type Service struct {
	store   Store
	tx      TxRunner
	auditor AuditPublisher
	logger  *slog.Logger
	tracer  trace.Tracer
}

type Option func(*Service)

func WithTx(tx TxRunner) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func WithAuditor(a AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tx:     txcontext.NewSharded(),
		logger: slog.Default(),
		tracer: otel.Tracer("trustbank/consent"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the user's settings, creating the all-true defaults on first
// access. Concurrent first reads create exactly one record.
func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.Settings, error) {
	ctx, span := s.tracer.Start(ctx, "consent.Get", trace.WithAttributes(
		attribute.String("user_id", userID.String()),
	))
	defer span.End()

	var settings *models.Settings
	err := s.tx.RunInTx(txcontext.WithShardKey(ctx, userID.String()), func(ctx context.Context) error {
		var err error
		settings, err = s.getOrCreate(ctx, userID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get consent")
		return nil, err
	}
	return settings, nil
}

// Update applies a partial toggle and records a compliance event when any
// flag changed.
func (s *Service) Update(ctx context.Context, userID id.UserID, update models.Update) (*models.Settings, error) {
	ctx, span := s.tracer.Start(ctx, "consent.Update", trace.WithAttributes(
		attribute.String("user_id", userID.String()),
	))
	defer span.End()

	now := requestcontext.Now(ctx)
	var settings *models.Settings
	err := s.tx.RunInTx(txcontext.WithShardKey(ctx, userID.String()), func(ctx context.Context) error {
		current, err := s.getOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		previous := *current
		changed := current.Apply(update, now)
		if len(changed) == 0 {
			settings = current
			return nil
		}
		if err := s.store.Save(ctx, current); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save consent")
		}
		if err := s.emit(ctx, userID, changed, current); err != nil {
			// Compensate for stores that cannot roll back.
			if restoreErr := s.store.Save(ctx, &previous); restoreErr != nil {
				s.logger.WarnContext(ctx, "failed to restore consent after audit failure",
					"user_id", userID,
					"error", restoreErr,
				)
			}
			return err
		}
		settings = current
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update consent")
		return nil, err
	}

	s.logger.InfoContext(ctx, "consent updated",
		"user_id", userID,
		"withheld", settings.Snapshot().Withheld(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return settings, nil
}

func (s *Service) getOrCreate(ctx context.Context, userID id.UserID) (*models.Settings, error) {
	settings, err := s.store.Find(ctx, userID)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load consent")
	}

	defaults := models.DefaultSettings(userID, requestcontext.Now(ctx))
	settings, err = s.store.Create(ctx, defaults)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create default consent")
	}
	if settings.Snapshot() != defaults.Snapshot() || !settings.UpdatedAt.Equal(defaults.UpdatedAt) {
		// Another writer got there first; keep its record.
		return settings, nil
	}
	s.logger.InfoContext(ctx, "consent defaults created",
		"user_id", userID,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.auditor != nil {
		if err := s.auditor.Emit(ctx, audit.Event{
			UserID:    userID,
			Subject:   userID.String(),
			Action:    string(audit.EventConsentDefaulted),
			Decision:  "granted",
			RequestID: requestcontext.RequestID(ctx),
		}); err != nil {
			// Operations event, not fail-closed.
			s.logger.WarnContext(ctx, "failed to audit consent defaults",
				"user_id", userID,
				"error", err,
			)
		}
	}
	return settings, nil
}

func (s *Service) emit(ctx context.Context, userID id.UserID, changed []models.Category, settings *models.Settings) error {
	if s.auditor == nil {
		return nil
	}
	names := make([]string, len(changed))
	for i, c := range changed {
		names[i] = string(c)
	}
	err := s.auditor.Emit(ctx, audit.Event{
		UserID:    userID,
		Subject:   userID.String(),
		Action:    string(audit.EventConsentUpdated),
		Decision:  describe(settings.Snapshot()),
		Reason:    "changed: " + strings.Join(names, ","),
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: settings.UpdatedAt,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit consent update")
	}
	return nil
}

func describe(s models.Snapshot) string {
	return fmt.Sprintf("income=%t,location=%t,transactionHistory=%t,deviceInfo=%t,behavioralData=%t",
		s.Income, s.Location, s.TransactionHistory, s.DeviceInfo, s.BehavioralData)
}
