package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	consentmodels "trustbank/internal/consent/models"
	"trustbank/internal/decision"
	"trustbank/internal/decision/metrics"
	"trustbank/internal/narration"
	profilemodels "trustbank/internal/profile/models"
	txmodels "trustbank/internal/transaction/models"
	id "trustbank/pkg/domain"
	dErrors "trustbank/pkg/domain-errors"
	audit "trustbank/pkg/platform/audit"
	"trustbank/pkg/platform/sentinel"
	txcontext "trustbank/pkg/platform/tx"
	"trustbank/pkg/requestcontext"
)

// DecisionStore persists decision records.
type DecisionStore interface {
	Save(ctx context.Context, d *decision.Decision) error
	FindByID(ctx context.Context, decisionID id.DecisionID) (*decision.Decision, error)
	Update(ctx context.Context, d *decision.Decision) error
	ListByUser(ctx context.Context, userID id.UserID) ([]*decision.Decision, error)
	ListAll(ctx context.Context, kinds ...decision.Kind) ([]*decision.Decision, error)
}

// TransactionStore persists screened transactions.
type TransactionStore interface {
	Save(ctx context.Context, tx *txmodels.Transaction) error
	ListByUser(ctx context.Context, userID id.UserID) ([]*txmodels.Transaction, error)
}

// ConsentService resolves a user's consent, creating defaults on first use.
type ConsentService interface {
	Get(ctx context.Context, userID id.UserID) (*consentmodels.Settings, error)
}

// ProfileService refreshes the customer profile from a loan application.
type ProfileService interface {
	UpsertFromApplication(ctx context.Context, userID id.UserID, data profilemodels.ApplicationData) (*profilemodels.Profile, error)
}

// TxRunner groups a store write with its compliance audit event.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuditPublisher records decision events. Compliance events are fail-closed.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// OverrideCommand is an administrator's request to replace a decision result.
type OverrideCommand struct {
	Result  string
	Reason  string
	Actor   string
	ActorID id.UserID
}

// Service evaluates loan applications and transactions, stores the
// resulting decisions and lets administrators override them.
type Service struct {
	decisions    DecisionStore
	transactions TransactionStore
	consent      ConsentService
	profiles     ProfileService
	engine       *decision.Engine
	tx           TxRunner
	auditor      AuditPublisher
	narrator     narration.Sink
	metrics      *metrics.Metrics
	logger       *slog.Logger
	tracer       trace.Tracer
}

type Option func(*Service)

func WithEngine(e *decision.Engine) Option {
	return func(s *Service) {
		s.engine = e
	}
}

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

func WithNarrator(n narration.Sink) Option {
	return func(s *Service) {
		s.narrator = n
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(decisions DecisionStore, transactions TransactionStore, consent ConsentService, profiles ProfileService, opts ...Option) *Service {
	s := &Service{
		decisions:    decisions,
		transactions: transactions,
		consent:      consent,
		profiles:     profiles,
		engine:       decision.NewEngine(),
		tx:           txcontext.NewSharded(),
		logger:       slog.Default(),
		tracer:       otel.Tracer("trustbank/decision"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplyForLoan refreshes the applicant's profile, evaluates the application
// against the applicant's current consent and stores the decision.
func (s *Service) ApplyForLoan(ctx context.Context, app decision.LoanApplication) (*decision.Decision, error) {
	ctx, span := s.tracer.Start(ctx, "decision.ApplyForLoan", trace.WithAttributes(
		attribute.String("user_id", app.UserID.String()),
	))
	defer span.End()
	start := time.Now()

	var (
		settings *consentmodels.Settings
		profile  *profilemodels.Profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		settings, err = s.consent.Get(gctx, app.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		profile, err = s.profiles.UpsertFromApplication(gctx, app.UserID, app.ProfileData())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.fail(span, "load applicant", err)
	}

	d := s.engine.EvaluateLoan(app, profile, settings.Snapshot())
	if err := s.record(ctx, d); err != nil {
		return nil, s.fail(span, "record loan decision", err)
	}

	span.SetAttributes(
		attribute.String("result", string(d.Result)),
		attribute.Float64("confidence", d.Confidence),
	)
	s.metrics.IncrementOutcome(string(d.Kind), string(d.Result), d.Confidence)
	s.metrics.ObserveEvaluateLatency(string(d.Kind), time.Since(start))
	s.logger.InfoContext(ctx, "loan application evaluated",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", app.UserID,
		"decision_id", d.ID,
		"result", d.Result,
		"confidence", d.Confidence,
	)
	s.narrate(ctx, d)
	return d, nil
}

// ScreenTransaction evaluates a transaction for fraud, marks it with the
// outcome and stores both.
func (s *Service) ScreenTransaction(ctx context.Context, t txmodels.Transaction) (*txmodels.Transaction, *decision.Decision, error) {
	ctx, span := s.tracer.Start(ctx, "decision.ScreenTransaction", trace.WithAttributes(
		attribute.String("user_id", t.UserID.String()),
	))
	defer span.End()
	start := time.Now()

	settings, err := s.consent.Get(ctx, t.UserID)
	if err != nil {
		return nil, nil, s.fail(span, "load consent", err)
	}

	if t.ID.IsNil() {
		t.ID = id.NewTransactionID()
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = requestcontext.Now(ctx)
	}

	d := s.engine.EvaluateFraud(t, settings.Snapshot())
	t.Flagged = d.Result != decision.ResultNormal
	t.RiskLevel = string(d.Result)

	err = s.tx.RunInTx(txcontext.WithShardKey(ctx, d.ID.String()), func(ctx context.Context) error {
		if err := s.emitDecisionMade(ctx, d); err != nil {
			return err
		}
		if err := s.transactions.Save(ctx, &t); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save transaction")
		}
		if err := s.decisions.Save(ctx, d); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save decision")
		}
		return nil
	})
	if err != nil {
		return nil, nil, s.fail(span, "record fraud decision", err)
	}

	s.emitOps(ctx, audit.Event{
		UserID:   t.UserID,
		Subject:  t.ID.String(),
		Action:   string(audit.EventTransactionScreened),
		Decision: t.RiskLevel,
	})
	span.SetAttributes(
		attribute.String("result", string(d.Result)),
		attribute.Float64("confidence", d.Confidence),
	)
	s.metrics.IncrementOutcome(string(d.Kind), string(d.Result), d.Confidence)
	s.metrics.ObserveEvaluateLatency(string(d.Kind), time.Since(start))
	s.logger.InfoContext(ctx, "transaction screened",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", t.UserID,
		"transaction_id", t.ID,
		"decision_id", d.ID,
		"result", d.Result,
		"flagged", t.Flagged,
	)
	s.narrate(ctx, d)
	return &t, d, nil
}

// Get returns one of the user's own decisions. Another user's decision is
// reported as not found.
func (s *Service) Get(ctx context.Context, userID id.UserID, decisionID id.DecisionID) (*decision.Decision, error) {
	d, err := s.GetAny(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, dErrors.New(dErrors.CodeNotFound, "decision not found")
	}
	return d, nil
}

// GetAny returns any decision, for administrators.
func (s *Service) GetAny(ctx context.Context, decisionID id.DecisionID) (*decision.Decision, error) {
	d, err := s.decisions.FindByID(ctx, decisionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "decision not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load decision")
	}
	return d, nil
}

func (s *Service) ListByUser(ctx context.Context, userID id.UserID) ([]*decision.Decision, error) {
	out, err := s.decisions.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list decisions")
	}
	return out, nil
}

// ListAll returns decisions of the given kinds across all users.
func (s *Service) ListAll(ctx context.Context, kinds ...decision.Kind) ([]*decision.Decision, error) {
	out, err := s.decisions.ListAll(ctx, kinds...)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list decisions")
	}
	return out, nil
}

func (s *Service) ListTransactions(ctx context.Context, userID id.UserID) ([]*txmodels.Transaction, error) {
	out, err := s.transactions.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list transactions")
	}
	return out, nil
}

// Stats summarizes every stored decision.
func (s *Service) Stats(ctx context.Context) (decision.Stats, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return decision.Stats{}, err
	}
	return decision.Summarize(all), nil
}

// Override replaces a decision's result. The update and its compliance event
// share one transaction; overrides of the same decision are serialized.
func (s *Service) Override(ctx context.Context, decisionID id.DecisionID, cmd OverrideCommand) (*decision.Decision, error) {
	ctx, span := s.tracer.Start(ctx, "decision.Override", trace.WithAttributes(
		attribute.String("decision_id", decisionID.String()),
	))
	defer span.End()

	actor := cmd.Actor
	if actor == "" && !cmd.ActorID.IsNil() {
		actor = cmd.ActorID.String()
	}
	now := requestcontext.Now(ctx)

	var updated *decision.Decision
	err := s.tx.RunInTx(txcontext.WithShardKey(ctx, decisionID.String()), func(ctx context.Context) error {
		d, err := s.GetAny(ctx, decisionID)
		if err != nil {
			return err
		}
		result, err := decision.ParseResult(d.Kind, cmd.Result)
		if err != nil {
			return err
		}
		previous := d.Clone()
		if err := d.ApplyOverride(result, cmd.Reason, actor, now); err != nil {
			return err
		}
		if err := s.decisions.Update(ctx, d); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save override")
		}
		if s.auditor != nil {
			if err := s.auditor.Emit(ctx, audit.Event{
				UserID:    d.UserID,
				Subject:   d.ID.String(),
				Action:    string(audit.EventDecisionOverridden),
				Decision:  string(d.Result),
				Reason:    d.OverrideReason,
				RequestID: requestcontext.RequestID(ctx),
				ActorID:   actor,
				Timestamp: now,
			}); err != nil {
				// Compensate for stores that cannot roll back.
				if restoreErr := s.decisions.Update(ctx, previous); restoreErr != nil {
					s.logger.WarnContext(ctx, "failed to restore decision after audit failure",
						"request_id", requestcontext.RequestID(ctx),
						"decision_id", d.ID,
						"error", restoreErr,
					)
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit override")
			}
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, s.fail(span, "override decision", err)
	}

	s.metrics.IncrementOverride(string(updated.Kind), string(updated.Result))
	s.logger.InfoContext(ctx, "decision overridden",
		"request_id", requestcontext.RequestID(ctx),
		"decision_id", updated.ID,
		"user_id", updated.UserID,
		"result", updated.Result,
		"overridden_by", updated.OverriddenBy,
	)
	return updated, nil
}

// record stores a new decision together with its decision_made event. The
// event goes first so a store without rollback never holds an unaudited
// decision.
func (s *Service) record(ctx context.Context, d *decision.Decision) error {
	return s.tx.RunInTx(txcontext.WithShardKey(ctx, d.ID.String()), func(ctx context.Context) error {
		if err := s.emitDecisionMade(ctx, d); err != nil {
			return err
		}
		if err := s.decisions.Save(ctx, d); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save decision")
		}
		return nil
	})
}

func (s *Service) emitDecisionMade(ctx context.Context, d *decision.Decision) error {
	if s.auditor == nil {
		return nil
	}
	err := s.auditor.Emit(ctx, audit.Event{
		UserID:    d.UserID,
		Subject:   d.ID.String(),
		Action:    string(audit.EventDecisionMade),
		Decision:  string(d.Result),
		Reason:    string(d.Kind),
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: d.Timestamp,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit decision")
	}
	return nil
}

// emitOps records an operations event. Failures are logged only.
func (s *Service) emitOps(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"user_id", event.UserID,
			"error", err,
		)
	}
}

func (s *Service) narrate(ctx context.Context, d *decision.Decision) {
	if s.narrator == nil {
		return
	}
	err := s.narrator.Narrate(ctx, narration.Narration{
		DecisionID: d.ID,
		UserID:     d.UserID,
		Kind:       string(d.Kind),
		Text:       d.Explanation,
	})
	if err != nil {
		s.metrics.IncrementNarrationFailure()
		s.logger.WarnContext(ctx, "failed to narrate decision",
			"decision_id", d.ID,
			"error", err,
		)
	}
}

func (s *Service) fail(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+op)
}
