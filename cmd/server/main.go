package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	audithandler "trustbank/internal/audit/handler"
	consenthandler "trustbank/internal/consent/handler"
	consentservice "trustbank/internal/consent/service"
	consentstore "trustbank/internal/consent/store"
	decisionhandler "trustbank/internal/decision/handler"
	decisionmetrics "trustbank/internal/decision/metrics"
	decisionservice "trustbank/internal/decision/service"
	decisionstore "trustbank/internal/decision/store"
	jwttoken "trustbank/internal/jwt_token"
	"trustbank/internal/narration"
	"trustbank/internal/platform/config"
	"trustbank/internal/platform/httpserver"
	"trustbank/internal/platform/kafka"
	"trustbank/internal/platform/logger"
	"trustbank/internal/platform/metrics"
	"trustbank/internal/platform/postgres"
	"trustbank/internal/platform/redis"
	profilehandler "trustbank/internal/profile/handler"
	profileservice "trustbank/internal/profile/service"
	profilestore "trustbank/internal/profile/store"
	ratelimitmetrics "trustbank/internal/ratelimit/metrics"
	ratelimit "trustbank/internal/ratelimit/middleware"
	"trustbank/internal/ratelimit/store/bucket"
	txstore "trustbank/internal/transaction/store"
	httptransport "trustbank/internal/transport/http"
	audit "trustbank/pkg/platform/audit"
	"trustbank/pkg/platform/audit/publishers/compliance"
	auditmemory "trustbank/pkg/platform/audit/store/memory"
	auditpostgres "trustbank/pkg/platform/audit/store/postgres"
	txcontext "trustbank/pkg/platform/tx"
)

// stores groups the persistence choices made at startup.
type stores struct {
	consent      consentservice.Store
	profiles     profileservice.Store
	decisions    decisionservice.DecisionStore
	transactions decisionservice.TransactionStore
	audit        audit.Store
	tx           decisionservice.TxRunner
}

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	checks := map[string]httptransport.HealthCheck{}

	st, db, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		checks["postgres"] = db.PingContext
	}

	var buckets ratelimit.BucketStore = bucket.NewInMemoryBucketStore()
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		checks["redis"] = redisClient.Health
		st.consent = consentstore.NewRedisCache(redisClient.Client, st.consent, cfg.Redis.ConsentTTL)
		buckets = bucket.NewRedisBucketStore(redisClient.Client)
		log.Info("consent cache and shared rate limits enabled", "ttl", cfg.Redis.ConsentTTL)
	}

	narrator, closeNarrator, err := openNarrator(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeNarrator()

	auditor := compliance.New(st.audit,
		compliance.WithLogger(log),
		compliance.WithMetrics(compliance.NewMetrics(m.Registerer())),
	)

	consentSvc := consentservice.New(st.consent,
		consentservice.WithTx(st.tx),
		consentservice.WithAuditor(auditor),
		consentservice.WithLogger(log),
	)
	profileSvc := profileservice.New(st.profiles, auditor, log)
	decisionSvc := decisionservice.New(st.decisions, st.transactions, consentSvc, profileSvc,
		decisionservice.WithTx(st.tx),
		decisionservice.WithAuditor(auditor),
		decisionservice.WithNarrator(narrator),
		decisionservice.WithMetrics(decisionmetrics.New(m.Registerer())),
		decisionservice.WithLogger(log),
	)

	limiter := ratelimit.New(buckets, log,
		ratelimit.WithDisabled(cfg.RateLimit.Limit <= 0),
		ratelimit.WithMetrics(ratelimitmetrics.New(m.Registerer())),
	)

	jwt := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer)
	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Metrics:        m,
		Validator:      jwttoken.NewMiddlewareValidator(jwt),
		RequestTimeout: cfg.RequestTimeout,
		Checks:         checks,
		RateLimit:      limiter,
		Quota:          ratelimit.Quota{Limit: cfg.RateLimit.Limit, Window: cfg.RateLimit.Window},
		Consent:        consenthandler.New(consentSvc, log),
		Profile:        profilehandler.New(profileSvc, log),
		Decisions:      decisionhandler.New(decisionSvc, log),
		Audit:          audithandler.New(st.audit, log),
	})

	srv := httpserver.New(cfg.Addr, router, cfg.RequestTimeout)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting trustbank", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStores selects Postgres when DATABASE_URL is set and in-memory stores
// otherwise. The returned *sql.DB is nil in memory mode.
func openStores(ctx context.Context, cfg config.Server, log *slog.Logger) (*stores, *sql.DB, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		return &stores{
			consent:      consentstore.NewInMemoryStore(),
			profiles:     profilestore.NewInMemoryStore(),
			decisions:    decisionstore.NewInMemoryStore(),
			transactions: txstore.NewInMemoryStore(),
			audit:        auditmemory.NewInMemoryStore(),
			tx:           txcontext.NewSharded(),
		}, nil, nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	log.Info("using postgres stores")
	return &stores{
		consent:      consentstore.NewPostgres(db),
		profiles:     profilestore.NewPostgres(db),
		decisions:    decisionstore.NewPostgres(db),
		transactions: txstore.NewPostgres(db),
		audit:        auditpostgres.New(db),
		tx:           postgres.NewTx(db),
	}, db, nil
}

// openNarrator produces to Kafka when brokers are configured and logs
// narrations otherwise.
func openNarrator(ctx context.Context, cfg config.Server, log *slog.Logger) (narration.Sink, func(), error) {
	client, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return narration.NewLogSink(log), func() {}, nil
	}
	if err := client.EnsureTopic(ctx, 3, 1); err != nil {
		log.Warn("could not ensure narration topic", "topic", client.Topic(), "error", err)
	}
	closeFn := func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Close(flushCtx); err != nil {
			log.Warn("narration flush incomplete", "error", err)
		}
	}
	return narration.NewKafkaSink(client, client.Topic(), log), closeFn, nil
}
