// Package postgres opens the shared database handle, applies the schema and
// provides the transaction boundary used by services in Postgres mode.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	dErrors "trustbank/pkg/domain-errors"
	txcontext "trustbank/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

const advisoryLockQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`

// Open connects with lib/pq and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Schema creates every table the stores use. Statements are idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS consent_settings (
		user_id UUID PRIMARY KEY,
		income BOOLEAN NOT NULL,
		location BOOLEAN NOT NULL,
		transaction_history BOOLEAN NOT NULL,
		device_info BOOLEAN NOT NULL,
		behavioral_data BOOLEAN NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS customer_profiles (
		user_id UUID PRIMARY KEY,
		income DOUBLE PRECISION NOT NULL,
		credit_score INTEGER NOT NULL,
		age INTEGER NOT NULL,
		existing_loans INTEGER NOT NULL,
		employment_type TEXT NOT NULL,
		risk_score INTEGER NOT NULL,
		segment TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		merchant TEXT NOT NULL,
		category TEXT NOT NULL,
		location TEXT NOT NULL,
		device_changed BOOLEAN NOT NULL,
		type TEXT NOT NULL,
		flagged BOOLEAN NOT NULL,
		risk_level TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_user_created_idx ON transactions (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS decisions (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		kind TEXT NOT NULL,
		result TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		factors JSONB NOT NULL,
		explanation TEXT NOT NULL,
		consent_snapshot JSONB NOT NULL,
		overridden BOOLEAN NOT NULL DEFAULT FALSE,
		override_reason TEXT NOT NULL DEFAULT '',
		overridden_by TEXT NOT NULL DEFAULT '',
		override_timestamp TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS decisions_user_created_idx ON decisions (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS audit_events (
		id UUID PRIMARY KEY,
		category TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		user_id UUID,
		subject TEXT NOT NULL,
		action TEXT NOT NULL,
		decision TEXT NOT NULL,
		reason TEXT NOT NULL,
		request_id TEXT NOT NULL,
		actor_id TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS audit_events_user_idx ON audit_events (user_id, timestamp)`,
}

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Tx runs functions inside a SQL transaction carried on the context, so any
// store built on the same *sql.DB joins it. A shard key on the context takes a
// transaction-scoped advisory lock, serializing writers of one user or decision.
type Tx struct {
	db      *sql.DB
	timeout time.Duration
}

func NewTx(db *sql.DB) *Tx {
	return &Tx{db: db}
}

func (t *Tx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Transactions for the same entity run one at a time, matching the
	// in-memory sharded runner. The lock is released at commit or rollback.
	if key, ok := txcontext.ShardKey(ctx); ok {
		if _, err := tx.ExecContext(ctx, advisoryLockQuery, key); err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}
	}

	ctx, runHooks := txcontext.WithCommitHooks(txcontext.WithTx(ctx, tx))
	if err := fn(ctx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	runHooks(context.WithoutCancel(ctx))
	return nil
}
