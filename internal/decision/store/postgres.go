package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	consentmodels "trustbank/internal/consent/models"
	"trustbank/internal/decision"
	id "trustbank/pkg/domain"
	"trustbank/pkg/platform/sentinel"
	txcontext "trustbank/pkg/platform/tx"
)

// PostgresStore persists decisions with factors and the consent snapshot as
// JSONB columns.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const decisionColumns = `id, user_id, kind, result, confidence, factors, explanation, consent_snapshot,
	overridden, override_reason, overridden_by, override_timestamp, created_at`

func (s *PostgresStore) Save(ctx context.Context, d *decision.Decision) error {
	factors, err := json.Marshal(d.Factors)
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}
	snapshot, err := json.Marshal(d.ConsentSnapshot)
	if err != nil {
		return fmt.Errorf("marshal consent snapshot: %w", err)
	}
	query := `
		INSERT INTO decisions (` + decisionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(d.ID),
		uuid.UUID(d.UserID),
		string(d.Kind),
		string(d.Result),
		d.Confidence,
		factors,
		d.Explanation,
		snapshot,
		d.Overridden,
		d.OverrideReason,
		d.OverriddenBy,
		nullTime(d),
		d.Timestamp,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, decisionID id.DecisionID) (*decision.Decision, error) {
	query := `SELECT ` + decisionColumns + ` FROM decisions WHERE id = $1`
	d, err := scanDecision(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(decisionID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find decision: %w", err)
	}
	return d, nil
}

// Update writes the override fields. Everything else is immutable.
func (s *PostgresStore) Update(ctx context.Context, d *decision.Decision) error {
	query := `
		UPDATE decisions
		SET result = $2, overridden = $3, override_reason = $4, overridden_by = $5, override_timestamp = $6
		WHERE id = $1
	`
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(d.ID),
		string(d.Result),
		d.Overridden,
		d.OverrideReason,
		d.OverriddenBy,
		nullTime(d),
	)
	if err != nil {
		return fmt.Errorf("update decision: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update decision: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*decision.Decision, error) {
	query := `SELECT ` + decisionColumns + ` FROM decisions WHERE user_id = $1 ORDER BY created_at DESC`
	return s.query(ctx, query, uuid.UUID(userID))
}

// ListAll returns decisions of the given kinds, newest first. No kinds means
// all kinds.
func (s *PostgresStore) ListAll(ctx context.Context, kinds ...decision.Kind) ([]*decision.Decision, error) {
	if len(kinds) == 0 {
		return s.query(ctx, `SELECT `+decisionColumns+` FROM decisions ORDER BY created_at DESC`)
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	query := `SELECT ` + decisionColumns + ` FROM decisions WHERE kind = ANY($1) ORDER BY created_at DESC`
	return s.query(ctx, query, pq.Array(names))
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*decision.Decision, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []*decision.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return out, nil
}

func scanDecision(row interface{ Scan(dest ...any) error }) (*decision.Decision, error) {
	var (
		d                decision.Decision
		decisionID, uid  uuid.UUID
		kind, result     string
		factors, consent []byte
		overriddenAt     sql.NullTime
	)
	if err := row.Scan(&decisionID, &uid, &kind, &result, &d.Confidence, &factors, &d.Explanation, &consent,
		&d.Overridden, &d.OverrideReason, &d.OverriddenBy, &overriddenAt, &d.Timestamp); err != nil {
		return nil, err
	}
	d.ID = id.DecisionID(decisionID)
	d.UserID = id.UserID(uid)
	d.Kind = decision.Kind(kind)
	d.Result = decision.Result(result)
	if err := json.Unmarshal(factors, &d.Factors); err != nil {
		return nil, fmt.Errorf("decode factors: %w", err)
	}
	// Flags absent from a stored snapshot decode as false.
	var snapshot consentmodels.Snapshot
	if err := json.Unmarshal(consent, &snapshot); err != nil {
		return nil, fmt.Errorf("decode consent snapshot: %w", err)
	}
	d.ConsentSnapshot = snapshot
	if overriddenAt.Valid {
		d.OverrideTimestamp = overriddenAt.Time
	}
	return &d, nil
}

func nullTime(d *decision.Decision) sql.NullTime {
	if d.OverrideTimestamp.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: d.OverrideTimestamp, Valid: true}
}
