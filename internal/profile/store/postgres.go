package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"trustbank/internal/profile/models"
	id "trustbank/pkg/domain"
	"trustbank/pkg/platform/sentinel"
	txcontext "trustbank/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const profileColumns = `user_id, income, credit_score, age, existing_loans, employment_type, risk_score, segment, updated_at`

func scanProfile(row interface{ Scan(dest ...any) error }) (*models.Profile, error) {
	var (
		p          models.Profile
		uid        uuid.UUID
		employment string
	)
	if err := row.Scan(&uid, &p.Income, &p.CreditScore, &p.Age, &p.ExistingLoans,
		&employment, &p.RiskScore, &p.Segment, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.UserID = id.UserID(uid)
	p.EmploymentType = models.EmploymentType(employment)
	return &p, nil
}

func (s *PostgresStore) Find(ctx context.Context, userID id.UserID) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM customer_profiles WHERE user_id = $1`
	p, err := scanProfile(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return p, nil
}

// Upsert inserts p, or refreshes only the application fields of an existing
// row, in one statement.
func (s *PostgresStore) Upsert(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	query := `
		INSERT INTO customer_profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			income = EXCLUDED.income,
			credit_score = EXCLUDED.credit_score,
			existing_loans = EXCLUDED.existing_loans,
			employment_type = EXCLUDED.employment_type,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + profileColumns
	stored, err := scanProfile(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query,
		uuid.UUID(p.UserID),
		p.Income,
		p.CreditScore,
		p.Age,
		p.ExistingLoans,
		string(p.EmploymentType),
		p.RiskScore,
		p.Segment,
		p.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return stored, nil
}
