package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"trustbank/internal/consent/models"
	id "trustbank/pkg/domain"
	"trustbank/pkg/platform/sentinel"
	txcontext "trustbank/pkg/platform/tx"
)

// PostgresStore persists consent settings in consent_settings.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Find(ctx context.Context, userID id.UserID) (*models.Settings, error) {
	query := `
		SELECT income, location, transaction_history, device_info, behavioral_data, updated_at
		FROM consent_settings
		WHERE user_id = $1
	`
	settings := &models.Settings{UserID: userID}
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(userID)).Scan(
		&settings.Income,
		&settings.Location,
		&settings.TransactionHistory,
		&settings.DeviceInfo,
		&settings.BehavioralData,
		&settings.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find consent: %w", err)
	}
	return settings, nil
}

// Create inserts settings unless the user already has a row, then returns
// whatever is stored. An existing row is never overwritten.
func (s *PostgresStore) Create(ctx context.Context, settings *models.Settings) (*models.Settings, error) {
	query := `
		INSERT INTO consent_settings (user_id, income, location, transaction_history, device_info, behavioral_data, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(settings.UserID),
		settings.Income,
		settings.Location,
		settings.TransactionHistory,
		settings.DeviceInfo,
		settings.BehavioralData,
		settings.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create consent: %w", err)
	}
	return s.Find(ctx, settings.UserID)
}

func (s *PostgresStore) Save(ctx context.Context, settings *models.Settings) error {
	query := `
		INSERT INTO consent_settings (user_id, income, location, transaction_history, device_info, behavioral_data, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			income = EXCLUDED.income,
			location = EXCLUDED.location,
			transaction_history = EXCLUDED.transaction_history,
			device_info = EXCLUDED.device_info,
			behavioral_data = EXCLUDED.behavioral_data,
			updated_at = EXCLUDED.updated_at
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(settings.UserID),
		settings.Income,
		settings.Location,
		settings.TransactionHistory,
		settings.DeviceInfo,
		settings.BehavioralData,
		settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save consent: %w", err)
	}
	return nil
}
