package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"trustbank/internal/transaction/models"
	id "trustbank/pkg/domain"
	txcontext "trustbank/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, amount, merchant, category, location, device_changed, type, flagged, risk_level, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(tx.ID),
		uuid.UUID(tx.UserID),
		tx.Amount,
		tx.Merchant,
		tx.Category,
		tx.Location,
		tx.DeviceChanged,
		string(tx.Type),
		tx.Flagged,
		tx.RiskLevel,
		tx.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Transaction, error) {
	query := `
		SELECT id, user_id, amount, merchant, category, location, device_changed, type, flagged, risk_level, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		var (
			tx        models.Transaction
			txID, uid uuid.UUID
			txType    string
		)
		if err := rows.Scan(&txID, &uid, &tx.Amount, &tx.Merchant, &tx.Category, &tx.Location,
			&tx.DeviceChanged, &txType, &tx.Flagged, &tx.RiskLevel, &tx.Timestamp); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.ID = id.TransactionID(txID)
		tx.UserID = id.UserID(uid)
		tx.Type = models.Type(txType)
		out = append(out, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}
