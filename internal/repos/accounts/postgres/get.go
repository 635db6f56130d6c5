package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cardmesh/tokenledger/internal/models"
)

func (r *accountsRepo) Get(ctx context.Context, id uuid.UUID) (models.Account, error) {
	var acc models.Account

	err := r.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id).Scan(
		&acc.ID, &acc.Balance, &acc.TotalEarned, &acc.TotalSpent,
		&acc.Version, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, models.ErrAccountNotFound
		}

		return models.Account{}, fmt.Errorf("get account: %w", err)
	}

	return acc, nil
}

// GetTx reads the account inside the caller's transaction, without locking
// the row. Used by reconciliation, where both reads must share one snapshot.
func (r *accountsRepo) GetTx(tx *sql.Tx, id uuid.UUID) (models.Account, error) {
	var acc models.Account

	err := tx.QueryRow(`
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id).Scan(
		&acc.ID, &acc.Balance, &acc.TotalEarned, &acc.TotalSpent,
		&acc.Version, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, models.ErrAccountNotFound
		}

		return models.Account{}, fmt.Errorf("get account: %w", err)
	}

	return acc, nil
}
