package accounts

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cardmesh/tokenledger/internal/models"
)

// LockAndGet takes a row lock on the account and returns its current state.
// Callers that lock more than one account must call this in ascending ID
// order; the ledger service's lockAccounts helper is the only place that
// locks multiple rows.
func (r *accountsRepo) LockAndGet(tx *sql.Tx, id uuid.UUID) (models.Account, error) {
	var acc models.Account

	err := tx.QueryRow(`
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(
		&acc.ID, &acc.Balance, &acc.TotalEarned, &acc.TotalSpent,
		&acc.Version, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, models.ErrAccountNotFound
		}

		return models.Account{}, fmt.Errorf("lock/get account: %w", err)
	}

	return acc, nil
}
