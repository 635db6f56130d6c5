package accounts

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardmesh/tokenledger/internal/models"
)

// ApplyDelta mutates the balance in a single guarded UPDATE: the version
// check, the non-negative check and the write are one statement, so two
// concurrent debits can never both pass a stale balance check. A positive
// delta accrues to total_earned, a negative one to total_spent, keeping
// balance == total_earned - total_spent.
func (r *accountsRepo) ApplyDelta(tx *sql.Tx, id uuid.UUID, delta decimal.Decimal, expectedVersion int64) (models.Account, error) {
	var acc models.Account

	err := tx.QueryRow(`
		UPDATE accounts
		SET balance      = balance + $2,
		    total_earned = total_earned + GREATEST($2::numeric, 0),
		    total_spent  = total_spent  + GREATEST(-$2::numeric, 0),
		    version      = version + 1,
		    updated_at   = now()
		WHERE id = $1
		  AND version = $3
		  AND balance + $2 >= 0
		RETURNING `+accountColumns+`
	`, id, delta, expectedVersion).Scan(
		&acc.ID, &acc.Balance, &acc.TotalEarned, &acc.TotalSpent,
		&acc.Version, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err == nil {
		return acc, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, fmt.Errorf("apply delta: %w", err)
	}

	// The guarded UPDATE matched nothing; find out which guard failed.
	var version int64
	var balance decimal.Decimal

	err = tx.QueryRow(`
		SELECT version, balance FROM accounts WHERE id = $1
	`, id).Scan(&version, &balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, models.ErrAccountNotFound
		}

		return models.Account{}, fmt.Errorf("apply delta recheck: %w", err)
	}

	if version != expectedVersion {
		return models.Account{}, models.ErrConcurrencyConflict
	}

	return models.Account{}, models.ErrInsufficientBalance
}
