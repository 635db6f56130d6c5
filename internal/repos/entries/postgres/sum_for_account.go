package entries

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SumForAccountTx totals the account's credits and debits over the whole
// ledger, inside the caller's transaction: reconciliation pairs it with the
// stored-balance read so both see one snapshot. No row locks are taken, so
// it never blocks a running transfer.
func (r *entriesRepo) SumForAccountTx(tx *sql.Tx, accountID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	var credits, debits decimal.Decimal

	err := tx.QueryRow(`
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE to_account   = $1), 0),
			COALESCE(SUM(amount) FILTER (WHERE from_account = $1), 0)
		FROM ledger_entries
		WHERE to_account = $1 OR from_account = $1
	`, accountID).Scan(&credits, &debits)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("sum entries: %w", err)
	}

	return credits, debits, nil
}
