package entries

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cardmesh/tokenledger/internal/models"
)

// Insert appends one ledger row. Only shape is validated here; sufficient
// funds and reward rules are checked by the ledger service before any row is
// written, because an appended row can never be retracted.
func (r *entriesRepo) Insert(tx *sql.Tx, draft models.EntryDraft) (models.Entry, error) {
	err := validateShape(draft)
	if err != nil {
		return models.Entry{}, err
	}

	row := tx.QueryRow(`
		INSERT INTO ledger_entries (
			id, from_account, to_account, amount, entry_type,
			reference_id, reference_type, balance_after_from, balance_after_to
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+entryColumns+`
	`,
		uuid.New(), draft.From, draft.To, draft.Amount, draft.Type,
		draft.ReferenceID, draft.ReferenceType, draft.BalanceAfterFrom, draft.BalanceAfterTo,
	)

	entry, err := scanEntry(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return models.Entry{}, models.ErrDuplicateReference
		}

		return models.Entry{}, fmt.Errorf("insert entry: %w", err)
	}

	return entry, nil
}

func validateShape(draft models.EntryDraft) error {
	if !draft.Amount.IsPositive() || draft.Amount.Exponent() < -models.AmountScale {
		return models.ErrInvalidAmount
	}

	if draft.From == nil && draft.To == nil {
		return models.ErrNoAccounts
	}

	switch draft.Type {
	case models.EntryMint:
		if draft.From != nil {
			return fmt.Errorf("mint entry with from side: %w", models.ErrMalformedEntry)
		}
	case models.EntryBurn:
		if draft.To != nil {
			return fmt.Errorf("burn entry with to side: %w", models.ErrMalformedEntry)
		}
	case models.EntryTransfer:
		if draft.From == nil || draft.To == nil {
			return fmt.Errorf("transfer entry missing a side: %w", models.ErrMalformedEntry)
		}
	default:
		return fmt.Errorf("unknown entry type %q: %w", draft.Type, models.ErrMalformedEntry)
	}

	return nil
}
