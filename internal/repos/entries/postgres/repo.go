package entries

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardmesh/tokenledger/internal/models"
	entriesdom "github.com/cardmesh/tokenledger/internal/repos/entries"
)

var _ entriesdom.Entries = (*entriesRepo)(nil)

type entriesRepo struct{ db *sql.DB }

func New(db *sql.DB) *entriesRepo {
	return &entriesRepo{db: db}
}

const entryColumns = `id, seq, from_account, to_account, amount, entry_type,
	reference_id, reference_type, balance_after_from, balance_after_to, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (models.Entry, error) {
	var e models.Entry
	var from, to uuid.NullUUID
	var afterFrom, afterTo decimal.NullDecimal

	err := row.Scan(
		&e.ID, &e.Seq, &from, &to, &e.Amount, &e.Type,
		&e.ReferenceID, &e.ReferenceType, &afterFrom, &afterTo, &e.CreatedAt,
	)
	if err != nil {
		return models.Entry{}, err
	}

	if from.Valid {
		e.From = &from.UUID
	}
	if to.Valid {
		e.To = &to.UUID
	}
	if afterFrom.Valid {
		e.BalanceAfterFrom = &afterFrom.Decimal
	}
	if afterTo.Valid {
		e.BalanceAfterTo = &afterTo.Decimal
	}

	return e, nil
}
