package accounts

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardmesh/tokenledger/internal/models"
)

// Accounts is the account store. ApplyDelta is the only mutation entry point
// and is called exclusively by the ledger service inside a transaction, after
// the row has been locked via LockAndGet.
type Accounts interface {
	Create(tx *sql.Tx, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (models.Account, error)
	GetTx(tx *sql.Tx, id uuid.UUID) (models.Account, error)
	LockAndGet(tx *sql.Tx, id uuid.UUID) (models.Account, error)
	ApplyDelta(tx *sql.Tx, id uuid.UUID, delta decimal.Decimal, expectedVersion int64) (models.Account, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}
