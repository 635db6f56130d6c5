package entries

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardmesh/tokenledger/internal/models"
)

// Entries is the append-only ledger. There is deliberately no update or
// delete operation: once a row is written it can only ever be read back.
type Entries interface {
	Insert(tx *sql.Tx, draft models.EntryDraft) (models.Entry, error)
	FindByReference(ctx context.Context, refID uuid.UUID, refType models.ReferenceType) (models.Entry, error)
	ListForAccount(ctx context.Context, accountID uuid.UUID, sinceSeq int64, limit int) ([]models.Entry, error)
	SumForAccountTx(tx *sql.Tx, accountID uuid.UUID) (credits, debits decimal.Decimal, err error)
}
