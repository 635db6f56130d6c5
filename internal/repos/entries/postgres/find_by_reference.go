package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cardmesh/tokenledger/internal/models"
)

func (r *entriesRepo) FindByReference(ctx context.Context, refID uuid.UUID, refType models.ReferenceType) (models.Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE reference_id = $1 AND reference_type = $2
	`, refID, refType)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Entry{}, models.ErrEntryNotFound
		}

		return models.Entry{}, fmt.Errorf("find entry by reference: %w", err)
	}

	return entry, nil
}
