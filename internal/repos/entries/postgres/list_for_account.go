package entries

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cardmesh/tokenledger/internal/models"
)

// ListForAccount pages an account's history in seq order. sinceSeq is an
// exclusive cursor (pass the last Seq seen, or 0 for the start), which makes
// the scan restartable for reconciliation and history endpoints.
func (r *entriesRepo) ListForAccount(ctx context.Context, accountID uuid.UUID, sinceSeq int64, limit int) ([]models.Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE (from_account = $1 OR to_account = $1)
		  AND seq > $2
		ORDER BY seq
		LIMIT $3
	`, accountID, sinceSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []models.Entry

	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		out = append(out, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return out, nil
}
