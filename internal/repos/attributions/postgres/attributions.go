package attributions

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cardmesh/tokenledger/internal/models"
	attributionsdom "github.com/cardmesh/tokenledger/internal/repos/attributions"
)

var _ attributionsdom.Attributions = (*attributionsRepo)(nil)

type attributionsRepo struct{ db *sql.DB }

func New(db *sql.DB) *attributionsRepo {
	return &attributionsRepo{db: db}
}

func (r *attributionsRepo) LockAndGet(tx *sql.Tx, id uuid.UUID) (models.Attribution, error) {
	var attr models.Attribution

	err := tx.QueryRow(`
		SELECT id, source_card_id, target_card_id, attribution_type, paid
		FROM attributions
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&attr.ID, &attr.SourceCardID, &attr.TargetCardID, &attr.Type, &attr.Paid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Attribution{}, models.ErrAttributionNotFound
		}

		return models.Attribution{}, fmt.Errorf("lock/get attribution: %w", err)
	}

	return attr, nil
}

// MarkPaid flips paid exactly once. The paid = false guard makes a second
// flip report ErrAlreadyPaid instead of silently succeeding.
func (r *attributionsRepo) MarkPaid(tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.Exec(`
		UPDATE attributions
		SET paid = true
		WHERE id = $1
		  AND paid = false
	`, id)
	if err != nil {
		return fmt.Errorf("mark attribution paid: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return models.ErrAlreadyPaid
	}

	return nil
}
