package cards

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cardmesh/tokenledger/internal/models"
	cardsdom "github.com/cardmesh/tokenledger/internal/repos/cards"
)

var _ cardsdom.Cards = (*cardsRepo)(nil)

type cardsRepo struct{ db *sql.DB }

func New(db *sql.DB) *cardsRepo {
	return &cardsRepo{db: db}
}

func (r *cardsRepo) OwnerOf(tx *sql.Tx, cardID uuid.UUID) (uuid.UUID, error) {
	var owner uuid.UUID

	err := tx.QueryRow(`
		SELECT owner_account_id
		FROM cards
		WHERE id = $1
	`, cardID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, models.ErrCardNotFound
		}

		return uuid.Nil, fmt.Errorf("card owner: %w", err)
	}

	return owner, nil
}
