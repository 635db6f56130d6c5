package accounts

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

func (r *accountsRepo) Create(tx *sql.Tx, id uuid.UUID) error {
	_, err := tx.Exec(`
		INSERT INTO accounts (id)
		VALUES ($1)
		ON CONFLICT (id) DO NOTHING
	`, id)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	return nil
}
