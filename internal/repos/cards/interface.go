package cards

import (
	"database/sql"

	"github.com/google/uuid"
)

// Cards is a read-only view of the publishing service's card table, used to
// resolve a card to the account that owns it.
type Cards interface {
	OwnerOf(tx *sql.Tx, cardID uuid.UUID) (uuid.UUID, error)
}
