package attributions

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/cardmesh/tokenledger/internal/models"
)

// Attributions reads the attribution service's rows and flips their paid
// flag. Both operations run inside the paying transaction so the flip and
// the transfer commit or roll back together.
type Attributions interface {
	LockAndGet(tx *sql.Tx, id uuid.UUID) (models.Attribution, error)
	MarkPaid(tx *sql.Tx, id uuid.UUID) error
}
