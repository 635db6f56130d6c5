package accounts

import (
	"database/sql"

	accountsdom "github.com/cardmesh/tokenledger/internal/repos/accounts"
)

var _ accountsdom.Accounts = (*accountsRepo)(nil)

type accountsRepo struct{ db *sql.DB }

func New(db *sql.DB) *accountsRepo {
	return &accountsRepo{db: db}
}

const accountColumns = `id, balance, total_earned, total_spent, version, created_at, updated_at`
