// Package ledger is the write path for all token movement: the transfer
// engine, the reward dispatcher and the reconciliation checker share one
// service so every balance mutation goes through the same locked, atomic
// flow.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/cardmesh/tokenledger/internal/infra/pgutils"
	"github.com/cardmesh/tokenledger/internal/models"
	"github.com/cardmesh/tokenledger/internal/repos/accounts"
	pgaccounts "github.com/cardmesh/tokenledger/internal/repos/accounts/postgres"
	"github.com/cardmesh/tokenledger/internal/repos/attributions"
	pgattributions "github.com/cardmesh/tokenledger/internal/repos/attributions/postgres"
	"github.com/cardmesh/tokenledger/internal/repos/cards"
	pgcards "github.com/cardmesh/tokenledger/internal/repos/cards/postgres"
	"github.com/cardmesh/tokenledger/internal/repos/entries"
	pgentries "github.com/cardmesh/tokenledger/internal/repos/entries/postgres"
)

const (
	maxAttempts  = 3
	retryBackoff = 25 * time.Millisecond
)

type LedgerService struct {
	db       *sql.DB
	accounts accounts.Accounts
	entries  entries.Entries
	attrs    attributions.Attributions
	cards    cards.Cards
}

func New(db *sql.DB) *LedgerService {
	return &LedgerService{
		db:       db,
		accounts: pgaccounts.New(db),
		entries:  pgentries.New(db),
		attrs:    pgattributions.New(db),
		cards:    pgcards.New(db),
	}
}

// GetBalance returns the account snapshot (no locks; suitable for the GET endpoint).
func (s *LedgerService) GetBalance(ctx context.Context, accountID uuid.UUID) (models.Account, error) {
	acc, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return models.Account{}, fmt.Errorf("get balance: %w", err)
	}

	return acc, nil
}

// History pages the account's ledger entries from an exclusive seq cursor.
func (s *LedgerService) History(ctx context.Context, accountID uuid.UUID, sinceSeq int64, limit int) ([]models.Entry, error) {
	out, err := s.entries.ListForAccount(ctx, accountID, sinceSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	return out, nil
}

// ProvisionAccount creates the balance record for a user. Called by the
// identity service when a user is set up; idempotent.
func (s *LedgerService) ProvisionAccount(ctx context.Context, accountID uuid.UUID) (models.Account, error) {
	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.accounts.Create(tx, accountID)
	})
	if err != nil {
		return models.Account{}, fmt.Errorf("provision account: %w", err)
	}

	return s.GetBalance(ctx, accountID)
}

// withRetry runs fn in a transaction, retrying a bounded number of times on
// transient conflicts (optimistic version mismatch, serialization failure,
// deadlock). Anything else surfaces immediately.
func (s *LedgerService) withRetry(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var err error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = pgutils.WithTx(ctx, s.db, fn)
		if err == nil || !isRetryable(err) || attempt == maxAttempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}

	return err
}

func isRetryable(err error) bool {
	if errors.Is(err, models.ErrConcurrencyConflict) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}

	return false
}

// mustDecimal parses a literal rate at init time.
func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
