package ledger

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardmesh/tokenledger/internal/models"
)

// TransferRequest describes one atomic movement of value. A nil From is a
// mint, a nil To is a burn, both set is a peer-to-peer transfer.
type TransferRequest struct {
	From          *uuid.UUID
	To            *uuid.UUID
	Amount        decimal.Decimal
	ReferenceID   uuid.UUID
	ReferenceType models.ReferenceType
}

// TransferResult is the committed outcome: the ledger row plus the updated
// account snapshots.
type TransferResult struct {
	Entry    models.Entry
	Accounts []models.Account
}

// Transfer validates the request and runs the full flow in a single DB
// transaction, retried on transient conflicts:
//
// 1) Lock the affected accounts in ascending ID order.
// 2) Check the debited side has sufficient funds.
// 3) Append one ledger entry carrying both post-transfer balances.
// 4) Apply the deltas through the account store.
//
// If any step fails the transaction rolls back with zero observable effect.
func (s *LedgerService) Transfer(ctx context.Context, req TransferRequest) (TransferResult, error) {
	err := validateRequest(req)
	if err != nil {
		return TransferResult{}, err
	}

	var res TransferResult

	err = s.withRetry(ctx, func(tx *sql.Tx) error {
		var txErr error
		res, txErr = s.transferTx(tx, req)

		return txErr
	})
	if err != nil {
		return TransferResult{}, err
	}

	return res, nil
}

func validateRequest(req TransferRequest) error {
	if !req.Amount.IsPositive() || req.Amount.Exponent() < -models.AmountScale {
		return models.ErrInvalidAmount
	}

	if req.From == nil && req.To == nil {
		return models.ErrNoAccounts
	}

	if req.From != nil && req.To != nil && *req.From == *req.To {
		return models.ErrSameAccount
	}

	return nil
}

// transferTx is the body of a transfer attempt. It must only be called
// inside a transaction owned by withRetry (or by the reward dispatcher,
// which shares the transaction with its paid-flag flip).
func (s *LedgerService) transferTx(tx *sql.Tx, req TransferRequest) (TransferResult, error) {
	locked, err := s.lockAccounts(tx, collectIDs(req.From, req.To))
	if err != nil {
		return TransferResult{}, err
	}

	draft := models.EntryDraft{
		From:          req.From,
		To:            req.To,
		Amount:        req.Amount,
		Type:          entryType(req),
		ReferenceID:   req.ReferenceID,
		ReferenceType: req.ReferenceType,
	}

	if req.From != nil {
		from := locked[*req.From]
		if from.Balance.LessThan(req.Amount) {
			return TransferResult{}, models.ErrInsufficientBalance
		}

		after := from.Balance.Sub(req.Amount)
		draft.BalanceAfterFrom = &after
	}

	if req.To != nil {
		after := locked[*req.To].Balance.Add(req.Amount)
		draft.BalanceAfterTo = &after
	}

	entry, err := s.entries.Insert(tx, draft)
	if err != nil {
		return TransferResult{}, err
	}

	updated := make([]models.Account, 0, len(locked))

	if req.From != nil {
		from := locked[*req.From]

		acc, err := s.accounts.ApplyDelta(tx, from.ID, req.Amount.Neg(), from.Version)
		if err != nil {
			return TransferResult{}, fmt.Errorf("debit %s: %w", from.ID, err)
		}

		updated = append(updated, acc)
	}

	if req.To != nil {
		to := locked[*req.To]

		acc, err := s.accounts.ApplyDelta(tx, to.ID, req.Amount, to.Version)
		if err != nil {
			return TransferResult{}, fmt.Errorf("credit %s: %w", to.ID, err)
		}

		updated = append(updated, acc)
	}

	return TransferResult{Entry: entry, Accounts: updated}, nil
}

// lockAccounts is the single place that takes row locks on account rows.
// IDs are always acquired in ascending order so two transfers touching the
// same pair of accounts in opposite directions can never deadlock.
func (s *LedgerService) lockAccounts(tx *sql.Tx, ids []uuid.UUID) (map[uuid.UUID]models.Account, error) {
	sorted := sortIDs(ids)
	locked := make(map[uuid.UUID]models.Account, len(sorted))

	for _, id := range sorted {
		acc, err := s.accounts.LockAndGet(tx, id)
		if err != nil {
			return nil, err
		}

		locked[id] = acc
	}

	return locked, nil
}

// sortIDs returns a defensive copy of ids in ascending byte order.
func sortIDs(ids []uuid.UUID) []uuid.UUID {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)

	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})

	return sorted
}

func collectIDs(ids ...*uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))

	for _, id := range ids {
		if id != nil {
			out = append(out, *id)
		}
	}

	return out
}

func entryType(req TransferRequest) models.EntryType {
	switch {
	case req.From == nil:
		return models.EntryMint
	case req.To == nil:
		return models.EntryBurn
	default:
		return models.EntryTransfer
	}
}
