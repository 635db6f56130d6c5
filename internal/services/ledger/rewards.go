package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardmesh/tokenledger/internal/models"
)

// PublishReward is minted to a card's owner when the card is published.
var PublishReward = mustDecimal("1.0")

// rewardRates maps an attribution type to the amount the citing card's owner
// pays the cited card's owner. Attribution rewards are payer-funded, never
// minted.
var rewardRates = map[models.AttributionType]decimal.Decimal{
	models.AttrCitation: mustDecimal("0.10"),
	models.AttrRemix:    mustDecimal("0.50"),
	models.AttrReply:    mustDecimal("0.05"),
}

var ErrUnknownAttributionType = errors.New("unknown attribution type")

// OnCardPublished mints the publish reward to the card's owner. Safe under
// at-least-once delivery: a repeat call returns the existing entry instead
// of minting again, guaranteed by the unique (reference_id, reference_type)
// index rather than by the pre-check alone.
func (s *LedgerService) OnCardPublished(ctx context.Context, cardID, owner uuid.UUID) (models.Entry, error) {
	// Fast path: already paid out for this card.
	entry, err := s.entries.FindByReference(ctx, cardID, models.RefCard)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, models.ErrEntryNotFound) {
		return models.Entry{}, err
	}

	res, err := s.Transfer(ctx, TransferRequest{
		To:            &owner,
		Amount:        PublishReward,
		ReferenceID:   cardID,
		ReferenceType: models.RefCard,
	})
	if err != nil {
		// Lost a race with a concurrent duplicate event; the winner's entry
		// is the payout.
		if errors.Is(err, models.ErrDuplicateReference) {
			return s.entries.FindByReference(ctx, cardID, models.RefCard)
		}

		return models.Entry{}, fmt.Errorf("publish reward: %w", err)
	}

	return res.Entry, nil
}

// OnAttributionCreated pays the attribution reward from the citing card's
// owner to the cited card's owner and flips the attribution's paid flag, all
// in one transaction: a crash between the two cannot happen, so a retried
// event can never pay twice.
func (s *LedgerService) OnAttributionCreated(ctx context.Context, attributionID uuid.UUID) (models.Entry, error) {
	var entry models.Entry

	err := s.withRetry(ctx, func(tx *sql.Tx) error {
		attr, err := s.attrs.LockAndGet(tx, attributionID)
		if err != nil {
			return err
		}

		if attr.Paid {
			return models.ErrAlreadyPaid
		}

		rate, ok := rewardRates[attr.Type]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownAttributionType, attr.Type)
		}

		payer, err := s.cards.OwnerOf(tx, attr.SourceCardID)
		if err != nil {
			return fmt.Errorf("resolve payer: %w", err)
		}

		payee, err := s.cards.OwnerOf(tx, attr.TargetCardID)
		if err != nil {
			return fmt.Errorf("resolve payee: %w", err)
		}

		if payer == payee {
			return models.ErrSelfAttribution
		}

		res, err := s.transferTx(tx, TransferRequest{
			From:          &payer,
			To:            &payee,
			Amount:        rate,
			ReferenceID:   attr.ID,
			ReferenceType: models.RefAttribution,
		})
		if err != nil {
			return err
		}

		err = s.attrs.MarkPaid(tx, attr.ID)
		if err != nil {
			return err
		}

		entry = res.Entry

		return nil
	})
	if err != nil {
		// Both mean the payout already committed; hand back the entry that
		// paid it so callers can treat this as success.
		if errors.Is(err, models.ErrAlreadyPaid) || errors.Is(err, models.ErrDuplicateReference) {
			existing, findErr := s.entries.FindByReference(ctx, attributionID, models.RefAttribution)
			if findErr != nil {
				// Paid flag set but no entry behind it: that is a divergence,
				// not an idempotent replay.
				return models.Entry{}, fmt.Errorf("attribution %s marked paid without a ledger entry: %v", attributionID, findErr)
			}

			return existing, models.ErrAlreadyPaid
		}

		return models.Entry{}, err
	}

	return entry, nil
}
