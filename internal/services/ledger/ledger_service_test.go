package ledger

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardmesh/tokenledger/internal/models"
)

const (
	accountCols = "id, balance, total_earned, total_spent, version, created_at, updated_at"
	entryCols   = "id, seq, from_account, to_account, amount, entry_type, reference_id, reference_type, balance_after_from, balance_after_to, created_at"
)

// accA sorts before accB byte-wise; lock order assertions below rely on it.
var (
	accA = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	accB = uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002")
)

func accountRow(id uuid.UUID, balance, earned, spent string, version int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(splitCols(accountCols)).
		AddRow(id.String(), balance, earned, spent, version, now, now)
}

func entryRow(id uuid.UUID, seq int64, from, to any, amount, entryType string, refID uuid.UUID, refType string, bafFrom, bafTo any) *sqlmock.Rows {
	return sqlmock.NewRows(splitCols(entryCols)).
		AddRow(id.String(), seq, from, to, amount, entryType, refID.String(), refType, bafFrom, bafTo, time.Now())
}

func splitCols(cols string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(cols); i++ {
		if i == len(cols) || cols[i] == ',' {
			name := cols[start:i]
			for len(name) > 0 && name[0] == ' ' {
				name = name[1:]
			}
			out = append(out, name)
			start = i + 1
		}
	}
	return out
}

func TestTransfer_PeerToPeer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := New(db)
	entryID := uuid.New()
	refID := uuid.New()

	mock.ExpectBegin()

	// Locks must be taken in ascending ID order: accA first.
	mock.ExpectQuery("SELECT id, balance, total_earned").
		WithArgs(accA.String()).
		WillReturnRows(accountRow(accA, "1.0", "1.0", "0", 3))
	mock.ExpectQuery("SELECT id, balance, total_earned").
		WithArgs(accB.String()).
		WillReturnRows(accountRow(accB, "0", "0", "0", 1))

	mock.ExpectQuery("INSERT INTO ledger_entries").
		WithArgs(sqlmock.AnyArg(), accA.String(), accB.String(), "0.6", "transfer",
			refID.String(), "manual", "0.4", "0.6").
		WillReturnRows(entryRow(entryID, 1, accA.String(), accB.String(), "0.6", "transfer", refID, "manual", "0.4", "0.6"))

	mock.ExpectQuery("UPDATE accounts").
		WithArgs(accA.String(), "-0.6", int64(3)).
		WillReturnRows(accountRow(accA, "0.4", "1.0", "0.6", 4))
	mock.ExpectQuery("UPDATE accounts").
		WithArgs(accB.String(), "0.6", int64(1)).
		WillReturnRows(accountRow(accB, "0.6", "0.6", "0", 2))

	mock.ExpectCommit()

	res, err := svc.Transfer(context.Background(), TransferRequest{
		From:          ptr(accA),
		To:            ptr(accB),
		Amount:        decimal.RequireFromString("0.6"),
		ReferenceID:   refID,
		ReferenceType: models.RefManual,
	})
	require.NoError(t, err)

	assert.Equal(t, entryID, res.Entry.ID)
	assert.Equal(t, models.EntryTransfer, res.Entry.Type)
	require.Len(t, res.Accounts, 2)
	assert.True(t, res.Accounts[0].Balance.Equal(decimal.RequireFromString("0.4")))
	assert.True(t, res.Accounts[1].Balance.Equal(decimal.RequireFromString("0.6")))

	assert.NoError(t, mock.ExpectationsWereMet())
}

// Transfers lock in ascending order even when the debit side sorts second.
func TestTransfer_LockOrderIndependentOfDirection(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := New(db)
	refID := uuid.New()

	mock.ExpectBegin()

	// From is accB, yet accA is still locked first.
	mock.ExpectQuery("SELECT id, balance, total_earned").
		WithArgs(accA.String()).
		WillReturnRows(accountRow(accA, "0", "0", "0", 1))
	mock.ExpectQuery("SELECT id, balance, total_earned").
		WithArgs(accB.String()).
		WillReturnRows(accountRow(accB, "2.0", "2.0", "0", 5))

	mock.ExpectQuery("INSERT INTO ledger_entries").
		WillReturnRows(entryRow(uuid.New(), 2, accB.String(), accA.String(), "0.5", "transfer", refID, "manual", "1.5", "0.5"))

	mock.ExpectQuery("UPDATE accounts").
		WithArgs(accB.String(), "-0.5", int64(5)).
		WillReturnRows(accountRow(accB, "1.5", "2.0", "0.5", 6))
	mock.ExpectQuery("UPDATE accounts").
		WithArgs(accA.String(), "0.5", int64(1)).
		WillReturnRows(accountRow(accA, "0.5", "0.5", "0", 2))

	mock.ExpectCommit()

	_, err = svc.Transfer(context.Background(), TransferRequest{
		From:          ptr(accB),
		To:            ptr(accA),
		Amount:        decimal.RequireFromString("0.5"),
		ReferenceID:   refID,
		ReferenceType: models.RefManual,
	})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransfer_InsufficientBalance_NoWrites(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := New(db)

	mock.ExpectBegin()

	mock.ExpectQuery("SELECT id, balance, total_earned").
		WithArgs(accA.String()).
		WillReturnRows(accountRow(accA, "0.5", "0.5", "0", 1))
	mock.ExpectQuery("SELECT id, balance, total_earned").
		WithArgs(accB.String()).
		WillReturnRows(accountRow(accB, "0", "0", "0", 1))

	// No insert, no updates: the attempt rolls back untouched.
	mock.ExpectRollback()

	_, err = svc.Transfer(context.Background(), TransferRequest{
		From:          ptr(accA),
		To:            ptr(accB),
		Amount:        decimal.RequireFromString("0.6"),
		ReferenceID:   uuid.New(),
		ReferenceType: models.RefManual,
	})
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransfer_ValidationRejectsBeforeAnyQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := New(db)

	_, err = svc.Transfer(context.Background(), TransferRequest{
		From:          ptr(accA),
		To:            ptr(accA),
		Amount:        decimal.RequireFromString("1"),
		ReferenceID:   uuid.New(),
		ReferenceType: models.RefManual,
	})
	assert.ErrorIs(t, err, models.ErrSameAccount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOnCardPublished_MintsOnce(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := New(db)
	cardID := uuid.New()
	entryID := uuid.New()

	// Idempotency pre-check misses, then the mint commits.
	mock.ExpectQuery("FROM ledger_entries").
		WithArgs(cardID.String(), "card").
		WillReturnError(sql.ErrNoRows)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, balance, total_earned").
		WithArgs(accA.String()).
		WillReturnRows(accountRow(accA, "0", "0", "0", 1))
	mock.ExpectQuery("INSERT INTO ledger_entries").
		WithArgs(sqlmock.AnyArg(), nil, accA.String(), "1.0", "mint", cardID.String(), "card", nil, "1.0").
		WillReturnRows(entryRow(entryID, 1, nil, accA.String(), "1.0", "mint", cardID, "card", nil, "1.0"))
	mock.ExpectQuery("UPDATE accounts").
		WithArgs(accA.String(), "1.0", int64(1)).
		WillReturnRows(accountRow(accA, "1.0", "1.0", "0", 2))
	mock.ExpectCommit()

	entry, err := svc.OnCardPublished(context.Background(), cardID, accA)
	require.NoError(t, err)
	assert.Equal(t, entryID, entry.ID)
	assert.Equal(t, models.EntryMint, entry.Type)
	assert.Nil(t, entry.From)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOnCardPublished_SecondCallReturnsExistingEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := New(db)
	cardID := uuid.New()
	entryID := uuid.New()

	mock.ExpectQuery("FROM ledger_entries").
		WithArgs(cardID.String(), "card").
		WillReturnRows(entryRow(entryID, 7, nil, accA.String(), "1.0", "mint", cardID, "card", nil, "1.0"))

	entry, err := svc.OnCardPublished(context.Background(), cardID, accA)
	require.NoError(t, err)
	assert.Equal(t, entryID, entry.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOnAttributionCreated_PaysAndFlipsPaid(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := New(db)
	attrID := uuid.New()
	sourceCard := uuid.New()
	targetCard := uuid.New()
	entryID := uuid.New()

	mock.ExpectBegin()

	mock.ExpectQuery("FROM attributions").
		WithArgs(attrID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "source_card_id", "target_card_id", "attribution_type", "paid"}).
			AddRow(attrID.String(), sourceCard.String(), targetCard.String(), "citation", false))

	// Payer owns the citing card, payee the cited one.
	mock.ExpectQuery("FROM cards").
		WithArgs(sourceCard.String()).
		WillReturnRows(sqlmock.NewRows([]string{"owner_account_id"}).AddRow(accB.String()))
	mock.ExpectQuery("FROM cards").
		WithArgs(targetCard.String()).
		WillReturnRows(sqlmock.NewRows([]string{"owner_account_id"}).AddRow(accA.String()))

	mock.ExpectQuery("SELECT id, balance, total_earned").
		WithArgs(accA.String()).
		WillReturnRows(accountRow(accA, "1.0", "1.0", "0", 2))
	mock.ExpectQuery("SELECT id, balance, total_earned").
		WithArgs(accB.String()).
		WillReturnRows(accountRow(accB, "0.5", "0.5", "0", 1))

	mock.ExpectQuery("INSERT INTO ledger_entries").
		WithArgs(sqlmock.AnyArg(), accB.String(), accA.String(), "0.10", "transfer",
			attrID.String(), "attribution", "0.40", "1.10").
		WillReturnRows(entryRow(entryID, 9, accB.String(), accA.String(), "0.10", "transfer", attrID, "attribution", "0.40", "1.10"))

	mock.ExpectQuery("UPDATE accounts").
		WithArgs(accB.String(), "-0.10", int64(1)).
		WillReturnRows(accountRow(accB, "0.40", "0.5", "0.10", 2))
	mock.ExpectQuery("UPDATE accounts").
		WithArgs(accA.String(), "0.10", int64(2)).
		WillReturnRows(accountRow(accA, "1.10", "1.10", "0", 3))

	mock.ExpectExec("UPDATE attributions").
		WithArgs(attrID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	entry, err := svc.OnAttributionCreated(context.Background(), attrID)
	require.NoError(t, err)
	assert.Equal(t, entryID, entry.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOnAttributionCreated_AlreadyPaid(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := New(db)
	attrID := uuid.New()
	sourceCard := uuid.New()
	targetCard := uuid.New()
	entryID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM attributions").
		WithArgs(attrID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "source_card_id", "target_card_id", "attribution_type", "paid"}).
			AddRow(attrID.String(), sourceCard.String(), targetCard.String(), "citation", true))
	mock.ExpectRollback()

	mock.ExpectQuery("FROM ledger_entries").
		WithArgs(attrID.String(), "attribution").
		WillReturnRows(entryRow(entryID, 3, accB.String(), accA.String(), "0.10", "transfer", attrID, "attribution", "0.40", "1.10"))

	entry, err := svc.OnAttributionCreated(context.Background(), attrID)
	assert.ErrorIs(t, err, models.ErrAlreadyPaid)
	assert.Equal(t, entryID, entry.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOnAttributionCreated_SelfAttribution(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := New(db)
	attrID := uuid.New()
	sourceCard := uuid.New()
	targetCard := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM attributions").
		WithArgs(attrID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "source_card_id", "target_card_id", "attribution_type", "paid"}).
			AddRow(attrID.String(), sourceCard.String(), targetCard.String(), "remix", false))

	// Both cards resolve to the same owner.
	mock.ExpectQuery("FROM cards").
		WithArgs(sourceCard.String()).
		WillReturnRows(sqlmock.NewRows([]string{"owner_account_id"}).AddRow(accA.String()))
	mock.ExpectQuery("FROM cards").
		WithArgs(targetCard.String()).
		WillReturnRows(sqlmock.NewRows([]string{"owner_account_id"}).AddRow(accA.String()))

	mock.ExpectRollback()

	_, err = svc.OnAttributionCreated(context.Background(), attrID)
	assert.ErrorIs(t, err, models.ErrSelfAttribution)

	assert.NoError(t, mock.ExpectationsWereMet())
}
