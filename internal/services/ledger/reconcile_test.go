package ledger

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Both reconciliation reads must run inside one transaction: a stored
// balance and a ledger sum taken from different snapshots can disagree while
// a transfer commits between them, which is not a divergence.
func TestVerifyAccount_ReadsShareOneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := New(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, balance, total_earned").
		WithArgs(accA.String()).
		WillReturnRows(accountRow(accA, "2.0", "3.0", "1.0", 4))
	mock.ExpectQuery("FROM ledger_entries").
		WithArgs(accA.String()).
		WillReturnRows(sqlmock.NewRows([]string{"credits", "debits"}).AddRow("3.0", "1.0"))
	mock.ExpectCommit()

	report, err := svc.VerifyAccount(context.Background(), accA)
	require.NoError(t, err)

	assert.True(t, report.Stored.Equal(decimal.RequireFromString("2.0")))
	assert.True(t, report.Computed.Equal(decimal.RequireFromString("2.0")))
	assert.False(t, report.Divergent())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyAccount_ReportsDivergence(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := New(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, balance, total_earned").
		WithArgs(accA.String()).
		WillReturnRows(accountRow(accA, "2.0", "2.0", "0", 4))
	mock.ExpectQuery("FROM ledger_entries").
		WithArgs(accA.String()).
		WillReturnRows(sqlmock.NewRows([]string{"credits", "debits"}).AddRow("1.5", "0"))
	mock.ExpectCommit()

	report, err := svc.VerifyAccount(context.Background(), accA)
	require.NoError(t, err)

	assert.True(t, report.Divergent())
	assert.True(t, report.Computed.Equal(decimal.RequireFromString("1.5")))

	assert.NoError(t, mock.ExpectationsWereMet())
}
