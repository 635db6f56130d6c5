// Package models holds the domain types shared by the repos, the ledger
// service and the API layer.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits a token amount may carry.
const AmountScale = 8

// Account is one user's balance record. Balance always equals
// TotalEarned - TotalSpent; Version increments on every mutation.
type Account struct {
	ID          uuid.UUID
	Balance     decimal.Decimal
	TotalEarned decimal.Decimal
	TotalSpent  decimal.Decimal
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
