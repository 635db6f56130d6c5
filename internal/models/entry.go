package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryMint     EntryType = "mint"
	EntryTransfer EntryType = "transfer"
	EntryBurn     EntryType = "burn"
)

type ReferenceType string

const (
	RefCard        ReferenceType = "card"
	RefAttribution ReferenceType = "attribution"
	RefManual      ReferenceType = "manual"
)

// Entry is one immutable ledger row. A peer-to-peer transfer has both sides
// populated; a mint has only To, a burn only From. Entries come back from
// repo reads or insert and never change afterwards: no update or delete
// operation exists anywhere in this module, on purpose.
type Entry struct {
	ID               uuid.UUID
	Seq              int64
	From             *uuid.UUID
	To               *uuid.UUID
	Amount           decimal.Decimal
	Type             EntryType
	ReferenceID      uuid.UUID
	ReferenceType    ReferenceType
	BalanceAfterFrom *decimal.Decimal
	BalanceAfterTo   *decimal.Decimal
	CreatedAt        time.Time
}

// EntryDraft is what the ledger service hands to the entries repo. Shape
// checks (positive amount, at least one side) happen on insert; business
// checks happen before, in the service.
type EntryDraft struct {
	From             *uuid.UUID
	To               *uuid.UUID
	Amount           decimal.Decimal
	Type             EntryType
	ReferenceID      uuid.UUID
	ReferenceType    ReferenceType
	BalanceAfterFrom *decimal.Decimal
	BalanceAfterTo   *decimal.Decimal
}
