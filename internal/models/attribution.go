package models

import "github.com/google/uuid"

// AttributionType is the kind of link between two cards. Each kind has a
// fixed payer-funded reward rate.
type AttributionType string

const (
	AttrCitation AttributionType = "citation"
	AttrRemix    AttributionType = "remix"
	AttrReply    AttributionType = "reply"
)

// Attribution mirrors the attribution service's row. This engine only reads
// it and flips Paid, exactly once, inside the paying transaction.
type Attribution struct {
	ID           uuid.UUID
	SourceCardID uuid.UUID
	TargetCardID uuid.UUID
	Type         AttributionType
	Paid         bool
}
