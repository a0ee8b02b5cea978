package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction types.
const (
	TxTypePurchase = "purchase"
	TxTypeReserve  = "reserve"
	TxTypeRefund   = "refund"
)

// Transaction statuses. A reserve entry moves from reserved to exactly one
// of settled or refunded. Purchases are created completed. Refund entries
// are created settled and never touched again.
const (
	TxStatusReserved  = "reserved"
	TxStatusSettled   = "settled"
	TxStatusRefunded  = "refunded"
	TxStatusCompleted = "completed"
)

// Transaction is a ledger entry. Amount is signed: negative for a
// reservation debit, positive for purchase and refund credits.
// ReferenceID holds the job id for reserve/refund entries and the payment
// session id for purchases. ExternalEventID is set only on purchases and is
// unique at the store level, which is what makes purchase ingestion
// idempotent under concurrent delivery.
type Transaction struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	Amount          int       `json:"amount"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
	ReferenceID     *string   `json:"reference_id,omitempty"`
	ExternalEventID *string   `json:"external_event_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
