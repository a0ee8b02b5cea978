package models

import (
	"time"

	"github.com/google/uuid"
)

// User holds an integer prepaid credit balance. The balance is only ever
// mutated through the ledger engines; never written directly.
type User struct {
	ID                uuid.UUID `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	PasswordHash      string    `json:"-"`
	Balance           int       `json:"balance"`
	PaymentCustomerID *string   `json:"payment_customer_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
