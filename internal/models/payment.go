package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Payment records one confirmed external transaction. The unique constraint
// on transaction_id is the sole idempotency key for finalization: a webhook
// or redirect delivered twice can never produce a second row.
type Payment struct {
	bun.BaseModel `bun:"table:payments"`

	PaymentID     string    `bun:"payment_id,pk" json:"payment_id"`
	BookingID     string    `bun:"booking_id,notnull" json:"booking_id"`
	TicketID      string    `bun:"ticket_id,notnull" json:"ticket_id"`
	CustomerEmail string    `bun:"customer_email,notnull" json:"customer_email"`
	Amount        float64   `bun:"amount,notnull" json:"amount"`
	Currency      string    `bun:"currency,notnull" json:"currency"`
	Quantity      int       `bun:"quantity,notnull" json:"quantity"`
	TransactionID string    `bun:"transaction_id,unique,notnull" json:"transaction_id"`
	PaidAt        time.Time `bun:"paid_at,notnull" json:"paid_at"`
}
