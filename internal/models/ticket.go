package models

import (
	"time"

	"github.com/uptrace/bun"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// MaxAdvertisedTickets is the slot cap: at most this many tickets may be
// approved and advertised at the same time.
const MaxAdvertisedTickets = 6

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	TicketID           string             `bun:"ticket_id,pk" json:"ticket_id"`
	VendorEmail        string             `bun:"vendor_email,notnull" json:"vendor_email"`
	Title              string             `bun:"title,notnull" json:"title"`
	FromLocation       string             `bun:"from_location" json:"from"`
	ToLocation         string             `bun:"to_location" json:"to"`
	Departure          time.Time          `bun:"departure,notnull" json:"departure"`
	Price              float64            `bun:"price,notnull" json:"price"`
	Quantity           int                `bun:"quantity,notnull" json:"quantity"`
	VerificationStatus VerificationStatus `bun:"verification_status,notnull" json:"verification_status"`
	Advertised         bool               `bun:"advertised" json:"advertised"`
	Hidden             bool               `bun:"hidden" json:"hidden"`
	CreatedAt          time.Time          `bun:"created_at,notnull" json:"created_at"`
}

// Bookable reports whether customers may book against this ticket.
func (t *Ticket) Bookable() bool {
	return t.VerificationStatus == VerificationApproved && !t.Hidden
}

type TicketRequest struct {
	Title        string    `json:"title"`
	FromLocation string    `json:"from"`
	ToLocation   string    `json:"to"`
	Departure    time.Time `json:"departure"`
	Price        float64   `json:"price"`
	Quantity     int       `json:"quantity"`
}

// TicketUpdate is the allow-list of fields a vendor may change on their own
// ticket. Pointers distinguish "not sent" from zero values; anything outside
// this struct is rejected at the boundary by the strict JSON decoder.
type TicketUpdate struct {
	Title        *string    `json:"title"`
	FromLocation *string    `json:"from"`
	ToLocation   *string    `json:"to"`
	Departure    *time.Time `json:"departure"`
	Price        *float64   `json:"price"`
	Quantity     *int       `json:"quantity"`
}
