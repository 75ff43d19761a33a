package models

import (
	"time"

	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingAccepted  BookingStatus = "accepted"
	BookingRejected  BookingStatus = "rejected"
	BookingPaid      BookingStatus = "paid"
	BookingCancelled BookingStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s BookingStatus) Terminal() bool {
	return s == BookingRejected || s == BookingPaid || s == BookingCancelled
}

// Booking carries creation-time snapshots of vendor_email, title and price.
// They are never refreshed from the ticket: a booking is price-locked at the
// moment it is placed.
type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	BookingID     string        `bun:"booking_id,pk" json:"booking_id"`
	TicketID      string        `bun:"ticket_id,notnull" json:"ticket_id"`
	CustomerEmail string        `bun:"customer_email,notnull" json:"customer_email"`
	VendorEmail   string        `bun:"vendor_email,notnull" json:"vendor_email"`
	Title         string        `bun:"title,notnull" json:"title"`
	Price         float64       `bun:"price,notnull" json:"price"`
	Quantity      int           `bun:"quantity,notnull" json:"quantity"`
	Status        BookingStatus `bun:"status,notnull" json:"status"`
	CreatedAt     time.Time     `bun:"created_at,notnull" json:"created_at"`
	AcceptedAt    time.Time     `bun:"accepted_at,nullzero" json:"accepted_at,omitempty"`
	RejectedAt    time.Time     `bun:"rejected_at,nullzero" json:"rejected_at,omitempty"`
	PaidAt        time.Time     `bun:"paid_at,nullzero" json:"paid_at,omitempty"`
}

type BookingRequest struct {
	TicketID      string `json:"ticket_id"`
	Quantity      int    `json:"quantity"`
	CustomerEmail string `json:"customer_email,omitempty"`
}
