package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/payment/db"
)

type CheckoutProvider interface {
	CreateSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*models.CheckoutSession, error)
}

type DBLayer interface {
	CreatePayment(ctx context.Context, payment models.Payment) error
	GetPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
}

// Bookings is the slice of the booking state machine reconciliation needs:
// a read, the idempotent finalize, and the idempotent cancel.
type Bookings interface {
	Get(ctx context.Context, id string) (*models.Booking, error)
	FinalizePaid(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) error
}

type TicketReader interface {
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
}

// Service bridges external checkout-session results to booking and payment
// writes, exactly once per external transaction id.
type Service struct {
	DB       DBLayer
	Provider CheckoutProvider
	Bookings Bookings
	Tickets  TicketReader
	Logger   *logger.Logger

	Currency   string
	SuccessURL string
	CancelURL  string
}

func NewService(database DBLayer, provider CheckoutProvider, bookings Bookings, tickets TicketReader, log *logger.Logger, currency, successURL, cancelURL string) *Service {
	if currency == "" {
		currency = "usd"
	}
	return &Service{
		DB:       database,
		Provider: provider,
		Bookings: bookings,
		Tickets:  tickets,
		Logger:   log,

		Currency:   currency,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	}
}

// CreateCheckout opens an external checkout session for an accepted booking.
// Payment is only ever initiated after vendor acceptance.
func (s *Service) CreateCheckout(ctx context.Context, callerEmail, bookingID string) (string, error) {
	booking, err := s.Bookings.Get(ctx, bookingID)
	if err != nil {
		return "", err
	}
	if booking.CustomerEmail != callerEmail {
		return "", apperrors.New(apperrors.KindForbidden, "only the booking customer may pay for it")
	}
	switch booking.Status {
	case models.BookingPaid:
		return "", apperrors.Newf(apperrors.KindAlreadyPaid, "booking %s is already paid", bookingID)
	case models.BookingAccepted:
		// ok
	default:
		return "", apperrors.Newf(apperrors.KindNotAccepted, "booking %s is not accepted (status %s)", bookingID, booking.Status)
	}

	ticket, err := s.Tickets.GetTicketByID(ctx, booking.TicketID)
	if err != nil {
		return "", err
	}
	if !ticket.Departure.After(time.Now()) {
		return "", apperrors.Newf(apperrors.KindDeparturePassed, "departure for ticket %s has already passed", ticket.TicketID)
	}

	// Reject bad amounts before contacting the provider.
	if booking.Price <= 0 {
		return "", apperrors.Newf(apperrors.KindValidation, "booking price must be positive, got %v", booking.Price)
	}
	if booking.Quantity <= 0 {
		return "", apperrors.Newf(apperrors.KindValidation, "booking quantity must be positive, got %d", booking.Quantity)
	}

	sess, err := s.Provider.CreateSession(ctx, models.CheckoutRequest{
		BookingID:  booking.BookingID,
		Title:      booking.Title,
		Currency:   s.Currency,
		UnitAmount: UnitAmount(booking.Price),
		Quantity:   booking.Quantity,
		SuccessURL: s.SuccessURL,
		CancelURL:  s.CancelURL,
	})
	if err != nil {
		return "", err
	}

	s.Logger.Info("PAYMENT", fmt.Sprintf("checkout session %s created for booking %s", sess.SessionID, bookingID))
	return sess.URL, nil
}

// VerifySession confirms a completed session and finalizes its booking,
// exactly once per external transaction id. It is safe to call any number of
// times for the same session: duplicate webhook or redirect deliveries hit
// the existing-payment guard, and a partial earlier run (payment recorded but
// booking not yet finalized) heals because FinalizePaid is retried alone.
func (s *Service) VerifySession(ctx context.Context, sessionID string) error {
	sess, err := s.Provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !sess.Completed() {
		return apperrors.Newf(apperrors.KindPaymentNotCompleted, "session %s reports payment status %q", sessionID, sess.PaymentStatus)
	}

	bookingID := sess.Metadata[metadataBookingKey]
	if bookingID == "" {
		return apperrors.Newf(apperrors.KindValidation, "session %s carries no booking correlation token", sessionID)
	}

	existing, err := s.DB.GetPaymentByTransactionID(ctx, sess.TransactionID)
	if err != nil {
		return err
	}
	if existing != nil {
		s.Logger.Info("PAYMENT", fmt.Sprintf("transaction %s already recorded, re-attempting finalization only", sess.TransactionID))
		return s.Bookings.FinalizePaid(ctx, existing.BookingID)
	}

	booking, err := s.Bookings.Get(ctx, bookingID)
	if err != nil {
		return err
	}

	payment := models.Payment{
		PaymentID:     uuid.NewString(),
		BookingID:     booking.BookingID,
		TicketID:      booking.TicketID,
		CustomerEmail: booking.CustomerEmail,
		Amount:        float64(sess.AmountTotal) / 100,
		Currency:      sess.Currency,
		Quantity:      booking.Quantity,
		TransactionID: sess.TransactionID,
		PaidAt:        time.Now().UTC(),
	}

	if err := s.DB.CreatePayment(ctx, payment); err != nil {
		if errors.Is(err, db.ErrDuplicateTransaction) {
			// A concurrent verification won the insert; finish its job.
			s.Logger.Info("PAYMENT", fmt.Sprintf("transaction %s recorded concurrently, re-attempting finalization", sess.TransactionID))
			return s.Bookings.FinalizePaid(ctx, bookingID)
		}
		return err
	}

	s.Logger.Info("PAYMENT", fmt.Sprintf("payment %s recorded for booking %s (transaction %s)", payment.PaymentID, bookingID, sess.TransactionID))
	return s.Bookings.FinalizePaid(ctx, bookingID)
}

// CancelSession handles the provider's cancel redirect: the booking behind
// the session is cancelled idempotently and its stock released.
func (s *Service) CancelSession(ctx context.Context, sessionID string) error {
	sess, err := s.Provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		return err
	}
	bookingID := sess.Metadata[metadataBookingKey]
	if bookingID == "" {
		return apperrors.Newf(apperrors.KindValidation, "session %s carries no booking correlation token", sessionID)
	}
	return s.Bookings.Cancel(ctx, bookingID)
}

// UnitAmount converts a decimal price to integer minor currency units.
func UnitAmount(price float64) int64 {
	return int64(math.Round(price * 100))
}
