package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/kafka"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
)

type DBLayer interface {
	CreateBooking(ctx context.Context, booking models.Booking) error
	GetBookingByID(ctx context.Context, id string) (*models.Booking, error)
	TransitionStatus(ctx context.Context, id string, from, to models.BookingStatus, at models.Booking) (bool, error)
	ListBookingsByCustomer(ctx context.Context, email string) ([]models.Booking, error)
	ListBookingsByVendor(ctx context.Context, email string) ([]models.Booking, error)
}

type Inventory interface {
	Reserve(ctx context.Context, ticketID string, qty int) error
	Release(ctx context.Context, ticketID string, qty int) error
}

type TicketReader interface {
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
}

type ReservationHolds interface {
	Set(ctx context.Context, bookingID string) error
	Clear(ctx context.Context, bookingID string) error
}

type EventPublisher interface {
	Publish(topic string, key string, value []byte) error
}

// Service is the booking state machine. Stock is reserved when the booking is
// created and released exactly once on reject, cancel or hold expiry; paying
// never touches stock again.
type Service struct {
	DB        DBLayer
	Inventory Inventory
	Tickets   TicketReader
	Holds     ReservationHolds
	Events    EventPublisher
	Logger    *logger.Logger
}

func NewService(db DBLayer, inv Inventory, tickets TicketReader, holds ReservationHolds, events EventPublisher, log *logger.Logger) *Service {
	return &Service{DB: db, Inventory: inv, Tickets: tickets, Holds: holds, Events: events, Logger: log}
}

// Create places a new pending booking for the caller, reserving stock
// atomically. Vendor, title and price are snapshotted from the ticket and
// never updated afterwards.
func (s *Service) Create(ctx context.Context, callerEmail string, req models.BookingRequest) (*models.Booking, error) {
	if req.Quantity <= 0 {
		return nil, apperrors.Newf(apperrors.KindValidation, "booking quantity must be positive, got %d", req.Quantity)
	}
	if req.TicketID == "" {
		return nil, apperrors.New(apperrors.KindValidation, "ticket_id is required")
	}
	if req.CustomerEmail != "" && req.CustomerEmail != callerEmail {
		return nil, apperrors.New(apperrors.KindForbidden, "cannot place a booking for another customer")
	}

	ticket, err := s.Tickets.GetTicketByID(ctx, req.TicketID)
	if err != nil {
		return nil, err
	}
	if ticket.Hidden {
		// Hidden listings do not exist as far as customers are concerned.
		return nil, apperrors.Newf(apperrors.KindNotFound, "ticket %s not found", req.TicketID)
	}
	if ticket.VerificationStatus != models.VerificationApproved {
		return nil, apperrors.Newf(apperrors.KindNotApproved, "ticket %s is not approved for booking", req.TicketID)
	}

	if err := s.Inventory.Reserve(ctx, req.TicketID, req.Quantity); err != nil {
		return nil, err
	}

	booking := models.Booking{
		BookingID:     uuid.NewString(),
		TicketID:      ticket.TicketID,
		CustomerEmail: callerEmail,
		VendorEmail:   ticket.VendorEmail,
		Title:         ticket.Title,
		Price:         ticket.Price,
		Quantity:      req.Quantity,
		Status:        models.BookingPending,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.DB.CreateBooking(ctx, booking); err != nil {
		// Roll the reservation back so a failed insert cannot strand stock.
		if relErr := s.Inventory.Release(ctx, req.TicketID, req.Quantity); relErr != nil {
			s.Logger.Error("BOOKING", fmt.Sprintf("failed to release stock after insert failure for ticket %s: %v", req.TicketID, relErr))
		}
		return nil, err
	}

	if err := s.Holds.Set(ctx, booking.BookingID); err != nil {
		s.Logger.Warn("BOOKING", fmt.Sprintf("failed to set reservation hold for booking %s: %v", booking.BookingID, err))
	}

	s.publish(kafka.TopicBookingCreated, booking)
	s.Logger.Info("BOOKING", fmt.Sprintf("booking %s created for ticket %s (qty %d)", booking.BookingID, booking.TicketID, booking.Quantity))
	return &booking, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Booking, error) {
	return s.DB.GetBookingByID(ctx, id)
}

func (s *Service) ListForCustomer(ctx context.Context, email string) ([]models.Booking, error) {
	return s.DB.ListBookingsByCustomer(ctx, email)
}

func (s *Service) ListForVendor(ctx context.Context, email string) ([]models.Booking, error) {
	return s.DB.ListBookingsByVendor(ctx, email)
}

// Accept moves a pending booking to accepted. Only the vendor the booking was
// placed against may accept it.
func (s *Service) Accept(ctx context.Context, callerEmail, id string) (*models.Booking, error) {
	booking, err := s.DB.GetBookingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.VendorEmail != callerEmail {
		return nil, apperrors.New(apperrors.KindForbidden, "only the ticket vendor may accept this booking")
	}
	if booking.Status != models.BookingPending {
		return nil, apperrors.Newf(apperrors.KindInvalidTransition, "cannot accept a booking in status %s", booking.Status)
	}

	now := time.Now().UTC()
	ok, err := s.DB.TransitionStatus(ctx, id, models.BookingPending, models.BookingAccepted, models.Booking{AcceptedAt: now})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Newf(apperrors.KindInvalidTransition, "booking %s left pending state concurrently", id)
	}

	booking.Status = models.BookingAccepted
	booking.AcceptedAt = now
	s.clearHold(ctx, id)
	s.publish(kafka.TopicBookingAccepted, *booking)
	s.Logger.Info("BOOKING", fmt.Sprintf("booking %s accepted by vendor %s", id, callerEmail))
	return booking, nil
}

// Reject moves a pending booking to rejected and returns the reserved stock.
// Winning the status transition guarantees the release happens exactly once.
func (s *Service) Reject(ctx context.Context, callerEmail, id string) (*models.Booking, error) {
	booking, err := s.DB.GetBookingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.VendorEmail != callerEmail {
		return nil, apperrors.New(apperrors.KindForbidden, "only the ticket vendor may reject this booking")
	}
	if booking.Status != models.BookingPending {
		return nil, apperrors.Newf(apperrors.KindInvalidTransition, "cannot reject a booking in status %s", booking.Status)
	}

	now := time.Now().UTC()
	ok, err := s.DB.TransitionStatus(ctx, id, models.BookingPending, models.BookingRejected, models.Booking{RejectedAt: now})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Newf(apperrors.KindInvalidTransition, "booking %s left pending state concurrently", id)
	}

	if err := s.Inventory.Release(ctx, booking.TicketID, booking.Quantity); err != nil {
		s.Logger.Error("BOOKING", fmt.Sprintf("failed to release stock for rejected booking %s: %v", id, err))
	}

	booking.Status = models.BookingRejected
	booking.RejectedAt = now
	s.clearHold(ctx, id)
	s.publish(kafka.TopicBookingRejected, *booking)
	s.Logger.Info("BOOKING", fmt.Sprintf("booking %s rejected by vendor %s", id, callerEmail))
	return booking, nil
}

// Cancel handles the payment-provider cancel callback. It is idempotent:
// cancelling an already cancelled or paid booking is a no-op success, because
// the provider may deliver the callback more than once.
func (s *Service) Cancel(ctx context.Context, id string) error {
	booking, err := s.DB.GetBookingByID(ctx, id)
	if err != nil {
		return err
	}

	switch booking.Status {
	case models.BookingCancelled, models.BookingPaid:
		s.Logger.Info("BOOKING", fmt.Sprintf("cancel of booking %s in status %s is a no-op", id, booking.Status))
		return nil
	case models.BookingAccepted:
		// fall through to the transition below
	default:
		return apperrors.Newf(apperrors.KindInvalidTransition, "cannot cancel a booking in status %s", booking.Status)
	}

	ok, err := s.DB.TransitionStatus(ctx, id, models.BookingAccepted, models.BookingCancelled, models.Booking{})
	if err != nil {
		return err
	}
	if !ok {
		// Lost the race against a concurrent cancel or payment; both leave the
		// booking settled, so there is nothing left to do.
		return nil
	}

	if err := s.Inventory.Release(ctx, booking.TicketID, booking.Quantity); err != nil {
		s.Logger.Error("BOOKING", fmt.Sprintf("failed to release stock for cancelled booking %s: %v", id, err))
	}

	booking.Status = models.BookingCancelled
	s.publish(kafka.TopicBookingCancelled, *booking)
	s.Logger.Info("BOOKING", fmt.Sprintf("booking %s cancelled", id))
	return nil
}

// FinalizePaid marks an accepted booking as paid. Stock was reserved at
// creation and is never touched here. Finalizing an already paid booking is a
// no-op success so payment verification can be retried safely.
func (s *Service) FinalizePaid(ctx context.Context, id string) error {
	booking, err := s.DB.GetBookingByID(ctx, id)
	if err != nil {
		return err
	}

	switch booking.Status {
	case models.BookingPaid:
		return nil
	case models.BookingAccepted:
		// fall through
	default:
		return apperrors.Newf(apperrors.KindInvalidTransition, "cannot finalize a booking in status %s", booking.Status)
	}

	now := time.Now().UTC()
	ok, err := s.DB.TransitionStatus(ctx, id, models.BookingAccepted, models.BookingPaid, models.Booking{PaidAt: now})
	if err != nil {
		return err
	}
	if !ok {
		current, err := s.DB.GetBookingByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == models.BookingPaid {
			return nil
		}
		return apperrors.Newf(apperrors.KindInvalidTransition, "booking %s left accepted state concurrently", id)
	}

	booking.Status = models.BookingPaid
	booking.PaidAt = now
	s.publish(kafka.TopicBookingPaid, *booking)
	s.Logger.Info("BOOKING", fmt.Sprintf("booking %s finalized as paid", id))
	return nil
}

// ExpireHold cancels a booking whose reservation hold lapsed while it was
// still pending, releasing the stock it was sitting on. Holds for bookings
// that have since moved on expire without effect.
func (s *Service) ExpireHold(ctx context.Context, id string) error {
	booking, err := s.DB.GetBookingByID(ctx, id)
	if err != nil {
		return err
	}
	if booking.Status != models.BookingPending {
		s.Logger.Info("BOOKING", fmt.Sprintf("hold expired for booking %s in status %s, nothing to do", id, booking.Status))
		return nil
	}

	ok, err := s.DB.TransitionStatus(ctx, id, models.BookingPending, models.BookingCancelled, models.Booking{})
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if err := s.Inventory.Release(ctx, booking.TicketID, booking.Quantity); err != nil {
		s.Logger.Error("BOOKING", fmt.Sprintf("failed to release stock for expired booking %s: %v", id, err))
	}

	booking.Status = models.BookingCancelled
	s.publish(kafka.TopicBookingExpired, *booking)
	s.Logger.Info("BOOKING", fmt.Sprintf("booking %s cancelled after reservation hold expiry", id))
	return nil
}

func (s *Service) clearHold(ctx context.Context, id string) {
	if err := s.Holds.Clear(ctx, id); err != nil {
		s.Logger.Warn("BOOKING", fmt.Sprintf("failed to clear reservation hold for booking %s: %v", id, err))
	}
}

func (s *Service) publish(topic string, booking models.Booking) {
	value, err := json.Marshal(booking)
	if err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to marshal booking %s: %v", booking.BookingID, err))
		return
	}
	if err := s.Events.Publish(topic, booking.BookingID, value); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish %s for booking %s: %v", topic, booking.BookingID, err))
	}
}
