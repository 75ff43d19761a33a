package moderation

import (
	"context"
	"encoding/json"
	"fmt"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/kafka"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
)

type DBLayer interface {
	SetVerificationStatus(ctx context.Context, ticketID string, status models.VerificationStatus) (bool, error)
	SetAdvertised(ctx context.Context, ticketID string, maxSlots int) (bool, error)
	ClearAdvertised(ctx context.Context, ticketID string) (bool, error)
	MarkVendorFraud(ctx context.Context, vendorEmail string) (int64, error)
}

type TicketReader interface {
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
}

type RoleStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetRole(ctx context.Context, email string, role models.Role) error
}

type EventPublisher interface {
	Publish(topic string, key string, value []byte) error
}

// Service is the admin-only visibility engine: ticket approval, the
// advertisement slot cap and the vendor fraud cascade.
type Service struct {
	DB      DBLayer
	Tickets TicketReader
	Users   RoleStore
	Events  EventPublisher
	Logger  *logger.Logger
}

func NewService(db DBLayer, tickets TicketReader, users RoleStore, events EventPublisher, log *logger.Logger) *Service {
	return &Service{DB: db, Tickets: tickets, Users: users, Events: events, Logger: log}
}

func (s *Service) ApproveTicket(ctx context.Context, callerEmail, ticketID string) error {
	if err := s.requireAdmin(ctx, callerEmail); err != nil {
		return err
	}
	ok, err := s.DB.SetVerificationStatus(ctx, ticketID, models.VerificationApproved)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Newf(apperrors.KindNotFound, "ticket %s not found", ticketID)
	}
	s.publishModeration(ticketID, "approved")
	s.Logger.Info("MODERATION", fmt.Sprintf("ticket %s approved by %s", ticketID, callerEmail))
	return nil
}

// RejectTicket is terminal for the vendor: the tickets service refuses any
// further vendor mutation of a rejected ticket.
func (s *Service) RejectTicket(ctx context.Context, callerEmail, ticketID string) error {
	if err := s.requireAdmin(ctx, callerEmail); err != nil {
		return err
	}
	ok, err := s.DB.SetVerificationStatus(ctx, ticketID, models.VerificationRejected)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Newf(apperrors.KindNotFound, "ticket %s not found", ticketID)
	}
	s.publishModeration(ticketID, "rejected")
	s.Logger.Info("MODERATION", fmt.Sprintf("ticket %s rejected by %s", ticketID, callerEmail))
	return nil
}

// SetAdvertised toggles the advertisement flag. Turning it on competes for
// one of the fixed slots; the count check and the write happen in one atomic
// statement at the store, so this method never has to re-check after racing.
func (s *Service) SetAdvertised(ctx context.Context, callerEmail, ticketID string, on bool) error {
	if err := s.requireAdmin(ctx, callerEmail); err != nil {
		return err
	}

	if !on {
		ok, err := s.DB.ClearAdvertised(ctx, ticketID)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.Newf(apperrors.KindNotFound, "ticket %s not found", ticketID)
		}
		s.Logger.Info("MODERATION", fmt.Sprintf("ticket %s advertisement turned off by %s", ticketID, callerEmail))
		return nil
	}

	ok, err := s.DB.SetAdvertised(ctx, ticketID, models.MaxAdvertisedTickets)
	if err != nil {
		return err
	}
	if ok {
		s.Logger.Info("MODERATION", fmt.Sprintf("ticket %s advertised by %s", ticketID, callerEmail))
		return nil
	}

	// Zero rows: work out which precondition failed.
	ticket, err := s.Tickets.GetTicketByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.VerificationStatus != models.VerificationApproved {
		return apperrors.Newf(apperrors.KindNotApproved, "ticket %s must be approved before it can be advertised", ticketID)
	}
	return apperrors.Newf(apperrors.KindSlotLimitExceeded, "all %d advertisement slots are taken", models.MaxAdvertisedTickets)
}

// MarkVendorFraud suspends a vendor and hides all of their tickets. The flag
// and the cascade are one transaction at the store layer.
func (s *Service) MarkVendorFraud(ctx context.Context, callerEmail, vendorEmail string) error {
	if err := s.requireAdmin(ctx, callerEmail); err != nil {
		return err
	}

	hidden, err := s.DB.MarkVendorFraud(ctx, vendorEmail)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]interface{}{
		"vendor_email":   vendorEmail,
		"tickets_hidden": hidden,
	})
	if err == nil {
		if err := s.Events.Publish(kafka.TopicVendorFlagged, vendorEmail, payload); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish vendor fraud event for %s: %v", vendorEmail, err))
		}
	}
	s.Logger.Warn("MODERATION", fmt.Sprintf("vendor %s marked fraudulent by %s, %d tickets hidden", vendorEmail, callerEmail, hidden))
	return nil
}

// SetUserRole re-assigns a user's role. Promoting a suspended vendor back to
// vendor clears the fraud flag at the store.
func (s *Service) SetUserRole(ctx context.Context, callerEmail, email string, role models.Role) error {
	if err := s.requireAdmin(ctx, callerEmail); err != nil {
		return err
	}
	switch role {
	case models.RoleUser, models.RoleVendor, models.RoleAdmin:
	default:
		return apperrors.Newf(apperrors.KindValidation, "unknown role %q", role)
	}

	if err := s.Users.SetRole(ctx, email, role); err != nil {
		return err
	}
	s.Logger.Info("MODERATION", fmt.Sprintf("user %s assigned role %s by %s", email, role, callerEmail))
	return nil
}

func (s *Service) requireAdmin(ctx context.Context, email string) error {
	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.Role != models.RoleAdmin {
		return apperrors.New(apperrors.KindForbidden, "administrator role required")
	}
	return nil
}

func (s *Service) publishModeration(ticketID, decision string) {
	payload, err := json.Marshal(map[string]string{
		"ticket_id": ticketID,
		"decision":  decision,
	})
	if err != nil {
		return
	}
	if err := s.Events.Publish(kafka.TopicTicketModerated, ticketID, payload); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("failed to publish moderation event for ticket %s: %v", ticketID, err))
	}
}
