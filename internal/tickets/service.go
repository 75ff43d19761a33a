package tickets

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
)

type DBLayer interface {
	CreateTicket(ctx context.Context, ticket models.Ticket) error
	GetTicketByID(ctx context.Context, id string) (*models.Ticket, error)
	UpdateTicketFields(ctx context.Context, ticket models.Ticket) error
	DeleteTicket(ctx context.Context, id string) error
	ListVisibleTickets(ctx context.Context) ([]models.Ticket, error)
	ListTicketsByVendor(ctx context.Context, vendorEmail string) ([]models.Ticket, error)
}

type RoleLookup interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Service is the vendor-facing ticket surface. Moderation state is owned by
// the moderation service; vendors only get the allow-listed fields, and a
// rejected ticket is frozen for its vendor forever.
type Service struct {
	DB     DBLayer
	Users  RoleLookup
	Logger *logger.Logger
}

func NewService(db DBLayer, users RoleLookup, log *logger.Logger) *Service {
	return &Service{DB: db, Users: users, Logger: log}
}

func (s *Service) CreateTicket(ctx context.Context, callerEmail string, req models.TicketRequest) (*models.Ticket, error) {
	user, err := s.Users.GetByEmail(ctx, callerEmail)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleVendor {
		return nil, apperrors.New(apperrors.KindForbidden, "only vendors may create tickets")
	}
	if user.IsFraud {
		return nil, apperrors.Newf(apperrors.KindVendorSuspended, "vendor %s is suspended for fraud", callerEmail)
	}
	if err := validateListing(req.Title, req.Price, req.Quantity); err != nil {
		return nil, err
	}

	ticket := models.Ticket{
		TicketID:           uuid.NewString(),
		VendorEmail:        callerEmail,
		Title:              req.Title,
		FromLocation:       req.FromLocation,
		ToLocation:         req.ToLocation,
		Departure:          req.Departure,
		Price:              req.Price,
		Quantity:           req.Quantity,
		VerificationStatus: models.VerificationPending,
		Advertised:         false,
		Hidden:             false,
		CreatedAt:          time.Now().UTC(),
	}

	if err := s.DB.CreateTicket(ctx, ticket); err != nil {
		return nil, err
	}
	s.Logger.Info("TICKETS", fmt.Sprintf("ticket %s created by vendor %s, pending approval", ticket.TicketID, callerEmail))
	return &ticket, nil
}

func (s *Service) UpdateTicket(ctx context.Context, callerEmail, id string, update models.TicketUpdate) (*models.Ticket, error) {
	ticket, err := s.vendorOwnedMutable(ctx, callerEmail, id)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		ticket.Title = *update.Title
	}
	if update.FromLocation != nil {
		ticket.FromLocation = *update.FromLocation
	}
	if update.ToLocation != nil {
		ticket.ToLocation = *update.ToLocation
	}
	if update.Departure != nil {
		ticket.Departure = *update.Departure
	}
	if update.Price != nil {
		ticket.Price = *update.Price
	}
	if update.Quantity != nil {
		ticket.Quantity = *update.Quantity
	}

	if err := validateListing(ticket.Title, ticket.Price, ticket.Quantity); err != nil {
		return nil, err
	}

	if err := s.DB.UpdateTicketFields(ctx, *ticket); err != nil {
		return nil, err
	}
	s.Logger.Info("TICKETS", fmt.Sprintf("ticket %s updated by vendor %s", id, callerEmail))
	return ticket, nil
}

func (s *Service) DeleteTicket(ctx context.Context, callerEmail, id string) error {
	if _, err := s.vendorOwnedMutable(ctx, callerEmail, id); err != nil {
		return err
	}
	if err := s.DB.DeleteTicket(ctx, id); err != nil {
		return err
	}
	s.Logger.Info("TICKETS", fmt.Sprintf("ticket %s deleted by vendor %s", id, callerEmail))
	return nil
}

func (s *Service) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	return s.DB.GetTicketByID(ctx, id)
}

func (s *Service) ListVisible(ctx context.Context) ([]models.Ticket, error) {
	return s.DB.ListVisibleTickets(ctx)
}

func (s *Service) ListMine(ctx context.Context, callerEmail string) ([]models.Ticket, error) {
	return s.DB.ListTicketsByVendor(ctx, callerEmail)
}

// vendorOwnedMutable loads a ticket and checks the caller may still mutate
// it: owner only, and never after an admin rejection.
func (s *Service) vendorOwnedMutable(ctx context.Context, callerEmail, id string) (*models.Ticket, error) {
	ticket, err := s.DB.GetTicketByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.VendorEmail != callerEmail {
		return nil, apperrors.New(apperrors.KindForbidden, "ticket belongs to another vendor")
	}
	if ticket.VerificationStatus == models.VerificationRejected {
		return nil, apperrors.Newf(apperrors.KindForbidden, "ticket %s was rejected and can no longer be changed", id)
	}
	return ticket, nil
}

func validateListing(title string, price float64, quantity int) error {
	if title == "" {
		return apperrors.New(apperrors.KindValidation, "title is required")
	}
	if price <= 0 {
		return apperrors.Newf(apperrors.KindValidation, "price must be positive, got %v", price)
	}
	if quantity < 0 {
		return apperrors.Newf(apperrors.KindValidation, "quantity cannot be negative, got %d", quantity)
	}
	return nil
}
