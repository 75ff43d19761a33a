package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateTicket(ctx context.Context, ticket models.Ticket) error {
	_, err := d.Bun.NewInsert().Model(&ticket).Exec(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "failed to insert ticket", err)
	}
	return nil
}

func (d *DB) GetTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("ticket_id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Newf(apperrors.KindNotFound, "ticket %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to load ticket", err)
	}
	return &ticket, nil
}

// UpdateTicketFields writes only the vendor-mutable columns. Moderation flags
// (verification_status, advertised, hidden) and the vendor binding are
// deliberately outside this column list.
func (d *DB) UpdateTicketFields(ctx context.Context, ticket models.Ticket) error {
	_, err := d.Bun.NewUpdate().
		Model(&ticket).
		Column("title", "from_location", "to_location", "departure", "price", "quantity").
		Where("ticket_id = ?", ticket.TicketID).
		Exec(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "failed to update ticket", err)
	}
	return nil
}

func (d *DB) DeleteTicket(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Ticket)(nil)).
		Where("ticket_id = ?", id).
		Exec(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "failed to delete ticket", err)
	}
	return nil
}

// ListVisibleTickets returns the listings customers may browse and book.
func (d *DB) ListVisibleTickets(ctx context.Context) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("verification_status = ?", models.VerificationApproved).
		Where("hidden = ?", false).
		Order("departure ASC").
		Scan(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to list tickets", err)
	}
	return tickets, nil
}

func (d *DB) ListTicketsByVendor(ctx context.Context, vendorEmail string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("vendor_email = ?", vendorEmail).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to list vendor tickets", err)
	}
	return tickets, nil
}
