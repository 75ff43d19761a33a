package inventory

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/models"
)

// Store mutates ticket stock. Both operations are single conditional
// statements so concurrent bookings for the same ticket can never observe a
// read-then-write race or drive quantity negative. Callers must guarantee
// at-most-once invocation per booking event; neither call is idempotent.
type Store struct {
	Bun *bun.DB
}

func NewStore(bunDB *bun.DB) *Store {
	return &Store{Bun: bunDB}
}

// Reserve decrements quantity by qty only if at least qty units remain.
func (s *Store) Reserve(ctx context.Context, ticketID string, qty int) error {
	if qty <= 0 {
		return apperrors.Newf(apperrors.KindValidation, "reserve quantity must be positive, got %d", qty)
	}

	res, err := s.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("quantity = quantity - ?", qty).
		Where("ticket_id = ?", ticketID).
		Where("quantity >= ?", qty).
		Exec(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "failed to reserve stock", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "failed to read reserve result", err)
	}
	if rows == 0 {
		exists, err := s.Bun.NewSelect().
			Model((*models.Ticket)(nil)).
			Where("ticket_id = ?", ticketID).
			Exists(ctx)
		if err != nil {
			return apperrors.Wrap(apperrors.KindUnavailable, "failed to check ticket existence", err)
		}
		if !exists {
			return apperrors.Newf(apperrors.KindNotFound, "ticket %s not found", ticketID)
		}
		return apperrors.Newf(apperrors.KindInsufficientStock, "ticket %s has fewer than %d units available", ticketID, qty)
	}
	return nil
}

// Release returns qty units to the ticket. It is unconditional: stock comes
// back even if the ticket was hidden or its listing changed in the meantime.
func (s *Store) Release(ctx context.Context, ticketID string, qty int) error {
	if qty <= 0 {
		return apperrors.Newf(apperrors.KindValidation, "release quantity must be positive, got %d", qty)
	}

	res, err := s.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("quantity = quantity + ?", qty).
		Where("ticket_id = ?", ticketID).
		Exec(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "failed to release stock", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "failed to read release result", err)
	}
	if rows == 0 {
		return apperrors.Newf(apperrors.KindNotFound, "ticket %s not found", ticketID)
	}
	return nil
}

// Available reads the current stock level, mainly for handlers and tests.
func (s *Store) Available(ctx context.Context, ticketID string) (int, error) {
	var qty int
	err := s.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Column("quantity").
		Where("ticket_id = ?", ticketID).
		Scan(ctx, &qty)
	if err != nil {
		return 0, fmt.Errorf("failed to read ticket %s quantity: %w", ticketID, err)
	}
	return qty, nil
}
