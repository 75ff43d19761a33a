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

// ---------------- BOOKINGS ----------------

func (d *DB) CreateBooking(ctx context.Context, booking models.Booking) error {
	_, err := d.Bun.NewInsert().Model(&booking).Exec(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "failed to insert booking", err)
	}
	return nil
}

func (d *DB) GetBookingByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := d.Bun.NewSelect().
		Model(&booking).
		Where("booking_id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Newf(apperrors.KindNotFound, "booking %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to load booking", err)
	}
	return &booking, nil
}

// TransitionStatus moves a booking from one status to another in a single
// conditional update. It returns false when the booking was not in the
// expected source status, which is how callers detect a lost race without a
// second read. The timestamp column matching the target status is stamped in
// the same statement.
func (d *DB) TransitionStatus(ctx context.Context, id string, from, to models.BookingStatus, at models.Booking) (bool, error) {
	q := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("status = ?", to).
		Where("booking_id = ?", id).
		Where("status = ?", from)

	switch to {
	case models.BookingAccepted:
		q = q.Set("accepted_at = ?", at.AcceptedAt)
	case models.BookingRejected:
		q = q.Set("rejected_at = ?", at.RejectedAt)
	case models.BookingPaid:
		q = q.Set("paid_at = ?", at.PaidAt)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return false, apperrors.Wrap(apperrors.KindUnavailable, "failed to update booking status", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(apperrors.KindUnavailable, "failed to read transition result", err)
	}
	return rows > 0, nil
}

// ---------------- LISTS ----------------

func (d *DB) ListBookingsByCustomer(ctx context.Context, email string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Where("customer_email = ?", email).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to list customer bookings", err)
	}
	return bookings, nil
}

func (d *DB) ListBookingsByVendor(ctx context.Context, email string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Where("vendor_email = ?", email).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to list vendor bookings", err)
	}
	return bookings, nil
}
