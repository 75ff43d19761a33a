package db

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// SetVerificationStatus stamps the admin decision on a ticket. Returns false
// when the ticket does not exist.
func (d *DB) SetVerificationStatus(ctx context.Context, ticketID string, status models.VerificationStatus) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("verification_status = ?", status).
		Where("ticket_id = ?", ticketID).
		Exec(ctx)
	if err != nil {
		return false, apperrors.Wrap(apperrors.KindUnavailable, "failed to set verification status", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(apperrors.KindUnavailable, "failed to read moderation result", err)
	}
	return rows > 0, nil
}

// SetAdvertised turns the advertisement flag on with the slot cap enforced in
// the same statement: the correlated count subquery and the write are one
// atomic update, so two concurrent requests cannot both claim the last slot.
// Returns false when the ticket is missing, not approved, or the cap is full.
func (d *DB) SetAdvertised(ctx context.Context, ticketID string, maxSlots int) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("advertised = ?", true).
		Where("ticket_id = ?", ticketID).
		Where("verification_status = ?", models.VerificationApproved).
		Where("(SELECT COUNT(*) FROM tickets AS t2 WHERE t2.verification_status = ? AND t2.advertised = ? AND t2.ticket_id <> ?) < ?",
			models.VerificationApproved, true, ticketID, maxSlots).
		Exec(ctx)
	if err != nil {
		return false, apperrors.Wrap(apperrors.KindUnavailable, "failed to set advertised flag", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(apperrors.KindUnavailable, "failed to read advertise result", err)
	}
	return rows > 0, nil
}

// ClearAdvertised turns the flag off. Always permitted.
func (d *DB) ClearAdvertised(ctx context.Context, ticketID string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("advertised = ?", false).
		Where("ticket_id = ?", ticketID).
		Exec(ctx)
	if err != nil {
		return false, apperrors.Wrap(apperrors.KindUnavailable, "failed to clear advertised flag", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(apperrors.KindUnavailable, "failed to read advertise result", err)
	}
	return rows > 0, nil
}

// CountAdvertised reports how many slots are currently taken.
func (d *DB) CountAdvertised(ctx context.Context) (int, error) {
	count, err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("verification_status = ?", models.VerificationApproved).
		Where("advertised = ?", true).
		Count(ctx)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindUnavailable, "failed to count advertised tickets", err)
	}
	return count, nil
}

// MarkVendorFraud flags the vendor and hides every one of their tickets in a
// single transaction, so a crash between the two writes cannot leave a
// fraudulent vendor with visible listings. Returns the number of tickets
// hidden, or NotFound when no such vendor user exists.
func (d *DB) MarkVendorFraud(ctx context.Context, vendorEmail string) (int64, error) {
	var hidden int64
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.User)(nil)).
			Set("is_fraud = ?", true).
			Where("email = ?", vendorEmail).
			Where("role = ?", models.RoleVendor).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return apperrors.Newf(apperrors.KindNotFound, "vendor %s not found", vendorEmail)
		}

		res, err = tx.NewUpdate().
			Model((*models.Ticket)(nil)).
			Set("hidden = ?", true).
			Where("vendor_email = ?", vendorEmail).
			Exec(ctx)
		if err != nil {
			return err
		}
		hidden, err = res.RowsAffected()
		return err
	})
	if err != nil {
		if apperrors.KindOf(err) != "" {
			return 0, err
		}
		return 0, apperrors.Wrap(apperrors.KindUnavailable, "failed to mark vendor fraudulent", err)
	}
	return hidden, nil
}
