package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/models"
)

// ErrDuplicateTransaction signals the transaction_id uniqueness invariant
// fired: a payment for this external transaction is already recorded. For the
// reconciliation service this is the idempotency guard, not a failure.
var ErrDuplicateTransaction = errors.New("payment already recorded for this transaction")

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreatePayment(ctx context.Context, payment models.Payment) error {
	_, err := d.Bun.NewInsert().Model(&payment).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTransaction
		}
		return apperrors.Wrap(apperrors.KindUnavailable, "failed to insert payment", err)
	}
	return nil
}

// GetPaymentByTransactionID returns (nil, nil) when no payment exists, so
// callers can branch on presence without unwrapping a not-found error.
func (d *DB) GetPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	err := d.Bun.NewSelect().
		Model(&payment).
		Where("transaction_id = ?", transactionID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to load payment", err)
	}
	return &payment, nil
}

func (d *DB) GetPaymentsByBooking(ctx context.Context, bookingID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := d.Bun.NewSelect().
		Model(&payments).
		Where("booking_id = ?", bookingID).
		Order("paid_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to list payments", err)
	}
	return payments, nil
}

// isUniqueViolation recognizes unique-constraint errors from postgres
// (code 23505) and from the sqlite driver used in tests.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
