package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-marketplace/internal/models"
	"ms-marketplace/internal/payment/db"
)

func setupTestDB(t *testing.T) *db.DB {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if err := bunDB.ResetModel(context.Background(), (*models.Payment)(nil)); err != nil {
		t.Fatalf("Failed to reset payment model: %v", err)
	}

	return &db.DB{Bun: bunDB}
}

func samplePayment(id, transactionID string) models.Payment {
	return models.Payment{
		PaymentID:     id,
		BookingID:     "booking-1",
		TicketID:      "ticket-1",
		CustomerEmail: "customer@example.com",
		Amount:        2400.0,
		Currency:      "usd",
		Quantity:      2,
		TransactionID: transactionID,
		PaidAt:        time.Now().Round(time.Second),
	}
}

func TestCreateAndGetPayment(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.CreatePayment(ctx, samplePayment("payment-1", "txn-1")); err != nil {
		t.Fatalf("Failed to create payment: %v", err)
	}

	got, err := store.GetPaymentByTransactionID(ctx, "txn-1")
	if err != nil {
		t.Fatalf("Failed to retrieve payment: %v", err)
	}
	if got == nil {
		t.Fatal("Expected a payment, got nil")
	}
	if got.PaymentID != "payment-1" {
		t.Errorf("Expected payment ID payment-1, got %s", got.PaymentID)
	}
	if got.Amount != 2400.0 {
		t.Errorf("Expected amount 2400.0, got %v", got.Amount)
	}
}

func TestGetPaymentByTransactionIDMissing(t *testing.T) {
	store := setupTestDB(t)

	got, err := store.GetPaymentByTransactionID(context.Background(), "no-such-txn")
	if err != nil {
		t.Fatalf("Expected no error for missing payment, got %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing payment, got %v", got)
	}
}

func TestCreatePaymentDuplicateTransaction(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.CreatePayment(ctx, samplePayment("payment-1", "txn-1")); err != nil {
		t.Fatalf("Failed to create first payment: %v", err)
	}

	// A second payment for the same external transaction must trip the
	// unique constraint, regardless of its own payment id.
	err := store.CreatePayment(ctx, samplePayment("payment-2", "txn-1"))
	if !errors.Is(err, db.ErrDuplicateTransaction) {
		t.Fatalf("Expected ErrDuplicateTransaction, got %v", err)
	}

	payments, err := store.GetPaymentsByBooking(ctx, "booking-1")
	if err != nil {
		t.Fatalf("Failed to list payments: %v", err)
	}
	if len(payments) != 1 {
		t.Errorf("Expected exactly one recorded payment, got %d", len(payments))
	}
}
