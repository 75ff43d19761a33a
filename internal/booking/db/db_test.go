package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/booking/db"
	"ms-marketplace/internal/models"
)

func setupTestDB(t *testing.T) *db.DB {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if err := bunDB.ResetModel(context.Background(), (*models.Booking)(nil)); err != nil {
		t.Fatalf("Failed to reset booking model: %v", err)
	}

	return &db.DB{Bun: bunDB}
}

func sampleBooking(id string, status models.BookingStatus) models.Booking {
	return models.Booking{
		BookingID:     id,
		TicketID:      "ticket-1",
		CustomerEmail: "customer@example.com",
		VendorEmail:   "vendor@example.com",
		Title:         "Colombo - Kandy",
		Price:         1200.0,
		Quantity:      2,
		Status:        status,
		CreatedAt:     time.Now().Round(time.Second),
	}
}

func TestCreateAndGetBooking(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	booking := sampleBooking("booking-1", models.BookingPending)
	if err := store.CreateBooking(ctx, booking); err != nil {
		t.Fatalf("Failed to create booking: %v", err)
	}

	got, err := store.GetBookingByID(ctx, "booking-1")
	if err != nil {
		t.Fatalf("Failed to retrieve booking: %v", err)
	}
	if got.BookingID != booking.BookingID {
		t.Errorf("Expected booking ID %s, got %s", booking.BookingID, got.BookingID)
	}
	if got.CustomerEmail != booking.CustomerEmail {
		t.Errorf("Expected customer %s, got %s", booking.CustomerEmail, got.CustomerEmail)
	}
	if got.Status != models.BookingPending {
		t.Errorf("Expected status pending, got %s", got.Status)
	}
}

func TestGetBookingNotFound(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.GetBookingByID(context.Background(), "missing")
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Errorf("Expected a not-found error, got %v", err)
	}
}

func TestTransitionStatus(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.CreateBooking(ctx, sampleBooking("booking-1", models.BookingPending)); err != nil {
		t.Fatalf("Failed to create booking: %v", err)
	}

	now := time.Now().UTC().Round(time.Second)
	ok, err := store.TransitionStatus(ctx, "booking-1", models.BookingPending, models.BookingAccepted, models.Booking{AcceptedAt: now})
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected transition from pending to succeed")
	}

	got, err := store.GetBookingByID(ctx, "booking-1")
	if err != nil {
		t.Fatalf("Failed to retrieve booking: %v", err)
	}
	if got.Status != models.BookingAccepted {
		t.Errorf("Expected status accepted, got %s", got.Status)
	}
	if !got.AcceptedAt.Equal(now) {
		t.Errorf("Expected accepted_at %v, got %v", now, got.AcceptedAt)
	}
}

func TestTransitionStatusWrongSource(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.CreateBooking(ctx, sampleBooking("booking-1", models.BookingAccepted)); err != nil {
		t.Fatalf("Failed to create booking: %v", err)
	}

	// The booking already left pending; the conditional update must not fire.
	ok, err := store.TransitionStatus(ctx, "booking-1", models.BookingPending, models.BookingRejected, models.Booking{RejectedAt: time.Now()})
	if err != nil {
		t.Fatalf("Transition errored: %v", err)
	}
	if ok {
		t.Fatal("Expected transition with wrong source status to report false")
	}

	got, err := store.GetBookingByID(ctx, "booking-1")
	if err != nil {
		t.Fatalf("Failed to retrieve booking: %v", err)
	}
	if got.Status != models.BookingAccepted {
		t.Errorf("Expected status to stay accepted, got %s", got.Status)
	}
}

func TestTransitionStatusFiresOnlyOnce(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.CreateBooking(ctx, sampleBooking("booking-1", models.BookingPending)); err != nil {
		t.Fatalf("Failed to create booking: %v", err)
	}

	ok, err := store.TransitionStatus(ctx, "booking-1", models.BookingPending, models.BookingRejected, models.Booking{RejectedAt: time.Now()})
	if err != nil || !ok {
		t.Fatalf("First transition should win: ok=%v err=%v", ok, err)
	}

	ok, err = store.TransitionStatus(ctx, "booking-1", models.BookingPending, models.BookingRejected, models.Booking{RejectedAt: time.Now()})
	if err != nil {
		t.Fatalf("Second transition errored: %v", err)
	}
	if ok {
		t.Fatal("Expected second identical transition to report false")
	}
}

func TestListBookings(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	first := sampleBooking("booking-1", models.BookingPending)
	second := sampleBooking("booking-2", models.BookingAccepted)
	second.CustomerEmail = "other@example.com"

	if err := store.CreateBooking(ctx, first); err != nil {
		t.Fatalf("Failed to create booking: %v", err)
	}
	if err := store.CreateBooking(ctx, second); err != nil {
		t.Fatalf("Failed to create booking: %v", err)
	}

	mine, err := store.ListBookingsByCustomer(ctx, "customer@example.com")
	if err != nil {
		t.Fatalf("Failed to list customer bookings: %v", err)
	}
	if len(mine) != 1 || mine[0].BookingID != "booking-1" {
		t.Errorf("Expected only booking-1 for customer, got %v", mine)
	}

	vendor, err := store.ListBookingsByVendor(ctx, "vendor@example.com")
	if err != nil {
		t.Fatalf("Failed to list vendor bookings: %v", err)
	}
	if len(vendor) != 2 {
		t.Errorf("Expected 2 vendor bookings, got %d", len(vendor))
	}
}
