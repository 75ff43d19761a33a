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
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/tickets/db"
)

func setupTestDB(t *testing.T) *db.DB {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if err := bunDB.ResetModel(context.Background(), (*models.Ticket)(nil)); err != nil {
		t.Fatalf("Failed to reset ticket model: %v", err)
	}

	return &db.DB{Bun: bunDB}
}

func sampleTicket(id string) models.Ticket {
	return models.Ticket{
		TicketID:           id,
		VendorEmail:        "vendor@example.com",
		Title:              "Colombo - Ella",
		FromLocation:       "Colombo",
		ToLocation:         "Ella",
		Departure:          time.Now().Add(24 * time.Hour).Round(time.Second),
		Price:              2800.0,
		Quantity:           30,
		VerificationStatus: models.VerificationApproved,
		CreatedAt:          time.Now().Round(time.Second),
	}
}

func TestCreateAndGetTicket(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.CreateTicket(ctx, sampleTicket("ticket-1")); err != nil {
		t.Fatalf("Failed to create ticket: %v", err)
	}

	got, err := store.GetTicketByID(ctx, "ticket-1")
	if err != nil {
		t.Fatalf("Failed to retrieve ticket: %v", err)
	}
	if got.Title != "Colombo - Ella" {
		t.Errorf("Expected title Colombo - Ella, got %s", got.Title)
	}
	if got.Quantity != 30 {
		t.Errorf("Expected quantity 30, got %d", got.Quantity)
	}
}

func TestGetTicketNotFound(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.GetTicketByID(context.Background(), "missing")
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Errorf("Expected a not-found error, got %v", err)
	}
}

func TestUpdateTicketFieldsLeavesModerationAlone(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.CreateTicket(ctx, sampleTicket("ticket-1")); err != nil {
		t.Fatalf("Failed to create ticket: %v", err)
	}

	// Even if the caller smuggles moderation fields into the struct, the
	// column list must keep them out of the write.
	update := sampleTicket("ticket-1")
	update.Price = 3000.0
	update.VerificationStatus = models.VerificationRejected
	update.Hidden = true
	update.Advertised = true

	if err := store.UpdateTicketFields(ctx, update); err != nil {
		t.Fatalf("Failed to update ticket: %v", err)
	}

	got, err := store.GetTicketByID(ctx, "ticket-1")
	if err != nil {
		t.Fatalf("Failed to retrieve ticket: %v", err)
	}
	if got.Price != 3000.0 {
		t.Errorf("Expected price 3000.0, got %v", got.Price)
	}
	if got.VerificationStatus != models.VerificationApproved {
		t.Errorf("Expected verification status to stay approved, got %s", got.VerificationStatus)
	}
	if got.Hidden || got.Advertised {
		t.Errorf("Expected hidden and advertised to stay false, got hidden=%v advertised=%v", got.Hidden, got.Advertised)
	}
}

func TestDeleteTicket(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.CreateTicket(ctx, sampleTicket("ticket-1")); err != nil {
		t.Fatalf("Failed to create ticket: %v", err)
	}
	if err := store.DeleteTicket(ctx, "ticket-1"); err != nil {
		t.Fatalf("Failed to delete ticket: %v", err)
	}

	_, err := store.GetTicketByID(ctx, "ticket-1")
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Errorf("Expected deleted ticket to be gone, got %v", err)
	}
}

func TestListVisibleTickets(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	visible := sampleTicket("ticket-1")
	pending := sampleTicket("ticket-2")
	pending.VerificationStatus = models.VerificationPending
	hidden := sampleTicket("ticket-3")
	hidden.Hidden = true

	for _, ticket := range []models.Ticket{visible, pending, hidden} {
		if err := store.CreateTicket(ctx, ticket); err != nil {
			t.Fatalf("Failed to create ticket: %v", err)
		}
	}

	got, err := store.ListVisibleTickets(ctx)
	if err != nil {
		t.Fatalf("Failed to list tickets: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 visible ticket, got %d", len(got))
	}
	if got[0].TicketID != "ticket-1" {
		t.Errorf("Expected ticket-1 to be visible, got %s", got[0].TicketID)
	}
}

func TestListTicketsByVendor(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	mine := sampleTicket("ticket-1")
	other := sampleTicket("ticket-2")
	other.VendorEmail = "other@example.com"

	if err := store.CreateTicket(ctx, mine); err != nil {
		t.Fatalf("Failed to create ticket: %v", err)
	}
	if err := store.CreateTicket(ctx, other); err != nil {
		t.Fatalf("Failed to create ticket: %v", err)
	}

	got, err := store.ListTicketsByVendor(ctx, "vendor@example.com")
	if err != nil {
		t.Fatalf("Failed to list vendor tickets: %v", err)
	}
	if len(got) != 1 || got[0].TicketID != "ticket-1" {
		t.Errorf("Expected only ticket-1 for vendor, got %v", got)
	}
}
