package inventory_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/inventory"
	"ms-marketplace/internal/models"
)

func setupTestStore(t *testing.T) *inventory.Store {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if err := bunDB.ResetModel(context.Background(), (*models.Ticket)(nil)); err != nil {
		t.Fatalf("Failed to reset ticket model: %v", err)
	}

	return inventory.NewStore(bunDB)
}

func seedTicket(t *testing.T, store *inventory.Store, id string, quantity int) {
	ticket := models.Ticket{
		TicketID:           id,
		VendorEmail:        "vendor@example.com",
		Title:              "Colombo - Kandy",
		Departure:          time.Now().Add(48 * time.Hour),
		Price:              1200.0,
		Quantity:           quantity,
		VerificationStatus: models.VerificationApproved,
		CreatedAt:          time.Now(),
	}
	if _, err := store.Bun.NewInsert().Model(&ticket).Exec(context.Background()); err != nil {
		t.Fatalf("Failed to seed ticket: %v", err)
	}
}

func TestReserveDecrementsStock(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	seedTicket(t, store, "ticket-1", 5)

	err := store.Reserve(ctx, "ticket-1", 3)
	assert.NoError(t, err)

	qty, err := store.Available(ctx, "ticket-1")
	assert.NoError(t, err)
	assert.Equal(t, 2, qty)
}

func TestReserveRefusesInsufficientStock(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	seedTicket(t, store, "ticket-1", 5)

	err := store.Reserve(ctx, "ticket-1", 5)
	assert.NoError(t, err)

	// Stock is exhausted now; even a single unit must be refused.
	err = store.Reserve(ctx, "ticket-1", 1)
	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInsufficientStock))

	qty, err := store.Available(ctx, "ticket-1")
	assert.NoError(t, err)
	assert.Equal(t, 0, qty)
}

func TestReservePartialOverAsk(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	seedTicket(t, store, "ticket-1", 4)

	// Asking for more than remains must not take the partial amount.
	err := store.Reserve(ctx, "ticket-1", 6)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInsufficientStock))

	qty, err := store.Available(ctx, "ticket-1")
	assert.NoError(t, err)
	assert.Equal(t, 4, qty)
}

func TestReserveUnknownTicket(t *testing.T) {
	store := setupTestStore(t)

	err := store.Reserve(context.Background(), "no-such-ticket", 1)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestReserveRejectsNonPositiveQuantity(t *testing.T) {
	store := setupTestStore(t)
	seedTicket(t, store, "ticket-1", 5)

	err := store.Reserve(context.Background(), "ticket-1", 0)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	err = store.Reserve(context.Background(), "ticket-1", -2)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestReleaseRestoresStock(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	seedTicket(t, store, "ticket-1", 5)

	err := store.Reserve(ctx, "ticket-1", 4)
	assert.NoError(t, err)

	err = store.Release(ctx, "ticket-1", 4)
	assert.NoError(t, err)

	qty, err := store.Available(ctx, "ticket-1")
	assert.NoError(t, err)
	assert.Equal(t, 5, qty)
}

func TestReleaseUnknownTicket(t *testing.T) {
	store := setupTestStore(t)

	err := store.Release(context.Background(), "no-such-ticket", 1)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}
