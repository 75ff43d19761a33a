package users_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/users"
)

func setupTestStore(t *testing.T) *users.Store {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if err := bunDB.ResetModel(context.Background(), (*models.User)(nil)); err != nil {
		t.Fatalf("Failed to reset user model: %v", err)
	}

	return users.NewStore(bunDB)
}

func TestEnsureUserFirstSight(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.EnsureUser(ctx, "new@example.com", models.RoleUser)
	assert.NoError(t, err)

	user, err := store.GetByEmail(ctx, "new@example.com")
	assert.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)
}

func TestEnsureUserKeepsExistingRole(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	assert.NoError(t, store.EnsureUser(ctx, "vendor@example.com", models.RoleVendor))

	// A later login must not demote the vendor back to a plain user.
	assert.NoError(t, store.EnsureUser(ctx, "vendor@example.com", models.RoleUser))

	user, err := store.GetByEmail(ctx, "vendor@example.com")
	assert.NoError(t, err)
	assert.Equal(t, models.RoleVendor, user.Role)
}

func TestGetByEmailNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetByEmail(context.Background(), "ghost@example.com")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestSetRoleClearsFraudFlag(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	assert.NoError(t, store.EnsureUser(ctx, "vendor@example.com", models.RoleVendor))
	_, err := store.Bun.NewUpdate().
		Model((*models.User)(nil)).
		Set("is_fraud = ?", true).
		Where("email = ?", "vendor@example.com").
		Exec(ctx)
	assert.NoError(t, err)

	assert.NoError(t, store.SetRole(ctx, "vendor@example.com", models.RoleVendor))

	user, err := store.GetByEmail(ctx, "vendor@example.com")
	assert.NoError(t, err)
	assert.False(t, user.IsFraud)
}

func TestSetRoleUnknownUser(t *testing.T) {
	store := setupTestStore(t)

	err := store.SetRole(context.Background(), "ghost@example.com", models.RoleAdmin)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}
