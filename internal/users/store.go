package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/models"
)

// Store backs the role/capability checks the rest of the service relies on:
// "is this caller a vendor in good standing", "is this caller an admin".
type Store struct {
	Bun *bun.DB
}

func NewStore(bunDB *bun.DB) *Store {
	return &Store{Bun: bunDB}
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.Bun.NewSelect().
		Model(&user).
		Where("email = ?", email).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Newf(apperrors.KindNotFound, "user %s not found", email)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to load user", err)
	}
	return &user, nil
}

// EnsureUser inserts a user on first sight of a verified email. Existing rows
// keep their role and fraud flag.
func (s *Store) EnsureUser(ctx context.Context, email string, role models.Role) error {
	user := models.User{
		Email:     email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.Bun.NewInsert().
		Model(&user).
		On("CONFLICT (email) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "failed to ensure user", err)
	}
	return nil
}

// SetRole re-assigns a user's role. Promoting a fraud-flagged vendor back to
// vendor clears the suspension.
func (s *Store) SetRole(ctx context.Context, email string, role models.Role) error {
	res, err := s.Bun.NewUpdate().
		Model((*models.User)(nil)).
		Set("role = ?", role).
		Set("is_fraud = ?", false).
		Where("email = ?", email).
		Exec(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "failed to set role", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "failed to read role update result", err)
	}
	if rows == 0 {
		return apperrors.Newf(apperrors.KindNotFound, "user %s not found", email)
	}
	return nil
}
