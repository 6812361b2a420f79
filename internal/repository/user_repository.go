package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-homework-api/internal/models"
)

const userColumns = "id, email, full_name, avatar_url, timezone, google_access_token, google_refresh_token, google_token_expiry, created_at, updated_at"

// UserRepository provides database access for users and their Google grants.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1 LIMIT 1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindCredential loads the calendar credential for a user.
func (r *UserRepository) FindCredential(ctx context.Context, userID string) (*models.UserCredential, error) {
	const query = `SELECT id, google_access_token, google_refresh_token, google_token_expiry, timezone FROM users WHERE id = $1`
	var cred models.UserCredential
	if err := r.db.GetContext(ctx, &cred, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user credential: %w", err)
	}
	return &cred, nil
}

// UpsertGoogleUser creates or refreshes a user from a Google sign-in. Google
// omits the refresh token on repeat consents, so an existing one is kept.
func (r *UserRepository) UpsertGoogleUser(ctx context.Context, user *models.User) (*models.User, error) {
	query := fmt.Sprintf(`INSERT INTO users (id, email, full_name, avatar_url, timezone, google_access_token, google_refresh_token, google_token_expiry, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (email) DO UPDATE SET
full_name = EXCLUDED.full_name,
avatar_url = EXCLUDED.avatar_url,
google_access_token = EXCLUDED.google_access_token,
google_refresh_token = COALESCE(EXCLUDED.google_refresh_token, users.google_refresh_token),
google_token_expiry = EXCLUDED.google_token_expiry,
updated_at = EXCLUDED.updated_at
RETURNING %s`, userColumns)
	var stored models.User
	err := r.db.GetContext(ctx, &stored, query,
		user.ID, user.Email, user.FullName, user.AvatarURL, user.Timezone,
		user.GoogleAccessToken, user.GoogleRefreshToken, user.GoogleTokenExpiry,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert google user: %w", err)
	}
	return &stored, nil
}

// ClearGoogleTokens revokes the stored calendar grant.
func (r *UserRepository) ClearGoogleTokens(ctx context.Context, id string, updatedAt time.Time) error {
	const query = `UPDATE users SET google_access_token = NULL, google_refresh_token = NULL, google_token_expiry = NULL, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, updatedAt); err != nil {
		return fmt.Errorf("clear google tokens: %w", err)
	}
	return nil
}

// UpdateTimezone stores the user's IANA timezone.
func (r *UserRepository) UpdateTimezone(ctx context.Context, id, timezone string, updatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET timezone = $2, updated_at = $3 WHERE id = $1`, id, timezone, updatedAt)
	if err != nil {
		return fmt.Errorf("update timezone: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update timezone rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
