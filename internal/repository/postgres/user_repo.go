package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iamasit07/realtime-chat/internal/domain"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type UserRepo struct {
	DB *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

const userSelectFields = `id, username, hashed_password, fullname, COALESCE(email, ''), COALESCE(refresh_token, ''), role, is_active, COALESCE(google_id, ''), created, updated`

// scanUser is a helper that scans a row into an Identity
func scanUser(row interface{ Scan(dest ...any) error }) (*domain.Identity, error) {
	var u domain.Identity
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.FullName,
		&u.Email,
		&u.RefreshToken,
		&u.Role,
		&u.IsActive,
		&u.GoogleID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// CreateUser inserts u and fills in its ID and timestamps. Username and email
// conflicts are reported as domain errors.
func (r *UserRepo) CreateUser(ctx context.Context, u *domain.Identity) error {
	role := u.Role
	if role == "" {
		role = domain.RoleUser
	}

	query := `
	INSERT INTO users (username, hashed_password, fullname, email, role, is_active, google_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id, created, updated;
	`
	err := r.DB.QueryRowContext(ctx, query,
		u.Username, u.PasswordHash, u.FullName, nullable(u.Email), role, u.IsActive, nullable(u.GoogleID),
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			switch {
			case strings.Contains(pqErr.Constraint, "email"):
				return domain.ErrEmailTaken
			case strings.Contains(pqErr.Constraint, "username"):
				return domain.ErrUsernameTaken
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	u.Role = role
	return nil
}

func (r *UserRepo) getUserBy(ctx context.Context, column, value string) (*domain.Identity, error) {
	query := `SELECT ` + userSelectFields + ` FROM users WHERE ` + column + ` = $1;`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, value))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username
func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	return r.getUserBy(ctx, "username", username)
}

// GetUserByEmail retrieves a user by email
func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.getUserBy(ctx, "email", email)
}

// GetUserByGoogleID retrieves a user by Google ID
func (r *UserRepo) GetUserByGoogleID(ctx context.Context, googleID string) (*domain.Identity, error) {
	return r.getUserBy(ctx, "google_id", googleID)
}

// GetUserByRefreshToken retrieves the user currently holding refreshToken
func (r *UserRepo) GetUserByRefreshToken(ctx context.Context, refreshToken string) (*domain.Identity, error) {
	if refreshToken == "" {
		return nil, nil
	}
	return r.getUserBy(ctx, "refresh_token", refreshToken)
}

// SetRefreshToken overwrites the stored refresh token. Last write wins.
func (r *UserRepo) SetRefreshToken(ctx context.Context, userID int64, refreshToken string) error {
	query := `UPDATE users SET refresh_token = $2, updated = NOW() WHERE id = $1;`
	if _, err := r.DB.ExecContext(ctx, query, userID, refreshToken); err != nil {
		return fmt.Errorf("failed to set refresh token: %w", err)
	}
	return nil
}

// ClearRefreshToken signs the user out.
func (r *UserRepo) ClearRefreshToken(ctx context.Context, userID int64) error {
	query := `UPDATE users SET refresh_token = NULL, updated = NOW() WHERE id = $1;`
	if _, err := r.DB.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}
	return nil
}

// LinkGoogleID attaches a Google account to an existing user
func (r *UserRepo) LinkGoogleID(ctx context.Context, userID int64, googleID string) error {
	query := `UPDATE users SET google_id = $2, updated = NOW() WHERE id = $1;`
	if _, err := r.DB.ExecContext(ctx, query, userID, googleID); err != nil {
		return fmt.Errorf("failed to link google id: %w", err)
	}
	return nil
}

// ClearInactiveRefreshTokens removes refresh tokens held by deactivated users
// and returns how many were cleared.
func (r *UserRepo) ClearInactiveRefreshTokens(ctx context.Context) (int64, error) {
	query := `
	UPDATE users
	SET refresh_token = NULL, updated = NOW()
	WHERE is_active = FALSE AND refresh_token IS NOT NULL;
	`
	result, err := r.DB.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to clear inactive refresh tokens: %w", err)
	}
	return result.RowsAffected()
}
