package identitystore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/specbench/workbench/pkg/apperrors"
	"github.com/specbench/workbench/pkg/models"
)

// CreateUser inserts a new user with an already-hashed password.
func (c *Client) CreateUser(ctx context.Context, handle, passwordHash string, isAdmin bool) (*models.User, error) {
	u := &models.User{
		ID:           uuid.NewString(),
		Handle:       handle,
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
	}
	row := c.pool.QueryRow(ctx, `
		INSERT INTO users (id, handle, password_hash, is_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		u.ID, u.Handle, u.PasswordHash, u.IsAdmin)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetUser fetches a user by ID, or apperrors.ErrUnknownUser.
func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	u := &models.User{}
	var teamID *string
	row := c.pool.QueryRow(ctx, `
		SELECT id, handle, password_hash, is_admin, team_id, created_at, updated_at
		FROM users WHERE id = $1`, id)
	if err := row.Scan(&u.ID, &u.Handle, &u.PasswordHash, &u.IsAdmin, &teamID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUnknownUser
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if teamID != nil {
		u.TeamID = *teamID
	}
	return u, nil
}

// GetUserByHandle fetches a user by their login handle.
func (c *Client) GetUserByHandle(ctx context.Context, handle string) (*models.User, error) {
	u := &models.User{}
	var teamID *string
	row := c.pool.QueryRow(ctx, `
		SELECT id, handle, password_hash, is_admin, team_id, created_at, updated_at
		FROM users WHERE handle = $1`, handle)
	if err := row.Scan(&u.ID, &u.Handle, &u.PasswordHash, &u.IsAdmin, &teamID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUnknownUser
		}
		return nil, fmt.Errorf("get user by handle: %w", err)
	}
	if teamID != nil {
		u.TeamID = *teamID
	}
	return u, nil
}

// CreateAuthSession issues an opaque bearer token for userID valid
// until ttl elapses.
func (c *Client) CreateAuthSession(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	c.pruneExpiredSessions(ctx)

	token, err := randomToken()
	if err != nil {
		return "", fmt.Errorf("generate auth token: %w", err)
	}

	_, err = c.pool.Exec(ctx, `
		INSERT INTO auth_sessions (token, user_id, expires_at)
		VALUES ($1, $2, $3)`,
		token, userID, time.Now().Add(ttl))
	if err != nil {
		return "", fmt.Errorf("create auth session: %w", err)
	}
	return token, nil
}

// ResolveAuthSession returns the user ID bound to a bearer token, or
// apperrors.ErrPermissionDenied if it's missing or expired.
func (c *Client) ResolveAuthSession(ctx context.Context, token string) (string, error) {
	var userID string
	var expiresAt time.Time
	row := c.pool.QueryRow(ctx, `SELECT user_id, expires_at FROM auth_sessions WHERE token = $1`, token)
	if err := row.Scan(&userID, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrPermissionDenied
		}
		return "", fmt.Errorf("resolve auth session: %w", err)
	}
	if time.Now().After(expiresAt) {
		return "", apperrors.ErrPermissionDenied
	}
	return userID, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
