package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/grana-finance/grana-go/internal/domain"
)

// ============================================================
// AuthStore — users, credentials, refresh tokens
// (implements port.AuthStore)
// ============================================================

type userRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at,omitempty"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		CreatedAt: parseRowDate(r.CreatedAt),
	}
}

// GetUserByID fetches a user row. A missing user returns (nil, nil); the
// auth service treats that as invalid credentials, not a hard failure.
func (c *Client) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUserByID")
	defer span.End()

	var user *domain.User
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("users?id=eq.%s&limit=1", userID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return nil
		}
		var rows []userRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode user: %w", err)
		}
		if len(rows) > 0 {
			u := rows[0].toDomain()
			user = &u
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/users", err)
	}
	return user, nil
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUserByEmail")
	defer span.End()

	var user *domain.User
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("users?email=eq.%s&limit=1", email)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return nil
		}
		var rows []userRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode user: %w", err)
		}
		if len(rows) > 0 {
			u := rows[0].toDomain()
			user = &u
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/users", err)
	}
	return user, nil
}

// CreateUser inserts the user row and its credential row.
func (c *Client) CreateUser(ctx context.Context, user *domain.User, passwordHash string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateUser")
	defer span.End()

	var created *domain.User
	err := c.execute(ctx, func() error {
		body, err := c.doPost(ctx, "users", userRow{ID: user.ID, Name: user.Name, Email: user.Email})
		if err != nil {
			return err
		}
		var rows []userRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode inserted user: %w", err)
		}
		if len(rows) == 0 {
			return fmt.Errorf("insert returned no rows")
		}

		if _, err := c.doPost(ctx, "auth_credentials", map[string]any{
			"user_id":       rows[0].ID,
			"password_hash": passwordHash,
		}); err != nil {
			return err
		}

		u := rows[0].toDomain()
		created = &u
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/users", err)
	}
	return created, nil
}

func (c *Client) GetCredentials(ctx context.Context, userID string) (*domain.AuthCredential, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCredentials")
	defer span.End()

	var cred *domain.AuthCredential
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("auth_credentials?user_id=eq.%s&limit=1", userID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "credentials", ID: userID}
		}
		var rows []domain.AuthCredential
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode credentials: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "credentials", ID: userID}
		}
		cred = &rows[0]
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/auth_credentials", err)
	}
	return cred, nil
}

type refreshTokenRow struct {
	UserID    string `json:"user_id"`
	TokenHash string `json:"token_hash"`
	ExpiresAt string `json:"expires_at"`
}

func (c *Client) StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	ctx, span := tracer.Start(ctx, "Supabase.StoreRefreshToken")
	defer span.End()

	err := c.execute(ctx, func() error {
		_, err := c.doPost(ctx, "auth_refresh_tokens", refreshTokenRow{
			UserID:    userID,
			TokenHash: tokenHash,
			ExpiresAt: expiresAt.Format(time.RFC3339),
		})
		return err
	})
	if err != nil {
		return wrapStoreErr("supabase/auth_refresh_tokens", err)
	}
	return nil
}

// GetRefreshToken looks up a token by hash. A missing token returns
// (nil, nil).
func (c *Client) GetRefreshToken(ctx context.Context, tokenHash string) (*domain.AuthRefreshToken, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetRefreshToken")
	defer span.End()

	var token *domain.AuthRefreshToken
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("auth_refresh_tokens?token_hash=eq.%s&limit=1", tokenHash)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return nil
		}
		var rows []refreshTokenRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode refresh token: %w", err)
		}
		if len(rows) > 0 {
			token = &domain.AuthRefreshToken{
				UserID:    rows[0].UserID,
				TokenHash: rows[0].TokenHash,
				ExpiresAt: parseRowDate(rows[0].ExpiresAt),
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/auth_refresh_tokens", err)
	}
	return token, nil
}

func (c *Client) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RevokeRefreshToken")
	defer span.End()

	err := c.execute(ctx, func() error {
		return c.doDelete(ctx, fmt.Sprintf("auth_refresh_tokens?token_hash=eq.%s", tokenHash))
	})
	if err != nil {
		return wrapStoreErr("supabase/auth_refresh_tokens", err)
	}
	return nil
}

func (c *Client) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RevokeAllRefreshTokens")
	defer span.End()

	err := c.execute(ctx, func() error {
		return c.doDelete(ctx, fmt.Sprintf("auth_refresh_tokens?user_id=eq.%s", userID))
	})
	if err != nil {
		return wrapStoreErr("supabase/auth_refresh_tokens", err)
	}
	return nil
}
