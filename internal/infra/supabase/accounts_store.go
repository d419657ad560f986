package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/grana-finance/grana-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// AccountStore (implements port.AccountStore)
// ============================================================

type accountRow struct {
	ID                 string  `json:"id"`
	UserID             string  `json:"user_id"`
	EnvironmentID      string  `json:"environment_id,omitempty"`
	Name               string  `json:"name"`
	Kind               string  `json:"kind"`
	InitialBalance     float64 `json:"initial_balance"`
	PercentOfBenchmark float64 `json:"percent_of_benchmark,omitempty"`
	CreatedAt          string  `json:"created_at,omitempty"`
}

func (r accountRow) toDomain() domain.Account {
	return domain.Account{
		ID:                 r.ID,
		UserID:             r.UserID,
		EnvironmentID:      r.EnvironmentID,
		Name:               r.Name,
		Kind:               r.Kind,
		InitialBalance:     r.InitialBalance,
		PercentOfBenchmark: r.PercentOfBenchmark,
		CreatedAt:          parseRowDate(r.CreatedAt),
	}
}

func (c *Client) ListAccounts(ctx context.Context, userID, environmentID string) ([]domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListAccounts")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var accounts []domain.Account
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("accounts?user_id=eq.%s&order=created_at.asc", userID)
		if environmentID != "" {
			path = fmt.Sprintf("accounts?environment_id=eq.%s&order=created_at.asc", environmentID)
		}
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			accounts = []domain.Account{}
			return nil
		}
		var rows []accountRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode accounts: %w", err)
		}
		accounts = make([]domain.Account, 0, len(rows))
		for _, r := range rows {
			accounts = append(accounts, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/accounts", err)
	}
	return accounts, nil
}

func (c *Client) GetAccount(ctx context.Context, userID, accountID string) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	var account *domain.Account
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("accounts?id=eq.%s&user_id=eq.%s&limit=1", accountID, userID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "account", ID: accountID}
		}
		var rows []accountRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode account: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "account", ID: accountID}
		}
		a := rows[0].toDomain()
		account = &a
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/accounts", err)
	}
	return account, nil
}

func (c *Client) CreateAccount(ctx context.Context, acc *domain.Account) (*domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateAccount")
	defer span.End()

	row := accountRow{
		ID:                 acc.ID,
		UserID:             acc.UserID,
		EnvironmentID:      acc.EnvironmentID,
		Name:               acc.Name,
		Kind:               acc.Kind,
		InitialBalance:     acc.InitialBalance,
		PercentOfBenchmark: acc.PercentOfBenchmark,
	}

	var created *domain.Account
	err := c.execute(ctx, func() error {
		body, err := c.doPost(ctx, "accounts", row)
		if err != nil {
			return err
		}
		var rows []accountRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode inserted account: %w", err)
		}
		if len(rows) == 0 {
			return fmt.Errorf("insert returned no rows")
		}
		a := rows[0].toDomain()
		created = &a
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/accounts", err)
	}
	return created, nil
}

func (c *Client) UpdateAccount(ctx context.Context, accountID string, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateAccount")
	defer span.End()

	err := c.execute(ctx, func() error {
		return c.doPatch(ctx, fmt.Sprintf("accounts?id=eq.%s", accountID), updates)
	})
	if err != nil {
		return wrapStoreErr("supabase/accounts", err)
	}
	return nil
}

func (c *Client) DeleteAccount(ctx context.Context, userID, accountID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteAccount")
	defer span.End()

	err := c.execute(ctx, func() error {
		return c.doDelete(ctx, fmt.Sprintf("accounts?id=eq.%s&user_id=eq.%s", accountID, userID))
	})
	if err != nil {
		return wrapStoreErr("supabase/accounts", err)
	}
	return nil
}
