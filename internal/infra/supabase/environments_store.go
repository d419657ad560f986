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
// EnvironmentStore (implements port.EnvironmentStore)
// ============================================================

type environmentRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"owner_id"`
	CreatedAt string `json:"created_at,omitempty"`
}

func (r environmentRow) toDomain() domain.Environment {
	return domain.Environment{
		ID:        r.ID,
		Name:      r.Name,
		OwnerID:   r.OwnerID,
		CreatedAt: parseRowDate(r.CreatedAt),
	}
}

type memberRow struct {
	ID            string `json:"id"`
	EnvironmentID string `json:"environment_id"`
	UserID        string `json:"user_id,omitempty"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at,omitempty"`
}

func (r memberRow) toDomain() domain.EnvironmentMember {
	return domain.EnvironmentMember{
		ID:            r.ID,
		EnvironmentID: r.EnvironmentID,
		UserID:        r.UserID,
		Email:         r.Email,
		Role:          r.Role,
		Status:        r.Status,
		CreatedAt:     parseRowDate(r.CreatedAt),
	}
}

func (c *Client) CreateEnvironment(ctx context.Context, env *domain.Environment) (*domain.Environment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateEnvironment")
	defer span.End()

	row := environmentRow{ID: env.ID, Name: env.Name, OwnerID: env.OwnerID}

	var created *domain.Environment
	err := c.execute(ctx, func() error {
		body, err := c.doPost(ctx, "environments", row)
		if err != nil {
			return err
		}
		var rows []environmentRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode inserted environment: %w", err)
		}
		if len(rows) == 0 {
			return fmt.Errorf("insert returned no rows")
		}
		out := rows[0].toDomain()
		created = &out
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/environments", err)
	}
	return created, nil
}

// ListEnvironments returns the environments the user participates in,
// resolved through active memberships.
func (c *Client) ListEnvironments(ctx context.Context, userID string) ([]domain.Environment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListEnvironments")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var envs []domain.Environment
	err := c.execute(ctx, func() error {
		// PostgREST embedded resource: membership rows with their environment.
		path := fmt.Sprintf("environment_members?user_id=eq.%s&status=eq.active&select=environments(*)", userID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			envs = []domain.Environment{}
			return nil
		}
		var rows []struct {
			Environment environmentRow `json:"environments"`
		}
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode environments: %w", err)
		}
		envs = make([]domain.Environment, 0, len(rows))
		for _, r := range rows {
			if r.Environment.ID != "" {
				envs = append(envs, r.Environment.toDomain())
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/environments", err)
	}
	return envs, nil
}

func (c *Client) GetEnvironment(ctx context.Context, environmentID string) (*domain.Environment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetEnvironment")
	defer span.End()

	var env *domain.Environment
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("environments?id=eq.%s&limit=1", environmentID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "environment", ID: environmentID}
		}
		var rows []environmentRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode environment: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "environment", ID: environmentID}
		}
		out := rows[0].toDomain()
		env = &out
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/environments", err)
	}
	return env, nil
}

func (c *Client) DeleteEnvironment(ctx context.Context, environmentID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteEnvironment")
	defer span.End()

	err := c.execute(ctx, func() error {
		if err := c.doDelete(ctx, fmt.Sprintf("environment_members?environment_id=eq.%s", environmentID)); err != nil {
			return err
		}
		return c.doDelete(ctx, fmt.Sprintf("environments?id=eq.%s", environmentID))
	})
	if err != nil {
		return wrapStoreErr("supabase/environments", err)
	}
	return nil
}

func (c *Client) ListMembers(ctx context.Context, environmentID string) ([]domain.EnvironmentMember, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListMembers")
	defer span.End()

	var members []domain.EnvironmentMember
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("environment_members?environment_id=eq.%s&order=created_at.asc", environmentID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			members = []domain.EnvironmentMember{}
			return nil
		}
		var rows []memberRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode members: %w", err)
		}
		members = make([]domain.EnvironmentMember, 0, len(rows))
		for _, r := range rows {
			members = append(members, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/environment_members", err)
	}
	return members, nil
}

func (c *Client) GetMembership(ctx context.Context, environmentID, userID string) (*domain.EnvironmentMember, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetMembership")
	defer span.End()

	var member *domain.EnvironmentMember
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("environment_members?environment_id=eq.%s&user_id=eq.%s&limit=1", environmentID, userID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "membership", ID: userID}
		}
		var rows []memberRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode membership: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "membership", ID: userID}
		}
		out := rows[0].toDomain()
		member = &out
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/environment_members", err)
	}
	return member, nil
}

func (c *Client) AddMember(ctx context.Context, member *domain.EnvironmentMember) (*domain.EnvironmentMember, error) {
	ctx, span := tracer.Start(ctx, "Supabase.AddMember")
	defer span.End()

	row := memberRow{
		ID:            member.ID,
		EnvironmentID: member.EnvironmentID,
		UserID:        member.UserID,
		Email:         member.Email,
		Role:          member.Role,
		Status:        member.Status,
	}

	var created *domain.EnvironmentMember
	err := c.execute(ctx, func() error {
		body, err := c.doPost(ctx, "environment_members", row)
		if err != nil {
			return err
		}
		var rows []memberRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode inserted member: %w", err)
		}
		if len(rows) == 0 {
			return fmt.Errorf("insert returned no rows")
		}
		out := rows[0].toDomain()
		created = &out
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/environment_members", err)
	}
	return created, nil
}

// ActivateMember attaches the accepting user to the invite row and marks
// it active. Membership lookups filter on user_id, so the binding is what
// makes the environment visible to the new member.
func (c *Client) ActivateMember(ctx context.Context, memberID, userID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.ActivateMember")
	defer span.End()

	err := c.execute(ctx, func() error {
		return c.doPatch(ctx, fmt.Sprintf("environment_members?id=eq.%s", memberID), map[string]any{
			"user_id": userID,
			"status":  domain.MemberActive,
		})
	})
	if err != nil {
		return wrapStoreErr("supabase/environment_members", err)
	}
	return nil
}

func (c *Client) RemoveMember(ctx context.Context, memberID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RemoveMember")
	defer span.End()

	err := c.execute(ctx, func() error {
		return c.doDelete(ctx, fmt.Sprintf("environment_members?id=eq.%s", memberID))
	})
	if err != nil {
		return wrapStoreErr("supabase/environment_members", err)
	}
	return nil
}

func (c *Client) FindInviteByEmail(ctx context.Context, email string) ([]domain.EnvironmentMember, error) {
	ctx, span := tracer.Start(ctx, "Supabase.FindInviteByEmail")
	defer span.End()

	var invites []domain.EnvironmentMember
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("environment_members?email=eq.%s&order=created_at.desc", email)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			invites = []domain.EnvironmentMember{}
			return nil
		}
		var rows []memberRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode invites: %w", err)
		}
		invites = make([]domain.EnvironmentMember, 0, len(rows))
		for _, r := range rows {
			invites = append(invites, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/environment_members", err)
	}
	return invites, nil
}
