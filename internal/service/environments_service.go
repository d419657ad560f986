package service

import (
	"context"
	"strings"

	"github.com/grana-finance/grana-go/internal/domain"
	"github.com/grana-finance/grana-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var envTracer = otel.Tracer("service/environments")

// EnvironmentsService manages shared environments and memberships.
type EnvironmentsService struct {
	envs   port.EnvironmentStore
	logger *zap.Logger
}

// NewEnvironmentsService creates a new environments service.
func NewEnvironmentsService(envs port.EnvironmentStore, logger *zap.Logger) *EnvironmentsService {
	return &EnvironmentsService{envs: envs, logger: logger}
}

// CreateEnvironment creates an environment and enrolls the creator as its
// active owner.
func (s *EnvironmentsService) CreateEnvironment(ctx context.Context, userID, userEmail, name string) (*domain.Environment, error) {
	ctx, span := envTracer.Start(ctx, "EnvironmentsService.CreateEnvironment")
	defer span.End()

	if strings.TrimSpace(name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}

	env, err := s.envs.CreateEnvironment(ctx, &domain.Environment{
		ID:      uuid.New().String(),
		Name:    name,
		OwnerID: userID,
	})
	if err != nil {
		s.logger.Error("failed to create environment", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	_, err = s.envs.AddMember(ctx, &domain.EnvironmentMember{
		ID:            uuid.New().String(),
		EnvironmentID: env.ID,
		UserID:        userID,
		Email:         userEmail,
		Role:          domain.RoleOwner,
		Status:        domain.MemberActive,
	})
	if err != nil {
		s.logger.Error("failed to enroll environment owner", zap.String("environment_id", env.ID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("environment created", zap.String("environment_id", env.ID), zap.String("owner_id", userID))
	return env, nil
}

func (s *EnvironmentsService) ListEnvironments(ctx context.Context, userID string) ([]domain.Environment, error) {
	ctx, span := envTracer.Start(ctx, "EnvironmentsService.ListEnvironments")
	defer span.End()

	return s.envs.ListEnvironments(ctx, userID)
}

// GetEnvironment returns an environment with membership enforced: callers
// outside the environment get a forbidden error.
func (s *EnvironmentsService) GetEnvironment(ctx context.Context, userID, environmentID string) (*domain.Environment, []domain.EnvironmentMember, error) {
	ctx, span := envTracer.Start(ctx, "EnvironmentsService.GetEnvironment")
	defer span.End()

	if err := s.requireMembership(ctx, environmentID, userID); err != nil {
		return nil, nil, err
	}

	env, err := s.envs.GetEnvironment(ctx, environmentID)
	if err != nil {
		return nil, nil, err
	}
	members, err := s.envs.ListMembers(ctx, environmentID)
	if err != nil {
		return nil, nil, err
	}
	return env, members, nil
}

// DeleteEnvironment removes an environment. Owner only.
func (s *EnvironmentsService) DeleteEnvironment(ctx context.Context, userID, environmentID string) error {
	ctx, span := envTracer.Start(ctx, "EnvironmentsService.DeleteEnvironment")
	defer span.End()

	env, err := s.envs.GetEnvironment(ctx, environmentID)
	if err != nil {
		return err
	}
	if env.OwnerID != userID {
		return &domain.ErrForbidden{Message: "apenas o dono pode excluir o ambiente"}
	}
	return s.envs.DeleteEnvironment(ctx, environmentID)
}

// InviteMember invites an email into an environment. The invite stays
// pending until the invitee accepts it after logging in. Owner only.
func (s *EnvironmentsService) InviteMember(ctx context.Context, userID, environmentID string, req *domain.InviteMemberRequest) (*domain.EnvironmentMember, error) {
	ctx, span := envTracer.Start(ctx, "EnvironmentsService.InviteMember")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, &domain.ErrValidation{Field: "email", Message: "e-mail inválido"}
	}

	env, err := s.envs.GetEnvironment(ctx, environmentID)
	if err != nil {
		return nil, err
	}
	if env.OwnerID != userID {
		return nil, &domain.ErrForbidden{Message: "apenas o dono pode convidar membros"}
	}

	members, err := s.envs.ListMembers(ctx, environmentID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if strings.EqualFold(m.Email, email) {
			return nil, &domain.ErrConflict{Message: "e-mail já convidado para este ambiente"}
		}
	}

	member, err := s.envs.AddMember(ctx, &domain.EnvironmentMember{
		ID:            uuid.New().String(),
		EnvironmentID: environmentID,
		Email:         email,
		Role:          domain.RoleMember,
		Status:        domain.MemberInvited,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("member invited",
		zap.String("environment_id", environmentID),
		zap.String("member_id", member.ID),
	)
	return member, nil
}

// ListInvites returns the pending invites addressed to an email.
func (s *EnvironmentsService) ListInvites(ctx context.Context, email string) ([]domain.EnvironmentMember, error) {
	ctx, span := envTracer.Start(ctx, "EnvironmentsService.ListInvites")
	defer span.End()

	invites, err := s.envs.FindInviteByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}
	pending := invites[:0]
	for _, inv := range invites {
		if inv.Status == domain.MemberInvited {
			pending = append(pending, inv)
		}
	}
	return pending, nil
}

// AcceptInvite activates a pending invite for the authenticated user. The
// invite must be addressed to the user's email.
func (s *EnvironmentsService) AcceptInvite(ctx context.Context, userID, userEmail, memberID string) error {
	ctx, span := envTracer.Start(ctx, "EnvironmentsService.AcceptInvite")
	defer span.End()

	invites, err := s.envs.FindInviteByEmail(ctx, strings.ToLower(userEmail))
	if err != nil {
		return err
	}
	for _, inv := range invites {
		if inv.ID != memberID {
			continue
		}
		if inv.Status != domain.MemberInvited {
			return &domain.ErrConflict{Message: "convite já aceito"}
		}
		if err := s.envs.ActivateMember(ctx, memberID, userID); err != nil {
			return err
		}
		s.logger.Info("invite accepted",
			zap.String("environment_id", inv.EnvironmentID),
			zap.String("user_id", userID),
		)
		return nil
	}
	return &domain.ErrNotFound{Resource: "invite", ID: memberID}
}

// RemoveMember removes a member from an environment. The owner can remove
// anyone but themselves; a member can only remove their own membership.
func (s *EnvironmentsService) RemoveMember(ctx context.Context, userID, environmentID, memberID string) error {
	ctx, span := envTracer.Start(ctx, "EnvironmentsService.RemoveMember")
	defer span.End()

	env, err := s.envs.GetEnvironment(ctx, environmentID)
	if err != nil {
		return err
	}

	members, err := s.envs.ListMembers(ctx, environmentID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m.ID != memberID {
			continue
		}
		if m.UserID == env.OwnerID {
			return &domain.ErrValidation{Field: "member_id", Message: "o dono não pode ser removido"}
		}
		if userID != env.OwnerID && m.UserID != userID {
			return &domain.ErrForbidden{Message: "sem permissão para remover este membro"}
		}
		return s.envs.RemoveMember(ctx, memberID)
	}
	return &domain.ErrNotFound{Resource: "member", ID: memberID}
}

// requireMembership checks the caller is an active member of the environment.
func (s *EnvironmentsService) requireMembership(ctx context.Context, environmentID, userID string) error {
	member, err := s.envs.GetMembership(ctx, environmentID, userID)
	if err != nil {
		return &domain.ErrForbidden{Message: "sem acesso a este ambiente"}
	}
	if member.Status != domain.MemberActive {
		return &domain.ErrForbidden{Message: "convite ainda não aceito"}
	}
	return nil
}
