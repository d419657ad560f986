package service_test

import (
	"context"
	"testing"

	"github.com/grana-finance/grana-go/internal/domain"
	"github.com/grana-finance/grana-go/internal/service"

	"go.uber.org/zap"
)

type mockEnvStore struct {
	envs    []domain.Environment
	members []domain.EnvironmentMember
	err     error

	removed []string
}

func (m *mockEnvStore) CreateEnvironment(_ context.Context, env *domain.Environment) (*domain.Environment, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.envs = append(m.envs, *env)
	return env, nil
}

func (m *mockEnvStore) ListEnvironments(_ context.Context, _ string) ([]domain.Environment, error) {
	return m.envs, m.err
}

func (m *mockEnvStore) GetEnvironment(_ context.Context, environmentID string) (*domain.Environment, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.envs {
		if m.envs[i].ID == environmentID {
			return &m.envs[i], nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "environment", ID: environmentID}
}

func (m *mockEnvStore) DeleteEnvironment(_ context.Context, _ string) error {
	return m.err
}

func (m *mockEnvStore) ListMembers(_ context.Context, environmentID string) ([]domain.EnvironmentMember, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.EnvironmentMember{}
	for _, mem := range m.members {
		if mem.EnvironmentID == environmentID {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (m *mockEnvStore) GetMembership(_ context.Context, environmentID, userID string) (*domain.EnvironmentMember, error) {
	for i := range m.members {
		if m.members[i].EnvironmentID == environmentID && m.members[i].UserID == userID {
			return &m.members[i], nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "membership", ID: userID}
}

func (m *mockEnvStore) AddMember(_ context.Context, member *domain.EnvironmentMember) (*domain.EnvironmentMember, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.members = append(m.members, *member)
	return member, nil
}

func (m *mockEnvStore) ActivateMember(_ context.Context, memberID, userID string) error {
	if m.err != nil {
		return m.err
	}
	for i := range m.members {
		if m.members[i].ID == memberID {
			m.members[i].UserID = userID
			m.members[i].Status = domain.MemberActive
		}
	}
	return nil
}

func (m *mockEnvStore) RemoveMember(_ context.Context, memberID string) error {
	m.removed = append(m.removed, memberID)
	return m.err
}

func (m *mockEnvStore) FindInviteByEmail(_ context.Context, email string) ([]domain.EnvironmentMember, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.EnvironmentMember{}
	for _, mem := range m.members {
		if mem.Email == email {
			out = append(out, mem)
		}
	}
	return out, nil
}

func TestCreateEnvironment_EnrollsOwner(t *testing.T) {
	store := &mockEnvStore{}
	svc := service.NewEnvironmentsService(store, zap.NewNop())

	env, err := svc.CreateEnvironment(context.Background(), "u1", "dona@example.com", "Casa")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(store.members) != 1 {
		t.Fatalf("expected owner membership, got %d members", len(store.members))
	}
	owner := store.members[0]
	if owner.EnvironmentID != env.ID || owner.Role != domain.RoleOwner || owner.Status != domain.MemberActive {
		t.Errorf("unexpected owner membership: %+v", owner)
	}
}

func TestInviteMember_OwnerOnly(t *testing.T) {
	store := &mockEnvStore{
		envs: []domain.Environment{{ID: "e1", OwnerID: "u1"}},
	}
	svc := service.NewEnvironmentsService(store, zap.NewNop())

	_, err := svc.InviteMember(context.Background(), "u2", "e1", &domain.InviteMemberRequest{Email: "x@example.com"})
	if _, ok := err.(*domain.ErrForbidden); !ok {
		t.Fatalf("expected forbidden, got %v", err)
	}

	member, err := svc.InviteMember(context.Background(), "u1", "e1", &domain.InviteMemberRequest{Email: "X@Example.com"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if member.Email != "x@example.com" || member.Status != domain.MemberInvited {
		t.Errorf("unexpected invite: %+v", member)
	}
}

func TestInviteMember_DuplicateEmailRejected(t *testing.T) {
	store := &mockEnvStore{
		envs:    []domain.Environment{{ID: "e1", OwnerID: "u1"}},
		members: []domain.EnvironmentMember{{ID: "m1", EnvironmentID: "e1", Email: "x@example.com"}},
	}
	svc := service.NewEnvironmentsService(store, zap.NewNop())

	_, err := svc.InviteMember(context.Background(), "u1", "e1", &domain.InviteMemberRequest{Email: "x@example.com"})
	if _, ok := err.(*domain.ErrConflict); !ok {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAcceptInvite_ActivatesMembership(t *testing.T) {
	store := &mockEnvStore{
		members: []domain.EnvironmentMember{
			{ID: "m1", EnvironmentID: "e1", Email: "x@example.com", Status: domain.MemberInvited},
		},
	}
	svc := service.NewEnvironmentsService(store, zap.NewNop())

	if err := svc.AcceptInvite(context.Background(), "u2", "x@example.com", "m1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if store.members[0].Status != domain.MemberActive {
		t.Errorf("expected m1 active, got %s", store.members[0].Status)
	}
	if store.members[0].UserID != "u2" {
		t.Errorf("expected m1 bound to u2, got %q", store.members[0].UserID)
	}
}

// Accepting an invite must grant real access: membership rows are created
// by email with no user attached, so activation has to bind the accepting
// user before environment lookups (which filter by user) can see them.
func TestAcceptInvite_GrantsEnvironmentAccess(t *testing.T) {
	store := &mockEnvStore{
		envs: []domain.Environment{{ID: "e1", Name: "Casa", OwnerID: "u1"}},
		members: []domain.EnvironmentMember{
			{ID: "m0", EnvironmentID: "e1", UserID: "u1", Email: "dona@example.com", Role: domain.RoleOwner, Status: domain.MemberActive},
			{ID: "m1", EnvironmentID: "e1", Email: "x@example.com", Role: domain.RoleMember, Status: domain.MemberInvited},
		},
	}
	svc := service.NewEnvironmentsService(store, zap.NewNop())

	if _, _, err := svc.GetEnvironment(context.Background(), "u2", "e1"); err == nil {
		t.Fatal("expected forbidden before accepting the invite")
	}

	if err := svc.AcceptInvite(context.Background(), "u2", "x@example.com", "m1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	env, members, err := svc.GetEnvironment(context.Background(), "u2", "e1")
	if err != nil {
		t.Fatalf("expected access after accepting, got %v", err)
	}
	if env.ID != "e1" || len(members) != 2 {
		t.Errorf("unexpected environment view: %+v, %d members", env, len(members))
	}
}

func TestAcceptInvite_WrongEmailRejected(t *testing.T) {
	store := &mockEnvStore{
		members: []domain.EnvironmentMember{
			{ID: "m1", EnvironmentID: "e1", Email: "x@example.com", Status: domain.MemberInvited},
		},
	}
	svc := service.NewEnvironmentsService(store, zap.NewNop())

	err := svc.AcceptInvite(context.Background(), "u2", "intrusa@example.com", "m1")
	if _, ok := err.(*domain.ErrNotFound); !ok {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRemoveMember_OwnerCannotBeRemoved(t *testing.T) {
	store := &mockEnvStore{
		envs: []domain.Environment{{ID: "e1", OwnerID: "u1"}},
		members: []domain.EnvironmentMember{
			{ID: "m1", EnvironmentID: "e1", UserID: "u1", Role: domain.RoleOwner, Status: domain.MemberActive},
		},
	}
	svc := service.NewEnvironmentsService(store, zap.NewNop())

	err := svc.RemoveMember(context.Background(), "u1", "e1", "m1")
	if _, ok := err.(*domain.ErrValidation); !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRemoveMember_MemberCanLeave(t *testing.T) {
	store := &mockEnvStore{
		envs: []domain.Environment{{ID: "e1", OwnerID: "u1"}},
		members: []domain.EnvironmentMember{
			{ID: "m2", EnvironmentID: "e1", UserID: "u2", Role: domain.RoleMember, Status: domain.MemberActive},
		},
	}
	svc := service.NewEnvironmentsService(store, zap.NewNop())

	if err := svc.RemoveMember(context.Background(), "u2", "e1", "m2"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(store.removed) != 1 || store.removed[0] != "m2" {
		t.Errorf("expected m2 removed, got %v", store.removed)
	}
}

func TestGetEnvironment_RequiresActiveMembership(t *testing.T) {
	store := &mockEnvStore{
		envs: []domain.Environment{{ID: "e1", OwnerID: "u1"}},
		members: []domain.EnvironmentMember{
			{ID: "m2", EnvironmentID: "e1", UserID: "u2", Status: domain.MemberInvited},
		},
	}
	svc := service.NewEnvironmentsService(store, zap.NewNop())

	_, _, err := svc.GetEnvironment(context.Background(), "u2", "e1")
	if _, ok := err.(*domain.ErrForbidden); !ok {
		t.Fatalf("expected forbidden for pending invite, got %v", err)
	}
}
