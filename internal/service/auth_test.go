package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/grana-finance/grana-go/internal/domain"
	"github.com/grana-finance/grana-go/internal/service"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type mockAuthStore struct {
	users  map[string]*domain.User
	creds  map[string]*domain.AuthCredential
	tokens map[string]*domain.AuthRefreshToken
	err    error

	revokedAll []string
}

func newMockAuthStore() *mockAuthStore {
	return &mockAuthStore{
		users:  map[string]*domain.User{},
		creds:  map[string]*domain.AuthCredential{},
		tokens: map[string]*domain.AuthRefreshToken{},
	}
}

func (m *mockAuthStore) GetUserByID(_ context.Context, userID string) (*domain.User, error) {
	return m.users[userID], m.err
}

func (m *mockAuthStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockAuthStore) CreateUser(_ context.Context, user *domain.User, passwordHash string) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.users[user.ID] = user
	m.creds[user.ID] = &domain.AuthCredential{UserID: user.ID, PasswordHash: passwordHash}
	return user, nil
}

func (m *mockAuthStore) GetCredentials(_ context.Context, userID string) (*domain.AuthCredential, error) {
	return m.creds[userID], m.err
}

func (m *mockAuthStore) StoreRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	m.tokens[tokenHash] = &domain.AuthRefreshToken{UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt}
	return m.err
}

func (m *mockAuthStore) GetRefreshToken(_ context.Context, tokenHash string) (*domain.AuthRefreshToken, error) {
	return m.tokens[tokenHash], m.err
}

func (m *mockAuthStore) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	delete(m.tokens, tokenHash)
	return m.err
}

func (m *mockAuthStore) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	m.revokedAll = append(m.revokedAll, userID)
	for hash, tok := range m.tokens {
		if tok.UserID == userID {
			delete(m.tokens, hash)
		}
	}
	return m.err
}

func newAuth(store *mockAuthStore) *service.AuthService {
	return service.NewAuthService(store, "test-secret", 15*time.Minute, 24*time.Hour, zap.NewNop())
}

func TestRegisterAndLogin_RoundTrip(t *testing.T) {
	store := newMockAuthStore()
	svc := newAuth(store)

	user, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Name: "Ana", Email: "Ana@Example.com", Password: "segredo-forte",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.Email != "ana@example.com" {
		t.Errorf("expected lowercased email, got %s", user.Email)
	}

	resp, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email: "ana@example.com", Password: "segredo-forte",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected a token pair")
	}

	claims, err := svc.ValidateAccessToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("expected valid access token, got %v", err)
	}
	if claims.Sub != user.ID {
		t.Errorf("expected sub %s, got %s", user.ID, claims.Sub)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := newMockAuthStore()
	svc := newAuth(store)

	if _, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Name: "Ana", Email: "ana@example.com", Password: "segredo-forte",
	}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Name: "Outra", Email: "ana@example.com", Password: "segredo-forte",
	})
	if _, ok := err.(*domain.ErrConflict); !ok {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegister_ShortPassword(t *testing.T) {
	svc := newAuth(newMockAuthStore())

	_, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Name: "Ana", Email: "ana@example.com", Password: "curta",
	})
	if _, ok := err.(*domain.ErrValidation); !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	store := newMockAuthStore()
	hash, _ := bcrypt.GenerateFromPassword([]byte("certa-123"), bcrypt.MinCost)
	store.users["u1"] = &domain.User{ID: "u1", Email: "ana@example.com"}
	store.creds["u1"] = &domain.AuthCredential{UserID: "u1", PasswordHash: string(hash)}
	svc := newAuth(store)

	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email: "ana@example.com", Password: "errada-123",
	})
	if _, ok := err.(*domain.ErrUnauthorized); !ok {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	store := newMockAuthStore()
	svc := newAuth(store)

	if _, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Name: "Ana", Email: "ana@example.com", Password: "segredo-forte",
	}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	login, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email: "ana@example.com", Password: "segredo-forte",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("expected a rotated refresh token")
	}

	// The old token is single-use.
	if _, err := svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: login.RefreshToken}); err == nil {
		t.Fatal("expected reused token to be rejected")
	}
}

func TestLogout_RevokesAllTokens(t *testing.T) {
	store := newMockAuthStore()
	svc := newAuth(store)

	if err := svc.Logout(context.Background(), "u1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(store.revokedAll) != 1 || store.revokedAll[0] != "u1" {
		t.Errorf("expected revoke-all for u1, got %v", store.revokedAll)
	}
}
