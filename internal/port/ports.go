// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/grana-finance/grana-go/internal/domain"
)

// LedgerStore persists transactions and categories.
type LedgerStore interface {
	InsertTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)
	InsertTransactions(ctx context.Context, txs []domain.Transaction) ([]domain.Transaction, error)
	ListTransactions(ctx context.Context, userID string, filter *domain.TransactionFilter) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, userID, txID string) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, txID string, updates map[string]any) error
	DeleteTransaction(ctx context.Context, txID string) error

	// Card line items are card-tagged expense transactions.
	ListCardTransactions(ctx context.Context, cardID string) ([]domain.Transaction, error)
	ListPurchaseGroup(ctx context.Context, cardID, purchaseGroupID string) ([]domain.Transaction, error)
	MarkTransactionsPaid(ctx context.Context, txIDs []string, paymentDate time.Time, accountID string) error

	ListCategories(ctx context.Context, userID, environmentID string) ([]domain.Category, error)
	CreateCategory(ctx context.Context, cat *domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, userID, categoryID string) error
}

// AccountStore persists accounts.
type AccountStore interface {
	ListAccounts(ctx context.Context, userID, environmentID string) ([]domain.Account, error)
	GetAccount(ctx context.Context, userID, accountID string) (*domain.Account, error)
	CreateAccount(ctx context.Context, acc *domain.Account) (*domain.Account, error)
	UpdateAccount(ctx context.Context, accountID string, updates map[string]any) error
	DeleteAccount(ctx context.Context, userID, accountID string) error
}

// CardStore persists card configurations and aggregate payment records.
type CardStore interface {
	ListCards(ctx context.Context, userID, environmentID string) ([]domain.CreditCard, error)
	GetCard(ctx context.Context, userID, cardID string) (*domain.CreditCard, error)
	CreateCard(ctx context.Context, card *domain.CreditCard) (*domain.CreditCard, error)
	UpdateCard(ctx context.Context, cardID string, updates map[string]any) error
	DeleteCard(ctx context.Context, userID, cardID string) error

	GetAggregatePayment(ctx context.Context, cardID, cycleKey string) (*domain.AggregatePayment, error)
	UpsertAggregatePayment(ctx context.Context, payment *domain.AggregatePayment) error
	DeleteAggregatePayment(ctx context.Context, cardID, cycleKey string) error
}

// EnvironmentStore persists shared environments and their memberships.
type EnvironmentStore interface {
	CreateEnvironment(ctx context.Context, env *domain.Environment) (*domain.Environment, error)
	ListEnvironments(ctx context.Context, userID string) ([]domain.Environment, error)
	GetEnvironment(ctx context.Context, environmentID string) (*domain.Environment, error)
	DeleteEnvironment(ctx context.Context, environmentID string) error

	ListMembers(ctx context.Context, environmentID string) ([]domain.EnvironmentMember, error)
	GetMembership(ctx context.Context, environmentID, userID string) (*domain.EnvironmentMember, error)
	AddMember(ctx context.Context, member *domain.EnvironmentMember) (*domain.EnvironmentMember, error)
	// ActivateMember binds the accepting user to a pending invite row and
	// marks it active; invites are created by email with no user yet.
	ActivateMember(ctx context.Context, memberID, userID string) error
	RemoveMember(ctx context.Context, memberID string) error
	FindInviteByEmail(ctx context.Context, email string) ([]domain.EnvironmentMember, error)
}

// AuthStore persists users, credentials and refresh tokens.
type AuthStore interface {
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User, passwordHash string) (*domain.User, error)
	GetCredentials(ctx context.Context, userID string) (*domain.AuthCredential, error)

	StoreRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*domain.AuthRefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

// RateSource supplies the benchmark interest rate, either as the current
// annual percentage or as a per-day historical table keyed by
// fincalc.DateKey dates.
type RateSource interface {
	CurrentAnnualPercent(ctx context.Context) (float64, error)
	DailyHistory(ctx context.Context, from, to time.Time) (map[string]float64, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
