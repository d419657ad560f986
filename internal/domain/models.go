// Package domain holds the core entities of the finance tracker and the
// request/response types exposed by the HTTP API.
package domain

import "time"

// ============================================================
// Users
// ============================================================

// User is an application user. Credentials live in the auth store.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// ============================================================
// Accounts
// ============================================================

// Account kinds.
const (
	AccountCorrente     = "corrente"
	AccountPoupanca     = "poupanca"
	AccountInvestimento = "investimento"
)

// Account is a money account owned by a user, optionally shared through
// an environment. Investment accounts carry the percentage of the
// benchmark rate they yield (e.g. 102 for 102% of CDI).
type Account struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	EnvironmentID      string    `json:"environment_id,omitempty"`
	Name               string    `json:"name"`
	Kind               string    `json:"kind"`
	InitialBalance     float64   `json:"initial_balance"`
	PercentOfBenchmark float64   `json:"percent_of_benchmark,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// AccountBalance pairs an account with its computed balance.
type AccountBalance struct {
	Account Account `json:"account"`
	Balance float64 `json:"balance"`
}

// ============================================================
// Categories
// ============================================================

// Category tags with engine-level meaning. Transactions tagged with these
// feed the investment growth computation.
const (
	CategoryInvestmentDeposit    = "aporte_investimento"
	CategoryInvestmentWithdrawal = "resgate_investimento"
)

// Category labels a transaction for reporting.
type Category struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	EnvironmentID string    `json:"environment_id,omitempty"`
	Name          string    `json:"name"`
	Tag           string    `json:"tag,omitempty"`
	Kind          string    `json:"kind"` // receita, despesa
	Color         string    `json:"color,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ============================================================
// Transactions
// ============================================================

// Transaction types.
const (
	TxReceita       = "receita"
	TxDespesa       = "despesa"
	TxTransferencia = "transferencia"
)

// Transaction is one ledger entry: income, expense or transfer. Amounts
// are always stored positive; direction comes from Type and the account
// reference fields. Card expenses carry the card and installment fields.
type Transaction struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	EnvironmentID string    `json:"environment_id,omitempty"`
	Type          string    `json:"type"`
	Amount        float64   `json:"valor"`
	Date          time.Time `json:"data"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"categoria,omitempty"`
	CategoryTag   string    `json:"categoria_tag,omitempty"`
	AccountID     string    `json:"conta,omitempty"`
	FromAccountID string    `json:"conta_origem,omitempty"`
	ToAccountID   string    `json:"conta_destino,omitempty"`

	// Card expense fields
	CardID          string `json:"cartao_id,omitempty"`
	Paid            bool   `json:"paid,omitempty"`
	InstallmentNum  int    `json:"parcela_numero,omitempty"`
	Installments    int    `json:"parcelas,omitempty"`
	PurchaseGroupID string `json:"purchase_group_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TransactionFilter narrows ledger listings.
type TransactionFilter struct {
	EnvironmentID string
	AccountID     string
	CardID        string
	Category      string
	Type          string
	From          time.Time
	To            time.Time
	Page          int
	PageSize      int
}

// CreateTransactionRequest is the payload to record a new ledger entry.
type CreateTransactionRequest struct {
	Type          string  `json:"type"`
	Amount        float64 `json:"valor"`
	Date          string  `json:"data"`
	Description   string  `json:"description,omitempty"`
	Category      string  `json:"categoria,omitempty"`
	CategoryTag   string  `json:"categoria_tag,omitempty"`
	AccountID     string  `json:"conta,omitempty"`
	FromAccountID string  `json:"conta_origem,omitempty"`
	ToAccountID   string  `json:"conta_destino,omitempty"`
	EnvironmentID string  `json:"environment_id,omitempty"`

	CardID       string `json:"cartao_id,omitempty"`
	Installments int    `json:"parcelas,omitempty"`
}

// MonthlySummary aggregates a month's income and expenses.
type MonthlySummary struct {
	Month    string  `json:"month"` // "2024-03"
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Balance  float64 `json:"balance"`
}

// ============================================================
// Environments (shared multi-user groups)
// ============================================================

// Member roles and statuses.
const (
	RoleOwner  = "owner"
	RoleMember = "member"

	MemberInvited = "invited"
	MemberActive  = "active"
)

// Environment is a shared space where members see each other's accounts,
// cards and transactions.
type Environment struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// EnvironmentMember links a user (or a pending email invite) to an
// environment.
type EnvironmentMember struct {
	ID            string    `json:"id"`
	EnvironmentID string    `json:"environment_id"`
	UserID        string    `json:"user_id,omitempty"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// InviteMemberRequest invites an email address into an environment.
type InviteMemberRequest struct {
	Email string `json:"email"`
}

// ============================================================
// Auth
// ============================================================

// RegisterRequest creates a new user with credentials.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest authenticates by email and password.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token pair.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	UserID       string `json:"user_id"`
	UserName     string `json:"user_name"`
}

// RefreshRequest exchanges a refresh token for a new pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthCredential is a stored credential row.
type AuthCredential struct {
	UserID       string `json:"user_id"`
	PasswordHash string `json:"password_hash"`
}

// AuthRefreshToken is a stored (hashed) refresh token.
type AuthRefreshToken struct {
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
}
