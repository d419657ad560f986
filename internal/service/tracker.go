// Package service provides the business logic layer (use cases).
// TrackerService handles the ledger, accounts, credit cards and
// investment growth; AuthService and EnvironmentsService are separate.
package service

import (
	"context"
	"time"

	"github.com/grana-finance/grana-go/internal/domain"
	"github.com/grana-finance/grana-go/internal/infra/observability"
	"github.com/grana-finance/grana-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var trackerTracer = otel.Tracer("service/tracker")

// TrackerService orchestrates ledger, account, card and investment
// operations on top of the persistence ports.
type TrackerService struct {
	ledger   port.LedgerStore
	accounts port.AccountStore
	cards    port.CardStore
	rates    port.RateSource
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewTrackerService creates a new tracker service.
func NewTrackerService(ledger port.LedgerStore, accounts port.AccountStore, cards port.CardStore, rates port.RateSource, metrics *observability.Metrics, logger *zap.Logger) *TrackerService {
	return &TrackerService{
		ledger:   ledger,
		accounts: accounts,
		cards:    cards,
		rates:    rates,
		metrics:  metrics,
		logger:   logger,
	}
}

// ============================================================
// Accounts
// ============================================================

func (s *TrackerService) ListAccounts(ctx context.Context, userID, environmentID string) ([]domain.Account, error) {
	ctx, span := trackerTracer.Start(ctx, "TrackerService.ListAccounts")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	return s.accounts.ListAccounts(ctx, userID, environmentID)
}

func (s *TrackerService) GetAccount(ctx context.Context, userID, accountID string) (*domain.Account, error) {
	ctx, span := trackerTracer.Start(ctx, "TrackerService.GetAccount")
	defer span.End()

	return s.accounts.GetAccount(ctx, userID, accountID)
}

func (s *TrackerService) CreateAccount(ctx context.Context, acc *domain.Account) (*domain.Account, error) {
	ctx, span := trackerTracer.Start(ctx, "TrackerService.CreateAccount")
	defer span.End()

	if acc.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}
	switch acc.Kind {
	case domain.AccountCorrente, domain.AccountPoupanca, domain.AccountInvestimento:
	case "":
		acc.Kind = domain.AccountCorrente
	default:
		return nil, &domain.ErrValidation{Field: "kind", Message: "must be corrente, poupanca or investimento"}
	}
	if acc.Kind == domain.AccountInvestimento && acc.PercentOfBenchmark == 0 {
		acc.PercentOfBenchmark = 100
	}

	created, err := s.accounts.CreateAccount(ctx, acc)
	if err != nil {
		s.logger.Error("failed to create account", zap.String("user_id", acc.UserID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("account created",
		zap.String("user_id", acc.UserID),
		zap.String("account_id", created.ID),
		zap.String("kind", created.Kind),
	)
	return created, nil
}

// UpdateAccount patches mutable account fields after verifying ownership.
func (s *TrackerService) UpdateAccount(ctx context.Context, userID, accountID string, updates map[string]any) error {
	ctx, span := trackerTracer.Start(ctx, "TrackerService.UpdateAccount")
	defer span.End()

	if len(updates) == 0 {
		return &domain.ErrValidation{Field: "body", Message: "nenhum campo para atualizar"}
	}
	allowed := map[string]bool{"name": true, "initial_balance": true, "percent_of_benchmark": true}
	for k := range updates {
		if !allowed[k] {
			return &domain.ErrValidation{Field: k, Message: "campo não editável"}
		}
	}

	if _, err := s.accounts.GetAccount(ctx, userID, accountID); err != nil {
		return err
	}
	return s.accounts.UpdateAccount(ctx, accountID, updates)
}

func (s *TrackerService) DeleteAccount(ctx context.Context, userID, accountID string) error {
	ctx, span := trackerTracer.Start(ctx, "TrackerService.DeleteAccount")
	defer span.End()

	return s.accounts.DeleteAccount(ctx, userID, accountID)
}

// GetBalances computes the current balance of every account from the full
// transaction stream: initial balance + incomes − expenses, transfers
// moving value between origin and destination. Accounts and transactions
// are fetched concurrently.
func (s *TrackerService) GetBalances(ctx context.Context, userID, environmentID string) ([]domain.AccountBalance, error) {
	ctx, span := trackerTracer.Start(ctx, "TrackerService.GetBalances")
	defer span.End()

	var accounts []domain.Account
	var txs []domain.Transaction

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = s.accounts.ListAccounts(gCtx, userID, environmentID)
		return err
	})
	g.Go(func() error {
		var err error
		txs, err = s.ledger.ListTransactions(gCtx, userID, &domain.TransactionFilter{EnvironmentID: environmentID})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	deltas := make(map[string]float64, len(accounts))
	for _, tx := range txs {
		switch tx.Type {
		case domain.TxReceita:
			deltas[tx.AccountID] += tx.Amount
		case domain.TxDespesa:
			// Card expenses hit the account when the invoice is paid, not
			// when the purchase happens.
			if tx.CardID == "" {
				deltas[tx.AccountID] -= tx.Amount
			}
		case domain.TxTransferencia:
			deltas[tx.FromAccountID] -= tx.Amount
			deltas[tx.ToAccountID] += tx.Amount
		}
	}

	balances := make([]domain.AccountBalance, 0, len(accounts))
	for _, acc := range accounts {
		balances = append(balances, domain.AccountBalance{
			Account: acc,
			Balance: acc.InitialBalance + deltas[acc.ID],
		})
	}
	return balances, nil
}

// ============================================================
// Categories
// ============================================================

func (s *TrackerService) ListCategories(ctx context.Context, userID, environmentID string) ([]domain.Category, error) {
	ctx, span := trackerTracer.Start(ctx, "TrackerService.ListCategories")
	defer span.End()

	return s.ledger.ListCategories(ctx, userID, environmentID)
}

func (s *TrackerService) CreateCategory(ctx context.Context, cat *domain.Category) (*domain.Category, error) {
	ctx, span := trackerTracer.Start(ctx, "TrackerService.CreateCategory")
	defer span.End()

	if cat.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}
	if cat.Kind != domain.TxReceita && cat.Kind != domain.TxDespesa {
		return nil, &domain.ErrValidation{Field: "kind", Message: "must be receita or despesa"}
	}
	return s.ledger.CreateCategory(ctx, cat)
}

func (s *TrackerService) DeleteCategory(ctx context.Context, userID, categoryID string) error {
	ctx, span := trackerTracer.Start(ctx, "TrackerService.DeleteCategory")
	defer span.End()

	return s.ledger.DeleteCategory(ctx, userID, categoryID)
}

// parseDate accepts both date-only and RFC3339 inputs from clients.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
