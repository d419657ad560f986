package service_test

import (
	"context"
	"time"

	"github.com/grana-finance/grana-go/internal/domain"
)

// --- Mocks ---

type mockLedgerStore struct {
	txs        []domain.Transaction
	categories []domain.Category
	err        error

	inserted  []domain.Transaction
	updated   map[string]map[string]any
	deleted   []string
	paidIDs   []string
	paidDate  time.Time
	paidAccID string
}

func (m *mockLedgerStore) InsertTransaction(_ context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.inserted = append(m.inserted, *tx)
	return tx, nil
}

func (m *mockLedgerStore) InsertTransactions(_ context.Context, txs []domain.Transaction) ([]domain.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.inserted = append(m.inserted, txs...)
	return txs, nil
}

func (m *mockLedgerStore) ListTransactions(_ context.Context, _ string, _ *domain.TransactionFilter) ([]domain.Transaction, error) {
	return m.txs, m.err
}

func (m *mockLedgerStore) GetTransaction(_ context.Context, _, txID string) (*domain.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.txs {
		if m.txs[i].ID == txID {
			return &m.txs[i], nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "transaction", ID: txID}
}

func (m *mockLedgerStore) UpdateTransaction(_ context.Context, txID string, updates map[string]any) error {
	if m.updated == nil {
		m.updated = make(map[string]map[string]any)
	}
	m.updated[txID] = updates
	return m.err
}

func (m *mockLedgerStore) DeleteTransaction(_ context.Context, txID string) error {
	m.deleted = append(m.deleted, txID)
	return m.err
}

func (m *mockLedgerStore) ListCardTransactions(_ context.Context, cardID string) ([]domain.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.Transaction{}
	for _, tx := range m.txs {
		if tx.CardID == cardID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *mockLedgerStore) ListPurchaseGroup(_ context.Context, cardID, groupID string) ([]domain.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.Transaction{}
	for _, tx := range m.txs {
		if tx.CardID == cardID && tx.PurchaseGroupID == groupID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *mockLedgerStore) MarkTransactionsPaid(_ context.Context, txIDs []string, paymentDate time.Time, accountID string) error {
	m.paidIDs = append(m.paidIDs, txIDs...)
	m.paidDate = paymentDate
	m.paidAccID = accountID
	return m.err
}

func (m *mockLedgerStore) ListCategories(_ context.Context, _, _ string) ([]domain.Category, error) {
	return m.categories, m.err
}

func (m *mockLedgerStore) CreateCategory(_ context.Context, cat *domain.Category) (*domain.Category, error) {
	return cat, m.err
}

func (m *mockLedgerStore) DeleteCategory(_ context.Context, _, _ string) error {
	return m.err
}

type mockAccountStore struct {
	accounts []domain.Account
	err      error
}

func (m *mockAccountStore) ListAccounts(_ context.Context, _, _ string) ([]domain.Account, error) {
	return m.accounts, m.err
}

func (m *mockAccountStore) GetAccount(_ context.Context, _, accountID string) (*domain.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.accounts {
		if m.accounts[i].ID == accountID {
			return &m.accounts[i], nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "account", ID: accountID}
}

func (m *mockAccountStore) CreateAccount(_ context.Context, acc *domain.Account) (*domain.Account, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.accounts = append(m.accounts, *acc)
	return acc, nil
}

func (m *mockAccountStore) UpdateAccount(_ context.Context, _ string, _ map[string]any) error {
	return m.err
}

func (m *mockAccountStore) DeleteAccount(_ context.Context, _, _ string) error {
	return m.err
}

type mockCardStore struct {
	cards []domain.CreditCard
	err   error

	upserted *domain.AggregatePayment
	deleted  []string
}

func (m *mockCardStore) ListCards(_ context.Context, _, _ string) ([]domain.CreditCard, error) {
	return m.cards, m.err
}

func (m *mockCardStore) GetCard(_ context.Context, _, cardID string) (*domain.CreditCard, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.cards {
		if m.cards[i].ID == cardID {
			return &m.cards[i], nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "card", ID: cardID}
}

func (m *mockCardStore) CreateCard(_ context.Context, card *domain.CreditCard) (*domain.CreditCard, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.cards = append(m.cards, *card)
	return card, nil
}

func (m *mockCardStore) UpdateCard(_ context.Context, _ string, _ map[string]any) error {
	return m.err
}

func (m *mockCardStore) DeleteCard(_ context.Context, _, _ string) error {
	return m.err
}

func (m *mockCardStore) GetAggregatePayment(_ context.Context, _, _ string) (*domain.AggregatePayment, error) {
	return m.upserted, m.err
}

func (m *mockCardStore) UpsertAggregatePayment(_ context.Context, payment *domain.AggregatePayment) error {
	m.upserted = payment
	return m.err
}

func (m *mockCardStore) DeleteAggregatePayment(_ context.Context, cardID, cycleKey string) error {
	m.deleted = append(m.deleted, cardID+"/"+cycleKey)
	return m.err
}

type mockRateSource struct {
	annual  float64
	history map[string]float64
	err     error
}

func (m *mockRateSource) CurrentAnnualPercent(_ context.Context) (float64, error) {
	return m.annual, m.err
}

func (m *mockRateSource) DailyHistory(_ context.Context, _, _ time.Time) (map[string]float64, error) {
	return m.history, m.err
}
