package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/grana-finance/grana-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// LedgerStore — transactions + categories (implements port.LedgerStore)
// ============================================================

// txRow maps the transactions table columns.
type txRow struct {
	ID              string  `json:"id"`
	UserID          string  `json:"user_id"`
	EnvironmentID   string  `json:"environment_id,omitempty"`
	Type            string  `json:"type"`
	Amount          float64 `json:"valor"`
	Date            string  `json:"data"`
	Description     string  `json:"description,omitempty"`
	Category        string  `json:"categoria,omitempty"`
	CategoryTag     string  `json:"categoria_tag,omitempty"`
	AccountID       string  `json:"conta,omitempty"`
	FromAccountID   string  `json:"conta_origem,omitempty"`
	ToAccountID     string  `json:"conta_destino,omitempty"`
	CardID          string  `json:"cartao_id,omitempty"`
	Paid            bool    `json:"paid"`
	InstallmentNum  int     `json:"parcela_numero,omitempty"`
	Installments    int     `json:"parcelas,omitempty"`
	PurchaseGroupID string  `json:"purchase_group_id,omitempty"`
	CreatedAt       string  `json:"created_at,omitempty"`
}

func toTxRow(tx *domain.Transaction) txRow {
	return txRow{
		ID:              tx.ID,
		UserID:          tx.UserID,
		EnvironmentID:   tx.EnvironmentID,
		Type:            tx.Type,
		Amount:          tx.Amount,
		Date:            tx.Date.Format("2006-01-02"),
		Description:     tx.Description,
		Category:        tx.Category,
		CategoryTag:     tx.CategoryTag,
		AccountID:       tx.AccountID,
		FromAccountID:   tx.FromAccountID,
		ToAccountID:     tx.ToAccountID,
		CardID:          tx.CardID,
		Paid:            tx.Paid,
		InstallmentNum:  tx.InstallmentNum,
		Installments:    tx.Installments,
		PurchaseGroupID: tx.PurchaseGroupID,
	}
}

func (r txRow) toDomain() domain.Transaction {
	return domain.Transaction{
		ID:              r.ID,
		UserID:          r.UserID,
		EnvironmentID:   r.EnvironmentID,
		Type:            r.Type,
		Amount:          r.Amount,
		Date:            parseRowDate(r.Date),
		Description:     r.Description,
		Category:        r.Category,
		CategoryTag:     r.CategoryTag,
		AccountID:       r.AccountID,
		FromAccountID:   r.FromAccountID,
		ToAccountID:     r.ToAccountID,
		CardID:          r.CardID,
		Paid:            r.Paid,
		InstallmentNum:  r.InstallmentNum,
		Installments:    r.Installments,
		PurchaseGroupID: r.PurchaseGroupID,
		CreatedAt:       parseRowDate(r.CreatedAt),
	}
}

func parseRowDate(value string) time.Time {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02", value)
	return t
}

// wrapStoreErr keeps domain errors intact and wraps everything else as an
// external service failure.
func wrapStoreErr(service string, err error) error {
	var nf *domain.ErrNotFound
	if errors.As(err, &nf) {
		return nf
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &domain.ErrExternalService{Service: service, Err: err}
}

func (c *Client) InsertTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertTransaction")
	defer span.End()

	var created *domain.Transaction
	err := c.execute(ctx, func() error {
		body, err := c.doPost(ctx, "transactions", toTxRow(tx))
		if err != nil {
			return err
		}
		var rows []txRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode inserted transaction: %w", err)
		}
		if len(rows) == 0 {
			return fmt.Errorf("insert returned no rows")
		}
		t := rows[0].toDomain()
		created = &t
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/transactions", err)
	}
	return created, nil
}

func (c *Client) InsertTransactions(ctx context.Context, txs []domain.Transaction) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertTransactions")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(txs)))

	rows := make([]txRow, 0, len(txs))
	for i := range txs {
		rows = append(rows, toTxRow(&txs[i]))
	}

	var created []domain.Transaction
	err := c.execute(ctx, func() error {
		body, err := c.doPost(ctx, "transactions", rows)
		if err != nil {
			return err
		}
		var out []txRow
		if err := json.Unmarshal(body, &out); err != nil {
			return fmt.Errorf("failed to decode inserted transactions: %w", err)
		}
		created = make([]domain.Transaction, 0, len(out))
		for _, r := range out {
			created = append(created, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/transactions", err)
	}
	return created, nil
}

func (c *Client) ListTransactions(ctx context.Context, userID string, filter *domain.TransactionFilter) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	path := buildTxQuery(userID, filter)

	var txs []domain.Transaction
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			txs = []domain.Transaction{}
			return nil
		}
		var rows []txRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode transactions: %w", err)
		}
		txs = make([]domain.Transaction, 0, len(rows))
		for _, r := range rows {
			txs = append(txs, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/transactions", err)
	}
	return txs, nil
}

// buildTxQuery translates a filter into PostgREST query parameters.
// Environment-scoped listings see every member's entries; personal
// listings are keyed by user.
func buildTxQuery(userID string, filter *domain.TransactionFilter) string {
	var sb strings.Builder
	sb.WriteString("transactions?")

	if filter != nil && filter.EnvironmentID != "" {
		fmt.Fprintf(&sb, "environment_id=eq.%s", filter.EnvironmentID)
	} else {
		fmt.Fprintf(&sb, "user_id=eq.%s", userID)
	}

	if filter != nil {
		if filter.AccountID != "" {
			fmt.Fprintf(&sb, "&or=(conta.eq.%s,conta_origem.eq.%s,conta_destino.eq.%s)",
				filter.AccountID, filter.AccountID, filter.AccountID)
		}
		if filter.CardID != "" {
			fmt.Fprintf(&sb, "&cartao_id=eq.%s", filter.CardID)
		}
		if filter.Category != "" {
			fmt.Fprintf(&sb, "&categoria=eq.%s", filter.Category)
		}
		if filter.Type != "" {
			fmt.Fprintf(&sb, "&type=eq.%s", filter.Type)
		}
		if !filter.From.IsZero() {
			fmt.Fprintf(&sb, "&data=gte.%s", filter.From.Format("2006-01-02"))
		}
		if !filter.To.IsZero() {
			fmt.Fprintf(&sb, "&data=lte.%s", filter.To.Format("2006-01-02"))
		}
		if filter.PageSize > 0 {
			page := filter.Page
			if page < 1 {
				page = 1
			}
			fmt.Fprintf(&sb, "&limit=%d&offset=%d", filter.PageSize, (page-1)*filter.PageSize)
		}
	}

	sb.WriteString("&order=data.desc")
	return sb.String()
}

func (c *Client) GetTransaction(ctx context.Context, userID, txID string) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTransaction")
	defer span.End()

	var tx *domain.Transaction
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("transactions?id=eq.%s&user_id=eq.%s&limit=1", txID, userID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "transaction", ID: txID}
		}
		var rows []txRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode transaction: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "transaction", ID: txID}
		}
		t := rows[0].toDomain()
		tx = &t
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/transactions", err)
	}
	return tx, nil
}

func (c *Client) UpdateTransaction(ctx context.Context, txID string, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateTransaction")
	defer span.End()

	err := c.execute(ctx, func() error {
		return c.doPatch(ctx, fmt.Sprintf("transactions?id=eq.%s", txID), updates)
	})
	if err != nil {
		return wrapStoreErr("supabase/transactions", err)
	}
	return nil
}

func (c *Client) DeleteTransaction(ctx context.Context, txID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteTransaction")
	defer span.End()

	err := c.execute(ctx, func() error {
		return c.doDelete(ctx, fmt.Sprintf("transactions?id=eq.%s", txID))
	})
	if err != nil {
		return wrapStoreErr("supabase/transactions", err)
	}
	return nil
}

func (c *Client) ListCardTransactions(ctx context.Context, cardID string) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCardTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("card.id", cardID))

	var txs []domain.Transaction
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("transactions?cartao_id=eq.%s&order=data.asc", cardID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			txs = []domain.Transaction{}
			return nil
		}
		var rows []txRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode card transactions: %w", err)
		}
		txs = make([]domain.Transaction, 0, len(rows))
		for _, r := range rows {
			txs = append(txs, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/transactions", err)
	}
	return txs, nil
}

func (c *Client) ListPurchaseGroup(ctx context.Context, cardID, purchaseGroupID string) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListPurchaseGroup")
	defer span.End()

	var txs []domain.Transaction
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("transactions?cartao_id=eq.%s&purchase_group_id=eq.%s&order=parcela_numero.asc",
			cardID, purchaseGroupID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			txs = []domain.Transaction{}
			return nil
		}
		var rows []txRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode purchase group: %w", err)
		}
		txs = make([]domain.Transaction, 0, len(rows))
		for _, r := range rows {
			txs = append(txs, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/transactions", err)
	}
	return txs, nil
}

func (c *Client) MarkTransactionsPaid(ctx context.Context, txIDs []string, paymentDate time.Time, accountID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.MarkTransactionsPaid")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(txIDs)))

	updates := map[string]any{
		"paid":         true,
		"payment_date": paymentDate.Format("2006-01-02"),
	}
	if accountID != "" {
		updates["payment_account"] = accountID
	}

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("transactions?id=in.(%s)", strings.Join(txIDs, ","))
		return c.doPatch(ctx, path, updates)
	})
	if err != nil {
		return wrapStoreErr("supabase/transactions", err)
	}
	return nil
}

// ============================================================
// Categories
// ============================================================

type categoryRow struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	EnvironmentID string `json:"environment_id,omitempty"`
	Name          string `json:"name"`
	Tag           string `json:"tag,omitempty"`
	Kind          string `json:"kind"`
	Color         string `json:"color,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

func (r categoryRow) toDomain() domain.Category {
	return domain.Category{
		ID:            r.ID,
		UserID:        r.UserID,
		EnvironmentID: r.EnvironmentID,
		Name:          r.Name,
		Tag:           r.Tag,
		Kind:          r.Kind,
		Color:         r.Color,
		CreatedAt:     parseRowDate(r.CreatedAt),
	}
}

func (c *Client) ListCategories(ctx context.Context, userID, environmentID string) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCategories")
	defer span.End()

	var cats []domain.Category
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("categories?user_id=eq.%s&order=name.asc", userID)
		if environmentID != "" {
			path = fmt.Sprintf("categories?environment_id=eq.%s&order=name.asc", environmentID)
		}
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			cats = []domain.Category{}
			return nil
		}
		var rows []categoryRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode categories: %w", err)
		}
		cats = make([]domain.Category, 0, len(rows))
		for _, r := range rows {
			cats = append(cats, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/categories", err)
	}
	return cats, nil
}

func (c *Client) CreateCategory(ctx context.Context, cat *domain.Category) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateCategory")
	defer span.End()

	row := categoryRow{
		ID:            cat.ID,
		UserID:        cat.UserID,
		EnvironmentID: cat.EnvironmentID,
		Name:          cat.Name,
		Tag:           cat.Tag,
		Kind:          cat.Kind,
		Color:         cat.Color,
	}

	var created *domain.Category
	err := c.execute(ctx, func() error {
		body, err := c.doPost(ctx, "categories", row)
		if err != nil {
			return err
		}
		var rows []categoryRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode inserted category: %w", err)
		}
		if len(rows) == 0 {
			return fmt.Errorf("insert returned no rows")
		}
		out := rows[0].toDomain()
		created = &out
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/categories", err)
	}
	return created, nil
}

func (c *Client) DeleteCategory(ctx context.Context, userID, categoryID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteCategory")
	defer span.End()

	err := c.execute(ctx, func() error {
		return c.doDelete(ctx, fmt.Sprintf("categories?id=eq.%s&user_id=eq.%s", categoryID, userID))
	})
	if err != nil {
		return wrapStoreErr("supabase/categories", err)
	}
	return nil
}
