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
// CardStore — card configs + aggregate payments (implements port.CardStore)
// ============================================================

type cardRow struct {
	ID            string  `json:"id"`
	UserID        string  `json:"user_id"`
	EnvironmentID string  `json:"environment_id,omitempty"`
	Name          string  `json:"name"`
	LastFour      string  `json:"last_four,omitempty"`
	ClosingDay    int     `json:"closing_day"`
	DueDay        int     `json:"due_day"`
	CreditLimit   float64 `json:"credit_limit"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

func (r cardRow) toDomain() domain.CreditCard {
	return domain.CreditCard{
		ID:            r.ID,
		UserID:        r.UserID,
		EnvironmentID: r.EnvironmentID,
		Name:          r.Name,
		LastFour:      r.LastFour,
		ClosingDay:    r.ClosingDay,
		DueDay:        r.DueDay,
		CreditLimit:   r.CreditLimit,
		CreatedAt:     parseRowDate(r.CreatedAt),
	}
}

func (c *Client) ListCards(ctx context.Context, userID, environmentID string) ([]domain.CreditCard, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCards")
	defer span.End()

	var cards []domain.CreditCard
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("cards?user_id=eq.%s&order=created_at.asc", userID)
		if environmentID != "" {
			path = fmt.Sprintf("cards?environment_id=eq.%s&order=created_at.asc", environmentID)
		}
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			cards = []domain.CreditCard{}
			return nil
		}
		var rows []cardRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode cards: %w", err)
		}
		cards = make([]domain.CreditCard, 0, len(rows))
		for _, r := range rows {
			cards = append(cards, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/cards", err)
	}
	return cards, nil
}

func (c *Client) GetCard(ctx context.Context, userID, cardID string) (*domain.CreditCard, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCard")
	defer span.End()
	span.SetAttributes(attribute.String("card.id", cardID))

	var card *domain.CreditCard
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("cards?id=eq.%s&user_id=eq.%s&limit=1", cardID, userID)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "card", ID: cardID}
		}
		var rows []cardRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode card: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "card", ID: cardID}
		}
		out := rows[0].toDomain()
		card = &out
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/cards", err)
	}
	return card, nil
}

func (c *Client) CreateCard(ctx context.Context, card *domain.CreditCard) (*domain.CreditCard, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateCard")
	defer span.End()

	row := cardRow{
		ID:            card.ID,
		UserID:        card.UserID,
		EnvironmentID: card.EnvironmentID,
		Name:          card.Name,
		LastFour:      card.LastFour,
		ClosingDay:    card.ClosingDay,
		DueDay:        card.DueDay,
		CreditLimit:   card.CreditLimit,
	}

	var created *domain.CreditCard
	err := c.execute(ctx, func() error {
		body, err := c.doPost(ctx, "cards", row)
		if err != nil {
			return err
		}
		var rows []cardRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode inserted card: %w", err)
		}
		if len(rows) == 0 {
			return fmt.Errorf("insert returned no rows")
		}
		out := rows[0].toDomain()
		created = &out
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/cards", err)
	}
	return created, nil
}

func (c *Client) UpdateCard(ctx context.Context, cardID string, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateCard")
	defer span.End()

	err := c.execute(ctx, func() error {
		return c.doPatch(ctx, fmt.Sprintf("cards?id=eq.%s", cardID), updates)
	})
	if err != nil {
		return wrapStoreErr("supabase/cards", err)
	}
	return nil
}

func (c *Client) DeleteCard(ctx context.Context, userID, cardID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteCard")
	defer span.End()

	err := c.execute(ctx, func() error {
		return c.doDelete(ctx, fmt.Sprintf("cards?id=eq.%s&user_id=eq.%s", cardID, userID))
	})
	if err != nil {
		return wrapStoreErr("supabase/cards", err)
	}
	return nil
}

// ============================================================
// Aggregate payments — one row per card per closed cycle
// ============================================================

type aggregatePaymentRow struct {
	ID        string  `json:"id"`
	CardID    string  `json:"card_id"`
	CycleKey  string  `json:"cycle_key"`
	Amount    float64 `json:"amount"`
	AccountID string  `json:"account_id,omitempty"`
	PaidAt    string  `json:"paid_at"`
}

func (c *Client) GetAggregatePayment(ctx context.Context, cardID, cycleKey string) (*domain.AggregatePayment, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAggregatePayment")
	defer span.End()

	var payment *domain.AggregatePayment
	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("card_aggregate_payments?card_id=eq.%s&cycle_key=eq.%s&limit=1", cardID, cycleKey)
		body, err := c.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "aggregate payment", ID: cardID + "/" + cycleKey}
		}
		var rows []aggregatePaymentRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode aggregate payment: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "aggregate payment", ID: cardID + "/" + cycleKey}
		}
		r := rows[0]
		payment = &domain.AggregatePayment{
			ID:        r.ID,
			CardID:    r.CardID,
			CycleKey:  r.CycleKey,
			Amount:    r.Amount,
			AccountID: r.AccountID,
			PaidAt:    parseRowDate(r.PaidAt),
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("supabase/card_aggregate_payments", err)
	}
	return payment, nil
}

func (c *Client) UpsertAggregatePayment(ctx context.Context, payment *domain.AggregatePayment) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertAggregatePayment")
	defer span.End()

	row := aggregatePaymentRow{
		ID:        payment.ID,
		CardID:    payment.CardID,
		CycleKey:  payment.CycleKey,
		Amount:    payment.Amount,
		AccountID: payment.AccountID,
		PaidAt:    payment.PaidAt.Format("2006-01-02"),
	}

	err := c.execute(ctx, func() error {
		// merge-duplicates keys on the (card_id, cycle_key) unique index
		_, err := c.doUpsert(ctx, "card_aggregate_payments?on_conflict=card_id,cycle_key", row)
		return err
	})
	if err != nil {
		return wrapStoreErr("supabase/card_aggregate_payments", err)
	}
	return nil
}

func (c *Client) DeleteAggregatePayment(ctx context.Context, cardID, cycleKey string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteAggregatePayment")
	defer span.End()

	err := c.execute(ctx, func() error {
		return c.doDelete(ctx, fmt.Sprintf("card_aggregate_payments?card_id=eq.%s&cycle_key=eq.%s", cardID, cycleKey))
	})
	if err != nil {
		return wrapStoreErr("supabase/card_aggregate_payments", err)
	}
	return nil
}
