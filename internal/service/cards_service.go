package service

import (
	"context"
	"time"

	"github.com/grana-finance/grana-go/internal/domain"
	"github.com/grana-finance/grana-go/internal/fincalc"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ============================================================
// Credit Cards
// ============================================================

func (s *TrackerService) ListCards(ctx context.Context, userID, environmentID string) ([]domain.CreditCard, error) {
	ctx, span := trackerTracer.Start(ctx, "TrackerService.ListCards")
	defer span.End()

	return s.cards.ListCards(ctx, userID, environmentID)
}

func (s *TrackerService) CreateCard(ctx context.Context, userID string, req *domain.CreateCardRequest) (*domain.CreditCard, error) {
	ctx, span := trackerTracer.Start(ctx, "TrackerService.CreateCard")
	defer span.End()

	if req.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}
	if req.ClosingDay < 1 || req.ClosingDay > 31 {
		return nil, &domain.ErrValidation{Field: "closing_day", Message: "must be between 1 and 31"}
	}
	if req.DueDay < 1 || req.DueDay > 31 {
		return nil, &domain.ErrValidation{Field: "due_day", Message: "must be between 1 and 31"}
	}
	if req.CreditLimit < 0 {
		return nil, &domain.ErrValidation{Field: "credit_limit", Message: "must not be negative"}
	}

	card, err := s.cards.CreateCard(ctx, &domain.CreditCard{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        req.Name,
		LastFour:    req.LastFour,
		ClosingDay:  req.ClosingDay,
		DueDay:      req.DueDay,
		CreditLimit: req.CreditLimit,
	})
	if err != nil {
		s.logger.Error("failed to create card", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("card created",
		zap.String("user_id", userID),
		zap.String("card_id", card.ID),
		zap.Int("closing_day", card.ClosingDay),
		zap.Int("due_day", card.DueDay),
	)
	return card, nil
}

// UpdateCard patches card configuration after verifying ownership. Day
// fields are re-validated so a patch cannot break the cycle computation.
func (s *TrackerService) UpdateCard(ctx context.Context, userID, cardID string, updates map[string]any) error {
	ctx, span := trackerTracer.Start(ctx, "TrackerService.UpdateCard")
	defer span.End()

	if len(updates) == 0 {
		return &domain.ErrValidation{Field: "body", Message: "nenhum campo para atualizar"}
	}
	allowed := map[string]bool{"name": true, "last_four": true, "closing_day": true, "due_day": true, "credit_limit": true}
	for k, v := range updates {
		if !allowed[k] {
			return &domain.ErrValidation{Field: k, Message: "campo não editável"}
		}
		if k == "closing_day" || k == "due_day" {
			day, ok := v.(float64)
			if !ok || day < 1 || day > 31 {
				return &domain.ErrValidation{Field: k, Message: "must be between 1 and 31"}
			}
		}
	}

	if _, err := s.cards.GetCard(ctx, userID, cardID); err != nil {
		return err
	}
	return s.cards.UpdateCard(ctx, cardID, updates)
}

func (s *TrackerService) DeleteCard(ctx context.Context, userID, cardID string) error {
	ctx, span := trackerTracer.Start(ctx, "TrackerService.DeleteCard")
	defer span.End()

	return s.cards.DeleteCard(ctx, userID, cardID)
}

// GetInvoice builds the invoice view for a card at asOf: the cycle
// windows, the closed/open totals, the advisory status and the raw line
// items. Card config and line items are fetched concurrently.
func (s *TrackerService) GetInvoice(ctx context.Context, userID, cardID string, asOf time.Time) (*domain.CardInvoiceResponse, error) {
	ctx, span := trackerTracer.Start(ctx, "TrackerService.GetInvoice")
	defer span.End()
	span.SetAttributes(attribute.String("card.id", cardID))

	card, items, err := s.cardWithItems(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}

	window := fincalc.ComputeCycleWindow(card.ClosingDay, asOf)
	totals := fincalc.Summarize(items, window, card.CreditLimit)
	status := fincalc.InvoiceStatus(totals.ClosedUnpaid, card.ClosingDay, card.DueDay, asOf)

	s.metrics.IncrEngineRun("billing")

	return &domain.CardInvoiceResponse{
		CardID: cardID,
		AsOf:   asOf.Format("2006-01-02"),
		Window: domain.CycleWindowResponse{
			ClosedStart: window.ClosedStart.Format("2006-01-02"),
			ClosedEnd:   window.ClosedEnd.Format("2006-01-02"),
			OpenStart:   window.OpenStart.Format("2006-01-02"),
			OpenEnd:     window.OpenEnd.Format("2006-01-02"),
		},
		Totals: totals,
		Status: status,
		Items:  items,
	}, nil
}

// PayInvoice reconciles the selected line items as paid and refreshes the
// cycle's single aggregate payment record. Selecting no eligible (unpaid)
// item is a validation error; the engine itself has no failure path.
func (s *TrackerService) PayInvoice(ctx context.Context, userID, cardID string, req *domain.PayInvoiceRequest, asOf time.Time) (*domain.PayInvoiceResponse, error) {
	ctx, span := trackerTracer.Start(ctx, "TrackerService.PayInvoice")
	defer span.End()
	span.SetAttributes(attribute.String("card.id", cardID))

	if len(req.ItemIDs) == 0 {
		return nil, &domain.ErrValidation{Field: "item_ids", Message: "selecione ao menos um lançamento"}
	}

	paymentDate := asOf
	if req.PaymentDate != "" {
		d, err := parseDate(req.PaymentDate)
		if err != nil {
			return nil, &domain.ErrValidation{Field: "payment_date", Message: "data inválida"}
		}
		paymentDate = d
	}

	card, items, err := s.cardWithItems(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}

	selected := make(map[string]bool, len(req.ItemIDs))
	for _, id := range req.ItemIDs {
		selected[id] = true
	}

	// Reject selections with no effect before touching the store.
	eligible := make([]string, 0, len(req.ItemIDs))
	for _, item := range items {
		if selected[item.ID] && !item.Paid {
			eligible = append(eligible, item.ID)
		}
	}
	if len(eligible) == 0 {
		return nil, &domain.ErrValidation{Field: "item_ids", Message: "nenhum lançamento em aberto selecionado"}
	}

	window := fincalc.ComputeCycleWindow(card.ClosingDay, asOf)
	_, aggregate := fincalc.Reconcile(items, selected, window)

	if err := s.ledger.MarkTransactionsPaid(ctx, eligible, paymentDate, req.AccountID); err != nil {
		s.logger.Error("failed to mark items paid", zap.String("card_id", cardID), zap.Error(err))
		return nil, err
	}

	cycleKey := monthKeyOf(window.ClosedEnd)
	if aggregate > 0 {
		err = s.cards.UpsertAggregatePayment(ctx, &domain.AggregatePayment{
			ID:        uuid.New().String(),
			CardID:    cardID,
			CycleKey:  cycleKey,
			Amount:    aggregate,
			AccountID: req.AccountID,
			PaidAt:    paymentDate,
		})
	} else {
		err = s.cards.DeleteAggregatePayment(ctx, cardID, cycleKey)
	}
	if err != nil {
		s.logger.Error("failed to upsert aggregate payment",
			zap.String("card_id", cardID),
			zap.String("cycle_key", cycleKey),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("invoice items reconciled",
		zap.String("user_id", userID),
		zap.String("card_id", cardID),
		zap.String("cycle_key", cycleKey),
		zap.Int("items", len(eligible)),
		zap.Float64("aggregate", aggregate),
	)

	return &domain.PayInvoiceResponse{
		PaidItemIDs:     eligible,
		CycleKey:        cycleKey,
		AggregateAmount: aggregate,
	}, nil
}

// UpdateInstallmentPlan applies an edit to a purchase group's installment
// count or starting number, preserving payment history on surviving items.
func (s *TrackerService) UpdateInstallmentPlan(ctx context.Context, userID, cardID, purchaseGroupID string, req *domain.UpdateInstallmentsRequest) ([]domain.Transaction, error) {
	ctx, span := trackerTracer.Start(ctx, "TrackerService.UpdateInstallmentPlan")
	defer span.End()

	if req.Installments < 1 {
		return nil, &domain.ErrValidation{Field: "parcelas", Message: "deve ser ao menos 1"}
	}
	if req.StartingNum < 1 {
		req.StartingNum = 1
	}

	card, err := s.cards.GetCard(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}

	group, err := s.ledger.ListPurchaseGroup(ctx, card.ID, purchaseGroupID)
	if err != nil {
		return nil, err
	}
	if len(group) == 0 {
		return nil, &domain.ErrNotFound{Resource: "purchase group", ID: purchaseGroupID}
	}

	existing := CardLineItemsFor(group, card.ID)
	amount := req.InstallmentAmount
	if amount <= 0 {
		amount = existing[0].Amount
	}

	plan := fincalc.RegenerateInstallments(existing, req.Installments, req.StartingNum, amount)

	template := group[0]
	for _, item := range plan.Keep {
		updates := map[string]any{
			"parcela_numero": item.InstallmentNum,
			"parcelas":       item.Installments,
			"data":           item.Date.Format("2006-01-02"),
		}
		if err := s.ledger.UpdateTransaction(ctx, item.ID, updates); err != nil {
			return nil, err
		}
	}

	if len(plan.Create) > 0 {
		rows := make([]domain.Transaction, 0, len(plan.Create))
		for _, item := range plan.Create {
			tx := template
			tx.ID = uuid.New().String()
			tx.Amount = item.Amount
			tx.Date = item.Date
			tx.Paid = false
			tx.InstallmentNum = item.InstallmentNum
			tx.Installments = item.Installments
			tx.PurchaseGroupID = purchaseGroupID
			rows = append(rows, tx)
		}
		if _, err := s.ledger.InsertTransactions(ctx, rows); err != nil {
			return nil, err
		}
	}

	for _, id := range plan.DeleteIDs {
		if err := s.ledger.DeleteTransaction(ctx, id); err != nil {
			return nil, err
		}
	}

	s.logger.Info("installment plan regenerated",
		zap.String("card_id", cardID),
		zap.String("purchase_group_id", purchaseGroupID),
		zap.Int("installments", req.Installments),
		zap.Int("created", len(plan.Create)),
		zap.Int("deleted", len(plan.DeleteIDs)),
	)

	return s.ledger.ListPurchaseGroup(ctx, card.ID, purchaseGroupID)
}

// cardWithItems fetches a card's config and line items concurrently.
func (s *TrackerService) cardWithItems(ctx context.Context, userID, cardID string) (*domain.CreditCard, []fincalc.CardLineItem, error) {
	var card *domain.CreditCard
	var txs []domain.Transaction

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		card, err = s.cards.GetCard(gCtx, userID, cardID)
		return err
	})
	g.Go(func() error {
		var err error
		txs, err = s.ledger.ListCardTransactions(gCtx, cardID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return card, CardLineItemsFor(txs, cardID), nil
}
