package service

import (
	"context"
	"sort"
	"time"

	"github.com/grana-finance/grana-go/internal/domain"
	"github.com/grana-finance/grana-go/internal/fincalc"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ============================================================
// Transactions (ledger entries)
// ============================================================

// CreateTransaction records a new ledger entry. Card expenses with more
// than one installment are split into one transaction per installment,
// all sharing a purchase group id, with dates one month apart.
func (s *TrackerService) CreateTransaction(ctx context.Context, userID string, req *domain.CreateTransactionRequest) ([]domain.Transaction, error) {
	ctx, span := trackerTracer.Start(ctx, "TrackerService.CreateTransaction")
	defer span.End()

	if req.Amount <= 0 {
		return nil, &domain.ErrValidation{Field: "valor", Message: "deve ser positivo"}
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "data", Message: "data inválida"}
	}

	switch req.Type {
	case domain.TxReceita:
		if req.AccountID == "" {
			return nil, &domain.ErrValidation{Field: "conta", Message: "required"}
		}
	case domain.TxDespesa:
		if req.AccountID == "" && req.CardID == "" {
			return nil, &domain.ErrValidation{Field: "conta", Message: "conta ou cartão required"}
		}
	case domain.TxTransferencia:
		if req.FromAccountID == "" || req.ToAccountID == "" {
			return nil, &domain.ErrValidation{Field: "conta_origem", Message: "origem e destino required"}
		}
		if req.FromAccountID == req.ToAccountID {
			return nil, &domain.ErrValidation{Field: "conta_destino", Message: "deve ser diferente da origem"}
		}
	default:
		return nil, &domain.ErrValidation{Field: "type", Message: "must be receita, despesa or transferencia"}
	}

	base := domain.Transaction{
		UserID:        userID,
		EnvironmentID: req.EnvironmentID,
		Type:          req.Type,
		Amount:        req.Amount,
		Date:          date,
		Description:   req.Description,
		Category:      req.Category,
		CategoryTag:   req.CategoryTag,
		AccountID:     req.AccountID,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		CardID:        req.CardID,
	}

	// Plain entry: one row.
	if req.CardID == "" || req.Installments <= 1 {
		base.ID = uuid.New().String()
		if req.CardID != "" {
			base.Installments = 1
			base.InstallmentNum = 1
		}
		created, err := s.ledger.InsertTransaction(ctx, &base)
		if err != nil {
			s.logger.Error("failed to insert transaction", zap.String("user_id", userID), zap.Error(err))
			return nil, err
		}
		return []domain.Transaction{*created}, nil
	}

	// Installment purchase: N rows sharing a purchase group, amount split
	// evenly with the rounding remainder on the first installment.
	groupID := uuid.New().String()
	per := fincalc.SplitEvenly(req.Amount, req.Installments)
	dates := fincalc.MonthlyDates(date, 1, req.Installments)

	rows := make([]domain.Transaction, 0, req.Installments)
	for i := 0; i < req.Installments; i++ {
		tx := base
		tx.ID = uuid.New().String()
		tx.Amount = per[i]
		tx.Date = dates[i]
		tx.InstallmentNum = i + 1
		tx.Installments = req.Installments
		tx.PurchaseGroupID = groupID
		rows = append(rows, tx)
	}

	created, err := s.ledger.InsertTransactions(ctx, rows)
	if err != nil {
		s.logger.Error("failed to insert installment purchase",
			zap.String("user_id", userID),
			zap.String("purchase_group_id", groupID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("installment purchase recorded",
		zap.String("user_id", userID),
		zap.String("card_id", req.CardID),
		zap.String("purchase_group_id", groupID),
		zap.Int("installments", req.Installments),
		zap.Float64("total", req.Amount),
	)
	return created, nil
}

func (s *TrackerService) ListTransactions(ctx context.Context, userID string, filter *domain.TransactionFilter) ([]domain.Transaction, error) {
	ctx, span := trackerTracer.Start(ctx, "TrackerService.ListTransactions")
	defer span.End()

	return s.ledger.ListTransactions(ctx, userID, filter)
}

func (s *TrackerService) UpdateTransaction(ctx context.Context, userID, txID string, updates map[string]any) error {
	ctx, span := trackerTracer.Start(ctx, "TrackerService.UpdateTransaction")
	defer span.End()

	if _, err := s.ledger.GetTransaction(ctx, userID, txID); err != nil {
		return err
	}
	return s.ledger.UpdateTransaction(ctx, txID, updates)
}

func (s *TrackerService) DeleteTransaction(ctx context.Context, userID, txID string) error {
	ctx, span := trackerTracer.Start(ctx, "TrackerService.DeleteTransaction")
	defer span.End()

	if _, err := s.ledger.GetTransaction(ctx, userID, txID); err != nil {
		return err
	}
	return s.ledger.DeleteTransaction(ctx, txID)
}

// MonthlySummaries aggregates the ledger into per-month income/expense
// totals over the requested window, months sorted ascending.
func (s *TrackerService) MonthlySummaries(ctx context.Context, userID string, filter *domain.TransactionFilter) ([]domain.MonthlySummary, error) {
	ctx, span := trackerTracer.Start(ctx, "TrackerService.MonthlySummaries")
	defer span.End()

	txs, err := s.ledger.ListTransactions(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	byMonth := make(map[string]*domain.MonthlySummary)
	for _, tx := range txs {
		key := tx.Date.Format("2006-01")
		m, ok := byMonth[key]
		if !ok {
			m = &domain.MonthlySummary{Month: key}
			byMonth[key] = m
		}
		switch tx.Type {
		case domain.TxReceita:
			m.Income += tx.Amount
		case domain.TxDespesa:
			m.Expenses += tx.Amount
		}
	}

	months := make([]domain.MonthlySummary, 0, len(byMonth))
	for _, m := range byMonth {
		m.Balance = m.Income - m.Expenses
		months = append(months, *m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })
	return months, nil
}

// monthKeyOf formats a cycle key from a closing date.
func monthKeyOf(t time.Time) string {
	return t.Format("2006-01")
}
