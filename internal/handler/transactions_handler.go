package handler

import (
	"encoding/json"
	"net/http"

	"github.com/grana-finance/grana-go/internal/domain"
	"github.com/grana-finance/grana-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Transações — /v1/users/{userId}/transactions
// ============================================================

// filterFromQuery builds a ledger filter from the listing query params.
func filterFromQuery(r *http.Request) *domain.TransactionFilter {
	page, pageSize := parsePagination(r)
	q := r.URL.Query()
	return &domain.TransactionFilter{
		EnvironmentID: q.Get("environment_id"),
		AccountID:     q.Get("conta"),
		CardID:        q.Get("cartao_id"),
		Category:      q.Get("categoria"),
		Type:          q.Get("type"),
		From:          parseDateFilter(r, "from"),
		To:            parseDateFilter(r, "to"),
		Page:          page,
		PageSize:      pageSize,
	}
}

func listTransactionsHandler(svc *service.TrackerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userId}/transactions")
		defer span.End()

		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}
		span.SetAttributes(attribute.String("user.id", userID))

		transactions, err := svc.ListTransactions(ctx, userID, filterFromQuery(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"transactions": transactions})
	}
}

func createTransactionHandler(svc *service.TrackerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/{userId}/transactions")
		defer span.End()

		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}

		var req domain.CreateTransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		created, err := svc.CreateTransaction(ctx, userID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{"transactions": created})
	}
}

func updateTransactionHandler(svc *service.TrackerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/users/{userId}/transactions/{txId}")
		defer span.End()

		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}

		var updates map[string]any
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := svc.UpdateTransaction(ctx, userID, chi.URLParam(r, "txId"), updates); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteTransactionHandler(svc *service.TrackerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/users/{userId}/transactions/{txId}")
		defer span.End()

		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}

		if err := svc.DeleteTransaction(ctx, userID, chi.URLParam(r, "txId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func transactionsSummaryHandler(svc *service.TrackerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userId}/transactions/summary")
		defer span.End()

		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}

		summaries, err := svc.MonthlySummaries(ctx, userID, filterFromQuery(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"summary": summaries})
	}
}
