package handler

import (
	"net/http"

	"github.com/grana-finance/grana-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Investimentos — /v1/users/{userId}/investments/{accountId}/growth
// ============================================================

func investmentGrowthHandler(svc *service.TrackerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userId}/investments/{accountId}/growth")
		defer span.End()

		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}

		accountID := chi.URLParam(r, "accountId")
		mode := r.URL.Query().Get("mode")
		span.SetAttributes(
			attribute.String("account.id", accountID),
			attribute.String("growth.mode", mode),
		)

		asOf, err := parseAsOf(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		growth, err := svc.GetInvestmentGrowth(ctx, userID, accountID, mode, asOf)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, growth)
	}
}
