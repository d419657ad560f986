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
// Contas — /v1/users/{userId}/accounts
// ============================================================

func listAccountsHandler(svc *service.TrackerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userId}/accounts")
		defer span.End()

		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}
		span.SetAttributes(attribute.String("user.id", userID))

		accounts, err := svc.ListAccounts(ctx, userID, r.URL.Query().Get("environment_id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
	}
}

func createAccountHandler(svc *service.TrackerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/{userId}/accounts")
		defer span.End()

		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}

		var acc domain.Account
		if err := json.NewDecoder(r.Body).Decode(&acc); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		acc.UserID = userID

		created, err := svc.CreateAccount(ctx, &acc)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, created)
	}
}

func getAccountHandler(svc *service.TrackerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userId}/accounts/{accountId}")
		defer span.End()

		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}

		account, err := svc.GetAccount(ctx, userID, chi.URLParam(r, "accountId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, account)
	}
}

func updateAccountHandler(svc *service.TrackerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/users/{userId}/accounts/{accountId}")
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

		if err := svc.UpdateAccount(ctx, userID, chi.URLParam(r, "accountId"), updates); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteAccountHandler(svc *service.TrackerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/users/{userId}/accounts/{accountId}")
		defer span.End()

		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}

		if err := svc.DeleteAccount(ctx, userID, chi.URLParam(r, "accountId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func getBalancesHandler(svc *service.TrackerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userId}/accounts/balances")
		defer span.End()

		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}

		balances, err := svc.GetBalances(ctx, userID, r.URL.Query().Get("environment_id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"balances": balances})
	}
}

// ============================================================
// Categorias — /v1/users/{userId}/categories
// ============================================================

func listCategoriesHandler(svc *service.TrackerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userId}/categories")
		defer span.End()

		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}

		categories, err := svc.ListCategories(ctx, userID, r.URL.Query().Get("environment_id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
	}
}

func createCategoryHandler(svc *service.TrackerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/{userId}/categories")
		defer span.End()

		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}

		var cat domain.Category
		if err := json.NewDecoder(r.Body).Decode(&cat); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		cat.UserID = userID

		created, err := svc.CreateCategory(ctx, &cat)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, created)
	}
}

func deleteCategoryHandler(svc *service.TrackerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/users/{userId}/categories/{categoryId}")
		defer span.End()

		userID, ok := pathUserID(w, r)
		if !ok {
			return
		}

		if err := svc.DeleteCategory(ctx, userID, chi.URLParam(r, "categoryId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
