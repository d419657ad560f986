package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/grana-finance/grana-go/internal/infra/observability"
	"github.com/grana-finance/grana-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract defined for the Grana frontend.
func NewRouter(svc *service.TrackerService, envSvc *service.EnvironmentsService, authSvc *service.AuthService, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(metricsMiddleware(metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. 🔐 Autenticação
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authRegisterHandler(authSvc, logger))
			r.Post("/login", authLoginHandler(authSvc, logger))
			r.Post("/refresh", authRefreshHandler(authSvc, logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(authSvc, logger))
				r.Post("/logout", authLogoutHandler(authSvc, logger))
			})
		})

		// =============================================
		// Protected API
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(authSvc, logger))

			// =============================================
			// 2. 🏦 Contas
			// =============================================
			r.Get("/users/{userId}/accounts", listAccountsHandler(svc, logger))
			r.Post("/users/{userId}/accounts", createAccountHandler(svc, logger))
			r.Get("/users/{userId}/accounts/balances", getBalancesHandler(svc, logger))
			r.Get("/users/{userId}/accounts/{accountId}", getAccountHandler(svc, logger))
			r.Put("/users/{userId}/accounts/{accountId}", updateAccountHandler(svc, logger))
			r.Delete("/users/{userId}/accounts/{accountId}", deleteAccountHandler(svc, logger))

			// =============================================
			// 3. 💰 Transações
			// =============================================
			r.Get("/users/{userId}/transactions", listTransactionsHandler(svc, logger))
			r.Post("/users/{userId}/transactions", createTransactionHandler(svc, logger))
			r.Get("/users/{userId}/transactions/summary", transactionsSummaryHandler(svc, logger))
			r.Put("/users/{userId}/transactions/{txId}", updateTransactionHandler(svc, logger))
			r.Delete("/users/{userId}/transactions/{txId}", deleteTransactionHandler(svc, logger))

			// =============================================
			// 4. 🏷 Categorias
			// =============================================
			r.Get("/users/{userId}/categories", listCategoriesHandler(svc, logger))
			r.Post("/users/{userId}/categories", createCategoryHandler(svc, logger))
			r.Delete("/users/{userId}/categories/{categoryId}", deleteCategoryHandler(svc, logger))

			// =============================================
			// 5. 💳 Cartões de Crédito
			// =============================================
			r.Get("/users/{userId}/cards", listCardsHandler(svc, logger))
			r.Post("/users/{userId}/cards", createCardHandler(svc, logger))
			r.Put("/users/{userId}/cards/{cardId}", updateCardHandler(svc, logger))
			r.Delete("/users/{userId}/cards/{cardId}", deleteCardHandler(svc, logger))
			r.Get("/cards/{cardId}/invoice", cardInvoiceHandler(svc, logger))
			r.Post("/cards/{cardId}/invoice/pay", payInvoiceHandler(svc, logger))
			r.Put("/cards/{cardId}/installments/{groupId}", updateInstallmentsHandler(svc, logger))

			// =============================================
			// 6. 📈 Investimentos
			// =============================================
			r.Get("/users/{userId}/investments/{accountId}/growth", investmentGrowthHandler(svc, logger))

			// =============================================
			// 7. 👥 Ambientes Compartilhados
			// =============================================
			r.Get("/environments", listEnvironmentsHandler(envSvc, logger))
			r.Post("/environments", createEnvironmentHandler(envSvc, logger))
			r.Get("/environments/{envId}", getEnvironmentHandler(envSvc, logger))
			r.Delete("/environments/{envId}", deleteEnvironmentHandler(envSvc, logger))
			r.Post("/environments/{envId}/members", inviteMemberHandler(envSvc, logger))
			r.Delete("/environments/{envId}/members/{memberId}", removeMemberHandler(envSvc, logger))
			r.Get("/invites", listInvitesHandler(envSvc, logger))
			r.Post("/invites/{memberId}/accept", acceptInviteHandler(envSvc, logger))

			// =============================================
			// 8. 📊 Uso
			// =============================================
			r.Get("/stats", statsHandler(metrics, logger))
		})
	})

	return r
}

// metricsMiddleware records request counts and latencies per route.
func metricsMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			metrics.RecordRequestDuration(r.Method+" "+r.URL.Path, time.Since(start))
			metrics.IncrRequest(strconv.Itoa(ww.Status()))
		})
	}
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	}
}

func statsHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetUsageSnapshot())
	}
}
