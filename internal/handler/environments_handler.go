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
// Ambientes Compartilhados — /v1/environments
// ============================================================

func listEnvironmentsHandler(svc *service.EnvironmentsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/environments")
		defer span.End()

		envs, err := svc.ListEnvironments(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"environments": envs})
	}
}

func createEnvironmentHandler(svc *service.EnvironmentsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/environments")
		defer span.End()

		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		env, err := svc.CreateEnvironment(ctx, UserIDFromContext(ctx), UserEmailFromContext(ctx), req.Name)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, env)
	}
}

func getEnvironmentHandler(svc *service.EnvironmentsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/environments/{envId}")
		defer span.End()

		envID := chi.URLParam(r, "envId")
		span.SetAttributes(attribute.String("environment.id", envID))

		env, members, err := svc.GetEnvironment(ctx, UserIDFromContext(ctx), envID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"environment": env,
			"members":     members,
		})
	}
}

func deleteEnvironmentHandler(svc *service.EnvironmentsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/environments/{envId}")
		defer span.End()

		if err := svc.DeleteEnvironment(ctx, UserIDFromContext(ctx), chi.URLParam(r, "envId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func inviteMemberHandler(svc *service.EnvironmentsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/environments/{envId}/members")
		defer span.End()

		var req domain.InviteMemberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		member, err := svc.InviteMember(ctx, UserIDFromContext(ctx), chi.URLParam(r, "envId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, member)
	}
}

func removeMemberHandler(svc *service.EnvironmentsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/environments/{envId}/members/{memberId}")
		defer span.End()

		err := svc.RemoveMember(ctx, UserIDFromContext(ctx), chi.URLParam(r, "envId"), chi.URLParam(r, "memberId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func listInvitesHandler(svc *service.EnvironmentsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/invites")
		defer span.End()

		invites, err := svc.ListInvites(ctx, UserEmailFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"invites": invites})
	}
}

func acceptInviteHandler(svc *service.EnvironmentsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/invites/{memberId}/accept")
		defer span.End()

		err := svc.AcceptInvite(ctx, UserIDFromContext(ctx), UserEmailFromContext(ctx), chi.URLParam(r, "memberId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
