package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rentworks/rentworks-backend/api/responses"
	"github.com/rentworks/rentworks-backend/api/validators"
	"github.com/rentworks/rentworks-backend/internal/audit"
	"github.com/rentworks/rentworks-backend/pkg/db/models"
	"github.com/rentworks/rentworks-backend/pkg/enums"
	pkgerrors "github.com/rentworks/rentworks-backend/pkg/errors"
	"github.com/rentworks/rentworks-backend/pkg/logger"
	"github.com/rentworks/rentworks-backend/pkg/pagination"
)

func AuditList(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorFilter, err := queryUUID(r, "actor_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := audit.ListFilters{
			EntityType:  validators.SanitizeString(r.URL.Query().Get("entity_type"), 60),
			ActorUserID: actorFilter,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("action")); raw != "" {
			action, ok := enums.ParseAuditAction(raw)
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown audit action").WithDetails(map[string]any{"action": raw}))
				return
			}
			filters.Action = &action
		}

		rows, err := svc.List(r.Context(), filters, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, paginate(rows, page.Limit, func(e models.AuditEvent) pagination.Cursor {
			return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
		}))
	}
}

// AuditEntityTrail returns the full ordered history for one entity.
func AuditEntityTrail(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		entityType := strings.TrimSpace(chi.URLParam(r, "entityType"))
		if entityType == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "entityType is required"))
			return
		}

		entityID, err := pathID(r, "entityId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		events, err := svc.ListByEntity(r.Context(), entityType, entityID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, events)
	}
}
