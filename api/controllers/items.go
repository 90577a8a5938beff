package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/rentworks/rentworks-backend/api/responses"
	"github.com/rentworks/rentworks-backend/api/validators"
	"github.com/rentworks/rentworks-backend/internal/items"
	"github.com/rentworks/rentworks-backend/pkg/db/models"
	pkgerrors "github.com/rentworks/rentworks-backend/pkg/errors"
	"github.com/rentworks/rentworks-backend/pkg/logger"
	"github.com/rentworks/rentworks-backend/pkg/pagination"
)

type itemCreateRequest struct {
	SKU                string          `json:"sku" validate:"required,min=1"`
	Name               string          `json:"name" validate:"required,min=1"`
	Description        *string         `json:"description,omitempty"`
	Category           *string         `json:"category,omitempty"`
	Tags               []string        `json:"tags,omitempty"`
	SalePrice          decimal.Decimal `json:"sale_price"`
	RentalRate         decimal.Decimal `json:"rental_rate"`
	SecurityDeposit    decimal.Decimal `json:"security_deposit"`
	RentalPeriodDays   *int            `json:"rental_period_days,omitempty" validate:"omitempty,gt=0"`
	WarrantyPeriodDays int             `json:"warranty_period_days" validate:"gte=0"`
	ReorderLevel       int             `json:"reorder_level" validate:"gte=0"`
	IsSerialized       bool            `json:"is_serialized"`
}

type itemUpdateRequest struct {
	Name               *string          `json:"name,omitempty" validate:"omitempty,min=1"`
	Description        *string          `json:"description,omitempty"`
	Category           *string          `json:"category,omitempty"`
	Tags               []string         `json:"tags,omitempty"`
	SalePrice          *decimal.Decimal `json:"sale_price,omitempty"`
	RentalRate         *decimal.Decimal `json:"rental_rate,omitempty"`
	SecurityDeposit    *decimal.Decimal `json:"security_deposit,omitempty"`
	RentalPeriodDays   *int             `json:"rental_period_days,omitempty" validate:"omitempty,gt=0"`
	WarrantyPeriodDays *int             `json:"warranty_period_days,omitempty" validate:"omitempty,gte=0"`
	ReorderLevel       *int             `json:"reorder_level,omitempty" validate:"omitempty,gte=0"`
}

func ItemCreate(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "item service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload itemCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Create(r.Context(), items.CreateInput{
			SKU:                payload.SKU,
			Name:               payload.Name,
			Description:        payload.Description,
			Category:           payload.Category,
			Tags:               payload.Tags,
			SalePrice:          payload.SalePrice,
			RentalRate:         payload.RentalRate,
			SecurityDeposit:    payload.SecurityDeposit,
			RentalPeriodDays:   payload.RentalPeriodDays,
			WarrantyPeriodDays: payload.WarrantyPeriodDays,
			ReorderLevel:       payload.ReorderLevel,
			IsSerialized:       payload.IsSerialized,
			ActorID:            actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func ItemUpdate(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "item service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload itemUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Update(r.Context(), id, items.UpdateInput{
			Name:               payload.Name,
			Description:        payload.Description,
			Category:           payload.Category,
			Tags:               payload.Tags,
			SalePrice:          payload.SalePrice,
			RentalRate:         payload.RentalRate,
			SecurityDeposit:    payload.SecurityDeposit,
			RentalPeriodDays:   payload.RentalPeriodDays,
			WarrantyPeriodDays: payload.WarrantyPeriodDays,
			ReorderLevel:       payload.ReorderLevel,
			ActorID:            actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

func ItemDelete(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "item service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}

func ItemSetActive(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "item service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setActiveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.SetActive(r.Context(), id, payload.Active, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

func ItemGet(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "item service unavailable"))
			return
		}

		id, err := pathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

func ItemList(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "item service unavailable"))
			return
		}

		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := items.ListFilters{
			Query:      validators.SanitizeString(r.URL.Query().Get("q"), 120),
			Category:   validators.SanitizeString(r.URL.Query().Get("category"), 80),
			Tag:        validators.SanitizeString(r.URL.Query().Get("tag"), 80),
			ActiveOnly: queryBool(r, "active_only"),
		}

		rows, err := svc.List(r.Context(), filters, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, paginate(rows, page.Limit, func(i models.Item) pagination.Cursor {
			return pagination.Cursor{CreatedAt: i.CreatedAt, ID: i.ID}
		}))
	}
}
