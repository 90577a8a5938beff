package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/rentworks/rentworks-backend/api/responses"
	"github.com/rentworks/rentworks-backend/api/validators"
	"github.com/rentworks/rentworks-backend/internal/inventory"
	"github.com/rentworks/rentworks-backend/pkg/db/models"
	"github.com/rentworks/rentworks-backend/pkg/enums"
	pkgerrors "github.com/rentworks/rentworks-backend/pkg/errors"
	"github.com/rentworks/rentworks-backend/pkg/logger"
	"github.com/rentworks/rentworks-backend/pkg/pagination"
)

type inventoryUpdateRequest struct {
	SalePrice       *decimal.Decimal `json:"sale_price,omitempty"`
	RentalRate      *decimal.Decimal `json:"rental_rate,omitempty"`
	SecurityDeposit *decimal.Decimal `json:"security_deposit,omitempty"`
	ClearPricing    bool             `json:"clear_pricing"`
	Location        *string          `json:"location,omitempty"`
	Condition       *string          `json:"condition,omitempty"`
	Remarks         *string          `json:"remarks,omitempty"`
}

type inventoryTransitionRequest struct {
	Status string `json:"status" validate:"required"`
}

func InventoryGet(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		id, err := pathID(r, "unitId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		unit, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, unit)
	}
}

func InventoryList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := queryUUID(r, "item_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := inventory.ListFilters{
			ItemID:   itemID,
			Location: validators.SanitizeString(r.URL.Query().Get("location"), 120),
			Query:    validators.SanitizeString(r.URL.Query().Get("q"), 120),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, ok := enums.ParseUnitStatus(raw)
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown unit status").WithDetails(map[string]any{"status": raw}))
				return
			}
			filters.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("condition")); raw != "" {
			condition, ok := enums.ParseUnitCondition(raw)
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown unit condition").WithDetails(map[string]any{"condition": raw}))
				return
			}
			filters.Condition = &condition
		}

		rows, err := svc.List(r.Context(), filters, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, paginate(rows, page.Limit, func(u models.InventoryUnit) pagination.Cursor {
			return pagination.Cursor{CreatedAt: u.CreatedAt, ID: u.ID}
		}))
	}
}

func InventoryUpdate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathID(r, "unitId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload inventoryUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := inventory.UpdateInput{
			SalePrice:       payload.SalePrice,
			RentalRate:      payload.RentalRate,
			SecurityDeposit: payload.SecurityDeposit,
			ClearPricing:    payload.ClearPricing,
			Location:        payload.Location,
			Remarks:         payload.Remarks,
			ActorID:         actor,
		}
		if payload.Condition != nil {
			condition, ok := enums.ParseUnitCondition(*payload.Condition)
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown unit condition").WithDetails(map[string]any{"condition": *payload.Condition}))
				return
			}
			input.Condition = &condition
		}

		unit, err := svc.UpdateDetails(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, unit)
	}
}

// InventoryTransition moves a unit through its status lifecycle.
func InventoryTransition(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := pathID(r, "unitId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload inventoryTransitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, ok := enums.ParseUnitStatus(payload.Status)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown unit status").WithDetails(map[string]any{"status": payload.Status}))
			return
		}

		unit, err := svc.Transition(r.Context(), id, status, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, unit)
	}
}

type serialBatchCheckRequest struct {
	SerialNumbers []string `json:"serial_numbers" validate:"required,min=1,dive,required"`
}

// InventoryCheckSerial reports whether a serial number is already in
// stock, so intake forms can flag duplicates before submission.
func InventoryCheckSerial(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		value := strings.TrimSpace(chi.URLParam(r, "serialNumber"))
		if value == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "serial number is required"))
			return
		}

		result, err := svc.CheckSerialNumber(r.Context(), value)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// InventoryCheckSerialBatch validates a whole serial submission in one
// round trip.
func InventoryCheckSerialBatch(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		var payload serialBatchCheckRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CheckSerialNumbers(r.Context(), payload.SerialNumbers)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func InventoryCheckBatchCode(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		value := strings.TrimSpace(chi.URLParam(r, "batchCode"))
		if value == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "batch code is required"))
			return
		}

		result, err := svc.CheckBatchCode(r.Context(), value)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
