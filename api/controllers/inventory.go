package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type availabilityResponse struct {
	VariantID uuid.UUID `json:"variant_id"`
	Available bool      `json:"available"`
	Remaining int64     `json:"remaining"`
	AsOf      time.Time `json:"as_of"`
}

type createBatchRequest struct {
	BatchCode   string     `json:"batch_code" validate:"required,max=64"`
	VariantID   uuid.UUID  `json:"variant_id" validate:"required"`
	ImportPrice int64      `json:"import_price" validate:"min=0"`
	Quantity    int        `json:"quantity" validate:"required,min=1"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	ImportDate  *time.Time `json:"import_date,omitempty"`
	Status      string     `json:"status,omitempty"`
}

type batchStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type batchResponse struct {
	ID                uuid.UUID         `json:"id"`
	BatchCode         string            `json:"batch_code"`
	VariantID         uuid.UUID         `json:"variant_id"`
	ImportPrice       int64             `json:"import_price"`
	Quantity          int               `json:"quantity"`
	RemainingQuantity int               `json:"remaining_quantity"`
	ExpiryDate        *time.Time        `json:"expiry_date,omitempty"`
	ImportDate        time.Time         `json:"import_date"`
	Status            enums.BatchStatus `json:"status"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func newBatchResponse(b *models.StockBatch) batchResponse {
	return batchResponse{
		ID:                b.ID,
		BatchCode:         b.BatchCode,
		VariantID:         b.VariantID,
		ImportPrice:       b.ImportPrice,
		Quantity:          b.Quantity,
		RemainingQuantity: b.RemainingQuantity,
		ExpiryDate:        b.ExpiryDate,
		ImportDate:        b.ImportDate,
		Status:            b.Status,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}

// VariantAvailability reports whether a variant can currently be sold and
// how many units remain across allocatable batches.
func VariantAvailability(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		variantID, err := validators.ParseUUIDParam(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		asOf := time.Now().UTC()
		remaining, err := svc.Availability(r.Context(), []uuid.UUID{variantID}, asOf)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		left := remaining[variantID]
		responses.WriteSuccess(w, availabilityResponse{
			VariantID: variantID,
			Available: left > 0,
			Remaining: left,
			AsOf:      asOf,
		})
	}
}

// CreateStockBatch records a stock intake.
func CreateStockBatch(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		var payload createBatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := inventory.CreateBatchInput{
			BatchCode:   strings.TrimSpace(payload.BatchCode),
			VariantID:   payload.VariantID,
			ImportPrice: payload.ImportPrice,
			Quantity:    payload.Quantity,
			ExpiryDate:  payload.ExpiryDate,
			ImportDate:  payload.ImportDate,
		}
		if raw := strings.TrimSpace(payload.Status); raw != "" {
			status, err := enums.ParseBatchStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid batch status"))
				return
			}
			input.Status = status
		}

		batch, err := svc.CreateBatch(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, newBatchResponse(batch))
	}
}

// UpdateStockBatchStatus moves a batch through its lifecycle.
func UpdateStockBatchStatus(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		batchID, err := validators.ParseUUIDParam(r, "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload batchStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseBatchStatus(strings.TrimSpace(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid batch status"))
			return
		}

		batch, err := svc.SetBatchStatus(r.Context(), batchID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newBatchResponse(batch))
	}
}
