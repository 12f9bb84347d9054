package webhooks

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// CarrierTokenHeader carries the shared secret configured at the carrier.
const CarrierTokenHeader = "X-Carrier-Token"

type carrierStatusApplier interface {
	ApplyCarrierStatus(ctx context.Context, input internalorders.CarrierStatusInput) (*models.Order, error)
}

type carrierStatusRequest struct {
	OrderCode string     `json:"order_code" validate:"required,max=64"`
	Status    string     `json:"status" validate:"required"`
	Time      *time.Time `json:"time,omitempty"`
}

type carrierStatusResponse struct {
	OrderCode string            `json:"order_code"`
	Status    enums.OrderStatus `json:"status"`
}

// CarrierWebhook applies a shipment status callback to the matching order.
func CarrierWebhook(svc carrierStatusApplier, token string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		if !tokenMatches(token, r.Header.Get(CarrierTokenHeader)) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid carrier token"))
			return
		}

		var payload carrierStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status, err := parseCarrierStatus(payload.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown carrier status"))
			return
		}

		occurredAt := time.Now().UTC()
		if payload.Time != nil {
			occurredAt = payload.Time.UTC()
		}

		order, err := svc.ApplyCarrierStatus(ctx, internalorders.CarrierStatusInput{
			CarrierOrderCode: strings.TrimSpace(payload.OrderCode),
			Status:           status,
			OccurredAt:       occurredAt,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, carrierStatusResponse{OrderCode: payload.OrderCode, Status: order.Status})
	}
}

// parseCarrierStatus accepts the carrier's spelling of cancellation as well
// as the order status names.
func parseCarrierStatus(raw string) (enums.OrderStatus, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "cancel" {
		return enums.OrderStatusCanceled, nil
	}
	return enums.ParseOrderStatus(value)
}

// tokenMatches rejects everything when no token is configured.
func tokenMatches(expected, provided string) bool {
	if expected == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(provided))) == 1
}
