package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// DeviceRegistry stores push tokens per user.
type DeviceRegistry interface {
	RegisterDeviceToken(ctx context.Context, userID uuid.UUID, token string) error
	RemoveDeviceToken(ctx context.Context, userID uuid.UUID, token string) error
}

type deviceTokenRequest struct {
	Token string `json:"token" validate:"required,max=256"`
}

// RegisterDevice stores a push token for the caller.
func RegisterDevice(registry DeviceRegistry, logg *logger.Logger) http.HandlerFunc {
	return deviceHandler(registry, logg, true)
}

// RemoveDevice forgets a push token, typically on sign out.
func RemoveDevice(registry DeviceRegistry, logg *logger.Logger) http.HandlerFunc {
	return deviceHandler(registry, logg, false)
}

func deviceHandler(registry DeviceRegistry, logg *logger.Logger, register bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if registry == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "device registry unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload deviceTokenRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if register {
			err = registry.RegisterDeviceToken(r.Context(), userID, payload.Token)
		} else {
			err = registry.RemoveDeviceToken(r.Context(), userID, payload.Token)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"registered": register})
	}
}
