package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Dependencies carries everything the HTTP surface needs. Nil services make
// their handlers answer with an internal error instead of panicking.
type Dependencies struct {
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency pkgredis.IdempotencyStore
	Gatherer    prometheus.Gatherer

	Inventory     inventory.Service
	Cart          cart.Service
	Checkout      checkoutsvc.Service
	Orders        orders.Service
	Addresses     address.Service
	Notifications notifications.Service
	Dispatcher    *notifications.Dispatcher
	Hub           *notifications.Hub
	Payments      *payments.Reconciler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/payments", webhookcontrollers.PaymentWebhook(settlerOrNil(deps.Payments), cfg.Payments.WebhookSecret, logg))
			r.Post("/carrier", webhookcontrollers.CarrierWebhook(deps.Orders, cfg.Webhooks.CarrierToken, logg))
		})

		r.Get("/variants/{variantId}/availability", controllers.VariantAvailability(deps.Inventory, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			if deps.Idempotency != nil {
				r.Use(middleware.Idempotency(deps.Idempotency, logg))
			}

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.Fetch(deps.Cart, logg))
				r.Post("/lines", cartcontrollers.AddLine(deps.Cart, logg))
				r.Patch("/lines/{lineId}", cartcontrollers.UpdateLine(deps.Cart, logg))
				r.Delete("/lines/{lineId}", cartcontrollers.RemoveLine(deps.Cart, logg))
			})
			r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(deps.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, deps.Addresses, logg))
				r.Post("/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
				r.Post("/{orderId}/return-request", ordercontrollers.RequestReturn(deps.Orders, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			})

			r.Post("/devices", controllers.RegisterDevice(registryOrNil(deps.Dispatcher), logg))
			r.Delete("/devices", controllers.RemoveDevice(registryOrNil(deps.Dispatcher), logg))

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.ActorRoleOperator, logg))

				r.Route("/orders", func(r chi.Router) {
					r.Get("/", ordercontrollers.AdminList(deps.Orders, logg))
					r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, deps.Addresses, logg))
					r.Post("/{orderId}/confirm", ordercontrollers.Confirm(deps.Orders, logg))
					r.Post("/{orderId}/reject", ordercontrollers.Reject(deps.Orders, logg))
					r.Post("/{orderId}/ship", ordercontrollers.Ship(deps.Orders, logg))
					r.Post("/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
					r.Post("/{orderId}/refund-link", ordercontrollers.RefundLink(deps.Orders, logg))
					r.Post("/{orderId}/refund", ordercontrollers.Refund(deps.Orders, logg))
				})

				r.Post("/stock-batches", controllers.CreateStockBatch(deps.Inventory, logg))
				r.Patch("/stock-batches/{batchId}/status", controllers.UpdateStockBatchStatus(deps.Inventory, logg))

				r.Get("/events", controllers.LiveEvents(hubOrNil(deps.Hub), logg))
			})
		})
	})

	return r
}

// The helpers below keep a nil pointer from becoming a non-nil interface.

func settlerOrNil(r *payments.Reconciler) webhookcontrollers.TransactionSettler {
	if r == nil {
		return nil
	}
	return r
}

func registryOrNil(d *notifications.Dispatcher) controllers.DeviceRegistry {
	if d == nil {
		return nil
	}
	return d
}

func hubOrNil(h *notifications.Hub) controllers.LiveSubscriber {
	if h == nil {
		return nil
	}
	return h
}
