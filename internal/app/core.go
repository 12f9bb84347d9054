// Package app assembles the storefront service graph shared by the binaries.
package app

import (
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/addressbook"
	"github.com/angelmondragon/storefront-backend/pkg/carrier"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/paymentledger"
	"github.com/angelmondragon/storefront-backend/pkg/push"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const reconcileBatchLimit = 100

type CoreParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      *db.Client
	Redis   *redis.Client
	Metrics *metrics.DomainMetrics
}

// Core holds every domain service wired against the shared clients.
type Core struct {
	Outbox            *outbox.Service
	OutboxRepo        *outbox.Repository
	Inventory         inventory.Service
	Cart              cart.Service
	Orders            orders.Service
	Checkout          checkout.Service
	Payments          *payments.Reconciler
	Addresses         address.Service
	NotificationsRepo notifications.Repository
	Notifications     notifications.Service
	Dispatcher        *notifications.Dispatcher
	Bridge            *notifications.RedisBridge
	Idempotency       *idempotency.Manager
}

// NewCore builds the external clients and domain services in dependency order.
func NewCore(params CoreParams) (*Core, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	cfg := params.Config
	logg := params.Logger
	conn := params.DB.DB()

	carrierClient, err := carrier.NewClient(cfg.Carrier)
	if err != nil {
		return nil, fmt.Errorf("carrier client: %w", err)
	}
	ledgerClient, err := paymentledger.NewClient(cfg.PaymentLedger)
	if err != nil {
		return nil, fmt.Errorf("payment ledger client: %w", err)
	}
	pushClient, err := push.NewClient(cfg.Push)
	if err != nil {
		return nil, fmt.Errorf("push client: %w", err)
	}
	directory, err := addressbook.NewClient(cfg.AddressBook)
	if err != nil {
		return nil, fmt.Errorf("address book client: %w", err)
	}

	outboxRepo := outbox.NewRepository(conn)
	outboxService := outbox.NewService(outboxRepo, logg)

	manager, err := idempotency.NewManager(params.Redis, cfg.Payments.DedupeTTL)
	if err != nil {
		return nil, fmt.Errorf("idempotency manager: %w", err)
	}

	inventoryService, err := inventory.NewService(inventory.NewRepository(conn), params.DB, outboxService)
	if err != nil {
		return nil, fmt.Errorf("inventory service: %w", err)
	}

	cartRepo := cart.NewRepository(conn)
	cartService, err := cart.NewService(cartRepo, params.DB)
	if err != nil {
		return nil, fmt.Errorf("cart service: %w", err)
	}

	ordersRepo := orders.NewRepository(conn)
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:        ordersRepo,
		Tx:          params.DB,
		Outbox:      outboxService,
		Inventory:   inventoryService,
		Carrier:     carrierClient,
		CarrierCfg:  cfg.Carrier,
		PaymentLink: cfg.PaymentLink,
		Metrics:     params.Metrics,
		Logger:      logg,
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	reconciler, err := payments.NewReconciler(payments.ReconcilerParams{
		Repo:        payments.NewRepository(conn),
		Tx:          params.DB,
		Orders:      ordersService,
		Feed:        ledgerClient,
		Idempotency: manager,
		MaxAttempts: cfg.Payments.MaxAttempts,
		BatchLimit:  reconcileBatchLimit,
		Metrics:     params.Metrics,
		Logger:      logg,
	})
	if err != nil {
		return nil, fmt.Errorf("payment reconciler: %w", err)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:          params.DB,
		Users:       users.NewRepository(conn),
		Cart:        cartRepo,
		Orders:      ordersRepo,
		Repo:        checkout.NewRepository(conn),
		Carrier:     carrierClient,
		CarrierCfg:  cfg.Carrier,
		Payments:    reconciler,
		PaymentLink: cfg.PaymentLink,
		Outbox:      outboxService,
		Logger:      logg,
	})
	if err != nil {
		return nil, fmt.Errorf("checkout service: %w", err)
	}

	notificationsRepo := notifications.NewRepository(conn)
	notificationsService, err := notifications.NewService(notificationsRepo)
	if err != nil {
		return nil, fmt.Errorf("notifications service: %w", err)
	}
	tokens, err := notifications.NewDeviceTokenStore(params.Redis)
	if err != nil {
		return nil, fmt.Errorf("device token store: %w", err)
	}
	bridge, err := notifications.NewRedisBridge(params.Redis, cfg.Notifications.LiveChannel, logg)
	if err != nil {
		return nil, fmt.Errorf("live bridge: %w", err)
	}
	operatorID, err := cfg.Notifications.OperatorID()
	if err != nil {
		return nil, err
	}
	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Repo:       notificationsRepo,
		Tokens:     tokens,
		Push:       pushClient,
		Live:       bridge,
		OperatorID: operatorID,
		Metrics:    params.Metrics,
		Logger:     logg,
	})
	if err != nil {
		return nil, fmt.Errorf("notification dispatcher: %w", err)
	}

	return &Core{
		Outbox:            outboxService,
		OutboxRepo:        outboxRepo,
		Inventory:         inventoryService,
		Cart:              cartService,
		Orders:            ordersService,
		Checkout:          checkoutService,
		Payments:          reconciler,
		Addresses:         address.NewService(directory, params.Redis, cfg.AddressBook.CacheTTL, logg),
		NotificationsRepo: notificationsRepo,
		Notifications:     notificationsService,
		Dispatcher:        dispatcher,
		Bridge:            bridge,
		Idempotency:       manager,
	}, nil
}
