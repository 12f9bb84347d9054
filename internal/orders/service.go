package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/pkg/carrier"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/paymentlink"
)

const (
	ReasonInsufficientStock = "insufficient_stock"
	ReasonStaleOrderState   = "stale_order_state"

	defaultCarrierTimeout = 10 * time.Second
)

var cancellableStatuses = []enums.OrderStatus{
	enums.OrderStatusPending,
	enums.OrderStatusConfirmed,
	enums.OrderStatusReadyToPick,
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service drives the order state machine. Every status change is written
// with a version check and emits an outbox event in the same transaction.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Confirm(ctx context.Context, input ConfirmInput) (*models.Order, error)
	Ship(ctx context.Context, input ShipInput) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	Reject(ctx context.Context, input RejectInput) (*models.Order, error)
	RequestReturn(ctx context.Context, input ReturnRequestInput) (*models.Order, error)
	ApplyCarrierStatus(ctx context.Context, input CarrierStatusInput) (*models.Order, error)
	// MarkPaid reports whether this call flipped the payment; false with a nil
	// error means the order was already paid.
	MarkPaid(ctx context.Context, input MarkPaidInput) (bool, error)
	MarkRefunded(ctx context.Context, input MarkRefundedInput) (*models.Order, error)
	RefundLink(ctx context.Context, input RefundLinkInput) (string, error)
	Get(ctx context.Context, input GetInput) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListAll(ctx context.Context, filter ListFilter) (*OrderList, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo        Repository
	Tx          txRunner
	Outbox      outboxPublisher
	Inventory   inventory.Service
	Carrier     carrier.API
	CarrierCfg  config.CarrierConfig
	PaymentLink config.PaymentLinkConfig
	Metrics     *metrics.DomainMetrics
	Logger      *logger.Logger
}

type service struct {
	repo        Repository
	tx          txRunner
	outbox      outboxPublisher
	inventory   inventory.Service
	carrier     carrier.API
	carrierCfg  config.CarrierConfig
	paymentLink config.PaymentLinkConfig
	metrics     *metrics.DomainMetrics
	logg        *logger.Logger
	bound       *gorm.DB
	now         func() time.Time
}

// NewService builds the order service. Carrier, metrics and logger are optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	return &service{
		repo:        params.Repo,
		tx:          params.Tx,
		outbox:      params.Outbox,
		inventory:   params.Inventory,
		carrier:     params.Carrier,
		carrierCfg:  params.CarrierCfg,
		paymentLink: params.PaymentLink,
		metrics:     params.Metrics,
		logg:        params.Logger,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	clone := *s
	clone.repo = s.repo.WithTx(tx)
	clone.bound = tx
	return &clone
}

func (s *service) inTx(ctx context.Context, fn func(repo Repository, tx *gorm.DB) error) error {
	if s.bound != nil {
		return fn(s.repo, s.bound)
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return fn(s.repo.WithTx(tx), tx)
	})
}

func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*models.Order, error) {
	if err := requireOperator(input.ActorRole); err != nil {
		return nil, err
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var confirmed *models.Order
	err := s.inTx(ctx, func(repo Repository, tx *gorm.DB) error {
		order, err := loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending {
			return stateConflict(order, AllowedFrom(order.Status), "order can only be confirmed while pending")
		}

		now := s.now()
		ledger := s.inventory.WithTx(tx)
		for i := range order.Items {
			item := &order.Items[i]
			batch, err := ledger.FindAllocatableBatch(ctx, item.VariantID, item.Quantity, now)
			if err != nil {
				if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
					return insufficientStock(item.VariantID)
				}
				return err
			}
			if err := ledger.Decrement(ctx, batch.ID, item.Quantity); err != nil {
				if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
					return insufficientStock(item.VariantID)
				}
				return err
			}
			if err := repo.SetItemBatch(ctx, item.ID, batch.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "bind order item batch")
			}
			batchID := batch.ID
			item.BatchID = &batchID
		}

		if err := s.transition(ctx, repo, order, enums.OrderStatusConfirmed, map[string]any{"updated_at": now}); err != nil {
			return err
		}
		confirmed = order
		return s.emit(ctx, tx, enums.EventOrderConfirmed, order, enums.OrderStatusPending, "")
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(string(enums.OrderStatusPending), string(enums.OrderStatusConfirmed))
	return confirmed, nil
}

func (s *service) Ship(ctx context.Context, input ShipInput) (*models.Order, error) {
	if err := requireOperator(input.ActorRole); err != nil {
		return nil, err
	}
	order, err := loadOrder(ctx, s.repo, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusConfirmed {
		return nil, stateConflict(order, AllowedFrom(order.Status), "order can only be shipped once confirmed")
	}
	if s.carrier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "carrier is not configured")
	}

	req, err := s.shipmentRequest(ctx, order, input.Note)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, s.carrierTimeout())
	shipment, err := s.carrier.CreateShipment(callCtx, req)
	cancel()
	if err != nil {
		return nil, dependencyError(err, "create carrier shipment")
	}
	code := strings.TrimSpace(shipment.OrderCode)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "carrier returned an empty order code")
	}

	err = s.inTx(ctx, func(repo Repository, tx *gorm.DB) error {
		updates := map[string]any{"carrier_order_code": code, "updated_at": s.now()}
		if err := s.transition(ctx, repo, order, enums.OrderStatusReadyToPick, updates); err != nil {
			return err
		}
		order.CarrierOrderCode = &code
		return s.emit(ctx, tx, enums.EventOrderShipped, order, enums.OrderStatusConfirmed, "")
	})
	if err != nil {
		s.compensateShipment(ctx, order.ID, code)
		return nil, err
	}
	s.metrics.IncTransition(string(enums.OrderStatusConfirmed), string(enums.OrderStatusReadyToPick))
	return order, nil
}

func (s *service) compensateShipment(ctx context.Context, orderID uuid.UUID, code string) {
	compCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.carrierTimeout())
	defer cancel()
	if err := s.carrier.CancelShipment(compCtx, code); err != nil && s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, orderID.String())
		logCtx = s.logg.WithField(logCtx, "carrier_order_code", code)
		s.logg.Error(logCtx, "failed to cancel orphaned carrier shipment", err)
	}
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	order, err := loadOrder(ctx, s.repo, input.OrderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeActor(order, input.ActorUserID, input.ActorRole); err != nil {
		return nil, err
	}

	operator := input.ActorRole.IsOperator()
	online := order.PaymentMethod == enums.PaymentMethodOnline
	switch order.Status {
	case enums.OrderStatusPending:
		if online && !operator {
			return s.requestCancel(ctx, order)
		}
		return s.cancel(ctx, order, input.Reason)
	case enums.OrderStatusConfirmed, enums.OrderStatusReadyToPick:
		if online && !operator {
			return s.requestCancel(ctx, order)
		}
		if order.CarrierOrderCode != nil && *order.CarrierOrderCode != "" {
			if s.carrier == nil {
				return nil, pkgerrors.New(pkgerrors.CodeDependency, "carrier is not configured")
			}
			callCtx, cancel := context.WithTimeout(ctx, s.carrierTimeout())
			err := s.carrier.CancelShipment(callCtx, *order.CarrierOrderCode)
			cancel()
			if err != nil {
				return nil, dependencyError(err, "cancel carrier shipment")
			}
		}
		return s.cancel(ctx, order, input.Reason)
	default:
		return nil, stateConflict(order, cancellableStatuses, "order can no longer be canceled")
	}
}

// cancel moves the order to canceled and returns any allocated units to
// their batches.
func (s *service) cancel(ctx context.Context, order *models.Order, reason string) (*models.Order, error) {
	previous := order.Status
	err := s.inTx(ctx, func(repo Repository, tx *gorm.DB) error {
		return s.cancelInTx(ctx, repo, tx, order, reason)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(string(previous), string(enums.OrderStatusCanceled))
	return order, nil
}

func (s *service) cancelInTx(ctx context.Context, repo Repository, tx *gorm.DB, order *models.Order, reason string) error {
	previous := order.Status
	now := s.now()
	updates := map[string]any{
		"canceled_at":    now,
		"cancel_request": false,
		"updated_at":     now,
	}
	reason = strings.TrimSpace(reason)
	if reason != "" {
		updates["cancel_reason"] = reason
	}
	if err := s.transition(ctx, repo, order, enums.OrderStatusCanceled, updates); err != nil {
		return err
	}
	ledger := s.inventory.WithTx(tx)
	for _, item := range order.Items {
		if item.BatchID == nil {
			continue
		}
		if err := ledger.Restock(ctx, *item.BatchID, item.Quantity); err != nil {
			return err
		}
	}
	order.CanceledAt = &now
	order.CancelRequest = false
	if reason != "" {
		order.CancelReason = &reason
	}
	return s.emit(ctx, tx, enums.EventOrderCanceled, order, previous, reason)
}

func (s *service) requestCancel(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.CancelRequest {
		return order, nil
	}
	err := s.inTx(ctx, func(repo Repository, tx *gorm.DB) error {
		if err := s.update(ctx, repo, order, map[string]any{"cancel_request": true, "updated_at": s.now()}); err != nil {
			return err
		}
		order.CancelRequest = true
		return s.emit(ctx, tx, enums.EventOrderCancelRequest, order, "", "")
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Reject(ctx context.Context, input RejectInput) (*models.Order, error) {
	if err := requireOperator(input.ActorRole); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = "rejected by operator"
	}

	var rejected *models.Order
	err := s.inTx(ctx, func(repo Repository, tx *gorm.DB) error {
		order, err := loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending {
			return stateConflict(order, []enums.OrderStatus{enums.OrderStatusPending}, "only pending orders can be rejected")
		}
		rejected = order
		return s.cancelInTx(ctx, repo, tx, order, reason)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(string(enums.OrderStatusPending), string(enums.OrderStatusCanceled))
	return rejected, nil
}

func (s *service) RequestReturn(ctx context.Context, input ReturnRequestInput) (*models.Order, error) {
	var result *models.Order
	err := s.inTx(ctx, func(repo Repository, tx *gorm.DB) error {
		order, err := loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if err := authorizeActor(order, input.ActorUserID, input.ActorRole); err != nil {
			return err
		}
		if !order.Status.InShippingGroup() {
			return stateConflict(order, AllowedFrom(order.Status), "returns can only be requested once the order has shipped")
		}
		result = order
		if order.ReturnRequest {
			return nil
		}
		if err := s.update(ctx, repo, order, map[string]any{"return_request": true, "updated_at": s.now()}); err != nil {
			return err
		}
		order.ReturnRequest = true
		return s.emit(ctx, tx, enums.EventOrderReturnRequest, order, "", "")
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ApplyCarrierStatus(ctx context.Context, input CarrierStatusInput) (*models.Order, error) {
	code := strings.TrimSpace(input.CarrierOrderCode)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "carrier order code required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	occurredAt := input.OccurredAt.UTC()
	if input.OccurredAt.IsZero() {
		occurredAt = s.now()
	}

	var (
		result   *models.Order
		previous enums.OrderStatus
		changed  bool
	)
	err := s.inTx(ctx, func(repo Repository, tx *gorm.DB) error {
		order, err := repo.FindByCarrierCode(ctx, code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found for carrier code")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}
		result = order
		previous = order.Status
		if order.Status == input.Status {
			return nil
		}
		if !CanTransition(order.Status, input.Status) {
			return stateConflict(order, AllowedFrom(order.Status), "carrier status does not follow the order lifecycle")
		}
		changed = true

		if input.Status == enums.OrderStatusCanceled {
			return s.cancelInTx(ctx, repo, tx, order, "canceled by carrier")
		}

		updates := map[string]any{"updated_at": s.now()}
		if input.Status == enums.OrderStatusDelivered {
			updates["delivered_at"] = occurredAt
			order.DeliveredAt = &occurredAt
			if order.PaymentMethod == enums.PaymentMethodCOD {
				paid := enums.PaymentStatusPaid
				updates["payment_status"] = paid
				updates["paid_at"] = occurredAt
				order.PaymentStatus = &paid
				order.PaidAt = &occurredAt
			}
		}
		if err := s.transition(ctx, repo, order, input.Status, updates); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventOrderStatusChanged, order, previous, "")
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.metrics.IncTransition(string(previous), string(input.Status))
	}
	return result, nil
}

func (s *service) MarkPaid(ctx context.Context, input MarkPaidInput) (bool, error) {
	if input.OrderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	txnID := strings.TrimSpace(input.TxnID)
	if txnID == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	paidAt := input.PaidAt.UTC()
	if input.PaidAt.IsZero() {
		paidAt = s.now()
	}

	flipped := false
	err := s.inTx(ctx, func(repo Repository, tx *gorm.DB) error {
		rows, err := repo.MarkPaid(ctx, input.OrderID, txnID, paidAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
		}
		order, err := loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if rows == 0 {
			if order.PaymentStatus != nil && *order.PaymentStatus == enums.PaymentStatusPaid {
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment").
				WithDetails(map[string]any{"payment_status": order.PaymentStatus, "payment_method": order.PaymentMethod})
		}
		flipped = true
		return s.emit(ctx, tx, enums.EventOrderPaid, order, "", "")
	})
	if err != nil {
		return false, err
	}
	return flipped, nil
}

func (s *service) MarkRefunded(ctx context.Context, input MarkRefundedInput) (*models.Order, error) {
	if err := requireOperator(input.ActorRole); err != nil {
		return nil, err
	}
	var result *models.Order
	err := s.inTx(ctx, func(repo Repository, tx *gorm.DB) error {
		order, err := loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if err := ensureRefundable(order); err != nil {
			return err
		}
		refunded := enums.PaymentStatusRefunded
		if err := s.update(ctx, repo, order, map[string]any{"payment_status": refunded, "updated_at": s.now()}); err != nil {
			return err
		}
		order.PaymentStatus = &refunded
		result = order
		return s.emit(ctx, tx, enums.EventOrderRefunded, order, "", "")
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) RefundLink(ctx context.Context, input RefundLinkInput) (string, error) {
	if err := requireOperator(input.ActorRole); err != nil {
		return "", err
	}
	order, err := loadOrder(ctx, s.repo, input.OrderID)
	if err != nil {
		return "", err
	}
	if err := ensureRefundable(order); err != nil {
		return "", err
	}
	return paymentlink.Build(paymentlink.Params{
		BankID:      s.paymentLink.BankID,
		AccountNo:   s.paymentLink.AccountNo,
		AccountName: s.paymentLink.AccountName,
		Amount:      order.TotalPrice,
		Memo:        paymentlink.RefundMemo(order.ID),
	}), nil
}

func (s *service) Get(ctx context.Context, input GetInput) (*models.Order, error) {
	order, err := loadOrder(ctx, s.repo, input.OrderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeActor(order, input.ActorUserID, input.ActorRole); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	list, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return list, nil
}

func (s *service) ListAll(ctx context.Context, filter ListFilter) (*OrderList, error) {
	if err := requireOperator(filter.ActorRole); err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status filter")
	}
	if _, err := pagination.ParseCursor(filter.Params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return list, nil
}

// transition validates the move against the lifecycle table and applies it
// with the version check.
func (s *service) transition(ctx context.Context, repo Repository, order *models.Order, to enums.OrderStatus, updates map[string]any) error {
	if !CanTransition(order.Status, to) {
		return stateConflict(order, AllowedFrom(order.Status), fmt.Sprintf("cannot move order from %s to %s", order.Status, to))
	}
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	if err := s.update(ctx, repo, order, values); err != nil {
		return err
	}
	order.Status = to
	return nil
}

func (s *service) update(ctx context.Context, repo Repository, order *models.Order, updates map[string]any) error {
	rows, err := repo.UpdateVersioned(ctx, order.ID, order.Version, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order was modified concurrently").
			WithDetails(map[string]any{"reason": ReasonStaleOrderState, "order_id": order.ID.String()})
	}
	order.Version++
	return nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, order *models.Order, previous enums.OrderStatus, reason string) error {
	payload := payloads.OrderEvent{
		OrderID:        order.ID,
		UserID:         order.UserID,
		Status:         order.Status,
		PreviousStatus: previous,
		PaymentMethod:  order.PaymentMethod,
		TotalPrice:     order.TotalPrice,
		Reason:         reason,
	}
	if order.CarrierOrderCode != nil {
		payload.CarrierCode = *order.CarrierOrderCode
	}
	if order.PaymentTxnID != nil {
		payload.PaymentTxnID = *order.PaymentTxnID
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data:          payload,
	})
}

func (s *service) shipmentRequest(ctx context.Context, order *models.Order, note string) (carrier.ShipmentRequest, error) {
	ids := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.VariantID)
	}
	variants, err := s.repo.VariantsByIDs(ctx, ids)
	if err != nil {
		return carrier.ShipmentRequest{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variants")
	}

	weight := 0
	items := make([]carrier.ShipmentItem, 0, len(order.Items))
	for _, item := range order.Items {
		variant := variants[item.VariantID]
		weight += variant.WeightGrams * item.Quantity
		name := variant.Name
		if name == "" {
			name = item.VariantID.String()
		}
		items = append(items, carrier.ShipmentItem{Name: name, Quantity: item.Quantity, Price: item.UnitPrice})
	}
	if weight <= 0 {
		weight = s.carrierCfg.DefaultWeight
	}

	var cod int64
	if order.PaymentMethod == enums.PaymentMethodCOD {
		cod = order.TotalPrice
	}
	req := carrier.ShipmentRequest{
		ClientOrderCode: order.ID.String(),
		PaymentTypeID:   carrier.PaymentTypeShopPays,
		RequiredNote:    carrier.RequiredNoteNoInspect,
		FromName:        s.carrierCfg.FromName,
		FromPhone:       s.carrierCfg.FromPhone,
		FromAddress:     s.carrierCfg.FromAddress,
		FromDistrictID:  s.carrierCfg.FromDistrict,
		FromWardCode:    s.carrierCfg.FromWard,
		ToName:          order.RecipientName,
		ToPhone:         order.RecipientPhone,
		ToAddress:       order.AddressLine,
		ToDistrictID:    order.DistrictCode,
		ToWardCode:      order.WardCode,
		CODAmount:       cod,
		WeightGrams:     weight,
		Items:           items,
	}
	if order.CarrierServiceID != nil {
		req.ServiceID = *order.CarrierServiceID
	}
	if strings.TrimSpace(note) != "" {
		req.RequiredNote = strings.TrimSpace(note)
	}
	return req, nil
}

func (s *service) carrierTimeout() time.Duration {
	if s.carrierCfg.Timeout > 0 {
		return s.carrierCfg.Timeout
	}
	return defaultCarrierTimeout
}

func loadOrder(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func requireOperator(role enums.ActorRole) error {
	if !role.IsOperator() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "operator role required")
	}
	return nil
}

func authorizeActor(order *models.Order, actorID uuid.UUID, role enums.ActorRole) error {
	if role.IsOperator() {
		return nil
	}
	if actorID == uuid.Nil || order.UserID != actorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return nil
}

func ensureRefundable(order *models.Order) error {
	if order.Status != enums.OrderStatusCanceled && order.Status != enums.OrderStatusReturned {
		return stateConflict(order, nil, "only canceled or returned orders can be refunded")
	}
	if order.PaymentStatus == nil || *order.PaymentStatus != enums.PaymentStatusPaid {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no settled payment to refund").
			WithDetails(map[string]any{"payment_status": order.PaymentStatus})
	}
	return nil
}

func stateConflict(order *models.Order, allowed []enums.OrderStatus, message string) error {
	if allowed == nil {
		allowed = []enums.OrderStatus{}
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, message).
		WithDetails(map[string]any{
			"current_status":   order.Status,
			"allowed_statuses": allowed,
		})
}

func insufficientStock(variantID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock to confirm order").
		WithDetails(map[string]any{"reason": ReasonInsufficientStock, "variant_id": variantID.String()})
}

// dependencyError keeps typed carrier errors and wraps anything else.
func dependencyError(err error, message string) error {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeDependency {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
