package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/carrier"
	pkgcheckout "github.com/angelmondragon/storefront-backend/pkg/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/discount"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/paymentlink"
)

const (
	ReasonUnknownDiscount       = "unknown_discount"
	ReasonDiscountNotApplicable = "discount_not_applicable"

	defaultCarrierTimeout = 10 * time.Second
	defaultParcelGrams    = 200
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type paymentRegistrar interface {
	Register(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.PaymentReconciliation, error)
}

// Service turns selected cart lines into a pending order.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
}

// CreateOrderInput captures the buyer's checkout request.
type CreateOrderInput struct {
	UserID        uuid.UUID           `json:"-"`
	PaymentMethod enums.PaymentMethod `json:"payment_method" validate:"required"`
	CartLineIDs   []uuid.UUID         `json:"cart_line_ids" validate:"required,min=1"`
	DiscountCode  string              `json:"discount_code,omitempty" validate:"omitempty,max=64"`
}

// ServiceParams wires the checkout orchestrator.
type ServiceParams struct {
	Tx          txRunner
	Users       userLoader
	Cart        cart.CartRepository
	Orders      orders.Repository
	Repo        Repository
	Carrier     carrier.API
	CarrierCfg  config.CarrierConfig
	Payments    paymentRegistrar
	PaymentLink config.PaymentLinkConfig
	Outbox      outboxPublisher
	Logger      *logger.Logger
}

type service struct {
	tx          txRunner
	users       userLoader
	cart        cart.CartRepository
	orders      orders.Repository
	repo        Repository
	carrier     carrier.API
	carrierCfg  config.CarrierConfig
	payments    paymentRegistrar
	paymentLink config.PaymentLinkConfig
	outbox      outboxPublisher
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if params.Carrier == nil {
		return nil, fmt.Errorf("carrier client required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment registrar required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:          params.Tx,
		users:       params.Users,
		cart:        params.Cart,
		orders:      params.Orders,
		repo:        params.Repo,
		carrier:     params.Carrier,
		carrierCfg:  params.CarrierCfg,
		payments:    params.Payments,
		paymentLink: params.PaymentLink,
		outbox:      params.Outbox,
		logg:        params.Logger,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// quote is the priced draft computed before anything is written.
type quote struct {
	profile      users.DeliveryProfile
	lines        []models.CartLine
	serviceID    int
	shippingFee  int64
	subtotal     int64
	discountCode *string
	discount     int64
	total        int64
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}

	q, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"user_id":        input.UserID.String(),
			"payment_method": input.PaymentMethod.String(),
		})
	}

	var result *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.persist(ctx, tx, input, q)
		if err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, result.ID.String()), "order created")
	}
	return result, nil
}

// prepare runs every validation and external quote before the transaction opens.
func (s *service) prepare(ctx context.Context, input CreateOrderInput) (*quote, error) {
	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	profile := users.ProfileFromModel(user)
	if err := pkgcheckout.ValidateAddress(profile.Missing()); err != nil {
		return nil, err
	}

	lineIDs := pkgcheckout.DedupeIDs(input.CartLineIDs)
	lines, err := s.cart.FindLinesForUser(ctx, input.UserID, lineIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart lines")
	}
	if err := pkgcheckout.ValidateSelection(len(lineIDs), len(lines)); err != nil {
		return nil, err
	}

	q := &quote{profile: profile, lines: lines}
	for _, line := range lines {
		q.subtotal += line.LineTotal()
	}

	weight, err := s.parcelWeight(ctx, lines)
	if err != nil {
		return nil, err
	}
	if err := s.quoteShipping(ctx, q, weight); err != nil {
		return nil, err
	}
	if err := s.applyDiscount(ctx, q, input.DiscountCode); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *service) parcelWeight(ctx context.Context, lines []models.CartLine) (int, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.VariantID)
	}
	variants, err := s.repo.VariantsByIDs(ctx, ids)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variants")
	}
	parcel := make([]pkgcheckout.ParcelLine, 0, len(lines))
	for _, line := range lines {
		parcel = append(parcel, pkgcheckout.ParcelLine{
			VariantID:   line.VariantID,
			WeightGrams: variants[line.VariantID].WeightGrams,
			Quantity:    line.Quantity,
		})
	}
	fallback := s.carrierCfg.DefaultWeight
	if fallback <= 0 {
		fallback = defaultParcelGrams
	}
	return pkgcheckout.ParcelWeight(parcel, fallback), nil
}

func (s *service) quoteShipping(ctx context.Context, q *quote, weight int) error {
	callCtx, cancel := context.WithTimeout(ctx, s.carrierTimeout())
	defer cancel()

	services, err := s.carrier.AvailableServices(callCtx, s.carrierCfg.FromDistrict, q.profile.DistrictCode)
	if err != nil {
		return dependencyError(err, "list carrier services")
	}
	if len(services) == 0 {
		return pkgerrors.New(pkgerrors.CodeDependency, "carrier offers no service to this address")
	}
	q.serviceID = services[0].ServiceID

	fee, err := s.carrier.QuoteFee(callCtx, carrier.FeeRequest{
		ServiceID:      q.serviceID,
		FromDistrictID: s.carrierCfg.FromDistrict,
		FromWardCode:   s.carrierCfg.FromWard,
		ToDistrictID:   q.profile.DistrictCode,
		ToWardCode:     q.profile.WardCode,
		WeightGrams:    weight,
		InsuranceValue: q.subtotal,
	})
	if err != nil {
		return dependencyError(err, "quote shipping fee")
	}
	q.shippingFee = fee
	return nil
}

func (s *service) applyDiscount(ctx context.Context, q *quote, code string) error {
	draft := discount.Draft{Subtotal: q.subtotal, ShippingFee: q.shippingFee}
	q.total = draft.Total()

	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}
	record, err := s.repo.FindDiscountByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount code not found").
				WithDetails(map[string]any{"reason": ReasonUnknownDiscount, "code": code})
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load discount code")
	}
	res, err := discount.Apply(discount.RuleFromModel(*record), draft, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "discount code cannot be applied").
			WithDetails(map[string]any{"reason": ReasonDiscountNotApplicable, "code": record.Code})
	}
	q.discountCode = &record.Code
	q.discount = res.Amount
	q.total = res.Total
	return nil
}

func (s *service) persist(ctx context.Context, tx *gorm.DB, input CreateOrderInput, q *quote) (*models.Order, error) {
	cartRepo := s.cart.WithTx(tx)

	lineIDs := make([]uuid.UUID, 0, len(q.lines))
	for _, line := range q.lines {
		lineIDs = append(lineIDs, line.ID)
	}
	// A concurrent checkout may have consumed some of the lines already.
	current, err := cartRepo.FindLinesForUser(ctx, input.UserID, lineIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload cart lines")
	}
	if err := pkgcheckout.ValidateSelection(len(lineIDs), len(current)); err != nil {
		return nil, err
	}

	order := s.buildOrder(input, q)
	if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}

	// The re-read does not lock the lines. A checkout that committed first
	// leaves fewer rows for this delete.
	consumed, err := cartRepo.DeleteLines(ctx, lineIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume cart lines")
	}
	if err := pkgcheckout.ValidateSelection(len(lineIDs), int(consumed)); err != nil {
		return nil, err
	}
	if _, err := cart.RecomputeOrDelete(ctx, cartRepo, q.lines[0].CartID); err != nil {
		return nil, err
	}

	if order.PaymentMethod == enums.PaymentMethodOnline {
		if _, err := s.payments.Register(ctx, tx, order); err != nil {
			return nil, err
		}
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: input.UserID, Role: string(enums.ActorRoleCustomer)},
		Data: payloads.OrderEvent{
			OrderID:       order.ID,
			UserID:        order.UserID,
			Status:        order.Status,
			PaymentMethod: order.PaymentMethod,
			TotalPrice:    order.TotalPrice,
		},
	}); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) buildOrder(input CreateOrderInput, q *quote) *models.Order {
	serviceID := q.serviceID
	order := &models.Order{
		ID:               uuid.New(),
		UserID:           input.UserID,
		RecipientName:    q.profile.FullName,
		RecipientPhone:   q.profile.Phone,
		AddressLine:      q.profile.AddressLine,
		ProvinceCode:     q.profile.ProvinceCode,
		DistrictCode:     q.profile.DistrictCode,
		WardCode:         q.profile.WardCode,
		PaymentMethod:    input.PaymentMethod,
		ShippingFee:      q.shippingFee,
		DiscountCode:     q.discountCode,
		DiscountAmount:   q.discount,
		TotalPrice:       q.total,
		Status:           enums.OrderStatusPending,
		CarrierServiceID: &serviceID,
		Items:            make([]models.OrderItem, 0, len(q.lines)),
	}
	for _, line := range q.lines {
		order.Items = append(order.Items, models.OrderItem{
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	if input.PaymentMethod == enums.PaymentMethodOnline {
		pending := enums.PaymentStatusPending
		order.PaymentStatus = &pending
		link := paymentlink.Build(paymentlink.Params{
			BankID:      s.paymentLink.BankID,
			AccountNo:   s.paymentLink.AccountNo,
			AccountName: s.paymentLink.AccountName,
			Amount:      order.TotalPrice,
			Memo:        paymentlink.OrderMemo(order.ID),
		})
		order.PaymentLink = &link
	}
	return order
}

func (s *service) carrierTimeout() time.Duration {
	if s.carrierCfg.Timeout > 0 {
		return s.carrierCfg.Timeout
	}
	return defaultCarrierTimeout
}

func dependencyError(err error, message string) error {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeDependency {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
