package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/push"
)

const maxDeviceTokenLength = 256

type notificationCreator interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// DispatcherParams wires the dispatcher. Push, Tokens, and Live are optional.
type DispatcherParams struct {
	Repo       notificationCreator
	Tokens     DeviceTokenStore
	Push       push.Sender
	Live       LiveEmitter
	OperatorID uuid.UUID
	Metrics    *metrics.DomainMetrics
	Logger     *logger.Logger
}

// Dispatcher persists notifications and fans them out to devices and the
// live operator stream. Only persistence failures are reported.
type Dispatcher struct {
	repo       notificationCreator
	tokens     DeviceTokenStore
	push       push.Sender
	live       LiveEmitter
	operatorID uuid.UUID
	metrics    *metrics.DomainMetrics
	logg       *logger.Logger
	now        func() time.Time
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{
		repo:       params.Repo,
		tokens:     params.Tokens,
		push:       params.Push,
		live:       params.Live,
		operatorID: params.OperatorID,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Notify stores a notification for the user and pushes it to their devices.
func (d *Dispatcher) Notify(ctx context.Context, userID uuid.UUID, title, message, link string) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	notification := &models.Notification{
		UserID:  userID,
		Title:   strings.TrimSpace(title),
		Message: strings.TrimSpace(message),
	}
	if link = strings.TrimSpace(link); link != "" {
		notification.Link = &link
	}
	if err := d.repo.Create(ctx, notification); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store notification")
	}
	d.pushToDevices(ctx, userID, notification.Title, notification.Message)
	return nil
}

// NotifyOperator notifies the configured operator account and emits a live
// event for any connected operator session.
func (d *Dispatcher) NotifyOperator(ctx context.Context, title, message, link string) error {
	if d.live != nil {
		event := Event{Type: "notification", Title: title, Message: message, Link: link, OccurredAt: d.now()}
		if err := d.live.Emit(ctx, event); err != nil {
			d.logg.Warn(d.logg.WithError(ctx, err), "live operator event not delivered")
		}
	}
	if d.operatorID == uuid.Nil {
		d.logg.Warn(ctx, "operator user id not configured; skipping stored notification")
		return nil
	}
	return d.Notify(ctx, d.operatorID, title, message, link)
}

func (d *Dispatcher) RegisterDeviceToken(ctx context.Context, userID uuid.UUID, token string) error {
	if err := validateDeviceToken(userID, token); err != nil {
		return err
	}
	if d.tokens == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "device token store unavailable")
	}
	if err := d.tokens.Add(ctx, userID, token); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register device token")
	}
	return nil
}

func (d *Dispatcher) RemoveDeviceToken(ctx context.Context, userID uuid.UUID, token string) error {
	if err := validateDeviceToken(userID, token); err != nil {
		return err
	}
	if d.tokens == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "device token store unavailable")
	}
	if err := d.tokens.Remove(ctx, userID, token); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove device token")
	}
	return nil
}

func (d *Dispatcher) pushToDevices(ctx context.Context, userID uuid.UUID, title, body string) {
	if d.push == nil || d.tokens == nil {
		return
	}
	logCtx := d.logg.WithUserID(ctx, userID.String())
	tokens, err := d.tokens.List(ctx, userID)
	if err != nil {
		d.metrics.IncPushFailure()
		d.logg.Warn(d.logg.WithError(logCtx, err), "device tokens unavailable")
		return
	}
	for _, token := range tokens {
		err := d.push.Send(ctx, token, title, body)
		if err == nil {
			continue
		}
		d.metrics.IncPushFailure()
		if errors.Is(err, push.ErrDeviceNotRegistered) {
			if rmErr := d.tokens.Remove(ctx, userID, token); rmErr != nil {
				d.logg.Warn(d.logg.WithError(logCtx, rmErr), "failed to forget stale device token")
			}
			continue
		}
		d.logg.Warn(d.logg.WithError(logCtx, err), "push delivery failed")
	}
}

func validateDeviceToken(userID uuid.UUID, token string) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "device token required")
	}
	if len(token) > maxDeviceTokenLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "device token too long")
	}
	return nil
}
