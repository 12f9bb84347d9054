// Package payments matches incoming bank transfers to online orders.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/paymentledger"
	"github.com/angelmondragon/storefront-backend/pkg/paymentlink"
)

const (
	// WebhookConsumer namespaces webhook reference ids in the idempotency store.
	WebhookConsumer = "payments-webhook"

	defaultMaxAttempts = 60
	defaultBatchLimit  = 500

	outcomeSettled   = "settled"
	outcomeUnmatched = "unmatched"
	outcomeAbandoned = "abandoned"
	outcomeFailed    = "failed"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type keyMarker interface {
	CheckAndMarkKey(ctx context.Context, consumer, key string) (bool, error)
	DeleteKey(ctx context.Context, consumer, key string) error
}

// Result summarizes one reconciliation cycle.
type Result struct {
	Checked   int
	Settled   int
	Unmatched int
	Abandoned int
	Failed    int
}

// ReconcilerParams wires the reconciler.
type ReconcilerParams struct {
	Repo        Repository
	Tx          txRunner
	Orders      orders.Service
	Feed        paymentledger.Feed
	Idempotency keyMarker
	MaxAttempts int
	BatchLimit  int
	Metrics     *metrics.DomainMetrics
	Logger      *logger.Logger
}

// Reconciler settles online orders against the payment ledger, either by
// polling or from webhook deliveries.
type Reconciler struct {
	repo        Repository
	tx          txRunner
	orders      orders.Service
	feed        paymentledger.Feed
	idempotency keyMarker
	maxAttempts int
	batchLimit  int
	metrics     *metrics.DomainMetrics
	logg        *logger.Logger
	now         func() time.Time
}

func NewReconciler(params ReconcilerParams) (*Reconciler, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reconciliation repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	batchLimit := params.BatchLimit
	if batchLimit <= 0 {
		batchLimit = defaultBatchLimit
	}
	return &Reconciler{
		repo:        params.Repo,
		tx:          params.Tx,
		orders:      params.Orders,
		feed:        params.Feed,
		idempotency: params.Idempotency,
		maxAttempts: maxAttempts,
		batchLimit:  batchLimit,
		metrics:     params.Metrics,
		logg:        params.Logger,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// Register enrolls an online order with the poller inside the caller's
// transaction.
func (r *Reconciler) Register(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.PaymentReconciliation, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if order.PaymentMethod != enums.PaymentMethodOnline {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only online orders are reconciled")
	}
	reg := &models.PaymentReconciliation{
		OrderID:     order.ID,
		MemoToken:   paymentlink.OrderMemo(order.ID),
		Amount:      order.TotalPrice,
		MaxAttempts: r.maxAttempts,
		Status:      enums.ReconciliationPending,
	}
	if err := r.repo.WithTx(tx).Create(ctx, reg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "register payment reconciliation")
	}
	return reg, nil
}

// ReconcileOnce runs one polling cycle. Per-registration failures are
// collected and never stop the cycle.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (Result, error) {
	var res Result
	if r.feed == nil {
		return res, pkgerrors.New(pkgerrors.CodeDependency, "payment ledger is not configured")
	}
	due, err := r.repo.ListDue(ctx, r.batchLimit)
	if err != nil {
		return res, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list due reconciliations")
	}
	if len(due) == 0 {
		return res, nil
	}

	txns, err := r.feed.ListRecentTransactions(ctx)
	if err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return res, err
		}
		txns = nil
	}
	index := indexByToken(txns)

	var errs error
	for _, reg := range due {
		res.Checked++
		regCtx := r.logg.WithOrderID(ctx, reg.OrderID.String())

		if txn, ok := matchAmount(index[reg.MemoToken], reg.Amount); ok {
			if err := r.settle(regCtx, reg, txn); err != nil {
				res.Failed++
				r.metrics.IncReconciliation(outcomeFailed)
				r.logg.Error(regCtx, "payment settlement failed", err)
				errs = multierr.Append(errs, fmt.Errorf("settle %s: %w", reg.OrderID, err))
				continue
			}
			res.Settled++
			r.metrics.IncReconciliation(outcomeSettled)
			continue
		}

		updated, err := r.repo.RecordMiss(ctx, reg.ID, r.now())
		if err != nil {
			res.Failed++
			r.metrics.IncReconciliation(outcomeFailed)
			r.logg.Error(regCtx, "record reconciliation miss failed", err)
			errs = multierr.Append(errs, fmt.Errorf("record miss %s: %w", reg.OrderID, err))
			continue
		}
		if updated.Status == enums.ReconciliationAbandoned {
			res.Abandoned++
			r.metrics.IncReconciliation(outcomeAbandoned)
			r.logg.Warn(regCtx, "payment reconciliation abandoned")
			continue
		}
		res.Unmatched++
		r.metrics.IncReconciliation(outcomeUnmatched)
	}
	return res, errs
}

// SettleTransaction applies a single transfer pushed by the ledger webhook.
// It reports whether the transfer settled an order.
func (r *Reconciler) SettleTransaction(ctx context.Context, txn paymentledger.Transaction) (bool, error) {
	ref := strings.TrimSpace(txn.ReferenceID)
	if ref == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "reference id required")
	}
	token, ok := paymentlink.ParseOrderMemo(txn.Memo)
	if !ok {
		return false, nil
	}

	if r.idempotency != nil {
		seen, err := r.idempotency.CheckAndMarkKey(ctx, WebhookConsumer, ref)
		if err != nil {
			r.logg.Warn(r.logg.WithError(ctx, err), "payment webhook dedupe unavailable")
		} else if seen {
			return false, nil
		}
	}

	settled, err := r.settleToken(ctx, token, txn)
	if err != nil && r.idempotency != nil {
		if delErr := r.idempotency.DeleteKey(ctx, WebhookConsumer, ref); delErr != nil {
			r.logg.Warn(r.logg.WithError(ctx, delErr), "failed to release payment webhook key")
		}
	}
	return settled, err
}

func (r *Reconciler) settleToken(ctx context.Context, token string, txn paymentledger.Transaction) (bool, error) {
	reg, err := r.repo.FindByMemoToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load reconciliation")
	}
	ctx = r.logg.WithOrderID(ctx, reg.OrderID.String())
	if reg.Status == enums.ReconciliationSettled {
		return false, nil
	}
	if reg.Amount != txn.Amount {
		r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
			"expected_amount": reg.Amount,
			"received_amount": txn.Amount,
			"reference_id":    txn.ReferenceID,
		}), "payment amount mismatch")
		return false, nil
	}
	if err := r.settle(ctx, *reg, txn); err != nil {
		r.metrics.IncReconciliation(outcomeFailed)
		return false, err
	}
	r.metrics.IncReconciliation(outcomeSettled)
	return true, nil
}

func (r *Reconciler) settle(ctx context.Context, reg models.PaymentReconciliation, txn paymentledger.Transaction) error {
	paidAt := txn.When
	if paidAt.IsZero() {
		paidAt = r.now()
	}
	return r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		flipped, err := r.orders.WithTx(tx).MarkPaid(ctx, orders.MarkPaidInput{
			OrderID: reg.OrderID,
			TxnID:   txn.ReferenceID,
			PaidAt:  paidAt,
		})
		if err != nil {
			return err
		}
		if !flipped {
			r.logg.Info(ctx, "order already paid; closing reconciliation")
		}
		_, err = r.repo.WithTx(tx).MarkSettled(ctx, reg.ID, txn.ReferenceID, r.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark reconciliation settled")
		}
		return nil
	})
}

func indexByToken(txns []paymentledger.Transaction) map[string][]paymentledger.Transaction {
	index := make(map[string][]paymentledger.Transaction, len(txns))
	for _, txn := range txns {
		token, ok := paymentlink.ParseOrderMemo(txn.Memo)
		if !ok {
			continue
		}
		index[token] = append(index[token], txn)
	}
	return index
}

func matchAmount(candidates []paymentledger.Transaction, amount int64) (paymentledger.Transaction, bool) {
	for _, txn := range candidates {
		if txn.Amount == amount {
			return txn, true
		}
	}
	return paymentledger.Transaction{}, false
}
