package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type paymentReconciler interface {
	ReconcileOnce(ctx context.Context) (payments.Result, error)
}

type PaymentReconcileJobParams struct {
	Logger     *logger.Logger
	Reconciler paymentReconciler
}

// NewPaymentReconcileJob polls the payment ledger once per cron cycle.
func NewPaymentReconcileJob(params PaymentReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("payment reconciler required")
	}
	return &paymentReconcileJob{logg: params.Logger, reconciler: params.Reconciler}, nil
}

type paymentReconcileJob struct {
	logg       *logger.Logger
	reconciler paymentReconciler
}

func (j *paymentReconcileJob) Name() string { return "payment-reconcile" }

// Run returns per-registration failures joined together; a ledger outage
// aborts the cycle before anything is counted.
func (j *paymentReconcileJob) Run(ctx context.Context) error {
	res, err := j.reconciler.ReconcileOnce(ctx)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"checked":   res.Checked,
		"settled":   res.Settled,
		"unmatched": res.Unmatched,
		"abandoned": res.Abandoned,
		"failed":    res.Failed,
	})
	if err != nil {
		return fmt.Errorf("payment reconcile: %w", err)
	}
	if res.Checked > 0 {
		j.logg.Info(logCtx, "payment reconciliation cycle complete")
	}
	return nil
}
