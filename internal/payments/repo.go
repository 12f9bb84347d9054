package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Repository persists reconciliation registrations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, reg *models.PaymentReconciliation) error
	ListDue(ctx context.Context, limit int) ([]models.PaymentReconciliation, error)
	FindByMemoToken(ctx context.Context, token string) (*models.PaymentReconciliation, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PaymentReconciliation, error)
	MarkSettled(ctx context.Context, id uuid.UUID, txnID string, now time.Time) (int64, error)
	RecordMiss(ctx context.Context, id uuid.UUID, now time.Time) (*models.PaymentReconciliation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reconciliation repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, reg *models.PaymentReconciliation) error {
	return r.db.WithContext(ctx).Create(reg).Error
}

// ListDue returns pending registrations with attempts left, oldest first.
func (r *repository) ListDue(ctx context.Context, limit int) ([]models.PaymentReconciliation, error) {
	var rows []models.PaymentReconciliation
	query := r.db.WithContext(ctx).
		Where("status = ? AND attempts < max_attempts", enums.ReconciliationPending).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindByMemoToken(ctx context.Context, token string) (*models.PaymentReconciliation, error) {
	var reg models.PaymentReconciliation
	if err := r.db.WithContext(ctx).Where("memo_token = ?", token).First(&reg).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PaymentReconciliation, error) {
	var reg models.PaymentReconciliation
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&reg).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}

// MarkSettled closes a registration that has not been settled yet.
func (r *repository) MarkSettled(ctx context.Context, id uuid.UUID, txnID string, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentReconciliation{}).
		Where("id = ? AND status <> ?", id, enums.ReconciliationSettled).
		Updates(map[string]any{
			"status":          enums.ReconciliationSettled,
			"external_txn_id": txnID,
			"last_polled_at":  now,
			"updated_at":      now,
		})
	return res.RowsAffected, res.Error
}

// RecordMiss counts an unmatched poll and abandons the registration once it
// runs out of attempts. It returns the updated row.
func (r *repository) RecordMiss(ctx context.Context, id uuid.UUID, now time.Time) (*models.PaymentReconciliation, error) {
	err := r.db.WithContext(ctx).
		Model(&models.PaymentReconciliation{}).
		Where("id = ? AND status = ?", id, enums.ReconciliationPending).
		Updates(map[string]any{
			"attempts": gorm.Expr("attempts + 1"),
			"status": gorm.Expr("CASE WHEN attempts + 1 >= max_attempts THEN ? ELSE status END",
				enums.ReconciliationAbandoned),
			"last_polled_at": now,
			"updated_at":     now,
		}).Error
	if err != nil {
		return nil, err
	}
	var reg models.PaymentReconciliation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&reg).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}
