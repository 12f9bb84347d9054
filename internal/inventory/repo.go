package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Repository persists stock batches. Counter changes are single conditional
// statements; callers inspect the affected row count.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.StockBatch, error)
	FindAllocatable(ctx context.Context, variantID uuid.UUID, quantity int, asOf time.Time) (*models.StockBatch, error)
	Decrement(ctx context.Context, id uuid.UUID, quantity int, now time.Time) (int64, error)
	Restock(ctx context.Context, id uuid.UUID, quantity int, now time.Time) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.BatchStatus, now time.Time) (int64, error)
	HasAvailable(ctx context.Context, variantID uuid.UUID, asOf time.Time) (bool, error)
	SumAvailable(ctx context.Context, variantIDs []uuid.UUID, asOf time.Time) (map[uuid.UUID]int64, error)
	VariantExists(ctx context.Context, variantID uuid.UUID) (bool, error)
	Create(ctx context.Context, batch *models.StockBatch) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.StockBatch, error) {
	var batch models.StockBatch
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) allocatable(ctx context.Context, asOf time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.StockBatch{}).
		Where("status = ?", enums.BatchStatusActive).
		Where("(expiry_date IS NULL OR expiry_date >= ?)", asOf)
}

func (r *repository) FindAllocatable(ctx context.Context, variantID uuid.UUID, quantity int, asOf time.Time) (*models.StockBatch, error) {
	var batch models.StockBatch
	err := r.allocatable(ctx, asOf).
		Where("variant_id = ?", variantID).
		Where("remaining_quantity >= ?", quantity).
		Order("import_date ASC").
		Order("id ASC").
		Limit(1).
		Take(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) Decrement(ctx context.Context, id uuid.UUID, quantity int, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.StockBatch{}).
		Where("id = ? AND remaining_quantity >= ? AND status = ?", id, quantity, enums.BatchStatusActive).
		Updates(map[string]any{
			"remaining_quantity": gorm.Expr("remaining_quantity - ?", quantity),
			"status":             gorm.Expr("CASE WHEN remaining_quantity - ? = 0 THEN ? ELSE status END", quantity, enums.BatchStatusSoldOut),
			"updated_at":         now,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) Restock(ctx context.Context, id uuid.UUID, quantity int, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.StockBatch{}).
		Where("id = ? AND remaining_quantity + ? <= quantity", id, quantity).
		Updates(map[string]any{
			"remaining_quantity": gorm.Expr("remaining_quantity + ?", quantity),
			"updated_at":         now,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.BatchStatus, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.StockBatch{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) HasAvailable(ctx context.Context, variantID uuid.UUID, asOf time.Time) (bool, error) {
	var count int64
	err := r.allocatable(ctx, asOf).
		Where("variant_id = ? AND remaining_quantity > 0", variantID).
		Count(&count).Error
	return count > 0, err
}

type variantSum struct {
	VariantID uuid.UUID
	Total     int64
}

func (r *repository) SumAvailable(ctx context.Context, variantIDs []uuid.UUID, asOf time.Time) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(variantIDs))
	if len(variantIDs) == 0 {
		return out, nil
	}
	var rows []variantSum
	err := r.allocatable(ctx, asOf).
		Select("variant_id, SUM(remaining_quantity) AS total").
		Where("variant_id IN ?", variantIDs).
		Group("variant_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, id := range variantIDs {
		out[id] = 0
	}
	for _, row := range rows {
		out[row.VariantID] = row.Total
	}
	return out, nil
}

func (r *repository) VariantExists(ctx context.Context, variantID uuid.UUID) (bool, error) {
	var variant models.Variant
	err := r.db.WithContext(ctx).Select("id").Where("id = ?", variantID).Take(&variant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *repository) Create(ctx context.Context, batch *models.StockBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}
