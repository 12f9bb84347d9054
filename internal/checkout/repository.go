package checkout

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository exposes the lookups checkout needs beyond carts and orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindDiscountByCode(ctx context.Context, code string) (*models.DiscountCode, error)
	VariantsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Variant, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a checkout repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindDiscountByCode matches codes case-insensitively.
func (r *repository) FindDiscountByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	var discount models.DiscountCode
	err := r.db.WithContext(ctx).
		Where("UPPER(code) = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&discount).Error
	if err != nil {
		return nil, err
	}
	return &discount, nil
}

func (r *repository) VariantsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Variant, error) {
	result := make(map[uuid.UUID]models.Variant, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var variants []models.Variant
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&variants).Error; err != nil {
		return nil, err
	}
	for _, variant := range variants {
		result[variant.ID] = variant
	}
	return result, nil
}
