package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByCarrierCode(ctx context.Context, code string) (*models.Order, error)
	// UpdateVersioned applies updates only when the stored version matches and
	// bumps the version. It returns the affected row count.
	UpdateVersioned(ctx context.Context, id uuid.UUID, version int, updates map[string]any) (int64, error)
	SetItemBatch(ctx context.Context, itemID, batchID uuid.UUID) error
	MarkPaid(ctx context.Context, id uuid.UUID, txnID string, paidAt time.Time) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	List(ctx context.Context, filter ListFilter) (*OrderList, error)
	VariantsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Variant, error)
}
