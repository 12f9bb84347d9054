package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service
// and by checkout when it consumes selected lines.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindByID(ctx context.Context, cartID uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, cartID uuid.UUID) error
	FindLine(ctx context.Context, lineID uuid.UUID) (*models.CartLine, error)
	FindLineByVariant(ctx context.Context, cartID, variantID uuid.UUID) (*models.CartLine, error)
	FindLinesForUser(ctx context.Context, userID uuid.UUID, lineIDs []uuid.UUID) ([]models.CartLine, error)
	CreateLine(ctx context.Context, line *models.CartLine) error
	UpdateLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error
	DeleteLines(ctx context.Context, lineIDs []uuid.UUID) (int64, error)
	RefreshItemCount(ctx context.Context, cartID uuid.UUID) (int, error)
	FindVariant(ctx context.Context, variantID uuid.UUID) (*models.Variant, error)
}
