package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// MaxPerVariant caps the quantity of a single variant in one cart.
const MaxPerVariant = 20

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes cart mutations. Every mutation runs in one transaction.
type Service interface {
	AddOrIncrement(ctx context.Context, userID, variantID uuid.UUID, quantity int) (*models.Cart, error)
	UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*models.Cart, error)
	// Remove deletes a line. It returns nil when the cart became empty and was deleted.
	Remove(ctx context.Context, userID, lineID uuid.UUID) (*models.Cart, error)
	Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
}

type service struct {
	repo CartRepository
	tx   txRunner
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) AddOrIncrement(ctx context.Context, userID, variantID uuid.UUID, quantity int) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		variant, err := repo.FindVariant(ctx, variantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
		}

		cart, err := repo.FindByUser(ctx, userID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			cart = &models.Cart{UserID: userID}
			if err := repo.Create(ctx, cart); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
			}
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}

		line, err := repo.FindLineByVariant(ctx, cart.ID, variantID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			line = &models.CartLine{
				CartID:    cart.ID,
				VariantID: variantID,
				Quantity:  clampQuantity(quantity),
				UnitPrice: variant.Price,
			}
			if err := repo.CreateLine(ctx, line); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart line")
			}
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
		default:
			if err := repo.UpdateLineQuantity(ctx, line.ID, clampQuantity(line.Quantity+quantity)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
			}
		}

		result, err = s.refresh(ctx, repo, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		line, err := s.ownedLine(ctx, repo, userID, lineID)
		if err != nil {
			return err
		}
		if err := repo.UpdateLineQuantity(ctx, line.ID, clampQuantity(quantity)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
		}
		result, err = s.refresh(ctx, repo, line.CartID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Remove(ctx context.Context, userID, lineID uuid.UUID) (*models.Cart, error) {
	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		line, err := s.ownedLine(ctx, repo, userID, lineID)
		if err != nil {
			return err
		}
		if _, err := repo.DeleteLines(ctx, []uuid.UUID{line.ID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart line")
		}
		result, err = RecomputeOrDelete(ctx, repo, line.CartID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.Cart{UserID: userID, Lines: []models.CartLine{}}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return cart, nil
}

// RecomputeOrDelete refreshes item_count for the cart, deleting the cart when
// no lines remain. It returns nil in that case.
func RecomputeOrDelete(ctx context.Context, repo CartRepository, cartID uuid.UUID) (*models.Cart, error) {
	count, err := repo.RefreshItemCount(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recompute cart")
	}
	if count == 0 {
		if err := repo.Delete(ctx, cartID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete empty cart")
		}
		return nil, nil
	}
	cart, err := repo.FindByID(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload cart")
	}
	return cart, nil
}

func (s *service) refresh(ctx context.Context, repo CartRepository, cartID uuid.UUID) (*models.Cart, error) {
	if _, err := repo.RefreshItemCount(ctx, cartID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recompute cart")
	}
	cart, err := repo.FindByID(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload cart")
	}
	return cart, nil
}

func (s *service) ownedLine(ctx context.Context, repo CartRepository, userID, lineID uuid.UUID) (*models.CartLine, error) {
	line, err := repo.FindLine(ctx, lineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
	}
	cart, err := repo.FindByID(ctx, line.CartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if cart.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart line belongs to another user")
	}
	return line, nil
}

func clampQuantity(q int) int {
	if q > MaxPerVariant {
		return MaxPerVariant
	}
	if q < 1 {
		return 1
	}
	return q
}
