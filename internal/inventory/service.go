package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

const (
	ReasonInsufficientStock      = "insufficient_stock"
	ReasonRestockExceedsQuantity = "restock_exceeds_quantity"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the inventory ledger: batch allocation and the only writer of
// stock counters.
type Service interface {
	// WithTx binds the ledger to an open transaction.
	WithTx(tx *gorm.DB) Service
	FindAllocatableBatch(ctx context.Context, variantID uuid.UUID, quantityNeeded int, asOf time.Time) (*models.StockBatch, error)
	Decrement(ctx context.Context, batchID uuid.UUID, quantity int) error
	Restock(ctx context.Context, batchID uuid.UUID, quantity int) error
	IsAvailable(ctx context.Context, variantID uuid.UUID, asOf time.Time) (bool, error)
	Availability(ctx context.Context, variantIDs []uuid.UUID, asOf time.Time) (map[uuid.UUID]int64, error)
	CreateBatch(ctx context.Context, input CreateBatchInput) (*models.StockBatch, error)
	SetBatchStatus(ctx context.Context, batchID uuid.UUID, status enums.BatchStatus) (*models.StockBatch, error)
}

// CreateBatchInput describes a stock intake.
type CreateBatchInput struct {
	BatchCode   string
	VariantID   uuid.UUID
	ImportPrice int64
	Quantity    int
	ExpiryDate  *time.Time
	ImportDate  *time.Time
	Status      enums.BatchStatus
}

var batchTransitions = map[enums.BatchStatus][]enums.BatchStatus{
	enums.BatchStatusNotStarted: {enums.BatchStatusActive, enums.BatchStatusPaused, enums.BatchStatusDiscontinued},
	enums.BatchStatusActive:     {enums.BatchStatusPaused, enums.BatchStatusExpired, enums.BatchStatusDiscontinued},
	enums.BatchStatusPaused:     {enums.BatchStatusActive, enums.BatchStatusExpired, enums.BatchStatusDiscontinued},
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxEmitter
	bound  *gorm.DB
	now    func() time.Time
}

// NewService builds the ledger. The outbox emitter may be nil, in which case
// sold-out events are not recorded.
func NewService(repo Repository, tx txRunner, emitter outboxEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: emitter,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	clone := *s
	clone.repo = s.repo.WithTx(tx)
	clone.bound = tx
	return &clone
}

func (s *service) inTx(ctx context.Context, fn func(repo Repository, tx *gorm.DB) error) error {
	if s.bound != nil {
		return fn(s.repo, s.bound)
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return fn(s.repo.WithTx(tx), tx)
	})
}

func (s *service) FindAllocatableBatch(ctx context.Context, variantID uuid.UUID, quantityNeeded int, asOf time.Time) (*models.StockBatch, error) {
	if variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id required")
	}
	if quantityNeeded <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	batch, err := s.repo.FindAllocatable(ctx, variantID, quantityNeeded, asOf.UTC())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no allocatable batch").
				WithDetails(map[string]any{"variant_id": variantID.String(), "quantity": quantityNeeded})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find allocatable batch")
	}
	return batch, nil
}

func (s *service) Decrement(ctx context.Context, batchID uuid.UUID, quantity int) error {
	if batchID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return s.inTx(ctx, func(repo Repository, tx *gorm.DB) error {
		rows, err := repo.Decrement(ctx, batchID, quantity, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement batch")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock in batch").
				WithDetails(map[string]any{"reason": ReasonInsufficientStock, "batch_id": batchID.String()})
		}
		if s.outbox == nil {
			return nil
		}
		batch, err := repo.FindByID(ctx, batchID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload batch")
		}
		if batch.Status != enums.BatchStatusSoldOut {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockBatchSoldOut,
			AggregateType: enums.AggregateStockBatch,
			AggregateID:   batch.ID,
			Data: payloads.StockBatchEvent{
				BatchID:           batch.ID,
				VariantID:         batch.VariantID,
				RemainingQuantity: batch.RemainingQuantity,
				Status:            batch.Status,
			},
		})
	})
}

func (s *service) Restock(ctx context.Context, batchID uuid.UUID, quantity int) error {
	if batchID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return s.inTx(ctx, func(repo Repository, _ *gorm.DB) error {
		rows, err := repo.Restock(ctx, batchID, quantity, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restock batch")
		}
		if rows > 0 {
			return nil
		}
		if _, err := repo.FindByID(ctx, batchID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load batch")
		}
		return pkgerrors.New(pkgerrors.CodeConflict, "restock exceeds batch quantity").
			WithDetails(map[string]any{"reason": ReasonRestockExceedsQuantity, "batch_id": batchID.String()})
	})
}

func (s *service) IsAvailable(ctx context.Context, variantID uuid.UUID, asOf time.Time) (bool, error) {
	ok, err := s.repo.HasAvailable(ctx, variantID, asOf.UTC())
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check availability")
	}
	return ok, nil
}

func (s *service) Availability(ctx context.Context, variantIDs []uuid.UUID, asOf time.Time) (map[uuid.UUID]int64, error) {
	out, err := s.repo.SumAvailable(ctx, variantIDs, asOf.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum availability")
	}
	return out, nil
}

func (s *service) CreateBatch(ctx context.Context, input CreateBatchInput) (*models.StockBatch, error) {
	code := strings.TrimSpace(input.BatchCode)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch code required")
	}
	if input.VariantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.ImportPrice < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "import price must be non-negative")
	}
	importDate := s.now()
	if input.ImportDate != nil {
		importDate = input.ImportDate.UTC()
	}
	var expiry *time.Time
	if input.ExpiryDate != nil {
		e := input.ExpiryDate.UTC()
		if !e.After(importDate) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiry date must be after import date")
		}
		expiry = &e
	}
	status := input.Status
	if status == "" {
		status = enums.BatchStatusActive
	}
	if status != enums.BatchStatusActive && status != enums.BatchStatusNotStarted && status != enums.BatchStatusPaused {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "new batches must start as active, not_started or paused")
	}

	batch := &models.StockBatch{
		BatchCode:         code,
		VariantID:         input.VariantID,
		ImportPrice:       input.ImportPrice,
		Quantity:          input.Quantity,
		RemainingQuantity: input.Quantity,
		ExpiryDate:        expiry,
		ImportDate:        importDate,
		Status:            status,
	}
	err := s.inTx(ctx, func(repo Repository, _ *gorm.DB) error {
		exists, err := repo.VariantExists(ctx, input.VariantID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		if err := repo.Create(ctx, batch); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "batch code already exists").
					WithDetails(map[string]any{"reason": "duplicate_batch_code", "batch_code": code})
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create batch")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (s *service) SetBatchStatus(ctx context.Context, batchID uuid.UUID, status enums.BatchStatus) (*models.StockBatch, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid batch status")
	}
	if status == enums.BatchStatusSoldOut {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sold_out is derived from remaining quantity")
	}
	var updated *models.StockBatch
	err := s.inTx(ctx, func(repo Repository, _ *gorm.DB) error {
		batch, err := repo.FindByID(ctx, batchID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load batch")
		}
		if batch.Status == status {
			updated = batch
			return nil
		}
		if !canTransitionBatch(batch.Status, status) {
			return pkgerrors.New(pkgerrors.CodeConflict, "batch status change not allowed").
				WithDetails(map[string]any{
					"current_status":   batch.Status,
					"allowed_statuses": batchTransitions[batch.Status],
				})
		}
		if status == enums.BatchStatusActive && batch.RemainingQuantity == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "cannot activate an empty batch").
				WithDetails(map[string]any{"reason": ReasonInsufficientStock, "batch_id": batchID.String()})
		}
		rows, err := repo.UpdateStatus(ctx, batchID, batch.Status, status, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update batch status")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "batch changed concurrently")
		}
		batch.Status = status
		updated = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func canTransitionBatch(from, to enums.BatchStatus) bool {
	for _, candidate := range batchTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
