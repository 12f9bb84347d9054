package repotest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Epoch is a fixed UTC instant used as "now" in fixtures.
var Epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// SeedUser inserts a customer with a complete delivery profile.
func SeedUser(t testing.TB, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{
		Email:        uuid.NewString() + "@example.test",
		Role:         enums.ActorRoleCustomer,
		FullName:     "Nguyen Van An",
		Phone:        "0901234567",
		AddressLine:  "12 Le Loi",
		ProvinceCode: 202,
		DistrictCode: 1442,
		WardCode:     "20308",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedVariant inserts a variant with the given price and weight.
func SeedVariant(t testing.TB, db *gorm.DB, price int64, weightGrams int) models.Variant {
	t.Helper()
	variant := models.Variant{
		ProductID:   uuid.New(),
		Name:        "Variant " + uuid.NewString()[:8],
		Price:       price,
		WeightGrams: weightGrams,
	}
	if err := db.Create(&variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
	return variant
}

// BatchSpec tweaks a seeded batch. Zero values fall back to defaults.
type BatchSpec struct {
	Code       string
	Quantity   int
	Remaining  *int
	ImportDate time.Time
	ExpiryDate *time.Time
	Status     enums.BatchStatus
}

// SeedBatch inserts an active batch for the variant.
func SeedBatch(t testing.TB, db *gorm.DB, variantID uuid.UUID, spec BatchSpec) models.StockBatch {
	t.Helper()
	if spec.Code == "" {
		spec.Code = "B-" + uuid.NewString()[:8]
	}
	if spec.Quantity == 0 {
		spec.Quantity = 10
	}
	remaining := spec.Quantity
	if spec.Remaining != nil {
		remaining = *spec.Remaining
	}
	if spec.ImportDate.IsZero() {
		spec.ImportDate = Epoch.AddDate(0, 0, -7)
	}
	if spec.Status == "" {
		spec.Status = enums.BatchStatusActive
	}
	batch := models.StockBatch{
		BatchCode:         spec.Code,
		VariantID:         variantID,
		ImportPrice:       1000,
		Quantity:          spec.Quantity,
		RemainingQuantity: remaining,
		ImportDate:        spec.ImportDate,
		ExpiryDate:        spec.ExpiryDate,
		Status:            spec.Status,
	}
	if err := db.Create(&batch).Error; err != nil {
		t.Fatalf("seed batch: %v", err)
	}
	return batch
}

// ReloadBatch reads the batch back from the database.
func ReloadBatch(t testing.TB, db *gorm.DB, id uuid.UUID) models.StockBatch {
	t.Helper()
	var batch models.StockBatch
	if err := db.Where("id = ?", id).First(&batch).Error; err != nil {
		t.Fatalf("reload batch: %v", err)
	}
	return batch
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// OrderItemSpec is one seeded order line.
type OrderItemSpec struct {
	VariantID uuid.UUID
	Quantity  int
	UnitPrice int64
	BatchID   *uuid.UUID
}

// OrderSpec tweaks a seeded order. Status defaults to pending and the method to cod.
type OrderSpec struct {
	UserID        uuid.UUID
	Method        enums.PaymentMethod
	Status        enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	CarrierCode   *string
	ShippingFee   int64
	CreatedAt     time.Time
	Items         []OrderItemSpec
}

// SeedOrder inserts an order with its items, copying the destination from a
// complete profile.
func SeedOrder(t testing.TB, db *gorm.DB, spec OrderSpec) models.Order {
	t.Helper()
	if spec.Method == "" {
		spec.Method = enums.PaymentMethodCOD
	}
	if spec.Status == "" {
		spec.Status = enums.OrderStatusPending
	}
	if spec.PaymentStatus == nil && spec.Method == enums.PaymentMethodOnline {
		pending := enums.PaymentStatusPending
		spec.PaymentStatus = &pending
	}
	order := models.Order{
		UserID:           spec.UserID,
		RecipientName:    "Nguyen Van An",
		RecipientPhone:   "0901234567",
		AddressLine:      "12 Le Loi",
		ProvinceCode:     202,
		DistrictCode:     1442,
		WardCode:         "20308",
		PaymentMethod:    spec.Method,
		PaymentStatus:    spec.PaymentStatus,
		ShippingFee:      spec.ShippingFee,
		Status:           spec.Status,
		CarrierOrderCode: spec.CarrierCode,
		CreatedAt:        spec.CreatedAt,
	}
	var subtotal int64
	for _, item := range spec.Items {
		order.Items = append(order.Items, models.OrderItem{
			VariantID: item.VariantID,
			BatchID:   item.BatchID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
		subtotal += int64(item.Quantity) * item.UnitPrice
	}
	order.TotalPrice = subtotal + spec.ShippingFee
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

// ReloadOrder reads the order and its items back from the database.
func ReloadOrder(t testing.TB, db *gorm.DB, id uuid.UUID) models.Order {
	t.Helper()
	var order models.Order
	if err := db.Preload("Items").Where("id = ?", id).First(&order).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	return order
}

// CountEvents returns how many outbox rows of the given type reference the aggregate.
func CountEvents(t testing.TB, db *gorm.DB, eventType enums.OutboxEventType, aggregateID uuid.UUID) int {
	t.Helper()
	var count int64
	err := db.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", eventType, aggregateID).
		Count(&count).Error
	if err != nil {
		t.Fatalf("count events: %v", err)
	}
	return int(count)
}
