package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm/clause"
)

// Allocation is a claim on part of a Purchase's quantity, assigned to one
// store for retail sale. Invariants enforced here:
//
//	A1: sum(allocation.quantity) per purchase  <= purchase.quantity
//	A2: barcode is globally unique (in-tx check + unique index)
//
// The quantity column is never decremented by sales; shelf availability is the
// derived remaining() value (see aggregates.go), which keeps allocations and
// sale_lines append-mostly and auditable.
type Allocation struct {
	ID           int             `gorm:"primary_key" json:"id"`
	PurchaseId   int             `gorm:"index;not null" json:"purchase_id"`
	ProductId    int             `gorm:"index;not null" json:"product_id"`
	StoreId      int             `gorm:"index;not null" json:"store_id"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"selling_price"`
	Barcode      string          `gorm:"size:100;uniqueIndex;not null" json:"barcode"`
	RackLocation string          `gorm:"size:100" json:"rack_location"`
	ExpiryDate   *time.Time      `json:"expiry_date"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAllocation struct {
	PurchaseId   int             `json:"purchase_id" validate:"required,gt=0"`
	StoreId      int             `json:"store_id" validate:"required,gt=0"`
	Quantity     int             `json:"quantity" validate:"required,gt=0"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Barcode      string          `json:"barcode" validate:"required"`
	RackLocation string          `json:"rack_location"`
	ExpiryDate   *time.Time      `json:"expiry_date"`
}

type UpdateAllocationInput struct {
	Quantity     int             `json:"quantity" validate:"required,gt=0"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Barcode      string          `json:"barcode" validate:"required"`
	RackLocation string          `json:"rack_location"`
	ExpiryDate   *time.Time      `json:"expiry_date"`
}

// AssignStockResult carries the created allocation plus business warnings that
// are surfaced to the caller without failing the operation.
type AssignStockResult struct {
	Allocation *Allocation `json:"allocation"`
	Warnings   []string    `json:"warnings,omitempty"`
}

// AssignStock claims part of a purchase's remaining quantity for a store.
//
// The purchase row is locked FOR UPDATE before the allocated sum is read, so
// two concurrent assignments against the same purchase serialize and cannot
// both observe stale headroom (the classic read-then-insert race).
func AssignStock(ctx context.Context, input *NewAllocation) (*AssignStockResult, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	if err := validateInput(input); err != nil {
		return nil, err
	}
	if !input.SellingPrice.IsPositive() {
		return nil, &InvalidInputError{Reason: "selling price must be greater than zero"}
	}
	barcode := strings.TrimSpace(input.Barcode)
	if barcode == "" {
		return nil, &InvalidInputError{Reason: "barcode must not be empty"}
	}

	tx := db.WithContext(ctx).Begin()
	// Always rollback on early-return or panic to avoid leaking row locks
	// (leaked transactions are a common cause of MySQL 1205 lock wait timeouts).
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	var purchase Purchase
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&purchase, input.PurchaseId).Error; err != nil {
		return nil, &NotFoundError{Resource: "purchase"}
	}

	allocated, err := allocatedQuantityTx(tx, purchase.ID)
	if err != nil {
		return nil, classifyTxError(err, "")
	}
	remaining := purchase.Quantity - allocated
	if input.Quantity > remaining {
		return nil, &InsufficientQuantityError{Available: remaining}
	}

	var storeCount int64
	if err := tx.Model(&Store{}).Where("id = ?", input.StoreId).Count(&storeCount).Error; err != nil {
		return nil, classifyTxError(err, "")
	}
	if storeCount == 0 {
		return nil, &NotFoundError{Resource: "store"}
	}

	var barcodeCount int64
	if err := tx.Model(&Allocation{}).Where("barcode = ?", barcode).Count(&barcodeCount).Error; err != nil {
		return nil, classifyTxError(err, "")
	}
	if barcodeCount > 0 {
		return nil, &DuplicateBarcodeError{Barcode: barcode}
	}

	allocation := Allocation{
		PurchaseId:   purchase.ID,
		ProductId:    purchase.ProductId,
		StoreId:      input.StoreId,
		Quantity:     input.Quantity,
		SellingPrice: input.SellingPrice,
		Barcode:      barcode,
		RackLocation: input.RackLocation,
		ExpiryDate:   input.ExpiryDate,
	}
	if err := tx.Create(&allocation).Error; err != nil {
		return nil, classifyTxError(err, barcode)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, classifyTxError(err, barcode)
	}

	result := &AssignStockResult{Allocation: &allocation}
	// Selling below cost is a business warning, never a ledger error.
	if allocation.SellingPrice.LessThan(purchase.UnitPurchasePrice) {
		result.Warnings = append(result.Warnings, "selling price is below unit purchase price")
		userId, _ := utils.GetUserIdFromContext(ctx)
		userName, _ := utils.GetUserNameFromContext(ctx)
		logger.WithFields(logrus.Fields{
			"module":        "allocation",
			"funcName":      "AssignStock",
			"allocationId":  allocation.ID,
			"purchaseId":    purchase.ID,
			"sellingPrice":  allocation.SellingPrice.String(),
			"purchasePrice": purchase.UnitPurchasePrice.String(),
			"userId":        userId,
			"userName":      userName,
			"correlationId": correlationIdFromContextOrNew(ctx),
		}).Warn("allocation priced below purchase cost")
	}

	clearStoreStatsCache(allocation.StoreId)
	return result, nil
}

// UpdateAllocation edits quantity, price, barcode, rack location and expiry.
//
// Quantity headroom is computed at the product level: every purchase row of the
// product is locked FOR UPDATE first, so concurrent AssignStock/UpdateAllocation
// calls on the same product serialize on at least one common row. Shrinking the
// quantity below already-sold units is rejected to keep remaining() >= 0.
func UpdateAllocation(ctx context.Context, allocationID int, input *UpdateAllocationInput) (*Allocation, error) {
	db := config.GetDB()

	if err := validateInput(input); err != nil {
		return nil, err
	}
	if !input.SellingPrice.IsPositive() {
		return nil, &InvalidInputError{Reason: "selling price must be greater than zero"}
	}
	barcode := strings.TrimSpace(input.Barcode)
	if barcode == "" {
		return nil, &InvalidInputError{Reason: "barcode must not be empty"}
	}

	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	var allocation Allocation
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&allocation, allocationID).Error; err != nil {
		return nil, &NotFoundError{Resource: "allocation"}
	}

	// Lock the product's purchases in id order before reading product sums.
	var purchases []Purchase
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", allocation.ProductId).
		Order("id").
		Find(&purchases).Error; err != nil {
		return nil, classifyTxError(err, "")
	}

	totalPurchased, err := totalPurchasedForProductTx(tx, allocation.ProductId)
	if err != nil {
		return nil, classifyTxError(err, "")
	}
	totalAllocated, err := totalAllocatedForProductTx(tx, allocation.ProductId)
	if err != nil {
		return nil, classifyTxError(err, "")
	}
	headroom := totalPurchased - (totalAllocated - allocation.Quantity)
	if input.Quantity > headroom {
		return nil, &InsufficientQuantityError{Available: headroom}
	}

	sold, err := soldQuantityTx(tx, allocation.ID)
	if err != nil {
		return nil, classifyTxError(err, "")
	}
	if input.Quantity < sold {
		return nil, &InsufficientQuantityError{Available: sold}
	}

	if barcode != allocation.Barcode {
		var barcodeCount int64
		if err := tx.Model(&Allocation{}).
			Where("barcode = ? AND NOT id = ?", barcode, allocation.ID).
			Count(&barcodeCount).Error; err != nil {
			return nil, classifyTxError(err, "")
		}
		if barcodeCount > 0 {
			return nil, &DuplicateBarcodeError{Barcode: barcode}
		}
	}

	allocation.Quantity = input.Quantity
	allocation.SellingPrice = input.SellingPrice
	allocation.Barcode = barcode
	allocation.RackLocation = input.RackLocation
	allocation.ExpiryDate = input.ExpiryDate
	if err := tx.Save(&allocation).Error; err != nil {
		return nil, classifyTxError(err, barcode)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, classifyTxError(err, barcode)
	}

	clearStoreStatsCache(allocation.StoreId)
	return &allocation, nil
}

// DeleteAllocation removes the claim entirely, releasing its quantity back to
// the owning purchase's available pool. Allocations with sold units cannot be
// deleted: sale lines reference them and the sale history must stay intact.
func DeleteAllocation(ctx context.Context, allocationID int) error {
	db := config.GetDB()

	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	var allocation Allocation
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&allocation, allocationID).Error; err != nil {
		return &NotFoundError{Resource: "allocation"}
	}

	sold, err := soldQuantityTx(tx, allocation.ID)
	if err != nil {
		return classifyTxError(err, "")
	}
	if sold > 0 {
		return &AllocationInUseError{Sold: sold}
	}

	if err := tx.Delete(&allocation).Error; err != nil {
		return classifyTxError(err, "")
	}

	if err := tx.Commit().Error; err != nil {
		return classifyTxError(err, "")
	}

	clearStoreStatsCache(allocation.StoreId)
	return nil
}

// GetAllocation loads one allocation by id.
func GetAllocation(ctx context.Context, id int) (*Allocation, error) {
	db := config.GetDB()

	var allocation Allocation
	if err := db.WithContext(ctx).First(&allocation, id).Error; err != nil {
		return nil, &NotFoundError{Resource: "allocation"}
	}
	return &allocation, nil
}
