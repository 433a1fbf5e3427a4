package models

import (
	"context"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"gorm.io/gorm"
)

// Derived quantity reads. Availability is never stored as a mutable counter;
// every number here is a sum over the dependent rows, so the ledger-of-record
// (allocations + sale_lines) cannot drift from what callers see.
//
// The *Tx variants run inside a caller-owned transaction and MUST be called
// after the governing rows are locked FOR UPDATE when the result gates a write.

func allocatedQuantityTx(tx *gorm.DB, purchaseID int) (int, error) {
	var total int
	err := tx.Model(&Allocation{}).
		Where("purchase_id = ?", purchaseID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return total, err
}

func soldQuantityTx(tx *gorm.DB, allocationID int) (int, error) {
	var total int
	err := tx.Model(&SaleLine{}).
		Where("allocation_id = ?", allocationID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return total, err
}

func totalAllocatedForProductTx(tx *gorm.DB, productID int) (int, error) {
	var total int
	err := tx.Model(&Allocation{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return total, err
}

func totalPurchasedForProductTx(tx *gorm.DB, productID int) (int, error) {
	var total int
	err := tx.Model(&Purchase{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return total, err
}

// AllocatedQuantity returns the units of a purchase already claimed by
// allocations (0 when none exist).
func AllocatedQuantity(ctx context.Context, purchaseID int) (int, error) {
	db := config.GetDB()
	return allocatedQuantityTx(db.WithContext(ctx), purchaseID)
}

// RemainingPurchaseQuantity returns purchase.quantity minus the allocated sum.
func RemainingPurchaseQuantity(ctx context.Context, purchaseID int) (int, error) {
	db := config.GetDB()

	var purchase Purchase
	if err := db.WithContext(ctx).First(&purchase, purchaseID).Error; err != nil {
		return 0, &NotFoundError{Resource: "purchase"}
	}
	allocated, err := allocatedQuantityTx(db.WithContext(ctx), purchaseID)
	if err != nil {
		return 0, err
	}
	return purchase.Quantity - allocated, nil
}

// SoldQuantity returns the units of an allocation consumed by sale lines.
func SoldQuantity(ctx context.Context, allocationID int) (int, error) {
	db := config.GetDB()
	return soldQuantityTx(db.WithContext(ctx), allocationID)
}

// RemainingAllocationQuantity returns allocation.quantity minus the sold sum.
func RemainingAllocationQuantity(ctx context.Context, allocationID int) (int, error) {
	db := config.GetDB()

	var allocation Allocation
	if err := db.WithContext(ctx).First(&allocation, allocationID).Error; err != nil {
		return 0, &NotFoundError{Resource: "allocation"}
	}
	sold, err := soldQuantityTx(db.WithContext(ctx), allocationID)
	if err != nil {
		return 0, err
	}
	return allocation.Quantity - sold, nil
}

// TotalAllocatedForProduct sums allocation quantities across every purchase of
// a product. Product-level headroom is needed when editing an allocation: a
// product may have many purchases and many allocations, not a 1:1 chain.
func TotalAllocatedForProduct(ctx context.Context, productID int) (int, error) {
	db := config.GetDB()
	return totalAllocatedForProductTx(db.WithContext(ctx), productID)
}

// TotalPurchasedForProduct sums purchase quantities of a product.
func TotalPurchasedForProduct(ctx context.Context, productID int) (int, error) {
	db := config.GetDB()
	return totalPurchasedForProductTx(db.WithContext(ctx), productID)
}
