package models_test

import (
	"errors"
	"fmt"
	"testing"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"github.com/shopspring/decimal"
)

// Regression: RecordSale must enforce allocation conservation (A3) exactly:
// Allocation(20) sells 15, then rejects 6 with available=5, then sells 5.
func TestRecordSale_AllocationConservation(t *testing.T) {
	ctx := setupLedger(t)

	store, _, purchase := seedChain(t, ctx, 100, decimal.NewFromInt(3000))

	assigned, err := models.AssignStock(ctx, &models.NewAllocation{
		PurchaseId:   purchase.ID,
		StoreId:      store.ID,
		Quantity:     20,
		SellingPrice: decimal.NewFromInt(5000),
		Barcode:      "BC-SALE-001",
	})
	if err != nil {
		t.Fatalf("AssignStock: %v", err)
	}
	allocationID := assigned.Allocation.ID

	sellQty := func(qty int) error {
		price := decimal.NewFromInt(5000)
		total := price.Mul(decimal.NewFromInt(int64(qty)))
		_, err := models.RecordSale(ctx, &models.NewSale{
			StoreId:    store.ID,
			CashierId:  1,
			Subtotal:   total,
			GrandTotal: total,
			Details: []models.NewSaleLine{
				{AllocationId: allocationID, Quantity: qty, UnitPrice: price},
			},
			Payments: []models.NewPaymentSplit{
				{Method: models.PaymentMethodCash, Amount: total},
			},
		})
		return err
	}

	if err := sellQty(15); err != nil {
		t.Fatalf("RecordSale(15): %v", err)
	}

	remaining, err := models.RemainingAllocationQuantity(ctx, allocationID)
	if err != nil {
		t.Fatalf("RemainingAllocationQuantity: %v", err)
	}
	if remaining != 5 {
		t.Fatalf("expected remaining=5 after selling 15, got %d", remaining)
	}
	// Idempotence: a second read without intervening writes returns the same value.
	again, err := models.RemainingAllocationQuantity(ctx, allocationID)
	if err != nil {
		t.Fatalf("RemainingAllocationQuantity (2nd): %v", err)
	}
	if again != remaining {
		t.Fatalf("remaining not idempotent: %d then %d", remaining, again)
	}

	err = sellQty(6)
	var insufficient *models.InsufficientQuantityError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientQuantityError for qty 6, got %v", err)
	}
	if insufficient.Available != 5 {
		t.Fatalf("expected available=5 in error, got %d", insufficient.Available)
	}

	if err := sellQty(5); err != nil {
		t.Fatalf("RecordSale(5): %v", err)
	}
	remaining, err = models.RemainingAllocationQuantity(ctx, allocationID)
	if err != nil {
		t.Fatalf("RemainingAllocationQuantity: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected remaining=0 after exhausting allocation, got %d", remaining)
	}
}

// Regression: a 3-line sale whose 2nd line exceeds remaining quantity persists
// nothing at all - no header, no lines, no payment splits.
func TestRecordSale_MultiLineFullRollback(t *testing.T) {
	ctx := setupLedger(t)

	store, _, purchase := seedChain(t, ctx, 100, decimal.NewFromInt(3000))

	price := decimal.NewFromInt(5000)
	barcodes := []string{"BC-RB-001", "BC-RB-002", "BC-RB-003"}
	allocationIds := make([]int, 0, 3)
	for _, barcode := range barcodes {
		assigned, err := models.AssignStock(ctx, &models.NewAllocation{
			PurchaseId:   purchase.ID,
			StoreId:      store.ID,
			Quantity:     10,
			SellingPrice: price,
			Barcode:      barcode,
		})
		if err != nil {
			t.Fatalf("AssignStock(%s): %v", barcode, err)
		}
		allocationIds = append(allocationIds, assigned.Allocation.ID)
	}

	_, err := models.RecordSale(ctx, &models.NewSale{
		StoreId:    store.ID,
		CashierId:  1,
		Subtotal:   decimal.NewFromInt(95000),
		GrandTotal: decimal.NewFromInt(95000),
		Details: []models.NewSaleLine{
			{AllocationId: allocationIds[0], Quantity: 4, UnitPrice: price},
			{AllocationId: allocationIds[1], Quantity: 11, UnitPrice: price}, // exceeds remaining=10
			{AllocationId: allocationIds[2], Quantity: 4, UnitPrice: price},
		},
		Payments: []models.NewPaymentSplit{
			{Method: models.PaymentMethodCard, Amount: decimal.NewFromInt(95000)},
		},
	})
	var insufficient *models.InsufficientQuantityError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientQuantityError, got %v", err)
	}
	if insufficient.Available != 10 {
		t.Fatalf("expected available=10 in error, got %d", insufficient.Available)
	}

	db := config.GetDB()
	var saleCount, lineCount, splitCount int64
	if err := db.WithContext(ctx).Model(&models.Sale{}).Count(&saleCount).Error; err != nil {
		t.Fatalf("count sales: %v", err)
	}
	if err := db.WithContext(ctx).Model(&models.SaleLine{}).Count(&lineCount).Error; err != nil {
		t.Fatalf("count sale lines: %v", err)
	}
	if err := db.WithContext(ctx).Model(&models.PaymentSplit{}).Count(&splitCount).Error; err != nil {
		t.Fatalf("count payment splits: %v", err)
	}
	if saleCount != 0 || lineCount != 0 || splitCount != 0 {
		t.Fatalf("expected full rollback, got sales=%d lines=%d splits=%d", saleCount, lineCount, splitCount)
	}
}

// Regression: a sale line against an allocation from another store must fail
// as NotFound and persist nothing.
func TestRecordSale_RejectsForeignStoreAllocation(t *testing.T) {
	ctx := setupLedger(t)

	store, _, purchase := seedChain(t, ctx, 100, decimal.NewFromInt(3000))
	otherStore, err := models.CreateStore(ctx, &models.NewStore{Name: "Other Store"})
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}

	assigned, err := models.AssignStock(ctx, &models.NewAllocation{
		PurchaseId:   purchase.ID,
		StoreId:      store.ID,
		Quantity:     10,
		SellingPrice: decimal.NewFromInt(5000),
		Barcode:      "BC-FOREIGN-001",
	})
	if err != nil {
		t.Fatalf("AssignStock: %v", err)
	}

	_, err = models.RecordSale(ctx, &models.NewSale{
		StoreId:    otherStore.ID,
		CashierId:  1,
		Subtotal:   decimal.NewFromInt(5000),
		GrandTotal: decimal.NewFromInt(5000),
		Details: []models.NewSaleLine{
			{AllocationId: assigned.Allocation.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(5000)},
		},
	})
	var notFound *models.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for foreign-store allocation, got %v", err)
	}

	var saleCount int64
	if err := config.GetDB().WithContext(ctx).Model(&models.Sale{}).Count(&saleCount).Error; err != nil {
		t.Fatalf("count sales: %v", err)
	}
	if saleCount != 0 {
		t.Fatalf("expected no persisted sale, got %d", saleCount)
	}
}

// StoreStats classifies by the allocation's own quantity column (>10 in, 1-10
// low, 0 out) and sums quantity * selling_price; mutations invalidate the cache.
func TestGetStoreStats_ClassificationAndCacheInvalidation(t *testing.T) {
	ctx := setupLedger(t)

	store, _, purchase := seedChain(t, ctx, 100, decimal.NewFromInt(3000))

	price := decimal.NewFromInt(5000)
	big, err := models.AssignStock(ctx, &models.NewAllocation{
		PurchaseId:   purchase.ID,
		StoreId:      store.ID,
		Quantity:     15,
		SellingPrice: price,
		Barcode:      "BC-STATS-001",
	})
	if err != nil {
		t.Fatalf("AssignStock(15): %v", err)
	}
	if _, err := models.AssignStock(ctx, &models.NewAllocation{
		PurchaseId:   purchase.ID,
		StoreId:      store.ID,
		Quantity:     5,
		SellingPrice: price,
		Barcode:      "BC-STATS-002",
	}); err != nil {
		t.Fatalf("AssignStock(5): %v", err)
	}

	stats, err := models.GetStoreStats(ctx, store.ID)
	if err != nil {
		t.Fatalf("GetStoreStats: %v", err)
	}
	cacheKey := fmt.Sprintf("StoreStats:%d", store.ID)
	if n, err := config.GetRedisDB().Exists(ctx, cacheKey).Result(); err != nil || n != 1 {
		t.Fatalf("expected stats cached under %s (n=%d err=%v)", cacheKey, n, err)
	}
	if stats.TotalProducts != 1 {
		t.Fatalf("expected 1 distinct product, got %d", stats.TotalProducts)
	}
	if stats.InStock != 1 || stats.LowStock != 1 || stats.OutOfStock != 0 {
		t.Fatalf("unexpected classification: %+v", stats)
	}
	// 20 units at 5000 each.
	if !stats.StockValue.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("expected stock value 100000, got %s", stats.StockValue)
	}

	// Selling units does NOT change classification (judged on raw quantity)...
	if _, err := models.RecordSale(ctx, &models.NewSale{
		StoreId:    store.ID,
		CashierId:  1,
		Subtotal:   price,
		GrandTotal: price,
		Details: []models.NewSaleLine{
			{AllocationId: big.Allocation.ID, Quantity: 1, UnitPrice: price},
		},
	}); err != nil {
		t.Fatalf("RecordSale: %v", err)
	}
	stats, err = models.GetStoreStats(ctx, store.ID)
	if err != nil {
		t.Fatalf("GetStoreStats: %v", err)
	}
	if stats.InStock != 1 || stats.LowStock != 1 {
		t.Fatalf("classification changed by sale: %+v", stats)
	}

	// ...but editing the allocation must show up immediately (cache invalidated).
	if _, err := models.UpdateAllocation(ctx, big.Allocation.ID, &models.UpdateAllocationInput{
		Quantity:     8,
		SellingPrice: price,
		Barcode:      "BC-STATS-001",
	}); err != nil {
		t.Fatalf("UpdateAllocation: %v", err)
	}
	if n, err := config.GetRedisDB().Exists(ctx, cacheKey).Result(); err != nil || n != 0 {
		t.Fatalf("expected cache key %s dropped after edit (n=%d err=%v)", cacheKey, n, err)
	}
	stats, err = models.GetStoreStats(ctx, store.ID)
	if err != nil {
		t.Fatalf("GetStoreStats after edit: %v", err)
	}
	if stats.InStock != 0 || stats.LowStock != 2 {
		t.Fatalf("expected 0 in-stock / 2 low-stock after shrinking to 8, got %+v", stats)
	}
	if !stats.StockValue.Equal(decimal.NewFromInt(65000)) {
		t.Fatalf("expected stock value 65000 after edit, got %s", stats.StockValue)
	}
}
