package models

import (
	"context"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
)

// StoreStats is the dashboard rollup for one store.
//
// NOTE: stock level classification is judged on each allocation's OWN quantity
// column, not on derived remaining(). Units already sold are ignored, so
// "in stock" can overstate real shelf availability. This matches the behavior
// dashboards were built against; product owners have been told, do not change
// the classification silently.
type StoreStats struct {
	TotalProducts int             `json:"total_products"`
	InStock       int             `json:"in_stock"`
	LowStock      int             `json:"low_stock"`
	OutOfStock    int             `json:"out_of_stock"`
	StockValue    decimal.Decimal `json:"stock_value"`
}

// AvailablePurchase is one assignment target: a purchase with unallocated units.
type AvailablePurchase struct {
	PurchaseId int `json:"purchase_id"`
	ProductId  int `json:"product_id"`
	Remaining  int `json:"remaining"`
}

func clearStoreStatsCache(storeID int) {
	if err := utils.RemoveRedisItem[StoreStats](storeID); err != nil {
		config.LogError(config.GetLogger(), "storeStats", "clearStoreStatsCache", "redis", storeID, err)
	}
}

// GetStoreStats classifies the store's allocations into in-stock (>10),
// low-stock (1-10) and out-of-stock (0) and sums quantity * selling_price as
// stock value. Results are cached in redis for CACHE_LIFESPAN_SECONDS and
// invalidated by every mutating allocation/sale operation on the store.
func GetStoreStats(ctx context.Context, storeID int) (*StoreStats, error) {
	db := config.GetDB()

	if err := utils.ValidateResourceId[Store](ctx, storeID); err != nil {
		return nil, &NotFoundError{Resource: "store"}
	}

	var cached StoreStats
	if found, err := utils.FetchRedis[StoreStats](&cached, storeID); err == nil && found {
		return &cached, nil
	}

	var allocations []Allocation
	if err := db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Find(&allocations).Error; err != nil {
		return nil, err
	}

	stats := StoreStats{StockValue: decimal.Zero}
	products := make(map[int]bool)
	for _, allocation := range allocations {
		products[allocation.ProductId] = true
		switch {
		case allocation.Quantity > lowStockCeiling:
			stats.InStock++
		case allocation.Quantity >= 1:
			stats.LowStock++
		default:
			stats.OutOfStock++
		}
		stats.StockValue = stats.StockValue.Add(
			allocation.SellingPrice.Mul(decimal.NewFromInt(int64(allocation.Quantity))))
	}
	stats.TotalProducts = len(products)

	if err := utils.StoreRedis[StoreStats](&stats, storeID); err != nil {
		config.LogError(config.GetLogger(), "storeStats", "GetStoreStats", "redis", storeID, err)
	}
	return &stats, nil
}

// AvailablePurchaseQuantitiesForAssignment lists every purchase that still has
// unallocated units, for use when offering assignment targets.
func AvailablePurchaseQuantitiesForAssignment(ctx context.Context) ([]*AvailablePurchase, error) {
	db := config.GetDB()

	sql := `
		SELECT p.id AS purchase_id,
		       p.product_id AS product_id,
		       p.quantity - COALESCE(SUM(a.quantity), 0) AS remaining
		FROM purchases p
		LEFT JOIN allocations a ON a.purchase_id = p.id
		GROUP BY p.id, p.product_id, p.quantity
		HAVING remaining > 0
		ORDER BY p.id`

	var rows []*AvailablePurchase
	if err := db.WithContext(ctx).Raw(sql).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
