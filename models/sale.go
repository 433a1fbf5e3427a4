package models

import (
	"context"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

// Sale is the header row of one checkout transaction. Totals are computed by
// the caller and stored verbatim; pricing/tax policy is not this ledger's job.
type Sale struct {
	ID             int             `gorm:"primary_key" json:"id"`
	SaleNumber     string          `gorm:"size:64;uniqueIndex;not null" json:"sale_number"`
	StoreId        int             `gorm:"index;not null" json:"store_id"`
	CashierId      int             `gorm:"index;not null" json:"cashier_id"`
	SaleDate       time.Time       `gorm:"not null" json:"sale_date"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	GrandTotal     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"grand_total"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	Details        []SaleLine      `gorm:"foreignKey:SaleId" json:"details"`
	Payments       []PaymentSplit  `gorm:"foreignKey:SaleId" json:"payments"`
}

// SaleLine records units consumed from one allocation. Sale lines are never
// edited or deleted individually; invariant A3 holds per allocation:
//
//	sum(sale_line.quantity) per allocation <= allocation.quantity
type SaleLine struct {
	ID              int             `gorm:"primary_key" json:"id"`
	SaleId          int             `gorm:"index;not null" json:"sale_id"`
	AllocationId    int             `gorm:"index;not null" json:"allocation_id"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	UnitPriceAtSale decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price_at_sale"`
	Discount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount"`
	LineTotal       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_total"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type PaymentSplit struct {
	ID        int             `gorm:"primary_key" json:"id"`
	SaleId    int             `gorm:"index;not null" json:"sale_id"`
	Method    PaymentMethod   `gorm:"type:enum('Cash','Card','Mobile','Credit');default:Cash" json:"method"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Reference string          `gorm:"size:100" json:"reference"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewSale struct {
	StoreId        int               `json:"store_id" validate:"required,gt=0"`
	CashierId      int               `json:"cashier_id" validate:"required,gt=0"`
	SaleDate       time.Time         `json:"sale_date"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	DiscountAmount decimal.Decimal   `json:"discount_amount"`
	TaxAmount      decimal.Decimal   `json:"tax_amount"`
	GrandTotal     decimal.Decimal   `json:"grand_total"`
	Details        []NewSaleLine     `json:"details" validate:"required,min=1,dive"`
	Payments       []NewPaymentSplit `json:"payments" validate:"dive"`
}

type NewSaleLine struct {
	AllocationId int             `json:"allocation_id" validate:"required,gt=0"`
	Quantity     int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Discount     decimal.Decimal `json:"discount"`
}

type NewPaymentSplit struct {
	Method    PaymentMethod   `json:"method" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

func (input *NewSale) validate(ctx context.Context) error {
	if err := utils.ValidateResourceId[Store](ctx, input.StoreId); err != nil {
		return &NotFoundError{Resource: "store"}
	}
	for _, payment := range input.Payments {
		if err := payment.Method.Validate(); err != nil {
			return &InvalidInputError{Reason: err.Error()}
		}
		if payment.Amount.IsNegative() {
			return &InvalidInputError{Reason: "payment amount must not be negative"}
		}
	}
	return nil
}

// RecordSale atomically commits one sale header, its lines and payment splits.
//
// Every referenced allocation row is locked FOR UPDATE in ascending id order
// before remaining quantities are read, so concurrent sales against the same
// allocation serialize and cannot jointly oversell it. Any line failure rolls
// back the entire sale; partial sales are never persisted.
func RecordSale(ctx context.Context, input *NewSale) (*Sale, error) {
	db := config.GetDB()

	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	saleDate := input.SaleDate
	if saleDate.IsZero() {
		saleDate = time.Now()
	}

	allocationIds := make([]int, 0, len(input.Details))
	seen := make(map[int]bool, len(input.Details))
	for _, line := range input.Details {
		if !seen[line.AllocationId] {
			seen[line.AllocationId] = true
			allocationIds = append(allocationIds, line.AllocationId)
		}
	}
	sort.Ints(allocationIds)

	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	// Ascending id order keeps lock acquisition deadlock-free across sales.
	var allocations []Allocation
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", allocationIds).
		Order("id").
		Find(&allocations).Error; err != nil {
		return nil, classifyTxError(err, "")
	}
	allocationById := make(map[int]*Allocation, len(allocations))
	for i := range allocations {
		allocationById[allocations[i].ID] = &allocations[i]
	}

	// Reservation tracking within this request so multiple lines against the
	// same allocation can't jointly over-consume its remaining quantity.
	reserved := make(map[int]int, len(allocationIds))

	sale := Sale{
		SaleNumber:     uuid.NewString(),
		StoreId:        input.StoreId,
		CashierId:      input.CashierId,
		SaleDate:       saleDate,
		Subtotal:       input.Subtotal,
		DiscountAmount: input.DiscountAmount,
		TaxAmount:      input.TaxAmount,
		GrandTotal:     input.GrandTotal,
	}
	if err := tx.Create(&sale).Error; err != nil {
		return nil, classifyTxError(err, "")
	}

	for _, line := range input.Details {
		allocation, ok := allocationById[line.AllocationId]
		if !ok {
			return nil, &NotFoundError{Resource: "allocation"}
		}
		if allocation.StoreId != input.StoreId {
			return nil, &NotFoundError{Resource: "allocation"}
		}

		sold, err := soldQuantityTx(tx, allocation.ID)
		if err != nil {
			return nil, classifyTxError(err, "")
		}
		available := allocation.Quantity - sold - reserved[allocation.ID]
		if line.Quantity > available {
			return nil, &InsufficientQuantityError{Available: available}
		}
		reserved[allocation.ID] += line.Quantity

		saleLine := SaleLine{
			SaleId:          sale.ID,
			AllocationId:    allocation.ID,
			Quantity:        line.Quantity,
			UnitPriceAtSale: line.UnitPrice,
			Discount:        line.Discount,
			LineTotal:       line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Sub(line.Discount),
		}
		if err := tx.Create(&saleLine).Error; err != nil {
			return nil, classifyTxError(err, "")
		}
		sale.Details = append(sale.Details, saleLine)
	}

	for _, payment := range input.Payments {
		split := PaymentSplit{
			SaleId:    sale.ID,
			Method:    payment.Method,
			Amount:    payment.Amount,
			Reference: payment.Reference,
		}
		if err := tx.Create(&split).Error; err != nil {
			return nil, classifyTxError(err, "")
		}
		sale.Payments = append(sale.Payments, split)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, classifyTxError(err, "")
	}

	clearStoreStatsCache(input.StoreId)
	return &sale, nil
}

// GetSale loads a sale with its lines and payment splits.
func GetSale(ctx context.Context, id int) (*Sale, error) {
	db := config.GetDB()

	var sale Sale
	if err := db.WithContext(ctx).
		Preload("Details").
		Preload("Payments").
		First(&sale, id).Error; err != nil {
		return nil, &NotFoundError{Resource: "sale"}
	}
	return &sale, nil
}
