package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
)

// Purchase is an immutable receipt of inbound inventory from a seller. The
// quantity is fixed at creation and is only ever consumed by allocations;
// there is deliberately no UpdatePurchase. A future edit surface must
// re-validate against AllocatedQuantity before touching quantity.
type Purchase struct {
	ID                int             `gorm:"primary_key" json:"id"`
	ProductId         int             `gorm:"index;not null" json:"product_id"`
	SellerId          int             `gorm:"index;not null" json:"seller_id"`
	UnitPurchasePrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_purchase_price"`
	Quantity          int             `gorm:"not null" json:"quantity"`
	InvoiceNo         string          `gorm:"size:100" json:"invoice_no"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewPurchase struct {
	ProductId         int             `json:"product_id" validate:"required,gt=0"`
	SellerId          int             `json:"seller_id" validate:"required,gt=0"`
	UnitPurchasePrice decimal.Decimal `json:"unit_purchase_price"`
	Quantity          int             `json:"quantity" validate:"required,gt=0"`
	InvoiceNo         string          `json:"invoice_no"`
}

func (input *NewPurchase) validate(ctx context.Context) error {
	if input.UnitPurchasePrice.IsNegative() {
		return &InvalidInputError{Reason: "unit purchase price must not be negative"}
	}
	if err := utils.ValidateResourceId[Product](ctx, input.ProductId); err != nil {
		return &NotFoundError{Resource: "product"}
	}
	if err := utils.ValidateResourceId[Seller](ctx, input.SellerId); err != nil {
		return &NotFoundError{Resource: "seller"}
	}
	return nil
}

func CreatePurchase(ctx context.Context, input *NewPurchase) (*Purchase, error) {
	db := config.GetDB()

	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	purchase := Purchase{
		ProductId:         input.ProductId,
		SellerId:          input.SellerId,
		UnitPurchasePrice: input.UnitPurchasePrice,
		Quantity:          input.Quantity,
		InvoiceNo:         input.InvoiceNo,
	}
	if err := db.WithContext(ctx).Create(&purchase).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

func GetPurchase(ctx context.Context, id int) (*Purchase, error) {
	db := config.GetDB()

	var purchase Purchase
	if err := db.WithContext(ctx).First(&purchase, id).Error; err != nil {
		return nil, &NotFoundError{Resource: "purchase"}
	}
	return &purchase, nil
}
