package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// seed-dev creates a demo seller -> product -> store -> purchase -> allocation
// -> sale chain for local development.

func main() {
	confirm := flag.String("confirm", "", "Type SEED to proceed")
	flag.Parse()

	if strings.TrimSpace(*confirm) != "SEED" {
		fmt.Fprintln(os.Stderr, "set --confirm=SEED to proceed")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	logger := logrus.New()
	ctx := utils.SetUserIdInContext(context.Background(), 1)
	ctx = utils.SetUserNameInContext(ctx, "seed-dev")

	seller, err := models.CreateSeller(ctx, &models.NewSeller{
		Name:  "Acme Wholesale",
		Email: "orders@acme.test",
	})
	if err != nil {
		logger.WithError(err).Fatal("create seller")
	}

	store, err := models.CreateStore(ctx, &models.NewStore{
		Name: "Downtown Store",
		City: "Yangon",
	})
	if err != nil {
		logger.WithError(err).Fatal("create store")
	}

	product, err := models.CreateProduct(ctx, &models.NewProduct{
		Name: "Eau de Parfum 50ml",
		Sku:  "EDP-050",
	})
	if err != nil {
		logger.WithError(err).Fatal("create product")
	}

	purchase, err := models.CreatePurchase(ctx, &models.NewPurchase{
		ProductId:         product.ID,
		SellerId:          seller.ID,
		UnitPurchasePrice: decimal.NewFromInt(12000),
		Quantity:          100,
		InvoiceNo:         "INV-SEED-001",
	})
	if err != nil {
		logger.WithError(err).Fatal("create purchase")
	}

	assigned, err := models.AssignStock(ctx, &models.NewAllocation{
		PurchaseId:   purchase.ID,
		StoreId:      store.ID,
		Quantity:     40,
		SellingPrice: decimal.NewFromInt(18000),
		Barcode:      "EDP-050-DT-001",
		RackLocation: "A1",
	})
	if err != nil {
		logger.WithError(err).Fatal("assign stock")
	}

	sale, err := models.RecordSale(ctx, &models.NewSale{
		StoreId:    store.ID,
		CashierId:  1,
		Subtotal:   decimal.NewFromInt(36000),
		GrandTotal: decimal.NewFromInt(36000),
		Details: []models.NewSaleLine{
			{AllocationId: assigned.Allocation.ID, Quantity: 2, UnitPrice: decimal.NewFromInt(18000)},
		},
		Payments: []models.NewPaymentSplit{
			{Method: models.PaymentMethodCash, Amount: decimal.NewFromInt(36000)},
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("record sale")
	}

	logger.WithFields(logrus.Fields{
		"sellerId":     seller.ID,
		"storeId":      store.ID,
		"productId":    product.ID,
		"purchaseId":   purchase.ID,
		"allocationId": assigned.Allocation.ID,
		"saleId":       sale.ID,
	}).Info("seeded demo chain")
}
