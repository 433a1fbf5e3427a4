package models_test

import (
	"context"
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/retail_backend/models"
	"github.com/shopspring/decimal"
)

// Input validation rejects bad commands before a transaction is opened, so no
// database (and no docker) is needed here.

func TestAssignStock_InvalidInput(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name  string
		input *models.NewAllocation
	}{
		{"zero quantity", &models.NewAllocation{
			PurchaseId:   1,
			StoreId:      1,
			Quantity:     0,
			SellingPrice: decimal.NewFromInt(5000),
			Barcode:      "BC-INV-001",
		}},
		{"negative quantity", &models.NewAllocation{
			PurchaseId:   1,
			StoreId:      1,
			Quantity:     -5,
			SellingPrice: decimal.NewFromInt(5000),
			Barcode:      "BC-INV-001",
		}},
		{"zero selling price", &models.NewAllocation{
			PurchaseId:   1,
			StoreId:      1,
			Quantity:     10,
			SellingPrice: decimal.Zero,
			Barcode:      "BC-INV-001",
		}},
		{"negative selling price", &models.NewAllocation{
			PurchaseId:   1,
			StoreId:      1,
			Quantity:     10,
			SellingPrice: decimal.NewFromInt(-100),
			Barcode:      "BC-INV-001",
		}},
		{"blank barcode", &models.NewAllocation{
			PurchaseId:   1,
			StoreId:      1,
			Quantity:     10,
			SellingPrice: decimal.NewFromInt(5000),
			Barcode:      "   ",
		}},
	}
	for _, tc := range cases {
		_, err := models.AssignStock(ctx, tc.input)
		var invalid *models.InvalidInputError
		if !errors.As(err, &invalid) {
			t.Fatalf("%s: expected InvalidInputError, got %v", tc.name, err)
		}
	}
}

func TestUpdateAllocation_InvalidInput(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name  string
		input *models.UpdateAllocationInput
	}{
		{"negative quantity", &models.UpdateAllocationInput{
			Quantity:     -1,
			SellingPrice: decimal.NewFromInt(5000),
			Barcode:      "BC-INV-002",
		}},
		{"zero selling price", &models.UpdateAllocationInput{
			Quantity:     10,
			SellingPrice: decimal.Zero,
			Barcode:      "BC-INV-002",
		}},
		{"blank barcode", &models.UpdateAllocationInput{
			Quantity:     10,
			SellingPrice: decimal.NewFromInt(5000),
			Barcode:      " ",
		}},
	}
	for _, tc := range cases {
		_, err := models.UpdateAllocation(ctx, 1, tc.input)
		var invalid *models.InvalidInputError
		if !errors.As(err, &invalid) {
			t.Fatalf("%s: expected InvalidInputError, got %v", tc.name, err)
		}
	}
}

func TestRecordSale_InvalidInput(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name  string
		input *models.NewSale
	}{
		{"no lines", &models.NewSale{
			StoreId:   1,
			CashierId: 1,
		}},
		{"zero line quantity", &models.NewSale{
			StoreId:   1,
			CashierId: 1,
			Details: []models.NewSaleLine{
				{AllocationId: 1, Quantity: 0, UnitPrice: decimal.NewFromInt(5000)},
			},
		}},
		{"zero store id", &models.NewSale{
			CashierId: 1,
			Details: []models.NewSaleLine{
				{AllocationId: 1, Quantity: 1, UnitPrice: decimal.NewFromInt(5000)},
			},
		}},
	}
	for _, tc := range cases {
		_, err := models.RecordSale(ctx, tc.input)
		var invalid *models.InvalidInputError
		if !errors.As(err, &invalid) {
			t.Fatalf("%s: expected InvalidInputError, got %v", tc.name, err)
		}
	}
}
