package models

import (
	"log"

	"bitbucket.org/mmdatafocus/retail_backend/config"
)

// MigrateTable auto-migrates every ledger table. Order matters: masters first,
// then purchases, allocations, sales.
func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Seller{},
		&Store{},
		&Product{},
		&Purchase{},
		&Allocation{},
		&Sale{},
		&SaleLine{},
		&PaymentSplit{},
	)
	if err != nil {
		log.Fatalf("auto migrate failed: %v", err)
	}
}
