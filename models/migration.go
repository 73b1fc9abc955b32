package models

import (
	"log"

	"bitbucket.org/mmdatafocus/warehub_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Business{}, &User{},
		&Customer{}, &Supplier{}, &Warehouse{}, &Product{},
		&SalesOrder{}, &SalesOrderLine{},
		&Fulfillment{}, &FulfillmentLine{},
		&PurchaseOrder{}, &PurchaseOrderLine{},
		&StockSummary{},
		&RowChangeRecord{}, &IdempotencyKey{},
		&IntegrationConnection{}, &IntegrationSyncRun{},
		&IntegrationEntityMapping{}, &IntegrationSyncError{},
		&Document{}, &History{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
