package models

import (
	"log"

	"github.com/mmdatafocus/stockroom_backend/config"
)

// MigrateTable runs gorm auto-migration for every model. Order matters for
// foreign keys: referenced tables first.
func MigrateTable() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&User{},
		&Category{},
		&InventorySupplier{},
		&Inventory{},
		&InventoryTransaction{},
		&Request{},
		&RequestItem{},
		&ReportCache{},
	)
	if err != nil {
		log.Printf("auto-migration failed: %v", err)
	}
}
