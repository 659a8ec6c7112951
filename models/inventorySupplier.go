package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/stockroom_backend/config"
	"github.com/mmdatafocus/stockroom_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InventorySupplier is a per-item purchase source. The same supplier name
// appears once per item it has supplied, carrying the last price paid and
// when.
type InventorySupplier struct {
	ID               int              `gorm:"primary_key" json:"id"`
	InventoryId      int              `gorm:"uniqueIndex:idx_item_supplier;not null" json:"inventory_id"`
	Name             string           `gorm:"uniqueIndex:idx_item_supplier;size:150;not null" json:"name"`
	Contact          string           `gorm:"size:150" json:"contact"`
	UnitPrice        *decimal.Decimal `gorm:"type:decimal(12,2)" json:"unit_price,omitempty"`
	LastPurchaseDate time.Time        `json:"last_purchase_date"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetOrCreateSupplier upserts the supplier record for one item inside the
// caller's transaction. The last purchase date is always refreshed; the unit
// price and contact only when given. Purchases never fail because a supplier
// is new.
func GetOrCreateSupplier(tx *gorm.DB, inventoryId int, name string, contact string, unitPrice *decimal.Decimal) (*InventorySupplier, error) {

	name = strings.TrimSpace(name)
	now := time.Now()

	var supplier InventorySupplier
	err := tx.Where("inventory_id = ? AND name = ?", inventoryId, name).First(&supplier).Error
	if err == nil {
		if contact != "" {
			supplier.Contact = contact
		}
		if unitPrice != nil {
			supplier.UnitPrice = unitPrice
		}
		supplier.LastPurchaseDate = now
		if err := tx.Save(&supplier).Error; err != nil {
			return nil, err
		}
		return &supplier, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	supplier = InventorySupplier{
		InventoryId:      inventoryId,
		Name:             name,
		Contact:          contact,
		UnitPrice:        unitPrice,
		LastPurchaseDate: now,
	}
	if err := tx.Create(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func GetSupplier(ctx context.Context, id int) (*InventorySupplier, error) {
	return utils.FetchModel[InventorySupplier](ctx, id)
}

// GetSuppliersForInventory lists an item's purchase sources, most recent
// first.
func GetSuppliersForInventory(ctx context.Context, inventoryId int) ([]*InventorySupplier, error) {

	if err := utils.ValidateResourceId[Inventory](ctx, inventoryId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var suppliers []*InventorySupplier
	err := db.WithContext(ctx).
		Where("inventory_id = ?", inventoryId).
		Order("last_purchase_date desc").
		Find(&suppliers).Error
	if err != nil {
		return nil, err
	}
	return suppliers, nil
}

func GetSuppliers(ctx context.Context) ([]*InventorySupplier, error) {

	db := config.GetDB()
	var suppliers []*InventorySupplier
	if err := db.WithContext(ctx).Order("name asc, last_purchase_date desc").Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}
