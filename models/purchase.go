package models

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/stockroom_backend/config"
	"github.com/mmdatafocus/stockroom_backend/utils"
	"github.com/shopspring/decimal"
)

type PurchaseLine struct {
	InventoryId int             `json:"inventory_id" binding:"required"`
	Quantity    int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Note        string          `json:"note"`
}

type NewPurchase struct {
	SupplierName    string         `json:"supplier_name" binding:"required"`
	SupplierContact string         `json:"supplier_contact"`
	Lines           []PurchaseLine `json:"lines" binding:"required,min=1,dive"`
}

// CreatePurchase records a restock from one supplier. All lines land in a
// single transaction: stock counts, the per-item supplier record with its
// last price and date, the denormalized unit price on each item, and one
// purchase ledger row per line.
func CreatePurchase(ctx context.Context, input *NewPurchase) ([]*InventoryTransaction, error) {

	if len(input.Lines) == 0 {
		return nil, fmt.Errorf("%w: a purchase needs at least one line", utils.ErrorValidation)
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: purchase quantity must be positive", utils.ErrorValidation)
		}
		if line.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: unit price must not be negative", utils.ErrorValidation)
		}
	}

	userId, _ := utils.GetUserIdFromContext(ctx)

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	var created []*InventoryTransaction
	for _, line := range input.Lines {
		var inventory Inventory
		if err := tx.First(&inventory, line.InventoryId).Error; err != nil {
			return nil, fmt.Errorf("%w: item %d", utils.ErrorRecordNotFound, line.InventoryId)
		}

		unitPrice := line.UnitPrice
		if unitPrice.IsZero() {
			unitPrice = inventory.UnitPrice
		}

		supplier, err := GetOrCreateSupplier(tx, inventory.ID, input.SupplierName, input.SupplierContact, &unitPrice)
		if err != nil {
			return nil, err
		}

		inventory.Quantity += line.Quantity
		inventory.SupplierId = &supplier.ID
		inventory.UpdatedByUserId = userId
		if !line.UnitPrice.IsZero() {
			inventory.UnitPrice = line.UnitPrice
		}
		if err := tx.Save(&inventory).Error; err != nil {
			return nil, err
		}

		purchase := InventoryTransaction{
			InventoryId:     inventory.ID,
			TransactionType: TransactionTypePurchase,
			Quantity:        line.Quantity,
			UnitPrice:       &unitPrice,
			SupplierId:      &supplier.ID,
			Note:            line.Note,
			CreatedByUserId: userId,
		}
		if err := tx.Create(&purchase).Error; err != nil {
			return nil, err
		}
		created = append(created, &purchase)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return created, nil
}
