package models

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/stockroom_backend/config"
	"github.com/mmdatafocus/stockroom_backend/utils"
	"github.com/shopspring/decimal"
)

// Ledger transaction types. Quantity carries the sign: stock-out rows
// (issues) are negative, everything else positive or zero.
const (
	TransactionTypeInitial    = "initial"
	TransactionTypePurchase   = "purchase"
	TransactionTypeAdjustment = "adjustment"
	TransactionTypeIssue      = "issue"
)

type InventoryTransaction struct {
	ID               int                `gorm:"primary_key" json:"id"`
	InventoryId      int                `gorm:"index;not null" json:"inventory_id"`
	Inventory        *Inventory         `json:"inventory,omitempty"`
	TransactionType  string             `gorm:"size:20;index;not null" json:"transaction_type"`
	Quantity         int                `gorm:"not null" json:"quantity"`
	UnitPrice        *decimal.Decimal   `gorm:"type:decimal(12,2)" json:"unit_price,omitempty"`
	SupplierId       *int               `gorm:"index" json:"supplier_id,omitempty"`
	Supplier         *InventorySupplier `json:"supplier,omitempty"`
	RelatedRequestId *int               `gorm:"index" json:"related_request_id,omitempty"`
	Note             string             `gorm:"size:255" json:"note"`
	CreatedByUserId  int                `gorm:"index" json:"created_by_user_id"`
	CreatedAt        time.Time          `gorm:"autoCreateTime;index" json:"created_at"`
}

func IsValidTransactionType(t string) bool {
	switch t {
	case TransactionTypeInitial, TransactionTypePurchase, TransactionTypeAdjustment, TransactionTypeIssue:
		return true
	}
	return false
}

type TransactionFilter struct {
	InventoryId     int
	ItemName        string
	TransactionType string
	SupplierId      int
	SupplierName    string
	StartDate       *time.Time
	EndDate         *time.Time
}

// GetTransactions lists ledger rows newest first, with optional filters.
func GetTransactions(ctx context.Context, filter TransactionFilter) ([]*InventoryTransaction, error) {

	if filter.TransactionType != "" && !IsValidTransactionType(filter.TransactionType) {
		return nil, fmt.Errorf("%w: unknown transaction type %q", utils.ErrorValidation, filter.TransactionType)
	}

	db := config.GetDB()
	// columns are qualified because the name filters join other tables
	dbCtx := db.WithContext(ctx).
		Preload("Inventory").
		Preload("Supplier").
		Order("inventory_transactions.created_at desc, inventory_transactions.id desc")

	if filter.InventoryId != 0 {
		dbCtx = dbCtx.Where("inventory_transactions.inventory_id = ?", filter.InventoryId)
	}
	if filter.TransactionType != "" {
		dbCtx = dbCtx.Where("inventory_transactions.transaction_type = ?", filter.TransactionType)
	}
	if filter.SupplierId != 0 {
		dbCtx = dbCtx.Where("inventory_transactions.supplier_id = ?", filter.SupplierId)
	}
	if filter.ItemName != "" {
		dbCtx = dbCtx.
			Joins("JOIN inventories ON inventories.id = inventory_transactions.inventory_id").
			Where("inventories.name LIKE ?", "%"+filter.ItemName+"%")
	}
	if filter.SupplierName != "" {
		dbCtx = dbCtx.
			Joins("JOIN inventory_suppliers ON inventory_suppliers.id = inventory_transactions.supplier_id").
			Where("inventory_suppliers.name LIKE ?", "%"+filter.SupplierName+"%")
	}
	if filter.StartDate != nil {
		dbCtx = dbCtx.Where("inventory_transactions.created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		dbCtx = dbCtx.Where("inventory_transactions.created_at <= ?", *filter.EndDate)
	}

	var transactions []*InventoryTransaction
	if err := dbCtx.Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// GetPurchases is GetTransactions restricted to purchase rows.
func GetPurchases(ctx context.Context, filter TransactionFilter) ([]*InventoryTransaction, error) {
	filter.TransactionType = TransactionTypePurchase
	return GetTransactions(ctx, filter)
}

func GetItemTransactions(ctx context.Context, inventoryId int) ([]*InventoryTransaction, error) {

	if err := utils.ValidateResourceId[Inventory](ctx, inventoryId); err != nil {
		return nil, err
	}
	return GetTransactions(ctx, TransactionFilter{InventoryId: inventoryId})
}
