package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/stockroom_backend/config"
	"github.com/mmdatafocus/stockroom_backend/utils"
	"github.com/shopspring/decimal"
)

// AllowedLocations are the stockroom sites. Items are stored at one and
// requests are issued to one.
var AllowedLocations = []string{"Headquarters", "Jabi"}

func IsValidLocation(location string) bool {
	for _, l := range AllowedLocations {
		if l == location {
			return true
		}
	}
	return false
}

type Inventory struct {
	ID              int                `gorm:"primary_key" json:"id"`
	Name            string             `gorm:"uniqueIndex;size:150;not null" json:"name"`
	Description     string             `gorm:"size:255" json:"description"`
	CategoryId      int                `gorm:"index;not null" json:"category_id"`
	Category        *Category          `json:"category,omitempty"`
	Quantity        int                `gorm:"not null;default:0" json:"quantity"`
	UnitPrice       decimal.Decimal    `gorm:"type:decimal(12,2);not null;default:0" json:"unit_price"`
	Location        string             `gorm:"size:100;not null" json:"location"`
	SupplierId      *int               `gorm:"index" json:"supplier_id,omitempty"`
	Supplier        *InventorySupplier `json:"supplier,omitempty"`
	CreatedByUserId int                `gorm:"index" json:"created_by_user_id"`
	UpdatedByUserId int                `json:"updated_by_user_id"`
	CreatedAt       time.Time          `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInventory struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	CategoryId  int             `json:"category_id" binding:"required"`
	Quantity    int             `json:"quantity" binding:"gte=0"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Location    string          `json:"location" binding:"required"`
}

type UpdateInventoryInput struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	CategoryId  *int             `json:"category_id"`
	Quantity    *int             `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	Location    *string          `json:"location"`
}

// CreateInventory creates the item and its opening ledger row in one
// transaction so the ledger always replays to the stored quantity.
func CreateInventory(ctx context.Context, input *NewInventory) (*Inventory, error) {

	if input.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", utils.ErrorValidation)
	}
	if input.UnitPrice.IsNegative() {
		return nil, fmt.Errorf("%w: unit price must not be negative", utils.ErrorValidation)
	}
	if !IsValidLocation(input.Location) {
		return nil, fmt.Errorf("%w: unknown location %q, expected one of %s",
			utils.ErrorValidation, input.Location, strings.Join(AllowedLocations, ", "))
	}
	if err := utils.ValidateUnique[Inventory](ctx, "name", input.Name, 0); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[Category](ctx, input.CategoryId); err != nil {
		return nil, fmt.Errorf("%w: category %d", utils.ErrorRecordNotFound, input.CategoryId)
	}

	userId, _ := utils.GetUserIdFromContext(ctx)

	inventory := Inventory{
		Name:            input.Name,
		Description:     input.Description,
		CategoryId:      input.CategoryId,
		Quantity:        input.Quantity,
		UnitPrice:       input.UnitPrice,
		Location:        input.Location,
		CreatedByUserId: userId,
		UpdatedByUserId: userId,
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := tx.Create(&inventory).Error; err != nil {
		return nil, err
	}

	opening := InventoryTransaction{
		InventoryId:     inventory.ID,
		TransactionType: TransactionTypeInitial,
		Quantity:        input.Quantity,
		UnitPrice:       &inventory.UnitPrice,
		Note:            "opening stock",
		CreatedByUserId: userId,
	}
	if err := tx.Create(&opening).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &inventory, nil
}

// AdjustQuantity applies a signed delta and records an adjustment row.
// The stored quantity never drops below zero.
func AdjustQuantity(ctx context.Context, id int, delta int, note string) (*Inventory, error) {

	if delta == 0 {
		return nil, fmt.Errorf("%w: adjustment delta must not be zero", utils.ErrorValidation)
	}

	userId, _ := utils.GetUserIdFromContext(ctx)

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	var inventory Inventory
	if err := tx.First(&inventory, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if inventory.Quantity+delta < 0 {
		return nil, fmt.Errorf("%w: item %q has %d, cannot remove %d",
			utils.ErrorInsufficientQuantity, inventory.Name, inventory.Quantity, -delta)
	}
	inventory.Quantity += delta
	inventory.UpdatedByUserId = userId

	if err := tx.Save(&inventory).Error; err != nil {
		return nil, err
	}

	adjustment := InventoryTransaction{
		InventoryId:     inventory.ID,
		TransactionType: TransactionTypeAdjustment,
		Quantity:        delta,
		Note:            note,
		CreatedByUserId: userId,
	}
	if err := tx.Create(&adjustment).Error; err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &inventory, nil
}

// UpdateInventory edits item fields. A quantity change is routed through an
// adjustment so the ledger stays complete; other fields are plain updates.
func UpdateInventory(ctx context.Context, id int, input *UpdateInventoryInput) (*Inventory, error) {

	inventory, err := utils.FetchModel[Inventory](ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Quantity != nil && *input.Quantity != inventory.Quantity {
		if *input.Quantity < 0 {
			return nil, fmt.Errorf("%w: quantity must not be negative", utils.ErrorValidation)
		}
		delta := *input.Quantity - inventory.Quantity
		if inventory, err = AdjustQuantity(ctx, id, delta, "quantity edited"); err != nil {
			return nil, err
		}
	}

	if input.Name != nil && *input.Name != inventory.Name {
		if err := utils.ValidateUnique[Inventory](ctx, "name", *input.Name, id); err != nil {
			return nil, err
		}
		inventory.Name = *input.Name
	}
	if input.Description != nil {
		inventory.Description = *input.Description
	}
	if input.CategoryId != nil && *input.CategoryId != inventory.CategoryId {
		if err := utils.ValidateResourceId[Category](ctx, *input.CategoryId); err != nil {
			return nil, fmt.Errorf("%w: category %d", utils.ErrorRecordNotFound, *input.CategoryId)
		}
		inventory.CategoryId = *input.CategoryId
	}
	if input.UnitPrice != nil {
		if input.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: unit price must not be negative", utils.ErrorValidation)
		}
		inventory.UnitPrice = *input.UnitPrice
	}
	if input.Location != nil {
		if !IsValidLocation(*input.Location) {
			return nil, fmt.Errorf("%w: unknown location %q, expected one of %s",
				utils.ErrorValidation, *input.Location, strings.Join(AllowedLocations, ", "))
		}
		inventory.Location = *input.Location
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	inventory.UpdatedByUserId = userId

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(inventory).Error; err != nil {
		return nil, err
	}
	return inventory, nil
}

// DeleteInventory removes an item only when nothing references it. Items with
// ledger history or request lines stay, otherwise past reports and requests
// would dangle.
func DeleteInventory(ctx context.Context, id int) error {

	inventory, err := utils.FetchModel[Inventory](ctx, id)
	if err != nil {
		return err
	}

	txnCount, err := utils.ResourceCountWhere[InventoryTransaction](ctx,
		"inventory_id = ? AND transaction_type != ?", id, TransactionTypeInitial)
	if err != nil {
		return err
	}
	reqCount, err := utils.ResourceCountWhere[RequestItem](ctx, "inventory_id = ?", id)
	if err != nil {
		return err
	}
	if txnCount > 0 || reqCount > 0 {
		return fmt.Errorf("%w: item %q is referenced by ledger or request history", utils.ErrorConflict, inventory.Name)
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := tx.Where("inventory_id = ?", id).Delete(&InventoryTransaction{}).Error; err != nil {
		return err
	}
	if err := tx.Delete(inventory).Error; err != nil {
		return err
	}
	return tx.Commit().Error
}

func GetInventory(ctx context.Context, id int) (*Inventory, error) {
	return utils.FetchModel[Inventory](ctx, id, "Category", "Supplier")
}

func GetInventories(ctx context.Context, categoryId int) ([]*Inventory, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Category").Preload("Supplier").Order("name asc")
	if categoryId != 0 {
		dbCtx = dbCtx.Where("category_id = ?", categoryId)
	}

	var inventories []*Inventory
	if err := dbCtx.Find(&inventories).Error; err != nil {
		return nil, err
	}
	return inventories, nil
}

// SearchInventories matches name or description, capped at config.SearchLimit.
func SearchInventories(ctx context.Context, query string) ([]*Inventory, error) {

	db := config.GetDB()
	var inventories []*Inventory
	err := db.WithContext(ctx).
		Preload("Category").
		Where("name LIKE ? OR description LIKE ?", "%"+query+"%", "%"+query+"%").
		Order("name asc").
		Limit(config.SearchLimit).
		Find(&inventories).Error
	if err != nil {
		return nil, err
	}
	return inventories, nil
}
