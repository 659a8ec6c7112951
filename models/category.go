package models

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/stockroom_backend/config"
	"github.com/mmdatafocus/stockroom_backend/utils"
)

type Category struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCategory struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

const categoryListCacheKey = "categories:all"

func CreateCategory(ctx context.Context, input *NewCategory) (*Category, error) {

	if err := utils.ValidateUnique[Category](ctx, "name", input.Name, 0); err != nil {
		return nil, err
	}

	category := Category{Name: input.Name, Description: input.Description}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}

	config.RemoveRedisKey(categoryListCacheKey)
	return &category, nil
}

func UpdateCategory(ctx context.Context, id int, input *NewCategory) (*Category, error) {

	category, err := utils.FetchModel[Category](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[Category](ctx, "name", input.Name, id); err != nil {
		return nil, err
	}

	category.Name = input.Name
	category.Description = input.Description

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(category).Error; err != nil {
		return nil, err
	}

	config.RemoveRedisKey(categoryListCacheKey)
	return category, nil
}

// DeleteCategory refuses to remove a category that still has items.
func DeleteCategory(ctx context.Context, id int) error {

	category, err := utils.FetchModel[Category](ctx, id)
	if err != nil {
		return err
	}

	count, err := utils.ResourceCountWhere[Inventory](ctx, "category_id = ?", id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: category %q still has %d item(s)", utils.ErrorConflict, category.Name, count)
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(category).Error; err != nil {
		return err
	}

	config.RemoveRedisKey(categoryListCacheKey)
	return nil
}

func GetCategory(ctx context.Context, id int) (*Category, error) {
	return utils.FetchModel[Category](ctx, id)
}

// GetCategories lists all categories, served from redis when the cache is warm.
func GetCategories(ctx context.Context) ([]*Category, error) {

	var cached []*Category
	if hit, err := config.GetRedisObject(categoryListCacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	db := config.GetDB()
	var categories []*Category
	if err := db.WithContext(ctx).Order("name asc").Find(&categories).Error; err != nil {
		return nil, err
	}

	config.SetRedisObject(categoryListCacheKey, categories, time.Hour)
	return categories, nil
}
