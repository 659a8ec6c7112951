package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/stockroom_backend/config"
	"github.com/mmdatafocus/stockroom_backend/utils"
)

// ReportCache stores a generated report as JSON text so a user can re-open or
// export it without paying the generation cost again. Rows expire; a sweeper
// removes them in bulk.
type ReportCache struct {
	ID             string    `gorm:"primary_key;size:36" json:"id"`
	UserId         int       `gorm:"index;not null" json:"user_id"`
	ReportData     string    `gorm:"type:longtext;not null" json:"-"`
	CategoryTotals string    `gorm:"type:text;not null" json:"-"`
	GrandTotals    string    `gorm:"type:text;not null" json:"-"`
	Meta           string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt      time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func reportCacheTTL() time.Duration {
	return time.Duration(config.IntFromEnv("REPORT_CACHE_TTL_HOURS", 24)) * time.Hour
}

func CreateReportCache(ctx context.Context, userId int, reportData, categoryTotals, grandTotals, meta string) (*ReportCache, error) {

	cache := ReportCache{
		ID:             uuid.NewString(),
		UserId:         userId,
		ReportData:     reportData,
		CategoryTotals: categoryTotals,
		GrandTotals:    grandTotals,
		Meta:           meta,
		ExpiresAt:      time.Now().Add(reportCacheTTL()),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&cache).Error; err != nil {
		return nil, err
	}
	return &cache, nil
}

// GetReportCacheForUser returns the row only when it belongs to the user and
// has not expired. Anything else is a plain not-found.
func GetReportCacheForUser(ctx context.Context, id string, userId int) (*ReportCache, error) {

	db := config.GetDB()
	var cache ReportCache
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND expires_at > ?", id, userId, time.Now()).
		First(&cache).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &cache, nil
}

// CleanupExpiredReports bulk-deletes expired rows and reports the count.
func CleanupExpiredReports(ctx context.Context) (int64, error) {

	db := config.GetDB()
	result := db.WithContext(ctx).
		Where("expires_at <= ?", time.Now()).
		Delete(&ReportCache{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
