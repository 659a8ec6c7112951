package models_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/stockroom_backend/config"
	"github.com/mmdatafocus/stockroom_backend/models"
	"github.com/mmdatafocus/stockroom_backend/models/reports"
	"github.com/mmdatafocus/stockroom_backend/utils"
	"github.com/shopspring/decimal"
)

// Generates a report against a real MySQL, round-trips it through the cache,
// and checks ownership, expiry and the sweep.
func TestReportGenerationAndCache(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "stockroom_test")

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	admin, err := models.CreateUser(ctx, &models.NewUser{
		Email:    "reports-admin@stockroom.test",
		Name:     "Reports Admin",
		Password: "super-secret",
		IsAdmin:  true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	adminCtx := utils.SetUserIdInContext(ctx, admin.ID)
	adminCtx = utils.SetIsAdminInContext(adminCtx, true)

	category, err := models.CreateCategory(adminCtx, &models.NewCategory{Name: "Consumables"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	item, err := models.CreateInventory(adminCtx, &models.NewInventory{
		Name:       "Toner",
		CategoryId: category.ID,
		Quantity:   20,
		UnitPrice:  decimal.RequireFromString("12000.00"),
		Location:   "Headquarters",
	})
	if err != nil {
		t.Fatalf("CreateInventory: %v", err)
	}

	// future start date is rejected
	if _, err := reports.GenerateInventoryReport(adminCtx, reports.ReportInput{
		StartDate: time.Now().Add(48 * time.Hour),
		EndDate:   time.Now().Add(72 * time.Hour),
	}); !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("future start error = %v, want validation", err)
	}

	report, err := reports.GenerateInventoryReport(adminCtx, reports.ReportInput{
		StartDate: time.Now().Add(-24 * time.Hour),
		EndDate:   time.Now().Add(24 * time.Hour), // clamped to now
	})
	if err != nil {
		t.Fatalf("GenerateInventoryReport: %v", err)
	}
	if report.GrandTotals.Closing != 20 {
		t.Fatalf("grand closing = %d, want 20", report.GrandTotals.Closing)
	}
	if len(report.Sections) != 1 || len(report.Sections[0].Rows) != 1 ||
		report.Sections[0].Rows[0].ItemName != item.Name {
		t.Fatalf("report sections = %+v", report.Sections)
	}
	if !report.GrandTotals.TotalValue.Equal(decimal.RequireFromString("240000.00")) {
		t.Fatalf("grand total value = %s, want 240000.00", report.GrandTotals.TotalValue)
	}

	report, err = reports.SaveReport(adminCtx, report)
	if err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	if report.ID == "" {
		t.Fatal("saved report has no id")
	}

	loaded, err := reports.GetReportForUser(adminCtx, report.ID)
	if err != nil {
		t.Fatalf("GetReportForUser: %v", err)
	}
	if loaded.GrandTotals.Closing != report.GrandTotals.Closing {
		t.Fatalf("cached closing = %d, want %d", loaded.GrandTotals.Closing, report.GrandTotals.Closing)
	}
	if len(loaded.Sections) != 1 || loaded.Sections[0].CategoryName != "Consumables" {
		t.Fatalf("cached sections = %+v", loaded.Sections)
	}

	// another user cannot read it
	otherCtx := utils.SetUserIdInContext(ctx, admin.ID+1)
	if _, err := reports.GetReportForUser(otherCtx, report.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("foreign report read error = %v, want not found", err)
	}

	// expire the row and sweep
	db := config.GetDB()
	if err := db.Model(&models.ReportCache{}).
		Where("id = ?", report.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("expire row: %v", err)
	}
	if _, err := reports.GetReportForUser(adminCtx, report.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expired report read error = %v, want not found", err)
	}
	deleted, err := models.CleanupExpiredReports(adminCtx)
	if err != nil {
		t.Fatalf("CleanupExpiredReports: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("swept rows = %d, want 1", deleted)
	}
}
