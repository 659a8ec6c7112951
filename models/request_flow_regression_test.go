package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/stockroom_backend/config"
	"github.com/mmdatafocus/stockroom_backend/models"
	"github.com/mmdatafocus/stockroom_backend/utils"
	"github.com/shopspring/decimal"
)

// Covers the full requisition flow against a real MySQL: create item with
// opening stock, restock via purchase, request, review, collect, and verify
// the ledger and stored quantity agree at every step.
func TestRequestFlowEndToEnd(t *testing.T) {
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
		Email:    "admin@stockroom.test",
		Name:     "Admin",
		Password: "super-secret",
		IsAdmin:  true,
	})
	if err != nil {
		t.Fatalf("CreateUser admin: %v", err)
	}
	staff, err := models.CreateUser(ctx, &models.NewUser{
		Email:    "staff@stockroom.test",
		Name:     "Staff",
		Password: "super-secret",
	})
	if err != nil {
		t.Fatalf("CreateUser staff: %v", err)
	}

	adminCtx := utils.SetUserIdInContext(ctx, admin.ID)
	adminCtx = utils.SetIsAdminInContext(adminCtx, true)
	staffCtx := utils.SetUserIdInContext(ctx, staff.ID)
	staffCtx = utils.SetIsAdminInContext(staffCtx, false)

	category, err := models.CreateCategory(adminCtx, &models.NewCategory{
		Name:        "Stationery",
		Description: "pens, paper and desk supplies",
	})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if category.Description != "pens, paper and desk supplies" {
		t.Fatalf("category description = %q", category.Description)
	}

	// items must live at a known site
	if _, err := models.CreateInventory(adminCtx, &models.NewInventory{
		Name:       "Pens",
		CategoryId: category.ID,
		Quantity:   100,
		Location:   "Warehouse 9",
	}); !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("bad location error = %v, want validation", err)
	}

	item, err := models.CreateInventory(adminCtx, &models.NewInventory{
		Name:       "Pens",
		CategoryId: category.ID,
		Quantity:   100,
		UnitPrice:  decimal.RequireFromString("50.00"),
		Location:   "Headquarters",
	})
	if err != nil {
		t.Fatalf("CreateInventory: %v", err)
	}
	if item.CreatedByUserId != admin.ID {
		t.Fatalf("item creator = %d, want %d", item.CreatedByUserId, admin.ID)
	}

	if _, err := models.CreatePurchase(adminCtx, &models.NewPurchase{
		SupplierName: "Bic Distributors",
		Lines: []models.PurchaseLine{
			{InventoryId: item.ID, Quantity: 50, UnitPrice: decimal.RequireFromString("55.00")},
		},
	}); err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}

	item, err = models.GetInventory(adminCtx, item.ID)
	if err != nil {
		t.Fatalf("GetInventory after purchase: %v", err)
	}
	if item.Quantity != 150 {
		t.Fatalf("quantity after purchase = %d, want 150", item.Quantity)
	}
	if !item.UnitPrice.Equal(decimal.RequireFromString("55.00")) {
		t.Fatalf("unit price after purchase = %s, want 55.00", item.UnitPrice)
	}

	// the purchase leaves a per-item supplier record with the last price paid
	suppliers, err := models.GetSuppliersForInventory(adminCtx, item.ID)
	if err != nil {
		t.Fatalf("GetSuppliersForInventory: %v", err)
	}
	if len(suppliers) != 1 || suppliers[0].Name != "Bic Distributors" {
		t.Fatalf("supplier records = %+v", suppliers)
	}
	if suppliers[0].InventoryId != item.ID {
		t.Fatalf("supplier inventory id = %d, want %d", suppliers[0].InventoryId, item.ID)
	}
	if suppliers[0].UnitPrice == nil || !suppliers[0].UnitPrice.Equal(decimal.RequireFromString("55.00")) {
		t.Fatalf("supplier unit price = %v, want 55.00", suppliers[0].UnitPrice)
	}
	if suppliers[0].LastPurchaseDate.IsZero() {
		t.Fatal("supplier last purchase date not set")
	}

	// asking for more than stock must fail up front
	if _, err := models.CreateRequest(staffCtx, &models.NewRequest{
		Location:    "Headquarters",
		Directorate: "ICT",
		Unit:        "Service Desk",
		Items:       []models.NewRequestItem{{InventoryId: item.ID, Quantity: 1000}},
	}); !errors.Is(err, utils.ErrorInsufficientQuantity) {
		t.Fatalf("oversized request error = %v, want insufficient quantity", err)
	}

	// the directorate must come from the known list
	if _, err := models.CreateRequest(staffCtx, &models.NewRequest{
		Location:    "Headquarters",
		Directorate: "Shipping",
		Unit:        "Service Desk",
		Items:       []models.NewRequestItem{{InventoryId: item.ID, Quantity: 5}},
	}); !errors.Is(err, utils.ErrorValidation) {
		t.Fatalf("bad directorate error = %v, want validation", err)
	}

	request, err := models.CreateRequest(staffCtx, &models.NewRequest{
		Location:    "Headquarters",
		Directorate: "ICT",
		Department:  "Infrastructure",
		Unit:        "Service Desk",
		Items:       []models.NewRequestItem{{InventoryId: item.ID, Quantity: 30}},
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if request.Status != models.RequestStatusPending {
		t.Fatalf("new request status = %q, want pending", request.Status)
	}
	if !strings.HasPrefix(request.Reference, "REQ-") {
		t.Fatalf("reference %q missing REQ- prefix", request.Reference)
	}

	// stock does not move until collection
	item, _ = models.GetInventory(adminCtx, item.ID)
	if item.Quantity != 150 {
		t.Fatalf("quantity after request = %d, want 150", item.Quantity)
	}

	// a new line starts with the requested amount pre-filled
	if request.Items[0].QuantityApproved != 30 {
		t.Fatalf("initial approved quantity = %d, want 30", request.Items[0].QuantityApproved)
	}

	request, err = models.ReviewRequest(adminCtx, request.ID, []models.ItemDecision{
		{RequestItemId: request.Items[0].ID, Decision: "approve", Quantity: 20},
	}, "reduced to 20, stock is low")
	if err != nil {
		t.Fatalf("ReviewRequest: %v", err)
	}
	if request.Status != models.RequestStatusApproved {
		t.Fatalf("reviewed status = %q, want approved", request.Status)
	}
	if request.ApproverId == nil || *request.ApproverId != admin.ID {
		t.Fatalf("approver not recorded: %v", request.ApproverId)
	}
	if request.AdminMessage != "reduced to 20, stock is low" {
		t.Fatalf("admin message = %q", request.AdminMessage)
	}

	// second review must be refused
	if _, err := models.ReviewRequest(adminCtx, request.ID, []models.ItemDecision{
		{RequestItemId: request.Items[0].ID, Decision: "reject"},
	}, ""); !errors.Is(err, utils.ErrorConflict) {
		t.Fatalf("re-review error = %v, want conflict", err)
	}

	request, err = models.MarkCollected(adminCtx, request.ID, "picked up at the front desk")
	if err != nil {
		t.Fatalf("MarkCollected: %v", err)
	}
	if request.Status != models.RequestStatusCollected || request.CollectedAt == nil {
		t.Fatalf("collected request = %q/%v", request.Status, request.CollectedAt)
	}
	if request.Items[0].Status != models.RequestItemCollected {
		t.Fatalf("collected line status = %q", request.Items[0].Status)
	}

	item, _ = models.GetInventory(adminCtx, item.ID)
	if item.Quantity != 130 {
		t.Fatalf("quantity after collection = %d, want 130", item.Quantity)
	}

	// collecting twice must not decrement again
	if _, err := models.MarkCollected(adminCtx, request.ID, ""); !errors.Is(err, utils.ErrorConflict) {
		t.Fatalf("double collect error = %v, want conflict", err)
	}
	item, _ = models.GetInventory(adminCtx, item.ID)
	if item.Quantity != 130 {
		t.Fatalf("quantity after double collect = %d, want 130", item.Quantity)
	}

	// an adjustment below zero is refused and leaves the count alone
	if _, err := models.AdjustQuantity(adminCtx, item.ID, -1000, "stocktake"); !errors.Is(err, utils.ErrorInsufficientQuantity) {
		t.Fatalf("over-adjustment error = %v, want insufficient quantity", err)
	}
	item, _ = models.GetInventory(adminCtx, item.ID)
	if item.Quantity != 130 {
		t.Fatalf("quantity after failed adjustment = %d, want 130", item.Quantity)
	}

	transactions, err := models.GetItemTransactions(adminCtx, item.ID)
	if err != nil {
		t.Fatalf("GetItemTransactions: %v", err)
	}
	var ledgerSum int
	var issueCount int
	for _, txn := range transactions {
		ledgerSum += txn.Quantity
		if txn.TransactionType == models.TransactionTypeIssue {
			issueCount++
			if txn.Quantity != -20 {
				t.Fatalf("issue quantity = %d, want -20", txn.Quantity)
			}
			if txn.RelatedRequestId == nil || *txn.RelatedRequestId != request.ID {
				t.Fatalf("issue row not linked to request: %v", txn.RelatedRequestId)
			}
		}
	}
	if issueCount != 1 {
		t.Fatalf("issue rows = %d, want 1", issueCount)
	}
	if ledgerSum != item.Quantity {
		t.Fatalf("ledger sum %d != stored quantity %d", ledgerSum, item.Quantity)
	}

	// collected requests cannot be deleted even by admins
	if err := models.SoftDeleteRequest(adminCtx, request.ID, ""); !errors.Is(err, utils.ErrorConflict) {
		t.Fatalf("delete collected error = %v, want conflict", err)
	}

	// staff may delete only their own pending requests
	pending, err := models.CreateRequest(staffCtx, &models.NewRequest{
		Location:    "Jabi",
		Directorate: "ICT",
		Unit:        "Service Desk",
		Items:       []models.NewRequestItem{{InventoryId: item.ID, Quantity: 5}},
	})
	if err != nil {
		t.Fatalf("CreateRequest pending: %v", err)
	}
	if err := models.SoftDeleteRequest(staffCtx, pending.ID, "ordered by mistake"); err != nil {
		t.Fatalf("SoftDeleteRequest own pending: %v", err)
	}
	if _, err := models.GetRequest(staffCtx, pending.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("deleted request still visible: %v", err)
	}

	restored, err := models.RestoreRequest(adminCtx, pending.ID)
	if err != nil {
		t.Fatalf("RestoreRequest: %v", err)
	}
	if restored.Status != models.RequestStatusPending {
		t.Fatalf("restored status = %q", restored.Status)
	}

	// purge requires a prior soft delete
	if err := models.PermanentDeleteRequest(adminCtx, pending.ID); !errors.Is(err, utils.ErrorConflict) {
		t.Fatalf("purge live request error = %v, want conflict", err)
	}
	if err := models.SoftDeleteRequest(staffCtx, pending.ID, ""); err != nil {
		t.Fatalf("SoftDeleteRequest again: %v", err)
	}
	count, err := models.PurgeDeletedRequests(adminCtx)
	if err != nil {
		t.Fatalf("PurgeDeletedRequests: %v", err)
	}
	if count != 1 {
		t.Fatalf("purged = %d, want 1", count)
	}

	// item with history cannot be removed
	if err := models.DeleteInventory(adminCtx, item.ID); !errors.Is(err, utils.ErrorConflict) {
		t.Fatalf("delete referenced item error = %v, want conflict", err)
	}
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("stockroom-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=stockroom_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
