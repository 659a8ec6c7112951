package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/stockroom_backend/config"
	"github.com/mmdatafocus/stockroom_backend/models"
	"github.com/mmdatafocus/stockroom_backend/models/reports"
	"github.com/mmdatafocus/stockroom_backend/utils"
)

// respondError maps the sentinel error kinds onto HTTP status codes. Anything
// unrecognized is a 500 and gets logged with its correlation id.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, utils.ErrorPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, utils.ErrorConflict):
		status = http.StatusConflict
	case errors.Is(err, utils.ErrorInsufficientQuantity), errors.Is(err, utils.ErrorValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, utils.ErrorReportTooLarge):
		status = http.StatusRequestEntityTooLarge
	}

	if status == http.StatusInternalServerError {
		logger := config.GetLogger()
		correlationId, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		config.LogError(logger, "handlers", "respondError", c.FullPath(),
			map[string]interface{}{"correlation_id": correlationId}, err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
}

func requireAdmin(c *gin.Context) bool {
	isAdmin, _ := utils.GetIsAdminFromContext(c.Request.Context())
	if !isAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return false
	}
	return true
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

/* auth */

func loginHandler(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	user, token, err := models.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func createUserHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	var input models.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	user, err := models.CreateUser(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func currentUserHandler(c *gin.Context) {
	userId, _ := utils.GetUserIdFromContext(c.Request.Context())
	user, err := models.GetUser(c.Request.Context(), userId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

/* categories */

func createCategoryHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	var input models.NewCategory
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	category, err := models.CreateCategory(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func updateCategoryHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewCategory
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	category, err := models.UpdateCategory(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func deleteCategoryHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	if err := models.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func listCategoriesHandler(c *gin.Context) {
	categories, err := models.GetCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

/* inventory */

func createInventoryHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	var input models.NewInventory
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	inventory, err := models.CreateInventory(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inventory)
}

func updateInventoryHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.UpdateInventoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	inventory, err := models.UpdateInventory(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inventory)
}

func adjustInventoryHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input struct {
		Delta int    `json:"delta" binding:"required"`
		Note  string `json:"note"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	inventory, err := models.AdjustQuantity(c.Request.Context(), id, input.Delta, input.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inventory)
}

func deleteInventoryHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	if err := models.DeleteInventory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func getInventoryHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	inventory, err := models.GetInventory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inventory)
}

// listInventoriesHandler doubles as search: a q parameter switches to a
// name/description match capped at the search limit.
func listInventoriesHandler(c *gin.Context) {
	if query := c.Query("q"); query != "" {
		inventories, err := models.SearchInventories(c.Request.Context(), query)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, inventories)
		return
	}

	categoryId, _ := strconv.Atoi(c.Query("category_id"))
	inventories, err := models.GetInventories(c.Request.Context(), categoryId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inventories)
}

func listItemTransactionsHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	transactions, err := models.GetItemTransactions(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactions)
}

/* purchases */

func createPurchaseHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	var input models.NewPurchase
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	transactions, err := models.CreatePurchase(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, transactions)
}

func listPurchasesHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	filter := models.TransactionFilter{}
	filter.InventoryId, _ = strconv.Atoi(c.Query("inventory_id"))
	filter.SupplierId, _ = strconv.Atoi(c.Query("supplier_id"))
	filter.ItemName = c.Query("item")
	filter.SupplierName = c.Query("supplier")
	if v := c.Query("start_date"); v != "" {
		t, err := utils.ParseDate(v)
		if err != nil {
			respondError(c, err)
			return
		}
		filter.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := utils.ParseDate(v)
		if err != nil {
			respondError(c, err)
			return
		}
		end := t.Add(24*time.Hour - time.Second)
		filter.EndDate = &end
	}

	purchases, err := models.GetPurchases(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, purchases)
}

func listSuppliersHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	var suppliers []*models.InventorySupplier
	var err error
	if itemId, _ := strconv.Atoi(c.Query("item_id")); itemId != 0 {
		suppliers, err = models.GetSuppliersForInventory(c.Request.Context(), itemId)
	} else {
		suppliers, err = models.GetSuppliers(c.Request.Context())
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suppliers)
}

/* requests */

func createRequestHandler(c *gin.Context) {
	var input models.NewRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	request, err := models.CreateRequest(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

func myRequestsHandler(c *gin.Context) {
	userId, _ := utils.GetUserIdFromContext(c.Request.Context())
	requests, err := models.GetRequestsForUser(c.Request.Context(), userId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

func listRequestsHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	requests, err := models.GetAllRequests(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

func getRequestHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	request, err := models.GetRequest(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	isAdmin, _ := utils.GetIsAdminFromContext(c.Request.Context())
	userId, _ := utils.GetUserIdFromContext(c.Request.Context())
	if !isAdmin && request.UserId != userId {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, request)
}

func reviewRequestHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input struct {
		Decisions    []models.ItemDecision `json:"decisions" binding:"required,min=1,dive"`
		AdminMessage string                `json:"admin_message"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	request, err := models.ReviewRequest(c.Request.Context(), id, input.Decisions, input.AdminMessage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func collectRequestHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input struct {
		Note string `json:"note"`
	}
	// the body is optional
	_ = c.ShouldBindJSON(&input)
	request, err := models.MarkCollected(c.Request.Context(), id, input.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func deleteRequestHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&input)
	if err := models.SoftDeleteRequest(c.Request.Context(), id, input.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func restoreRequestHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	request, err := models.RestoreRequest(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

func purgeRequestHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}
	if err := models.PermanentDeleteRequest(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purged": id})
}

func purgeAllRequestsHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	count, err := models.PurgeDeletedRequests(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purged": count})
}

func listDeletedRequestsHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	requests, err := models.GetDeletedRequests(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

/* reports */

func reportInputFromQuery(c *gin.Context) (reports.ReportInput, error) {
	var input reports.ReportInput
	input.CategoryId, _ = strconv.Atoi(c.Query("category_id"))
	input.InventoryId, _ = strconv.Atoi(c.Query("item_id"))

	now := time.Now()
	switch c.Query("period") {
	case "monthly":
		base := now
		if v := c.Query("month"); v != "" {
			t, err := utils.ParseMonth(v)
			if err != nil {
				return input, err
			}
			base = t
		}
		input.StartDate, input.EndDate = reports.MonthlyPeriod(base)
	case "weekly":
		base := now
		if v := c.Query("date"); v != "" {
			t, err := utils.ParseDate(v)
			if err != nil {
				return input, err
			}
			base = t
		}
		input.StartDate, input.EndDate = reports.WeeklyPeriod(base)
	case "daily":
		base := now
		if v := c.Query("date"); v != "" {
			t, err := utils.ParseDate(v)
			if err != nil {
				return input, err
			}
			base = t
		}
		input.StartDate, input.EndDate = reports.DailyPeriod(base)
	default:
		start, err := utils.ParseDate(c.Query("start_date"))
		if err != nil {
			return input, err
		}
		end, err := utils.ParseDate(c.Query("end_date"))
		if err != nil {
			return input, err
		}
		input.StartDate = start
		input.EndDate = end.Add(24*time.Hour - time.Second)
	}
	return input, nil
}

func generateReportHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	input, err := reportInputFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	report, err := reports.GenerateInventoryReport(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	report, err = reports.SaveReport(c.Request.Context(), report)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func getReportHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	report, err := reports.GetReportForUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func exportReportHandler(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	report, err := reports.GetReportForUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	f, err := reports.ExportReportExcel(report)
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("inventory-report-%s.xlsx", report.Meta.EndDate.Format("2006-01-02"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	if err := f.Write(c.Writer); err != nil {
		respondError(c, err)
	}
}
