package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/mmdatafocus/stockroom_backend/config"
	"github.com/mmdatafocus/stockroom_backend/models"
	"github.com/mmdatafocus/stockroom_backend/utils"
	"github.com/shopspring/decimal"
)

// ReportRow is one item's stock movement over the report window. Issue
// columns carry the ledger sign (negative), so Closing is a plain sum.
type ReportRow struct {
	InventoryId  int             `json:"inventory_id"`
	ItemName     string          `json:"item_name"`
	Description  string          `json:"description"`
	CategoryId   int             `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Opening      int             `json:"opening_stock"`
	Purchases    int             `json:"purchases"`
	Adjustments  int             `json:"adjustments"`
	HQIssues     int             `json:"hq_issues"`
	JabiIssues   int             `json:"jabi_issues"`
	Closing      int             `json:"closing_stock"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalValue   decimal.Decimal `json:"total_value"`
}

// ReportTotals sums every column except unit price, which has no meaningful
// aggregate.
type ReportTotals struct {
	Opening     int             `json:"opening_stock"`
	Purchases   int             `json:"purchases"`
	Adjustments int             `json:"adjustments"`
	HQIssues    int             `json:"hq_issues"`
	JabiIssues  int             `json:"jabi_issues"`
	Closing     int             `json:"closing_stock"`
	TotalValue  decimal.Decimal `json:"total_value"`
}

type CategorySection struct {
	CategoryId   int          `json:"category_id"`
	CategoryName string       `json:"category_name"`
	Rows         []ReportRow  `json:"rows"`
	Totals       ReportTotals `json:"totals"`
}

type ReportMeta struct {
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	GeneratedAt time.Time `json:"generated_at"`
	GeneratedBy string    `json:"generated_by"`
	ItemCount   int       `json:"item_count"`
}

type InventoryReport struct {
	ID          string            `json:"id,omitempty"`
	Sections    []CategorySection `json:"sections"`
	GrandTotals ReportTotals      `json:"grand_totals"`
	Meta        ReportMeta        `json:"meta"`
}

type ReportInput struct {
	StartDate   time.Time
	EndDate     time.Time
	CategoryId  int
	InventoryId int
}

// ledgerEntry is the flat shape scanned from the transaction query. The issue
// location comes from the joined request row and is empty for other types.
type ledgerEntry struct {
	InventoryId     int
	TransactionType string
	Quantity        int
	CreatedAt       time.Time
	IssueLocation   string
}

// GenerateInventoryReport builds the stock movement report for the window.
// Items created after the window end do not appear at all; transactions before
// the window start are folded into opening stock.
func GenerateInventoryReport(ctx context.Context, input ReportInput) (*InventoryReport, error) {

	now := time.Now()
	if input.StartDate.After(now) {
		return nil, fmt.Errorf("%w: report start date is in the future", utils.ErrorValidation)
	}
	if input.EndDate.After(now) {
		input.EndDate = now
	}
	if input.EndDate.Before(input.StartDate) {
		return nil, fmt.Errorf("%w: report end date is before the start date", utils.ErrorValidation)
	}

	db := config.GetDB()

	itemQuery := db.WithContext(ctx).
		Preload("Category").
		Where("created_at <= ?", input.EndDate)
	if input.CategoryId != 0 {
		if err := utils.ValidateResourceId[models.Category](ctx, input.CategoryId); err != nil {
			return nil, fmt.Errorf("%w: category %d", utils.ErrorRecordNotFound, input.CategoryId)
		}
		itemQuery = itemQuery.Where("category_id = ?", input.CategoryId)
	}
	if input.InventoryId != 0 {
		if err := utils.ValidateResourceId[models.Inventory](ctx, input.InventoryId); err != nil {
			return nil, fmt.Errorf("%w: item %d", utils.ErrorRecordNotFound, input.InventoryId)
		}
		itemQuery = itemQuery.Where("id = ?", input.InventoryId)
	}

	var items []*models.Inventory
	if err := itemQuery.Find(&items).Error; err != nil {
		return nil, err
	}

	limit := config.IntFromEnv("REPORT_RECORD_LIMIT", 5000)
	if len(items) > limit {
		return nil, fmt.Errorf("%w: %d items exceed the report limit of %d; narrow the category or window",
			utils.ErrorReportTooLarge, len(items), limit)
	}

	var entries []ledgerEntry
	if len(items) > 0 {
		ids := make([]int, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ID)
		}
		// One pass over the ledger for every item. The join pulls the issue
		// destination off the request, including soft-deleted requests, so
		// history never loses rows.
		err := db.WithContext(ctx).
			Table("inventory_transactions").
			Select("inventory_transactions.inventory_id, inventory_transactions.transaction_type, "+
				"inventory_transactions.quantity, inventory_transactions.created_at, "+
				"requests.location AS issue_location").
			Joins("LEFT JOIN requests ON requests.id = inventory_transactions.related_request_id").
			Where("inventory_transactions.inventory_id IN ? AND inventory_transactions.created_at <= ?", ids, input.EndDate).
			Scan(&entries).Error
		if err != nil {
			return nil, err
		}
	}

	rows := buildRows(items, entries, input.StartDate)
	sections, grand := groupByCategory(rows)

	generatedBy := ""
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		if user, err := models.GetUser(ctx, userId); err == nil {
			generatedBy = user.Name
		}
	}

	return &InventoryReport{
		Sections:    sections,
		GrandTotals: grand,
		Meta: ReportMeta{
			StartDate:   input.StartDate,
			EndDate:     input.EndDate,
			GeneratedAt: now,
			GeneratedBy: generatedBy,
			ItemCount:   len(rows),
		},
	}, nil
}

// buildRows folds ledger entries into per-item movement rows. Entries before
// start count toward opening stock regardless of type; in-window entries land
// in their own column, with issues split by destination.
func buildRows(items []*models.Inventory, entries []ledgerEntry, start time.Time) []ReportRow {

	byItem := make(map[int]*ReportRow, len(items))
	rows := make([]ReportRow, 0, len(items))
	for _, item := range items {
		row := ReportRow{
			InventoryId: item.ID,
			ItemName:    item.Name,
			Description: item.Description,
			CategoryId:  item.CategoryId,
			UnitPrice:   item.UnitPrice,
		}
		if item.Category != nil {
			row.CategoryName = item.Category.Name
		}
		rows = append(rows, row)
	}
	for i := range rows {
		byItem[rows[i].InventoryId] = &rows[i]
	}

	for _, entry := range entries {
		row, found := byItem[entry.InventoryId]
		if !found {
			continue
		}

		if entry.CreatedAt.Before(start) {
			row.Opening += entry.Quantity
			continue
		}

		switch entry.TransactionType {
		case models.TransactionTypeInitial:
			row.Opening += entry.Quantity
		case models.TransactionTypePurchase:
			row.Purchases += entry.Quantity
		case models.TransactionTypeAdjustment:
			row.Adjustments += entry.Quantity
		case models.TransactionTypeIssue:
			if entry.IssueLocation == "Jabi" {
				row.JabiIssues += entry.Quantity
			} else {
				row.HQIssues += entry.Quantity
			}
		}
	}

	for i := range rows {
		row := &rows[i]
		row.Closing = row.Opening + row.Purchases + row.Adjustments + row.HQIssues + row.JabiIssues
		row.TotalValue = decimal.NewFromInt(int64(row.Closing)).Mul(row.UnitPrice)
	}
	return rows
}

// groupByCategory splits rows into sections sorted by category name, summing
// totals per section and overall.
func groupByCategory(rows []ReportRow) ([]CategorySection, ReportTotals) {

	byCategory := make(map[int]*CategorySection)
	var grand ReportTotals

	for _, row := range rows {
		section, found := byCategory[row.CategoryId]
		if !found {
			section = &CategorySection{
				CategoryId:   row.CategoryId,
				CategoryName: row.CategoryName,
			}
			byCategory[row.CategoryId] = section
		}
		section.Rows = append(section.Rows, row)
		addToTotals(&section.Totals, row)
		addToTotals(&grand, row)
	}

	sections := make([]CategorySection, 0, len(byCategory))
	for _, section := range byCategory {
		sort.Slice(section.Rows, func(i, j int) bool {
			return section.Rows[i].ItemName < section.Rows[j].ItemName
		})
		sections = append(sections, *section)
	}
	sort.Slice(sections, func(i, j int) bool {
		return sections[i].CategoryName < sections[j].CategoryName
	})
	return sections, grand
}

func addToTotals(totals *ReportTotals, row ReportRow) {
	totals.Opening += row.Opening
	totals.Purchases += row.Purchases
	totals.Adjustments += row.Adjustments
	totals.HQIssues += row.HQIssues
	totals.JabiIssues += row.JabiIssues
	totals.Closing += row.Closing
	totals.TotalValue = totals.TotalValue.Add(row.TotalValue)
}

// SaveReport caches a generated report for the user and returns it with the
// cache id attached.
func SaveReport(ctx context.Context, report *InventoryReport) (*InventoryReport, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, utils.ErrorPermissionDenied
	}

	sections, err := json.Marshal(report.Sections)
	if err != nil {
		return nil, err
	}
	categoryTotals := make(map[string]ReportTotals, len(report.Sections))
	for _, section := range report.Sections {
		categoryTotals[section.CategoryName] = section.Totals
	}
	catJSON, err := json.Marshal(categoryTotals)
	if err != nil {
		return nil, err
	}
	grandJSON, err := json.Marshal(report.GrandTotals)
	if err != nil {
		return nil, err
	}
	metaJSON, err := json.Marshal(report.Meta)
	if err != nil {
		return nil, err
	}

	cache, err := models.CreateReportCache(ctx, userId, string(sections), string(catJSON), string(grandJSON), string(metaJSON))
	if err != nil {
		return nil, err
	}
	report.ID = cache.ID
	return report, nil
}

// GetReportForUser loads a cached report. Expired or foreign rows come back
// as not found.
func GetReportForUser(ctx context.Context, id string) (*InventoryReport, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, utils.ErrorPermissionDenied
	}

	cache, err := models.GetReportCacheForUser(ctx, id, userId)
	if err != nil {
		return nil, err
	}

	report := InventoryReport{ID: cache.ID}
	if err := json.Unmarshal([]byte(cache.ReportData), &report.Sections); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(cache.GrandTotals), &report.GrandTotals); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(cache.Meta), &report.Meta); err != nil {
		return nil, err
	}
	return &report, nil
}
