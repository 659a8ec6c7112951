package reports

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

var excelHeadings = []string{
	"S/N", "Item", "Description", "Opening Stock", "Purchases", "Adjustment",
	"HQ Issue", "Jabi Issue", "Closing Stock", "Unit Price", "Total Value",
}

const excelSheet = "Inventory Report"

// ExportReportExcel renders a generated report as an xlsx workbook. The
// caller owns the file and must Close it.
func ExportReportExcel(report *InventoryReport) (*excelize.File, error) {

	f := excelize.NewFile()
	index, err := f.NewSheet(excelSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	headingStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9D9D9"}},
	})
	if err != nil {
		return nil, err
	}
	categoryStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
	})
	if err != nil {
		return nil, err
	}
	totalStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#CC0000"},
	})
	if err != nil {
		return nil, err
	}
	moneyFormat := "#,##0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFormat})
	if err != nil {
		return nil, err
	}

	lastCol, _ := excelize.ColumnNumberToName(len(excelHeadings))

	row := 1
	f.MergeCell(excelSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row))
	f.SetCellValue(excelSheet, fmt.Sprintf("A%d", row), "Stockroom Inventory Report")
	f.SetCellStyle(excelSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row), titleStyle)
	row++

	f.MergeCell(excelSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row))
	f.SetCellValue(excelSheet, fmt.Sprintf("A%d", row),
		fmt.Sprintf("Period: %s to %s",
			report.Meta.StartDate.Format("2006-01-02"),
			report.Meta.EndDate.Format("2006-01-02")))
	row += 2

	serial := 0
	for _, section := range report.Sections {
		f.MergeCell(excelSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row))
		f.SetCellValue(excelSheet, fmt.Sprintf("A%d", row), section.CategoryName)
		f.SetCellStyle(excelSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row), categoryStyle)
		row++

		for i, heading := range excelHeadings {
			col, _ := excelize.ColumnNumberToName(i + 1)
			f.SetCellValue(excelSheet, fmt.Sprintf("%s%d", col, row), heading)
		}
		f.SetCellStyle(excelSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row), headingStyle)
		row++

		for _, r := range section.Rows {
			serial++
			unitPrice, _ := r.UnitPrice.Float64()
			totalValue, _ := r.TotalValue.Float64()
			values := []interface{}{
				serial, r.ItemName, r.Description, r.Opening, r.Purchases,
				r.Adjustments, r.HQIssues, r.JabiIssues, r.Closing, unitPrice, totalValue,
			}
			for i, value := range values {
				col, _ := excelize.ColumnNumberToName(i + 1)
				f.SetCellValue(excelSheet, fmt.Sprintf("%s%d", col, row), value)
			}
			f.SetCellStyle(excelSheet, fmt.Sprintf("J%d", row), fmt.Sprintf("K%d", row), moneyStyle)
			row++
		}

		writeTotalsRow(f, row, fmt.Sprintf("%s Total", section.CategoryName), section.Totals, totalStyle)
		row += 2
	}

	writeTotalsRow(f, row, "Grand Total", report.GrandTotals, totalStyle)

	f.SetColWidth(excelSheet, "B", "C", 28)
	f.SetColWidth(excelSheet, "D", "K", 14)

	return f, nil
}

func writeTotalsRow(f *excelize.File, row int, label string, totals ReportTotals, style int) {
	totalValue, _ := totals.TotalValue.Float64()
	values := []interface{}{
		"", label, "", totals.Opening, totals.Purchases, totals.Adjustments,
		totals.HQIssues, totals.JabiIssues, totals.Closing, "", totalValue,
	}
	for i, value := range values {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue(excelSheet, fmt.Sprintf("%s%d", col, row), value)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(excelHeadings))
	f.SetCellStyle(excelSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row), style)
}
