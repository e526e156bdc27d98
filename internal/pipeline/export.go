package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"procure/internal"
)

// ExportRowsToXLSX writes the quote rows of a processed message to a
// spreadsheet, one extracted line per row.
func ExportRowsToXLSX(rows []internal.QuoteExportRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"input_line_no", "source", "raw_line", "parsed_name", "parsed_qty", "parsed_unit",
		"match_status", "confidence",
		"item_name", "seller_name", "sku", "unit_price", "quantity", "total_cost", "delivery_days",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.InputLineNo)
		set(2, row.Source)
		set(3, row.RawLine)
		set(4, derefString(row.ParsedName))
		set(5, derefFloat(row.ParsedQty))
		set(6, derefString(row.ParsedUnit))
		set(7, row.MatchStatus)
		set(8, row.Confidence)
		set(9, derefString(row.ItemName))
		set(10, derefString(row.SellerName))
		set(11, derefString(row.SKU))
		set(12, derefFloat(row.UnitPrice))
		set(13, row.Quantity)
		set(14, derefFloat(row.TotalCost))
		set(15, derefInt(row.DeliveryDays))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func derefInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}
