// Package report renders spreadsheet exports.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"craftstock/backend/internal/domain"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	lowStockSheet   = "Low stock"
)

var lowStockHeaders = []string{"SKU", "Material", "Unit", "Current stock", "Minimum", "Shortfall", "Cost per unit", "Supplier"}

// WriteLowStock renders materials as an XLSX workbook into w. Quantities are
// written as numbers so the sheet can be sorted and summed.
func WriteLowStock(w io.Writer, materials []domain.Material, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", lowStockSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, header := range lowStockHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(lowStockSheet, cell, header); err != nil {
			return err
		}
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(lowStockSheet, 1, 1, headerStyle); err != nil {
		return err
	}

	for i, m := range materials {
		row := i + 2
		shortfall := m.MinStockLevel.Sub(m.CurrentStock)
		values := []any{
			m.SKU,
			m.Name,
			m.UnitOfMeasure,
			m.CurrentStock.InexactFloat64(),
			m.MinStockLevel.InexactFloat64(),
			shortfall.InexactFloat64(),
			m.CostPerUnit.InexactFloat64(),
			m.SupplierName,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(lowStockSheet, cell, value); err != nil {
				return err
			}
		}
	}

	footer, err := excelize.CoordinatesToCellName(1, len(materials)+3)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(lowStockSheet, footer, "Generated "+generatedAt.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if err := f.SetColWidth(lowStockSheet, "A", "H", 16); err != nil {
		return err
	}

	return f.Write(w)
}

func LowStockFilename(at time.Time) string {
	return fmt.Sprintf("low-stock-%s.xlsx", at.UTC().Format("20060102"))
}
