package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"craftstock/backend/internal/domain"
)

func TestWriteLowStock(t *testing.T) {
	materials := []domain.Material{
		{
			SKU:           "OILL0001",
			Name:          "Linseed oil",
			UnitOfMeasure: "l",
			CurrentStock:  decimal.RequireFromString("1.5"),
			MinStockLevel: decimal.RequireFromString("2"),
			CostPerUnit:   decimal.RequireFromString("8"),
			SupplierName:  "Northwood Timber",
		},
	}
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, WriteLowStock(&buf, materials, at))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	header, err := f.GetCellValue(lowStockSheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Material", header)

	name, err := f.GetCellValue(lowStockSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Linseed oil", name)

	shortfall, err := f.GetCellValue(lowStockSheet, "F2")
	require.NoError(t, err)
	assert.Equal(t, "0.5", shortfall)

	footer, err := f.GetCellValue(lowStockSheet, "A4")
	require.NoError(t, err)
	assert.Equal(t, "Generated 2026-03-14T09:30:00Z", footer)
}

func TestLowStockFilename(t *testing.T) {
	assert.Equal(t, "low-stock-20260314.xlsx", LowStockFilename(time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)))
}
