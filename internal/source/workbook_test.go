package source

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/replenish/internal/domain"
)

func buildWorkbook(t *testing.T, sheets map[string][][]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	require.NoError(t, f.DeleteSheet("Sheet1"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func validSheets() map[string][][]any {
	return map[string][][]any{
		CatalogSheet: {
			{"sku", "product_name", "category", "vendor_id", "current_stock", "cost_per_unit", "lead_time_days", "max_lead_days"},
			{"SB-100", "Freeride Board", "Snowboards", "V1", 12, "249.99", 14, 21},
			{"SUP-7", "Paddle", "summer-sports", "V2", 0, "89.5", 7, 10},
		},
		SalesSheet: {
			{"sku", "date", "quantity"},
			{"SB-100", "2026-01-03", 4},
			{"SB-100", "2026-01-01", 2},
			{"SUP-7", "2026-01-02", 1},
		},
		VendorSheet: {
			{"vendor_id", "name", "seq"},
			{"V1", "Alpine Supply", 1},
			{"V2", "Lakeside", 2},
		},
	}
}

func TestLoadWorkbook(t *testing.T) {
	wb, err := LoadWorkbook(buildWorkbook(t, validSheets()))
	require.NoError(t, err)

	catalog, err := wb.CatalogSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, 2)

	assert.Equal(t, "SB-100", catalog[0].SKU)
	assert.Equal(t, "snowboards", catalog[0].Category)
	assert.Equal(t, 12.0, catalog[0].CurrentStock)
	assert.Equal(t, "249.99", catalog[0].CostPerUnit.String())
	assert.Equal(t, 21.0, catalog[0].MaxLeadDays)

	sales, err := wb.DailySales(context.Background(), "SB-100", time.Time{})
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, 2.0, sales[0].QuantitySold, "sales come back oldest first")
	assert.Equal(t, 4.0, sales[1].QuantitySold)

	since := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	sales, err = wb.DailySales(context.Background(), "SB-100", since)
	require.NoError(t, err)
	assert.Len(t, sales, 1)

	assert.Equal(t, []domain.Vendor{
		{ID: "V1", Name: "Alpine Supply", Seq: 1},
		{ID: "V2", Name: "Lakeside", Seq: 2},
	}, wb.Vendors())
}

func TestLoadWorkbook_VendorSheetOptional(t *testing.T) {
	sheets := validSheets()
	delete(sheets, VendorSheet)

	wb, err := LoadWorkbook(buildWorkbook(t, sheets))
	require.NoError(t, err)
	assert.Empty(t, wb.Vendors())
}

func TestLoadWorkbook_Errors(t *testing.T) {
	t.Run("missing sales sheet", func(t *testing.T) {
		sheets := validSheets()
		delete(sheets, SalesSheet)

		_, err := LoadWorkbook(buildWorkbook(t, sheets))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sales")
	})

	t.Run("missing column", func(t *testing.T) {
		sheets := validSheets()
		sheets[SalesSheet][0] = []any{"sku", "date"}

		_, err := LoadWorkbook(buildWorkbook(t, sheets))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quantity")
	})

	t.Run("bad number is invalid input", func(t *testing.T) {
		sheets := validSheets()
		sheets[CatalogSheet][1][4] = "twelve"

		_, err := LoadWorkbook(buildWorkbook(t, sheets))
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("bad date is invalid input", func(t *testing.T) {
		sheets := validSheets()
		sheets[SalesSheet][1][1] = "03/01/2026"

		_, err := LoadWorkbook(buildWorkbook(t, sheets))
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("not a workbook", func(t *testing.T) {
		_, err := LoadWorkbook(bytes.NewBufferString("sku,date\n"))
		assert.Error(t, err)
	})
}

func TestStatic_CanceledContext(t *testing.T) {
	s := NewStatic(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.CatalogSnapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatic_DailySalesAndLedger(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }
	s := NewStatic(nil, []domain.SalesRecord{
		{SKU: "B", Date: day(2), QuantitySold: 1},
		{SKU: "A", Date: day(3), QuantitySold: 3},
		{SKU: "A", Date: day(1), QuantitySold: 1},
	})

	got, err := s.DailySales(context.Background(), "A", day(2))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3.0, got[0].QuantitySold)

	ledger := s.Ledger()
	require.Len(t, ledger, 3)
	assert.Equal(t, []string{"A", "A", "B"}, []string{ledger[0].SKU, ledger[1].SKU, ledger[2].SKU})
	assert.True(t, ledger[0].Date.Before(ledger[1].Date))
}
