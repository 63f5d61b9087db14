package source

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/replenish/internal/domain"
)

// Sheet names and headers of the replenishment workbook.
const (
	CatalogSheet = "catalog"
	SalesSheet   = "sales"
	VendorSheet  = "vendors"
)

var (
	CatalogHeaders = []string{"sku", "product_name", "category", "vendor_id", "current_stock", "cost_per_unit", "lead_time_days", "max_lead_days"}
	SalesHeaders   = []string{"sku", "date", "quantity"}
	VendorHeaders  = []string{"vendor_id", "name", "seq"}
)

// Workbook is a parsed catalog/sales workbook held in memory.
type Workbook struct {
	*Static
	vendors []domain.Vendor
}

// Vendors returns the optional vendor sheet.
func (w *Workbook) Vendors() []domain.Vendor {
	return append([]domain.Vendor(nil), w.vendors...)
}

// LoadWorkbook parses an xlsx stream. The catalog and sales sheets are
// required; the vendors sheet is optional.
func LoadWorkbook(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	catalog, err := readCatalog(f)
	if err != nil {
		return nil, err
	}
	sales, err := readSales(f)
	if err != nil {
		return nil, err
	}
	vendors, err := readVendors(f)
	if err != nil {
		return nil, err
	}

	return &Workbook{Static: NewStatic(catalog, sales), vendors: vendors}, nil
}

func readCatalog(f *excelize.File) ([]domain.ProductSnapshot, error) {
	rows, cols, err := sheetRows(f, CatalogSheet, CatalogHeaders, true)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ProductSnapshot, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		get := cellGetter(row, cols)
		if get("sku") == "" {
			continue
		}

		snap := domain.ProductSnapshot{
			SKU:         get("sku"),
			ProductName: get("product_name"),
			Category:    strings.ToLower(get("category")),
			VendorID:    get("vendor_id"),
		}
		if snap.CurrentStock, err = parseFloat(CatalogSheet, line, "current_stock", get("current_stock")); err != nil {
			return nil, err
		}
		if snap.LeadTimeDays, err = parseFloat(CatalogSheet, line, "lead_time_days", get("lead_time_days")); err != nil {
			return nil, err
		}
		if snap.MaxLeadDays, err = parseFloat(CatalogSheet, line, "max_lead_days", get("max_lead_days")); err != nil {
			return nil, err
		}
		cost := get("cost_per_unit")
		if cost == "" {
			cost = "0"
		}
		if snap.CostPerUnit, err = decimal.NewFromString(cost); err != nil {
			return nil, domain.NewInvalidInput(fmt.Sprintf("%s!%d cost_per_unit", CatalogSheet, line), cost, "not a number")
		}
		out = append(out, snap)
	}
	return out, nil
}

func readSales(f *excelize.File) ([]domain.SalesRecord, error) {
	rows, cols, err := sheetRows(f, SalesSheet, SalesHeaders, true)
	if err != nil {
		return nil, err
	}

	out := make([]domain.SalesRecord, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		get := cellGetter(row, cols)
		if get("sku") == "" {
			continue
		}

		date, err := time.Parse(time.DateOnly, get("date"))
		if err != nil {
			return nil, domain.NewInvalidInput(fmt.Sprintf("%s!%d date", SalesSheet, line), get("date"), "expected YYYY-MM-DD")
		}
		qty, err := parseFloat(SalesSheet, line, "quantity", get("quantity"))
		if err != nil {
			return nil, err
		}
		out = append(out, domain.SalesRecord{SKU: get("sku"), Date: date, QuantitySold: qty})
	}
	return out, nil
}

func readVendors(f *excelize.File) ([]domain.Vendor, error) {
	rows, cols, err := sheetRows(f, VendorSheet, VendorHeaders, false)
	if err != nil || rows == nil {
		return nil, err
	}

	out := make([]domain.Vendor, 0, len(rows))
	for i, row := range rows {
		get := cellGetter(row, cols)
		if get("vendor_id") == "" {
			continue
		}
		seq, err := strconv.Atoi(get("seq"))
		if err != nil || seq < 0 {
			return nil, domain.NewInvalidInput(fmt.Sprintf("%s!%d seq", VendorSheet, i+2), get("seq"), "expected a non-negative integer")
		}
		out = append(out, domain.Vendor{ID: get("vendor_id"), Name: get("name"), Seq: seq})
	}
	return out, nil
}

// sheetRows returns the data rows below the header and the column index of
// every required header.
func sheetRows(f *excelize.File, sheet string, headers []string, required bool) ([][]string, map[string]int, error) {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		if required {
			return nil, nil, fmt.Errorf("workbook has no %q sheet", sheet)
		}
		return nil, nil, nil
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %s has no header row", sheet)
	}

	cols := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, h := range headers {
		if _, ok := cols[h]; !ok {
			return nil, nil, fmt.Errorf("sheet %s is missing column %q", sheet, h)
		}
	}

	return rows[1:], cols, nil
}

func cellGetter(row []string, cols map[string]int) func(string) string {
	return func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
}

func parseFloat(sheet string, line int, field, raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, domain.NewInvalidInput(fmt.Sprintf("%s!%d %s", sheet, line, field), raw, "not a number")
	}
	return v, nil
}
