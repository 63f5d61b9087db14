package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/replenish/internal/domain"
)

var alertHeader = []string{
	"sku", "product_name", "vendor_id", "status", "urgency", "current_stock",
	"reorder_point", "safety_stock", "daily_demand", "days_of_cover",
	"days_until_stockout", "recommended_order_qty", "eoq_qty", "estimated_cost",
	"estimated_delivery_date",
}

var poHeader = []string{
	"po_number", "vendor_id", "status", "requires_approval", "lines",
	"subtotal", "estimated_tax", "total", "expected_delivery_date",
}

func alertRecord(a domain.ReorderAlert) []string {
	return []string{
		a.SKU,
		a.ProductName,
		a.VendorID,
		string(a.Status),
		string(a.Urgency),
		formatFloat(a.CurrentStock),
		formatFloat(a.ReorderPoint),
		formatFloat(a.SafetyStock),
		formatFloat(a.DailyDemand),
		formatFloat(a.DaysOfCover),
		strconv.Itoa(a.DaysUntilStockout),
		strconv.Itoa(a.RecommendedOrderQty),
		strconv.Itoa(a.EOQQty),
		a.EstimatedCost.StringFixed(2),
		a.EstimatedDeliveryDate.Format("2006-01-02"),
	}
}

func poRecord(po domain.PurchaseOrder) []string {
	return []string{
		po.PONumber,
		po.VendorID,
		string(po.Status),
		strconv.FormatBool(po.RequiresApproval),
		strconv.Itoa(len(po.LineItems)),
		po.Subtotal.StringFixed(2),
		po.EstimatedTax.StringFixed(2),
		po.Total.StringFixed(2),
		po.ExpectedDeliveryDate.Format("2006-01-02"),
	}
}

// WriteAlertsCSV writes one row per alert after a header row.
func WriteAlertsCSV(w io.Writer, alerts []domain.ReorderAlert) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(alertHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, a := range alerts {
		if err := cw.Write(alertRecord(a)); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", a.SKU, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Workbook renders alerts and purchase orders into a two-sheet xlsx file.
func Workbook(alerts []domain.ReorderAlert, orders []domain.PurchaseOrder) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "alerts"); err != nil {
		return nil, err
	}
	if err := writeSheet(f, "alerts", alertHeader, len(alerts), func(i int) []string { return alertRecord(alerts[i]) }); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet("purchase_orders"); err != nil {
		return nil, err
	}
	if err := writeSheet(f, "purchase_orders", poHeader, len(orders), func(i int) []string { return poRecord(orders[i]) }); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf, nil
}

func writeSheet(f *excelize.File, sheet string, header []string, n int, row func(int) []string) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet %s: %w", sheet, err)
	}

	if err := sw.SetRow("A1", toCells(header)); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(row(i))); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+2, sheet, err)
		}
	}
	return sw.Flush()
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
