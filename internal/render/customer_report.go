package render

import (
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// CustomerReportRow is one customer's line in the summary report.
type CustomerReportRow struct {
	Name         string
	PhoneNumber  string
	Active       bool
	DeliveryDays int
	TotalLiters  float64
	TotalBilled  float64
	TotalPaid    float64
	Balance      float64
}

// RenderCustomerReport builds a workbook with one row per customer and
// their lifetime totals.
func RenderCustomerReport(reportRows []CustomerReportRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Customers"
	f.SetSheetName("Sheet1", sheet)

	rows := [][]interface{}{
		{"Name", "Phone", "Status", "Delivery Days", "Total Liters", "Total Billed", "Total Paid", "Balance"},
	}
	for _, row := range reportRows {
		status := "Active"
		if !row.Active {
			status = "Inactive"
		}
		rows = append(rows, []interface{}{
			row.Name, row.PhoneNumber, status, row.DeliveryDays,
			row.TotalLiters, row.TotalBilled, row.TotalPaid, row.Balance,
		})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, errors.Wrap(err, "failed to compute cell name")
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, errors.Wrap(err, "failed to write report row")
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize report workbook")
	}
	return buf.Bytes(), nil
}
