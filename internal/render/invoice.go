// Package render turns computed bill data into customer-facing documents.
// The services layer treats the output as an opaque byte buffer.
package render

import (
	"fmt"

	"example.com/dairydesk/services/billing/internal/models"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// InvoiceRenderer renders one bill, with the deliveries behind it, into a
// document buffer.
type InvoiceRenderer interface {
	RenderInvoice(bill *models.Bill, entries []models.DeliveryEntry, settings *models.Settings) ([]byte, error)
	FileExtension() string
}

// XLSXRenderer renders invoices as spreadsheets.
type XLSXRenderer struct{}

// NewXLSXRenderer creates a new spreadsheet invoice renderer
func NewXLSXRenderer() *XLSXRenderer {
	return &XLSXRenderer{}
}

// FileExtension returns the rendered file's extension
func (r *XLSXRenderer) FileExtension() string {
	return "xlsx"
}

// RenderInvoice builds an invoice sheet: farm header, one row per delivery
// day, then the totals block.
func (r *XLSXRenderer) RenderInvoice(bill *models.Bill, entries []models.DeliveryEntry, settings *models.Settings) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Invoice"
	f.SetSheetName("Sheet1", sheet)

	rows := [][]interface{}{
		{settings.FarmName},
		{},
		{"Invoice", bill.InvoiceNumber},
		{"Customer", bill.Customer.Name},
		{"Phone", bill.Customer.PhoneNumber},
		{"Period", fmt.Sprintf("%s to %s",
			bill.PeriodStart.Format("02 Jan 2006"),
			bill.PeriodEnd.Format("02 Jan 2006"))},
		{},
		{"Date", "Morning (L)", "Evening (L)", "Total (L)"},
	}
	if settings.FarmAddress != nil {
		rows[1] = []interface{}{*settings.FarmAddress}
	}

	for _, entry := range entries {
		rows = append(rows, []interface{}{
			entry.Date.Format("02/01/2006"),
			floatOrBlank(entry.MorningLiters),
			floatOrBlank(entry.EveningLiters),
			entry.TotalLiters,
		})
	}

	rows = append(rows,
		[]interface{}{},
		[]interface{}{"Total liters", bill.TotalLiters},
		[]interface{}{"Rate per liter", bill.PricePerLiter},
		[]interface{}{"Amount due", bill.TotalAmount},
		[]interface{}{"Status", string(bill.Status)},
	)

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, errors.Wrap(err, "failed to compute cell name")
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, errors.Wrap(err, "failed to write invoice row")
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize invoice workbook")
	}
	return buf.Bytes(), nil
}

func floatOrBlank(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
