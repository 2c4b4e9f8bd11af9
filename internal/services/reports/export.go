package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/tealeg/xlsx"

	"supplies-pos/internal/format"
)

var exportHeader = []string{"Order ID", "Date", "Payment Method", "Total"}

const (
	pdfPageBottom = 280.0
	pdfRowHeight  = 7.0
)

// BuildPDF lays the report out on A4 pages. The core fonts have no peso
// sign, so amounts are written with a PHP prefix.
func BuildPDF(report *OrderReport, loc *time.Location) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Sales Report", false)
	pdf.AddPage()
	pageWidth, _ := pdf.GetPageSize()

	pdf.SetFont("Helvetica", "B", 18)
	title := "Sales Report"
	pdf.Text((pageWidth-pdf.GetStringWidth(title))/2, 15, title)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(14, 25, fmt.Sprintf("Period: %s to %s", report.Start, report.End))

	y := 35.0
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Text(14, y, "Order ID")
	pdf.Text(60, y, "Date")
	pdf.Text(110, y, "Payment")
	pdf.Text(150, y, "Total")

	pdf.SetFont("Helvetica", "", 10)
	y += 5
	for _, o := range report.Orders {
		if y > pdfPageBottom {
			pdf.AddPage()
			y = 20
		}
		pdf.Text(14, y, format.ShortID(o.ID))
		pdf.Text(60, y, format.Date(o.CreatedAt, loc))
		pdf.Text(110, y, string(o.PaymentMethod))
		pdf.Text(150, y, format.CurrencyPlain(o.Total))
		y += pdfRowHeight
	}

	y += 5
	if y > pdfPageBottom {
		pdf.AddPage()
		y = 20
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(14, y, "Total Revenue: "+format.CurrencyPlain(report.Revenue))
	return pdf
}

func WritePDF(w io.Writer, report *OrderReport, loc *time.Location) error {
	if err := BuildPDF(report, loc).Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func WriteCSV(w io.Writer, report *OrderReport, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, o := range report.Orders {
		if err := cw.Write([]string{
			o.ID,
			format.Date(o.CreatedAt, loc),
			string(o.PaymentMethod),
			format.Currency(o.Total),
		}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// BuildXLSX writes totals as numbers so spreadsheets can sum them.
func BuildXLSX(report *OrderReport, loc *time.Location) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Sales")
	if err != nil {
		return nil, fmt.Errorf("add sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range exportHeader {
		headerRow.AddCell().SetValue(h)
	}

	for _, o := range report.Orders {
		row := sheet.AddRow()
		row.AddCell().SetValue(o.ID)
		row.AddCell().SetValue(format.Date(o.CreatedAt, loc))
		row.AddCell().SetValue(string(o.PaymentMethod))
		total, _ := o.Total.Round(2).Float64()
		row.AddCell().SetFloatWithFormat(total, "#,##0.00")
	}

	footer := sheet.AddRow()
	footer.AddCell().SetValue("Total Revenue")
	footer.AddCell()
	footer.AddCell()
	revenue, _ := report.Revenue.Round(2).Float64()
	footer.AddCell().SetFloatWithFormat(revenue, "#,##0.00")
	return file, nil
}

func WriteXLSX(w io.Writer, report *OrderReport, loc *time.Location) error {
	file, err := BuildXLSX(report, loc)
	if err != nil {
		return err
	}
	if err := file.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
