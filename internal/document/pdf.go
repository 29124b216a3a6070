package document

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin   = 14.0
	bottomMargin = 15.0
	rowHeight    = 6.0
	tableFont    = 8.0
	ellipsis     = "..."
)

var (
	tableHeaders = []string{"Name", "Amount", "Description", "Category", "Vendor", "Date"}
	// Column widths in mm; they add up to the printable width of A4 portrait.
	columnWidths = []float64{32, 22, 46, 24, 32, 26}
)

// PDFRenderer lays reports out as A4 PDF documents using the core Helvetica font.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) ContentType() string { return ContentTypePDF }

func (r *PDFRenderer) Extension() string { return "pdf" }

// Render produces the PDF bytes for doc.
func (r *PDFRenderer) Render(doc ReportDocument) ([]byte, error) {
	pdf := r.build(doc)
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) build(doc ReportDocument) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, bottomMargin)
	pdf.SetTitle(doc.Title(), true)
	pdf.SetCreator("tally", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pageWidth, _ := pdf.GetPageSize()
	contentWidth := pageWidth - 2*pageMargin

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(contentWidth, 10, tr(doc.Title()), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	period := fmt.Sprintf("Period: %s - %s", FormatDate(doc.StartDate), FormatDate(doc.EndDate))
	pdf.CellFormat(contentWidth, 8, period, "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentWidth, 8, "Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentWidth, 5, "Total Amount: "+FormatMoney(doc.TotalAmount), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentWidth, 5, "Total Items: "+strconv.Itoa(doc.TotalCount), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentWidth, 5, "Average Amount: "+FormatMoney(doc.AverageAmount), "", 1, "L", false, 0, "")
	if doc.MissingCount > 0 {
		pdf.SetFont("Helvetica", "I", 9)
		note := fmt.Sprintf("Note: %d expense(s) in this report have since been deleted and are not shown.", doc.MissingCount)
		pdf.CellFormat(contentWidth, 5, note, "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentWidth, 8, "Details", "", 1, "L", false, 0, "")

	r.tableHeader(pdf)
	_, pageHeight := pdf.GetPageSize()
	pdf.SetFont("Helvetica", "", tableFont)
	for _, row := range doc.Rows {
		if pdf.GetY()+rowHeight > pageHeight-bottomMargin {
			pdf.AddPage()
			r.tableHeader(pdf)
			pdf.SetFont("Helvetica", "", tableFont)
		}
		cells := []string{
			row.Name,
			FormatMoney(row.Amount),
			row.Description,
			row.Category,
			row.Vendor,
			FormatDate(row.Date),
		}
		for i, text := range cells {
			pdf.CellFormat(columnWidths[i], rowHeight, fit(pdf, tr(text), columnWidths[i]), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf
}

func (r *PDFRenderer) tableHeader(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", tableFont)
	pdf.SetFillColor(37, 99, 235)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range tableHeaders {
		pdf.CellFormat(columnWidths[i], rowHeight+1, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
}

// fit shortens text with a trailing ellipsis until it fits in a cell of width w.
// text must already be translated to the core-font code page, where every
// character is one byte, so it is cut bytewise.
func fit(pdf *fpdf.Fpdf, text string, w float64) string {
	available := w - 2*pdf.GetCellMargin()
	if pdf.GetStringWidth(text) <= available {
		return text
	}
	for n := len(text) - 1; n > 0; n-- {
		candidate := text[:n] + ellipsis
		if pdf.GetStringWidth(candidate) <= available {
			return candidate
		}
	}
	return ellipsis
}
