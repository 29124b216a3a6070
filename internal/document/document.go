// Package document renders expense reports into downloadable documents.
package document

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ContentTypePDF is the media type produced by PDFRenderer.
const ContentTypePDF = "application/pdf"

// Row is one expense line in the details table.
type Row struct {
	Name        string
	Amount      decimal.Decimal
	Description string
	Category    string
	Vendor      string
	Date        time.Time
}

// ReportDocument is everything a renderer needs to lay out one report.
type ReportDocument struct {
	ReportType    string
	OwnerName     string
	StartDate     time.Time
	EndDate       time.Time
	TotalAmount   decimal.Decimal
	TotalCount    int
	AverageAmount decimal.Decimal
	// MissingCount is the number of referenced expenses that no longer exist.
	MissingCount int
	Rows         []Row
}

// Title returns "<Type> Report for <Owner>" with the type's first letter upper-cased.
func (d ReportDocument) Title() string {
	reportType := d.ReportType
	if reportType != "" {
		reportType = strings.ToUpper(reportType[:1]) + reportType[1:]
	}
	return reportType + " Report for " + d.OwnerName
}

// Renderer turns a report document into bytes.
type Renderer interface {
	Render(doc ReportDocument) ([]byte, error)
	ContentType() string
	Extension() string
}

// FormatMoney renders an amount as "$1234.50".
func FormatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// FormatDate renders a date as MM/DD/YYYY in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format("01/02/2006")
}
