package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Format identifies an export encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// Dataset defines tabular export content. Rows are keyed by header.
type Dataset struct {
	Title       string
	Headers     []string
	Rows        []map[string]string
	GeneratedAt time.Time
}

// Exporter renders a dataset into a document.
type Exporter interface {
	Render(data Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ParseFormat validates a user supplied format, defaulting to CSV.
func ParseFormat(raw string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, true
	case FormatPDF:
		return FormatPDF, true
	default:
		return "", false
	}
}

// New returns the exporter for the format.
func New(format Format) (Exporter, error) {
	switch format {
	case FormatCSV:
		return csvExporter{}, nil
	case FormatPDF:
		return pdfExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

type csvExporter struct{}

func (csvExporter) ContentType() string { return "text/csv; charset=utf-8" }
func (csvExporter) Extension() string   { return "csv" }

func (csvExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		if err := writer.Write(project(row, data.Headers)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

type pdfExporter struct{}

func (pdfExporter) ContentType() string { return "application/pdf" }
func (pdfExporter) Extension() string   { return "pdf" }

// Render lays the dataset out as a landscape table, repeating the header row
// on every page.
func (pdfExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	colWidth := 277.0 / float64(len(data.Headers))
	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, h := range data.Headers {
			pdf.CellFormat(colWidth, 8, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}
	pdf.SetHeaderFunc(func() {
		if data.Title != "" {
			pdf.SetFont("Arial", "B", 13)
			pdf.CellFormat(0, 8, tr(data.Title), "", 1, "L", false, 0, "")
		}
		if !data.GeneratedAt.IsZero() {
			pdf.SetFont("Arial", "I", 8)
			pdf.CellFormat(0, 5, "Generated "+data.GeneratedAt.Format(time.RFC1123), "", 1, "L", false, 0, "")
		}
		pdf.Ln(2)
		header()
	})
	pdf.AddPage()

	for _, row := range data.Rows {
		for _, value := range project(row, data.Headers) {
			pdf.CellFormat(colWidth, 7, tr(truncate(value, 60)), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func project(row map[string]string, headers []string) []string {
	record := make([]string, len(headers))
	for i, h := range headers {
		record[i] = row[h]
	}
	return record
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}
