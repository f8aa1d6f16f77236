package export

import (
	"bytes"
	"fmt"
	"os"

	"github.com/jung-kurt/gofpdf"
)

const (
	utf8FontFamily = "booking"
	coreFontFamily = "Arial"
)

// PDFExporter renders schedule datasets into a tabular PDF. With a UTF-8
// TrueType font registered, Hangul text is embedded as-is; without one the
// core font is used and characters outside cp1252 print as '.'.
type PDFExporter struct {
	font         []byte
	uncompressed bool
}

// NewPDFExporter constructs a PDF exporter on the core font.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// NewPDFExporterWithFont constructs a PDF exporter that embeds ttf.
func NewPDFExporterWithFont(ttf []byte) *PDFExporter {
	return &PDFExporter{font: ttf}
}

// LoadPDFExporter reads a TrueType font from path. An empty path yields the core font exporter.
func LoadPDFExporter(path string) (*PDFExporter, error) {
	if path == "" {
		return NewPDFExporter(), nil
	}
	ttf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf font: %w", err)
	}
	return NewPDFExporterWithFont(ttf), nil
}

// UnicodeFont reports whether a UTF-8 font is embedded.
func (e *PDFExporter) UnicodeFont() bool {
	return len(e.font) > 0
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(!e.uncompressed)
	pdf.SetMargins(10, 15, 10)

	family := coreFontFamily
	text := pdf.UnicodeTranslatorFromDescriptor("")
	if e.UnicodeFont() {
		family = utf8FontFamily
		pdf.AddUTF8FontFromBytes(family, "", e.font)
		pdf.AddUTF8FontFromBytes(family, "B", e.font)
		text = func(s string) string { return s }
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("load pdf font: %w", err)
	}
	pdf.AddPage()

	if title != "" {
		pdf.SetFont(family, "B", 14)
		pdf.CellFormat(0, 10, text(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont(family, "B", 10)
	colWidth := 190.0 / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, text(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, text(row[header]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
