// Package pdftext pulls the text layer out of downloaded judgment PDFs.
package pdftext

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Extractor validates a PDF and concatenates the plain text of its pages.
// There is no OCR: a page without a text layer contributes an empty string.
type Extractor struct {
	conf *model.Configuration
}

func NewExtractor() *Extractor {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Extractor{conf: conf}
}

// Extract returns the text of every page of the PDF at path, in page order.
func (e *Extractor) Extract(path string) (string, error) {
	if err := api.ValidateFile(path, e.conf); err != nil {
		return "", fmt.Errorf("failed to validate PDF: %w", err)
	}
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to get page count: %w", err)
	}

	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer file.Close()

	var text strings.Builder
	var emptyPages int
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			emptyPages++
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read text of page %d: %w", i, err)
		}
		if content == "" {
			emptyPages++
		}
		if i > 1 {
			text.WriteString("\n")
		}
		text.WriteString(content)
	}

	slog.Debug("Extracted PDF text.", "path", path, "pageCount", pageCount, "emptyPages", emptyPages, "chars", text.Len())
	return text.String(), nil
}
