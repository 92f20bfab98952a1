package extractors

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts the text layer of PDF documents page by page.
type PDFExtractor struct{}

// Extract concatenates the plain text of every page, one newline after each.
// Pages without a text layer contribute an empty line.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := r.Page(i)
		if !page.V.IsNull() {
			text, err := page.GetPlainText(nil)
			if err != nil {
				return "", fmt.Errorf("read pdf page %d: %w", i, err)
			}
			sb.WriteString(text)
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

func (e *PDFExtractor) SupportedTypes() []string {
	return []string{"application/pdf", "application/x-pdf"}
}

func (e *PDFExtractor) Priority() int {
	return 50 // Format-specific
}
