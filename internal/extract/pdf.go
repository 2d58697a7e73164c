// Package extract pulls raw text out of uploaded source documents.
package extract

import (
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/univera/campuschat/internal/domain"
)

// PDFExtractor extracts page texts from PDF bytes. It knows nothing about
// chunking or embeddings.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ExtractPages returns one entry per physical page in page order. Pages with
// no extractable text contribute an empty string rather than being skipped,
// so page order survives for downstream consumers. Unreadable input surfaces
// as an extraction domain error.
func (e *PDFExtractor) ExtractPages(r io.ReaderAt, size int64) ([]string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, domain.NewExtractionError(fmt.Errorf("open pdf: %w", err))
	}

	total := reader.NumPage()
	pages := make([]string, 0, total)
	fonts := make(map[string]*pdf.Font)

	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			// A single unreadable page keeps its slot; extraction of the
			// rest of the document continues.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	return pages, nil
}
