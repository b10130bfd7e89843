package extract

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/unidoc/unipdf/v3/common/license"
	pdfextractor "github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github.com/icare-health/rag-service/internal/core"
)

// defaultPDFTitle is used when the caller supplies no title for an upload.
const defaultPDFTitle = "PDF Document"

var _ core.PDFExtractor = (*UniPDFExtractor)(nil)

// The unidoc license registry is process-global and accepts a key once.
var (
	licenseOnce sync.Once
	licenseErr  error
)

// UniPDFExtractor extracts text from PDF byte buffers page by page.
type UniPDFExtractor struct{}

// NewUniPDFExtractor registers the unidoc metered license key. Without a
// registered key every page extraction fails at runtime, so a missing or
// rejected key is a construction error, not something to discover per upload.
func NewUniPDFExtractor(licenseKey string) (*UniPDFExtractor, error) {
	if licenseKey == "" {
		return nil, fmt.Errorf("unidoc license key not set")
	}
	licenseOnce.Do(func() {
		licenseErr = license.SetMeteredKey(licenseKey)
	})
	if licenseErr != nil {
		return nil, fmt.Errorf("set unidoc license key: %w", licenseErr)
	}
	return &UniPDFExtractor{}, nil
}

// ExtractPDF parses the buffer and extracts text per page. Each page is
// sanitized independently so one malformed page cannot corrupt the rest, and
// pages that fail extraction are skipped with a log line rather than failing
// the document. Surviving pages are joined with newlines.
func (e *UniPDFExtractor) ExtractPDF(ctx context.Context, data []byte, title string) (*core.Extraction, error) {
	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("pdf page count: %w", err)
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := extractPageFn(reader, i)
		if err != nil {
			log.Printf("pdf: skipping page %d/%d: %v", i, numPages, err)
			continue
		}
		pages = append(pages, sanitizeUTF8(text))
	}

	// One bad page is tolerable; a document where nothing survived is not.
	if numPages > 0 && len(pages) == 0 {
		return nil, fmt.Errorf("pdf text extraction failed on all %d pages", numPages)
	}

	if title == "" {
		title = defaultPDFTitle
	}

	return &core.Extraction{
		Text:  strings.Join(pages, "\n"),
		Title: sanitizeUTF8(title),
	}, nil
}

var extractPageFn = extractPage

func extractPage(reader *model.PdfReader, pageNum int) (string, error) {
	page, err := reader.GetPage(pageNum)
	if err != nil {
		return "", fmt.Errorf("get page: %w", err)
	}
	ex, err := pdfextractor.New(page)
	if err != nil {
		return "", fmt.Errorf("new extractor: %w", err)
	}
	text, err := ex.ExtractText()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return text, nil
}
