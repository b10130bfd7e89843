package core

import "context"

// Extraction is the normalized output of a source extractor: clean UTF-8
// plain text plus a derived title.
type Extraction struct {
	Text  string
	Title string
}

// URLExtractor turns a web page into normalized text.
type URLExtractor interface {
	ExtractURL(ctx context.Context, url, title string) (*Extraction, error)
}

// PDFExtractor turns a PDF byte buffer into normalized text, page by page.
type PDFExtractor interface {
	ExtractPDF(ctx context.Context, data []byte, title string) (*Extraction, error)
}
