package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unidoc/unipdf/v3/creator"
	"github.com/unidoc/unipdf/v3/model"
)

// The unidoc license registry is process-global, so every PDF test that
// parses or renders real documents needs the metered key from the
// environment; without it the suite skips rather than fails.
func newTestPDFExtractor(t *testing.T) *UniPDFExtractor {
	t.Helper()
	key := os.Getenv("UNIDOC_LICENSE_KEY")
	if key == "" {
		t.Skip("UNIDOC_LICENSE_KEY not set")
	}
	e, err := NewUniPDFExtractor(key)
	require.NoError(t, err)
	return e
}

func buildPDF(t *testing.T, pages ...string) []byte {
	t.Helper()
	c := creator.New()
	for _, text := range pages {
		c.NewPage()
		p := c.NewParagraph(text)
		require.NoError(t, c.Draw(p))
	}
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, c.WriteToFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestNewUniPDFExtractorRequiresKey(t *testing.T) {
	_, err := NewUniPDFExtractor("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "license key")
}

func TestExtractPDF_SinglePage(t *testing.T) {
	e := newTestPDFExtractor(t)
	data := buildPDF(t, "Aspirin dosing guidance for adults.")

	got, err := e.ExtractPDF(context.Background(), data, "dosing.pdf")
	require.NoError(t, err)
	assert.Contains(t, got.Text, "Aspirin dosing guidance")
	assert.Equal(t, "dosing.pdf", got.Title)
}

func TestExtractPDF_JoinsPagesInOrder(t *testing.T) {
	e := newTestPDFExtractor(t)
	data := buildPDF(t, "First page about symptoms.", "Second page about treatment.")

	got, err := e.ExtractPDF(context.Background(), data, "guide.pdf")
	require.NoError(t, err)
	assert.Contains(t, got.Text, "First page about symptoms.")
	assert.Contains(t, got.Text, "Second page about treatment.")
	assert.Less(t,
		strings.Index(got.Text, "First page"), strings.Index(got.Text, "Second page"),
		"pages keep document order")
}

func TestExtractPDF_DefaultTitle(t *testing.T) {
	e := newTestPDFExtractor(t)
	data := buildPDF(t, "Untitled upload content.")

	got, err := e.ExtractPDF(context.Background(), data, "")
	require.NoError(t, err)
	assert.Equal(t, "PDF Document", got.Title)
}

func TestExtractPDF_SkipsFailingPages(t *testing.T) {
	e := newTestPDFExtractor(t)
	data := buildPDF(t, "Broken page.", "Surviving page text.")

	orig := extractPageFn
	extractPageFn = func(reader *model.PdfReader, pageNum int) (string, error) {
		if pageNum == 1 {
			return "", errors.New("corrupt content stream")
		}
		return orig(reader, pageNum)
	}
	defer func() { extractPageFn = orig }()

	got, err := e.ExtractPDF(context.Background(), data, "x.pdf")
	require.NoError(t, err)
	assert.NotContains(t, got.Text, "Broken page.")
	assert.Contains(t, got.Text, "Surviving page text.")
}

func TestExtractPDF_AllPagesFailedIsError(t *testing.T) {
	e := newTestPDFExtractor(t)
	data := buildPDF(t, "Page one.", "Page two.")

	orig := extractPageFn
	extractPageFn = func(*model.PdfReader, int) (string, error) {
		return "", errors.New("corrupt content stream")
	}
	defer func() { extractPageFn = orig }()

	_, err := e.ExtractPDF(context.Background(), data, "x.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 pages")
}

func TestExtractPDF_MalformedBuffer(t *testing.T) {
	e := &UniPDFExtractor{}
	_, err := e.ExtractPDF(context.Background(), []byte("definitely not a pdf"), "x.pdf")
	require.Error(t, err)
}
