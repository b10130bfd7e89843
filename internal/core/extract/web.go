package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/icare-health/rag-service/internal/core"
)

// minContentChars is the quality gate: pages that extract to less than this
// are treated as empty (usually JavaScript-rendered shells).
const minContentChars = 100

var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
	"Connection":      "keep-alive",
}

var minimalHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
}

var _ core.URLExtractor = (*WebExtractor)(nil)

// WebExtractor fetches a web page and normalizes it to plain text.
type WebExtractor struct {
	client *http.Client
}

func NewWebExtractor(timeout time.Duration) *WebExtractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebExtractor{client: &http.Client{Timeout: timeout}}
}

// ExtractURL fetches url with browser-like headers, retrying once with a
// minimal header set when the site rejects the request. The parsed HTML is
// stripped of script/style/noscript elements and collapsed to trimmed,
// non-blank lines. Title falls back to the <title> tag, then the URL itself.
func (e *WebExtractor) ExtractURL(ctx context.Context, url, title string) (*core.Extraction, error) {
	resp, err := e.fetch(ctx, url, browserHeaders)
	if err == nil && !is2xx(resp.StatusCode) {
		// Some sites (406 and friends) reject rich automated headers but
		// accept a bare User-Agent. One retry, then give up.
		status := resp.StatusCode
		resp.Body.Close()
		resp, err = e.fetch(ctx, url, minimalHeaders)
		if err == nil && !is2xx(resp.StatusCode) {
			resp.Body.Close()
			return nil, &core.FetchError{URL: url, StatusCode: status,
				Reason: "the website is blocking automated requests or the page is unavailable"}
		}
	}
	if err != nil {
		reason := "request failed"
		if isTimeout(err) {
			reason = "the website took too long to respond"
		}
		return nil, &core.FetchError{URL: url, Reason: reason, Err: err}
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &core.FetchError{URL: url, Reason: "unparseable response body", Err: err}
	}

	doc.Find("script, style, noscript").Remove()
	text := sanitizeUTF8(collapseLines(visibleText(doc)))
	// The gate counts characters, not bytes: multi-byte pages must not pass
	// with less visible text than an ASCII page would need.
	if n := utf8.RuneCountInString(text); n < minContentChars {
		return nil, &core.InsufficientContentError{Source: url, Length: n, Min: minContentChars}
	}

	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if title = sanitizeUTF8(title); title == "" {
		title = url
	}

	return &core.Extraction{Text: text, Title: title}, nil
}

func (e *WebExtractor) fetch(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return e.client.Do(req)
}

// visibleText walks the parsed tree and joins the text nodes with newlines,
// so that line-level collapsing afterwards mirrors what a reader sees.
func visibleText(doc *goquery.Document) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte('\n')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Selection.Nodes {
		walk(n)
	}
	return b.String()
}

func is2xx(status int) bool { return status >= 200 && status < 300 }

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(fmt.Sprint(err), "Client.Timeout")
}
