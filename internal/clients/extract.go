package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/stockscout/stockscout/internal/interfaces"
)

// maxPageBytes caps how much of a page gets downloaded for extraction.
const maxPageBytes = 2 << 20

// PageExtractor fetches a URL and reduces it to readable text.
type PageExtractor struct {
	client *http.Client
}

// NewPageExtractor creates an extractor with a bounded fetch timeout.
func NewPageExtractor() *PageExtractor {
	return &PageExtractor{
		client: &http.Client{Timeout: 20 * time.Second},
	}
}

var _ interfaces.Extractor = (*PageExtractor)(nil)

// Extract fetches the URL and returns the page's visible text with
// whitespace collapsed. Script, style, and chrome elements are dropped.
func (e *PageExtractor) Extract(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build fetch request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	var sb strings.Builder
	collectText(doc, &sb)
	return collapseWhitespace(sb.String()), nil
}

// skippedElements are dropped wholesale during text collection.
var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true,
	"nav": true, "header": true, "footer": true, "aside": true,
	"form": true, "iframe": true, "svg": true,
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode && skippedElements[n.Data] {
		return
	}
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
