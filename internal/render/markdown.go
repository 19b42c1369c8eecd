// Package render turns synthesized markdown into the HTML and PDF
// artifacts attached to a report.
package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(goldmarkhtml.WithHardWraps()),
)

// htmlShell wraps the rendered body in a self-contained document with
// inline styles, so it displays the same in browsers and email clients.
const htmlShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: -apple-system, Segoe UI, Helvetica, Arial, sans-serif; max-width: 760px; margin: 2em auto; padding: 0 1em; color: #1a1a1a; line-height: 1.55; }
h1, h2, h3 { line-height: 1.25; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: left; }
blockquote { border-left: 3px solid #ccc; margin-left: 0; padding-left: 1em; color: #555; }
code { background: #f4f4f4; padding: 1px 4px; border-radius: 3px; }
a { color: #0b5cad; }
.citations { margin-top: 2em; border-top: 1px solid #ddd; padding-top: 1em; font-size: 0.9em; }
</style>
</head>
<body>
%s
</body>
</html>
`

// ToHTML converts report markdown into a standalone HTML document.
func ToHTML(title, md string) (string, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(md), &body); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return fmt.Sprintf(htmlShell, html.EscapeString(title), body.String()), nil
}

// Summarize returns the first paragraph of plain prose from the
// markdown, clipped to maxLen runes, for report listings.
func Summarize(md string, maxLen int) string {
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "|") || strings.HasPrefix(line, "-") ||
			strings.HasPrefix(line, "*") || strings.HasPrefix(line, ">") {
			continue
		}
		runes := []rune(line)
		if maxLen > 0 && len(runes) > maxLen {
			return strings.TrimSpace(string(runes[:maxLen])) + "…"
		}
		return line
	}
	return ""
}
