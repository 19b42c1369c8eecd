package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// ToPDF renders report markdown into a simple line-based PDF: headings,
// bullets, and body text. Tables and images degrade to plain text.
func ToPDF(title, md string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 20, 18)
	pdf.SetAutoPageBreak(true, 22)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, tr(title), "", "L", false)
	pdf.Ln(3)

	for _, raw := range strings.Split(md, "\n") {
		line := strings.TrimRight(raw, " \t")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			pdf.Ln(3)

		case strings.HasPrefix(trimmed, "### "):
			pdf.SetFont("Helvetica", "B", 12)
			pdf.MultiCell(0, 6.5, tr(stripInline(trimmed[4:])), "", "L", false)
			pdf.Ln(1)

		case strings.HasPrefix(trimmed, "## "):
			pdf.SetFont("Helvetica", "B", 14)
			pdf.MultiCell(0, 7, tr(stripInline(trimmed[3:])), "", "L", false)
			pdf.Ln(1)

		case strings.HasPrefix(trimmed, "# "):
			pdf.SetFont("Helvetica", "B", 16)
			pdf.MultiCell(0, 8, tr(stripInline(trimmed[2:])), "", "L", false)
			pdf.Ln(1)

		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			pdf.SetFont("Helvetica", "", 10.5)
			pdf.SetX(24)
			pdf.MultiCell(0, 5.5, tr("•  "+stripInline(trimmed[2:])), "", "L", false)
			pdf.SetX(18)

		default:
			pdf.SetFont("Helvetica", "", 10.5)
			pdf.MultiCell(0, 5.5, tr(stripInline(trimmed)), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// stripInline drops the markdown inline markers that read badly in a
// flat PDF: emphasis, code spans, and link syntax.
func stripInline(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "`", "")
	// [text](url) -> text (url)
	for {
		open := strings.Index(s, "[")
		mid := strings.Index(s, "](")
		if open < 0 || mid < open {
			break
		}
		end := strings.Index(s[mid:], ")")
		if end < 0 {
			break
		}
		end += mid
		s = s[:open] + s[open+1:mid] + " (" + s[mid+2:end] + ")" + s[end+1:]
	}
	return s
}
