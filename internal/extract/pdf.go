package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF returns the text of every page joined by "\n" in document order.
// A page whose text cannot be extracted contributes an empty string; only a
// document that cannot be opened at all is an error.
func extractPDF(content []byte) (txt *Text, err error) {
	defer func() {
		if r := recover(); r != nil {
			txt, err = nil, fmt.Errorf("open PDF: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	numPages := r.NumPage()
	return &Text{
		Content: joinPages(numPages, func(num int) (string, error) {
			return pageText(r, num)
		}),
		Pages: numPages,
	}, nil
}

// pageText extracts one page (1-based). Malformed content streams make the
// underlying reader panic, so the panic is turned into an error.
func pageText(r *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("page %d: %v", num, rec)
		}
	}()
	page := r.Page(num)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// joinPages calls page for 1..n and joins the results with "\n".
// Failed pages are kept as empty strings so page boundaries are preserved.
func joinPages(n int, page func(num int) (string, error)) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		text, err := page(i + 1)
		if err != nil {
			continue
		}
		parts[i] = text
	}
	return strings.Join(parts, "\n")
}
