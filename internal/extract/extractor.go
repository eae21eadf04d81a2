// Package extract provides text extraction from PDF and the other document formats accepted for ingestion.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrNotPDF is returned when a .pdf file does not start with the PDF header.
	ErrNotPDF = errors.New("not a PDF file")
	// ErrBinaryContent is returned when a file read as plain text is not valid UTF-8 text.
	ErrBinaryContent = errors.New("binary content")
)

// Text is the extracted content of one file.
// Pages is the number of pages for PDFs and 1 for every other format.
type Text struct {
	Content string
	Pages   int
}

// Empty reports whether the extracted content has no non-whitespace characters.
func (t *Text) Empty() bool {
	return strings.TrimSpace(t.Content) == ""
}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// SupportedExtensions lists the extensions Extract understands natively.
// Unknown extensions are read as plain text when the content is text.
var SupportedExtensions = []string{".pdf", ".docx", ".odt", ".rtf", ".xlsx", ".txt", ".md", ".rst"}

// Extract reads the file at path and returns its text content.
// Read errors wrap the underlying *fs.PathError so callers can test for fs.ErrNotExist.
func (e *Extractor) Extract(path string) (*Text, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Content carrying the PDF
// header is read as PDF whatever the extension.
func (e *Extractor) ExtractBytes(content []byte, ext string) (*Text, error) {
	if mimetype.Detect(content).Is("application/pdf") {
		return extractPDF(content)
	}
	var (
		text string
		err  error
	)
	switch ext {
	case ".pdf":
		return nil, ErrNotPDF
	case ".docx":
		text, err = extractDOCX(content)
	case ".odt", ".rtf":
		text, err = extractOffice(content)
	case ".xlsx":
		text, err = extractExcel(content)
	default:
		text, err = extractPlain(content)
	}
	if err != nil {
		return nil, err
	}
	return &Text{Content: text, Pages: 1}, nil
}

// extractPlain returns content as a string. Content with NUL bytes or invalid
// UTF-8 is rejected.
func extractPlain(content []byte) (string, error) {
	if bytes.IndexByte(content, 0) >= 0 || !utf8.Valid(content) {
		return "", ErrBinaryContent
	}
	return string(content), nil
}
