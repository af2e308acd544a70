package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Reader pulls the text layer out of PDF documents.
type Reader struct {
	maxChars int
}

func NewReader(maxChars int) *Reader {
	if maxChars <= 0 {
		maxChars = 8000
	}
	return &Reader{maxChars: maxChars}
}

// FirstPageText returns the plain text of page one. Scanned PDFs without a
// text layer yield "".
func (r *Reader) FirstPageText(content []byte) (text string, err error) {
	if len(content) == 0 {
		return "", errors.New("empty pdf content")
	}
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("parse pdf: %v", rec)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	if doc.NumPage() == 0 {
		return "", errors.New("pdf has no pages")
	}

	page := doc.Page(1)
	if page.V.IsNull() {
		return "", nil
	}
	raw, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract page 1: %w", err)
	}

	return truncateRunes(strings.TrimSpace(raw), r.maxChars), nil
}

func truncateRunes(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit])
}
