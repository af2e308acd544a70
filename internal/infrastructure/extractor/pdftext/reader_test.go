package pdftext

import (
	"bytes"
	"fmt"
	"testing"
	"unicode/utf8"
)

// buildPDF writes a single page PDF whose content stream shows pageText with
// a WinAnsi Helvetica font. pageText is a PDF literal string body.
func buildPDF(t *testing.T, pageText string) []byte {
	t.Helper()
	content := "BT /F1 12 Tf 72 712 Td (" + pageText + ") Tj ET"
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestFirstPageTextReadsTextLayer(t *testing.T) {
	content := buildPDF(t, `Compte rendu d'\351chographie abdominale`)

	got, err := NewReader(0).FirstPageText(content)
	if err != nil {
		t.Fatalf("FirstPageText() error = %v", err)
	}
	if want := "Compte rendu d'échographie abdominale"; got != want {
		t.Fatalf("FirstPageText() = %q, want %q", got, want)
	}
}

func TestFirstPageTextTruncatesOnRuneBoundary(t *testing.T) {
	content := buildPDF(t, `\351\350\340\351\350\340`)

	got, err := NewReader(4).FirstPageText(content)
	if err != nil {
		t.Fatalf("FirstPageText() error = %v", err)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncated text is not valid utf-8: %q", got)
	}
	if got != "éèàé" {
		t.Fatalf("FirstPageText() = %q, want %q", got, "éèàé")
	}
}

func TestTruncateRunes(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"abc", 5, "abc"},
		{"abcdef", 3, "abc"},
		{"échographie", 2, "éc"},
		{"", 3, ""},
	}
	for _, tc := range cases {
		if got := truncateRunes(tc.in, tc.limit); got != tc.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}

func TestFirstPageTextRejectsEmptyContent(t *testing.T) {
	if _, err := NewReader(0).FirstPageText(nil); err == nil {
		t.Fatalf("expected error for empty content")
	}
}

func TestFirstPageTextRejectsNonPDF(t *testing.T) {
	_, err := NewReader(0).FirstPageText([]byte("\x89PNG\r\n\x1a\nnot a pdf at all"))
	if err == nil {
		t.Fatalf("expected error for non-pdf content")
	}
}

func TestNewReaderDefaultsLimit(t *testing.T) {
	if r := NewReader(-1); r.maxChars != 8000 {
		t.Fatalf("expected default limit, got %d", r.maxChars)
	}
}
