package main

import (
	"testing"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

func TestDetectMimeType(t *testing.T) {
	cases := []struct {
		path     string
		content  []byte
		explicit string
		want     string
	}{
		{"scan.pdf", nil, "", domain.MimePDF},
		{"scan.PDF", nil, "", domain.MimePDF},
		{"photo.jpg", nil, "", domain.MimeJPEG},
		{"scan", []byte("%PDF-1.4\n"), "", domain.MimePDF},
		{"scan.bin", nil, domain.MimePNG, domain.MimePNG},
	}
	for _, tc := range cases {
		if got := detectMimeType(tc.path, tc.content, tc.explicit); got != tc.want {
			t.Errorf("detectMimeType(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
