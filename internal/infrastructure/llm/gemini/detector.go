package gemini

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

// PageTextReader pulls the text layer of a PDF's first page.
type PageTextReader interface {
	FirstPageText(content []byte) (string, error)
}

// CategoryDetector implements ports.CategoryDetector. For PDFs only the first
// page text is sent when a text layer is available.
type CategoryDetector struct {
	client *Client
	pages  PageTextReader
	logger *slog.Logger
}

func NewCategoryDetector(client *Client, pages PageTextReader, logger *slog.Logger) *CategoryDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryDetector{client: client, pages: pages, logger: logger}
}

func (d *CategoryDetector) DetectCategory(ctx context.Context, doc domain.Document, categories []string) (domain.CategoryDetection, error) {
	parts := []part{textPart(buildDetectionPrompt(categories)), d.documentPart(doc)}

	text, err := d.client.generate(ctx, "detect_category", parts, detectionConfig)
	if err != nil {
		return domain.CategoryDetection{}, err
	}

	var detection domain.CategoryDetection
	if err := decodeModelJSON(text, &detection, "parse category detection"); err != nil {
		return domain.CategoryDetection{}, err
	}
	detection.Category = strings.TrimSpace(detection.Category)
	if detection.Category == "" {
		detection.NoCategory = true
	}
	return detection, nil
}

func (d *CategoryDetector) documentPart(doc domain.Document) part {
	if d.pages == nil || domain.NormalizeMimeType(doc.MimeType) != domain.MimePDF {
		return documentPart(doc.MimeType, doc.Content)
	}
	pageText, err := d.pages.FirstPageText(doc.Content)
	if err != nil {
		d.logger.Warn("first_page_extraction_failed", "document_id", doc.ID, "error", err)
		return documentPart(doc.MimeType, doc.Content)
	}
	if strings.TrimSpace(pageText) == "" {
		return documentPart(doc.MimeType, doc.Content)
	}
	return textPart("Première page du document :\n" + pageText)
}
