package domain

import (
	"strings"
	"time"
)

const (
	MimePDF  = "application/pdf"
	MimeDOC  = "application/msword"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
)

var allowedMimeTypes = map[string]string{
	MimePDF:  ".pdf",
	MimeDOC:  ".doc",
	MimeDOCX: ".docx",
	MimeJPEG: ".jpg",
	MimePNG:  ".png",
}

// IsAllowedMimeType reports whether uploads of this type are accepted.
func IsAllowedMimeType(mimeType string) bool {
	_, ok := allowedMimeTypes[NormalizeMimeType(mimeType)]
	return ok
}

// FileExtension returns the conventional extension for an allowed mime type.
func FileExtension(mimeType string) string {
	if ext, ok := allowedMimeTypes[NormalizeMimeType(mimeType)]; ok {
		return ext
	}
	return ".bin"
}

// NormalizeMimeType drops media type parameters and lowercases the rest.
func NormalizeMimeType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// Document is a scanned upload owned by the request that created it.
type Document struct {
	ID       string `json:"id"`
	Content  []byte `json:"-"`
	MimeType string `json:"mime_type"`
}

// Submission is the queued form of a document accepted for async processing.
type Submission struct {
	DocumentID  string    `json:"document_id"`
	MimeType    string    `json:"mime_type"`
	StorageKey  string    `json:"storage_key"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// AttachmentFor wraps the document payload for delivery alongside a notification.
func AttachmentFor(doc Document) *Attachment {
	return &Attachment{
		Filename:    doc.ID + FileExtension(doc.MimeType),
		ContentType: NormalizeMimeType(doc.MimeType),
		Content:     doc.Content,
	}
}

type DeliveryReceipt struct {
	Channel   string `json:"channel"`
	MessageID string `json:"message_id,omitempty"`
}
