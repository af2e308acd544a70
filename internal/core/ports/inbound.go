package ports

import (
	"context"
	"io"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

// DocumentProcessor runs the extraction workflow for one document.
type DocumentProcessor interface {
	Process(ctx context.Context, doc domain.Document) (*domain.MedicalInfo, error)
}

// DocumentSubmitter accepts documents for asynchronous processing.
type DocumentSubmitter interface {
	Submit(ctx context.Context, documentID, mimeType string, body io.Reader) (*domain.Submission, error)
}

// SubmissionProcessor is the worker-side contract for queued documents.
type SubmissionProcessor interface {
	ProcessSubmission(ctx context.Context, submission domain.Submission) (*domain.MedicalInfo, error)
}

// ExaminationTypeResolver resolves a free-text label to a known examination type.
type ExaminationTypeResolver interface {
	Resolve(ctx context.Context, label string) (*domain.ExaminationType, error)
}
