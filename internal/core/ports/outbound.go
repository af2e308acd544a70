package ports

import (
	"context"
	"io"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

// FieldExtractor reads patient and examination fields off a document.
// An empty prompt selects the extractor's built-in prompt.
type FieldExtractor interface {
	Extract(ctx context.Context, doc domain.Document, prompt string) (domain.ExtractedFields, error)
}

// CategoryDetector classifies a document against known category names.
type CategoryDetector interface {
	DetectCategory(ctx context.Context, doc domain.Document, categories []string) (domain.CategoryDetection, error)
}

// CategoryRepository reads category prompts. FindByName returns nil, nil when absent.
type CategoryRepository interface {
	FindAll(ctx context.Context) ([]domain.DocumentCategory, error)
	FindByName(ctx context.Context, name string) (*domain.DocumentCategory, error)
}

// ExaminationTypeRepository returns nil, nil when the label matches no alias.
type ExaminationTypeRepository interface {
	FindByName(ctx context.Context, label string) (*domain.ExaminationType, error)
}

// Notifier alerts operators about documents that could not be resolved.
type Notifier interface {
	NotifyMissingInformation(
		ctx context.Context,
		documentID string,
		missingFields []string,
		partial domain.MedicalInfo,
		attachment *domain.Attachment,
	) (domain.DeliveryReceipt, error)
}

// OutcomeForwarder hands resolved outcomes to the downstream system.
type OutcomeForwarder interface {
	Forward(ctx context.Context, documentID string, info domain.MedicalInfo) error
}

// ObjectStorage stores submitted documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes submission events.
type MessageQueue interface {
	PublishDocumentSubmitted(ctx context.Context, submission domain.Submission) error
	SubscribeDocumentSubmitted(ctx context.Context, handler func(context.Context, domain.Submission) error) error
}
