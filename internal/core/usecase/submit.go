package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
	"github.com/kirillkom/medical-doc-extractor/internal/core/ports"
)

// SubmitDocumentUseCase stores uploads and queues them for the worker, which
// feeds them back through ProcessSubmission.
type SubmitDocumentUseCase struct {
	storage   ports.ObjectStorage
	queue     ports.MessageQueue
	processor ports.DocumentProcessor
}

func NewSubmitDocumentUseCase(
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	processor ports.DocumentProcessor,
) *SubmitDocumentUseCase {
	return &SubmitDocumentUseCase{
		storage:   storage,
		queue:     queue,
		processor: processor,
	}
}

func (uc *SubmitDocumentUseCase) Submit(
	ctx context.Context,
	documentID, mimeType string,
	body io.Reader,
) (*domain.Submission, error) {
	mimeType = domain.NormalizeMimeType(mimeType)
	if !domain.IsAllowedMimeType(mimeType) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit document", fmt.Errorf("unsupported mime type %q", mimeType))
	}
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		documentID = uuid.NewString()
	}

	submission := &domain.Submission{
		DocumentID:  documentID,
		MimeType:    mimeType,
		StorageKey:  fmt.Sprintf("%s_%s%s", uuid.NewString(), sanitizeFilename(documentID), domain.FileExtension(mimeType)),
		SubmittedAt: time.Now().UTC(),
	}

	if err := uc.storage.Save(ctx, submission.StorageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}
	if err := uc.queue.PublishDocumentSubmitted(ctx, *submission); err != nil {
		return nil, fmt.Errorf("publish submission event: %w", err)
	}
	return submission, nil
}

func (uc *SubmitDocumentUseCase) ProcessSubmission(ctx context.Context, submission domain.Submission) (*domain.MedicalInfo, error) {
	if submission.StorageKey == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process submission", errors.New("storage key is required"))
	}

	content, err := uc.load(ctx, submission.StorageKey)
	if err != nil {
		return nil, err
	}

	info, err := uc.processor.Process(ctx, domain.Document{
		ID:       submission.DocumentID,
		Content:  content,
		MimeType: submission.MimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("process document %s: %w", submission.DocumentID, err)
	}
	return info, nil
}

func (uc *SubmitDocumentUseCase) load(ctx context.Context, key string) ([]byte, error) {
	rc, err := uc.storage.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open stored document: %w", err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read stored document: %w", err)
	}
	return content, nil
}

func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" {
		return "document"
	}
	return name
}
