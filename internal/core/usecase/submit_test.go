package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

type storageFake struct {
	objects map[string][]byte
	saveErr error
	openErr error
}

func newStorageFake() *storageFake {
	return &storageFake{objects: map[string][]byte{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	raw, ok := f.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "open object", errors.New(key))
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type queueFake struct {
	published []domain.Submission
	err       error
}

func (f *queueFake) PublishDocumentSubmitted(_ context.Context, submission domain.Submission) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, submission)
	return nil
}

func (f *queueFake) SubscribeDocumentSubmitted(context.Context, func(context.Context, domain.Submission) error) error {
	return errors.New("not implemented")
}

type processorFake struct {
	docs []domain.Document
	err  error
}

func (f *processorFake) Process(_ context.Context, doc domain.Document) (*domain.MedicalInfo, error) {
	f.docs = append(f.docs, doc)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.MedicalInfo{Status: domain.StatusResolved, FolderName: "Imagerie"}, nil
}

func TestSubmitStoresAndPublishes(t *testing.T) {
	storage := newStorageFake()
	queue := &queueFake{}
	uc := NewSubmitDocumentUseCase(storage, queue, &processorFake{})

	sub, err := uc.Submit(context.Background(), "scan 42", domain.MimePDF, strings.NewReader("%PDF"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if sub.DocumentID != "scan 42" {
		t.Fatalf("expected caller document id, got %q", sub.DocumentID)
	}
	if !strings.HasSuffix(sub.StorageKey, "_scan_42.pdf") {
		t.Fatalf("unexpected storage key %q", sub.StorageKey)
	}
	if string(storage.objects[sub.StorageKey]) != "%PDF" {
		t.Fatalf("expected stored body")
	}
	if len(queue.published) != 1 || queue.published[0].StorageKey != sub.StorageKey {
		t.Fatalf("unexpected published submissions %+v", queue.published)
	}
}

func TestSubmitGeneratesDocumentID(t *testing.T) {
	uc := NewSubmitDocumentUseCase(newStorageFake(), &queueFake{}, &processorFake{})

	sub, err := uc.Submit(context.Background(), "  ", domain.MimePNG, strings.NewReader("png"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if sub.DocumentID == "" {
		t.Fatalf("expected generated document id")
	}
}

func TestSubmitRejectsUnsupportedMimeType(t *testing.T) {
	storage := newStorageFake()
	uc := NewSubmitDocumentUseCase(storage, &queueFake{}, &processorFake{})

	_, err := uc.Submit(context.Background(), "doc", "text/plain", strings.NewReader("hi"))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(storage.objects) != 0 {
		t.Fatalf("nothing should be stored for rejected uploads")
	}
}

func TestSubmitQueueError(t *testing.T) {
	uc := NewSubmitDocumentUseCase(newStorageFake(), &queueFake{err: errors.New("queue down")}, &processorFake{})

	_, err := uc.Submit(context.Background(), "doc", domain.MimePDF, strings.NewReader("x"))
	if err == nil || !strings.Contains(err.Error(), "publish submission event") {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestProcessSubmissionLoadsStoredDocument(t *testing.T) {
	storage := newStorageFake()
	storage.objects["k1"] = []byte("%PDF-1.4")
	processor := &processorFake{}
	uc := NewSubmitDocumentUseCase(storage, &queueFake{}, processor)

	info, err := uc.ProcessSubmission(context.Background(), domain.Submission{
		DocumentID: "doc-9",
		MimeType:   domain.MimePDF,
		StorageKey: "k1",
	})
	if err != nil {
		t.Fatalf("ProcessSubmission() error = %v", err)
	}
	if info.FolderName != "Imagerie" {
		t.Fatalf("unexpected outcome %+v", info)
	}
	if len(processor.docs) != 1 || processor.docs[0].ID != "doc-9" || string(processor.docs[0].Content) != "%PDF-1.4" {
		t.Fatalf("unexpected processed documents %+v", processor.docs)
	}
}

func TestProcessSubmissionMissingObject(t *testing.T) {
	uc := NewSubmitDocumentUseCase(newStorageFake(), &queueFake{}, &processorFake{})

	_, err := uc.ProcessSubmission(context.Background(), domain.Submission{DocumentID: "d", StorageKey: "missing"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSubmitStoresBareMimeType(t *testing.T) {
	queue := &queueFake{}
	uc := NewSubmitDocumentUseCase(newStorageFake(), queue, &processorFake{})

	sub, err := uc.Submit(context.Background(), "doc-9", "application/pdf; charset=binary", strings.NewReader("%PDF"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if sub.MimeType != domain.MimePDF || !strings.HasSuffix(sub.StorageKey, ".pdf") {
		t.Fatalf("unexpected submission %+v", sub)
	}
	if queue.published[0].MimeType != domain.MimePDF {
		t.Fatalf("expected bare mime type on the queue, got %q", queue.published[0].MimeType)
	}
}
