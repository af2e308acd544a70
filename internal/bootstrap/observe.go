package bootstrap

import (
	"context"
	"time"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
	"github.com/kirillkom/medical-doc-extractor/internal/core/ports"
)

// DocumentRecorder receives one call per finished workflow run.
type DocumentRecorder interface {
	RecordDocument(info *domain.MedicalInfo, duration time.Duration, err error)
}

type observedProcessor struct {
	next     ports.DocumentProcessor
	recorder DocumentRecorder
}

func observeProcessor(next ports.DocumentProcessor, recorder DocumentRecorder) ports.DocumentProcessor {
	return &observedProcessor{next: next, recorder: recorder}
}

func (p *observedProcessor) Process(ctx context.Context, doc domain.Document) (*domain.MedicalInfo, error) {
	start := time.Now()
	info, err := p.next.Process(ctx, doc)
	p.recorder.RecordDocument(info, time.Since(start), err)
	return info, err
}
