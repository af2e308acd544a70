package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

// OutcomeEvent is published for every resolved document.
type OutcomeEvent struct {
	DocumentID  string             `json:"document_id"`
	Status      string             `json:"status"`
	FolderName  string             `json:"folder_name"`
	Info        domain.MedicalInfo `json:"medical_info"`
	ProcessedAt time.Time          `json:"processed_at"`
}

// OutcomePublisher implements ports.OutcomeForwarder over the queue's connection.
type OutcomePublisher struct {
	queue   *Queue
	subject string
	now     func() time.Time
}

func (q *Queue) OutcomePublisher(subject string) *OutcomePublisher {
	return &OutcomePublisher{queue: q, subject: subject, now: time.Now}
}

func (p *OutcomePublisher) Forward(ctx context.Context, documentID string, info domain.MedicalInfo) error {
	payload, err := json.Marshal(OutcomeEvent{
		DocumentID:  documentID,
		Status:      info.Status.String(),
		FolderName:  info.FolderName,
		Info:        info,
		ProcessedAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal outcome event: %w", err)
	}
	return p.queue.publish(ctx, p.subject, payload)
}
