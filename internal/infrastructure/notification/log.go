package notification

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

// LogNotifier records alerts in the structured log instead of sending mail.
// It is selected explicitly with NOTIFY_MODE=log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyMissingInformation(
	_ context.Context,
	documentID string,
	missingFields []string,
	partial domain.MedicalInfo,
	attachment *domain.Attachment,
) (domain.DeliveryReceipt, error) {
	id := uuid.NewString()
	attrs := []any{
		"message_id", id,
		"document_id", documentID,
		"subject", Subject(documentID),
		"missing_fields", missingFields,
		"used_category", partial.UsedCategory,
		"status", partial.Status.String(),
	}
	if attachment != nil {
		attrs = append(attrs, "attachment", attachment.Filename, "attachment_bytes", len(attachment.Content))
	}
	n.logger.Info("missing_information_notification", attrs...)
	return domain.DeliveryReceipt{Channel: "log", MessageID: id}, nil
}
