package notification

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

// SESAPI is the slice of the SES client the notifier needs.
type SESAPI interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

type SESNotifier struct {
	envelope Envelope
	client   SESAPI
}

func NewSESNotifier(client SESAPI, envelope Envelope) *SESNotifier {
	return &SESNotifier{envelope: envelope, client: client}
}

func (n *SESNotifier) NotifyMissingInformation(
	ctx context.Context,
	documentID string,
	missingFields []string,
	partial domain.MedicalInfo,
	attachment *domain.Attachment,
) (domain.DeliveryReceipt, error) {
	msg, err := BuildMessage(n.envelope, documentID, missingFields, partial, attachment)
	if err != nil {
		return domain.DeliveryReceipt{}, err
	}

	var raw bytes.Buffer
	if _, err := msg.WriteTo(&raw); err != nil {
		return domain.DeliveryReceipt{}, fmt.Errorf("encode ses message: %w", err)
	}

	out, err := n.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(n.envelope.From),
		Destinations: n.envelope.To,
		RawMessage:   &types.RawMessage{Data: raw.Bytes()},
	})
	if err != nil {
		return domain.DeliveryReceipt{}, domain.WrapError(domain.ErrDeliveryFailed, "ses send", fmt.Errorf("document %s: %w", documentID, err))
	}
	return domain.DeliveryReceipt{Channel: "ses", MessageID: aws.ToString(out.MessageId)}, nil
}
