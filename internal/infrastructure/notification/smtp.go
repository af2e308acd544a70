package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// ImplicitTLS selects SMTPS; otherwise STARTTLS is used when offered.
	ImplicitTLS bool
	Timeout     time.Duration
}

type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type SMTPNotifier struct {
	envelope Envelope
	sender   mailSender
}

func NewSMTPNotifier(cfg SMTPConfig, envelope Envelope) (*SMTPNotifier, error) {
	var opts []mail.Option
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	if cfg.ImplicitTLS {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, domain.WrapError(domain.ErrMisconfigured, "create smtp client", err)
	}
	return &SMTPNotifier{envelope: envelope, sender: client}, nil
}

func (n *SMTPNotifier) NotifyMissingInformation(
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
	if err := n.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return domain.DeliveryReceipt{}, domain.WrapError(domain.ErrDeliveryFailed, "smtp send", fmt.Errorf("document %s: %w", documentID, err))
	}
	return domain.DeliveryReceipt{Channel: "smtp", MessageID: messageID(msg)}, nil
}
