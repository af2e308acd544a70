package notification

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/wneessen/go-mail"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

func partialInfo() domain.MedicalInfo {
	return domain.MedicalInfo{
		ExtractedFields: domain.ExtractedFields{
			PatientFirstName: "Jean",
			PatientLastName:  "<Dupont>",
			ExaminationType:  "Radiographie Thorax",
		},
		Status: domain.StatusIncomplete,
	}
}

func testEnvelope() Envelope {
	return Envelope{From: "scanner@clinic.example", To: []string{"secretariat@clinic.example"}}
}

func TestRenderBodyDefaultCategory(t *testing.T) {
	body, err := RenderBody("doc-1", []string{domain.FieldPatientGender}, partialInfo())
	if err != nil {
		t.Fatalf("RenderBody() error = %v", err)
	}
	for _, want := range []string{
		"Document ID: doc-1",
		`color: #ff9900;">default</span>`,
		"<li>patientGender</li>",
		"N/A",
		"&lt;Dupont&gt;",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestRenderBodyUsedCategory(t *testing.T) {
	info := partialInfo()
	info.UsedCategory = "radiologie"

	body, err := RenderBody("doc-1", nil, info)
	if err != nil {
		t.Fatalf("RenderBody() error = %v", err)
	}
	if !strings.Contains(body, `color: #009900;">radiologie</span>`) {
		t.Fatalf("expected green category label:\n%s", body)
	}
}

func TestBuildMessageWithAttachment(t *testing.T) {
	att := &domain.Attachment{Filename: "doc-1.pdf", ContentType: domain.MimePDF, Content: []byte("%PDF-1.7")}
	msg, err := BuildMessage(testEnvelope(), "doc-1", []string{"x"}, partialInfo(), att)
	if err != nil {
		t.Fatalf("BuildMessage() error = %v", err)
	}

	var raw bytes.Buffer
	if _, err := msg.WriteTo(&raw); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	out := raw.String()
	for _, want := range []string{"Subject: Missing Information - Document doc-1", "doc-1.pdf", "application/pdf"} {
		if !strings.Contains(out, want) {
			t.Fatalf("raw message missing %q", want)
		}
	}
	if messageID(msg) == "" {
		t.Fatalf("expected generated message id")
	}
}

func TestBuildMessageRejectsMissingRecipients(t *testing.T) {
	_, err := BuildMessage(Envelope{From: "a@b.example"}, "doc-1", nil, partialInfo(), nil)
	if !errors.Is(err, domain.ErrMisconfigured) {
		t.Fatalf("expected misconfigured error, got %v", err)
	}
}

type senderFake struct {
	sent []*mail.Msg
	err  error
}

func (f *senderFake) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, messages...)
	return nil
}

func TestSMTPNotifierSends(t *testing.T) {
	sender := &senderFake{}
	n := &SMTPNotifier{envelope: testEnvelope(), sender: sender}

	receipt, err := n.NotifyMissingInformation(context.Background(), "doc-1", []string{"patientGender"}, partialInfo(), nil)
	if err != nil {
		t.Fatalf("NotifyMissingInformation() error = %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.sent))
	}
	if receipt.Channel != "smtp" || receipt.MessageID == "" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
}

func TestSMTPNotifierDeliveryFailure(t *testing.T) {
	n := &SMTPNotifier{envelope: testEnvelope(), sender: &senderFake{err: errors.New("550 mailbox unavailable")}}

	_, err := n.NotifyMissingInformation(context.Background(), "doc-1", nil, partialInfo(), nil)
	if !errors.Is(err, domain.ErrDeliveryFailed) {
		t.Fatalf("expected delivery failure, got %v", err)
	}
}

func TestNewSMTPNotifierBuildsClient(t *testing.T) {
	n, err := NewSMTPNotifier(SMTPConfig{Host: "smtp.clinic.example", Port: 587, Username: "u", Password: "p"}, testEnvelope())
	if err != nil {
		t.Fatalf("NewSMTPNotifier() error = %v", err)
	}
	if n.sender == nil {
		t.Fatalf("expected smtp client")
	}
}

type sesFake struct {
	input *ses.SendRawEmailInput
	err   error
}

func (f *sesFake) SendRawEmail(_ context.Context, params *ses.SendRawEmailInput, _ ...func(*ses.Options)) (*ses.SendRawEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendRawEmailOutput{MessageId: aws.String("ses-123")}, nil
}

func TestSESNotifierSendsRawMessage(t *testing.T) {
	client := &sesFake{}
	n := NewSESNotifier(client, testEnvelope())

	receipt, err := n.NotifyMissingInformation(context.Background(), "doc-2", []string{domain.ReasonInvalidExaminationType}, partialInfo(), nil)
	if err != nil {
		t.Fatalf("NotifyMissingInformation() error = %v", err)
	}
	if receipt.Channel != "ses" || receipt.MessageID != "ses-123" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	raw := string(client.input.RawMessage.Data)
	if !strings.Contains(raw, "Missing Information - Document doc-2") || !strings.Contains(raw, "text/html") {
		t.Fatalf("unexpected raw message:\n%s", raw)
	}
	if aws.ToString(client.input.Source) != "scanner@clinic.example" {
		t.Fatalf("unexpected source %q", aws.ToString(client.input.Source))
	}
}

func TestSESNotifierDeliveryFailure(t *testing.T) {
	n := NewSESNotifier(&sesFake{err: errors.New("MessageRejected")}, testEnvelope())

	_, err := n.NotifyMissingInformation(context.Background(), "doc-2", nil, partialInfo(), nil)
	if !errors.Is(err, domain.ErrDeliveryFailed) {
		t.Fatalf("expected delivery failure, got %v", err)
	}
}

func TestLogNotifierRecordsAlert(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	receipt, err := n.NotifyMissingInformation(context.Background(), "doc-3", []string{"patientGender"}, partialInfo(), &domain.Attachment{Filename: "doc-3.pdf", Content: []byte("x")})
	if err != nil {
		t.Fatalf("NotifyMissingInformation() error = %v", err)
	}
	if receipt.Channel != "log" || receipt.MessageID == "" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	line, _ := io.ReadAll(&buf)
	if !strings.Contains(string(line), `"msg":"missing_information_notification"`) || !strings.Contains(string(line), "doc-3.pdf") {
		t.Fatalf("unexpected log line %s", line)
	}
}
