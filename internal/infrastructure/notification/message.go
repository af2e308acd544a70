package notification

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

const defaultCategoryLabel = "default"

// Envelope is the sender and recipients of operator alerts.
type Envelope struct {
	From string
	To   []string
}

func (e Envelope) validate() error {
	if strings.TrimSpace(e.From) == "" {
		return errors.New("sender address is required")
	}
	if len(e.To) == 0 {
		return errors.New("at least one recipient is required")
	}
	return nil
}

func Subject(documentID string) string {
	return "Missing Information - Document " + documentID
}

var bodyTemplate = template.Must(template.New("missing_information").Parse(`<h2>Document Information Incomplete</h2>
<p>Document ID: {{.DocumentID}}</p>
<h3>Catégorie utilisée: <span style="color: {{.CategoryColor}};">{{.UsedCategory}}</span></h3>
<h3>Missing Fields:</h3>
<ul>
{{- range .MissingFields}}
  <li>{{.}}</li>
{{- end}}
</ul>
<h3>Extracted Information:</h3>
<table style="border-collapse: collapse; width: 100%;">
{{- range .Rows}}
  <tr>
    <td style="border: 1px solid #ddd; padding: 8px;">{{.Name}}</td>
    <td style="border: 1px solid #ddd; padding: 8px;">{{.Value}}</td>
  </tr>
{{- end}}
</table>
`))

type bodyRow struct {
	Name  string
	Value string
}

type bodyData struct {
	DocumentID    string
	UsedCategory  string
	CategoryColor template.CSS
	MissingFields []string
	Rows          []bodyRow
}

// RenderBody renders the HTML alert. Values are escaped; empty ones show as N/A.
func RenderBody(documentID string, missingFields []string, partial domain.MedicalInfo) (string, error) {
	data := bodyData{
		DocumentID:    documentID,
		UsedCategory:  partial.UsedCategory,
		CategoryColor: "#009900",
		MissingFields: missingFields,
	}
	if data.UsedCategory == "" {
		data.UsedCategory = defaultCategoryLabel
		data.CategoryColor = "#ff9900"
	}
	for _, field := range domain.RequiredFields {
		value := partial.Value(field)
		if value == "" {
			value = "N/A"
		}
		data.Rows = append(data.Rows, bodyRow{Name: field, Value: value})
	}

	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render notification body: %w", err)
	}
	return buf.String(), nil
}

// BuildMessage assembles the MIME message shared by every mail transport.
func BuildMessage(
	env Envelope,
	documentID string,
	missingFields []string,
	partial domain.MedicalInfo,
	attachment *domain.Attachment,
) (*mail.Msg, error) {
	if err := env.validate(); err != nil {
		return nil, domain.WrapError(domain.ErrMisconfigured, "build notification", err)
	}
	body, err := RenderBody(documentID, missingFields, partial)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(env.From); err != nil {
		return nil, domain.WrapError(domain.ErrMisconfigured, "build notification", fmt.Errorf("sender: %w", err))
	}
	if err := msg.To(env.To...); err != nil {
		return nil, domain.WrapError(domain.ErrMisconfigured, "build notification", fmt.Errorf("recipients: %w", err))
	}
	msg.Subject(Subject(documentID))
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextHTML, body)

	if attachment != nil && len(attachment.Content) > 0 {
		err := msg.AttachReader(
			attachment.Filename,
			bytes.NewReader(attachment.Content),
			mail.WithFileContentType(mail.ContentType(attachment.ContentType)),
		)
		if err != nil {
			return nil, fmt.Errorf("attach document: %w", err)
		}
	}
	return msg, nil
}

func messageID(msg *mail.Msg) string {
	ids := msg.GetGenHeader(mail.HeaderMessageID)
	if len(ids) == 0 {
		return ""
	}
	return strings.Trim(ids[0], "<>")
}
