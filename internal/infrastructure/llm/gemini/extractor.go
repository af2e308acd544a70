package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

// Extractor implements ports.FieldExtractor on top of a multimodal model.
type Extractor struct {
	client *Client
}

func NewExtractor(client *Client) *Extractor {
	return &Extractor{client: client}
}

func (e *Extractor) Extract(ctx context.Context, doc domain.Document, prompt string) (domain.ExtractedFields, error) {
	parts := []part{
		textPart(buildExtractionPrompt(prompt)),
		documentPart(doc.MimeType, doc.Content),
	}
	text, err := e.client.generate(ctx, "extract", parts, extractionConfig)
	if err != nil {
		return domain.ExtractedFields{}, err
	}
	return parseExtractedFields(text)
}

func decodeModelJSON(raw string, out any, operation string) error {
	obj, ok := extractJSONObject(raw)
	if !ok {
		return domain.WrapError(domain.ErrUnparseableResponse, operation, errors.New("no json object in model output"))
	}
	err := json.Unmarshal([]byte(obj), out)
	if err == nil {
		return nil
	}
	// Models tend to copy the trailing comma from prompt examples.
	if repaired := stripTrailingCommas(obj); repaired != obj {
		err = json.Unmarshal([]byte(repaired), out)
	}
	if err != nil {
		return domain.WrapError(domain.ErrUnparseableResponse, operation, fmt.Errorf("decode json: %w", err))
	}
	return nil
}

// stripTrailingCommas drops commas that directly precede a closing brace or
// bracket. String literals are copied untouched.
func stripTrailingCommas(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	inString, escaped := false, false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case ',':
			j := i + 1
			for j < len(raw) && strings.IndexByte(" \t\r\n", raw[j]) >= 0 {
				j++
			}
			if j < len(raw) && (raw[j] == '}' || raw[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func parseExtractedFields(raw string) (domain.ExtractedFields, error) {
	var fields domain.ExtractedFields
	if err := decodeModelJSON(raw, &fields, "parse extracted fields"); err != nil {
		return domain.ExtractedFields{}, err
	}

	fields.PatientFirstName = strings.TrimSpace(fields.PatientFirstName)
	fields.PatientLastName = strings.TrimSpace(fields.PatientLastName)
	fields.PatientGender = strings.TrimSpace(fields.PatientGender)
	fields.PatientBirthdate = strings.TrimSpace(fields.PatientBirthdate)
	fields.ExaminationDate = strings.TrimSpace(fields.ExaminationDate)
	fields.ExaminationType = strings.Join(strings.Fields(fields.ExaminationType), " ")
	return fields, nil
}
