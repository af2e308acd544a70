package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
	"github.com/kirillkom/medical-doc-extractor/internal/infrastructure/resilience"
)

func modelReply(text string) string {
	payload := map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func newTestClient(url string) *Client {
	return New(url, "test-key", "gemini-1.5-flash", WithExecutor(resilience.NewExecutor(resilience.Config{BreakerEnabled: false})))
}

func pdfDocument() domain.Document {
	return domain.Document{ID: "doc-1", Content: []byte("%PDF-1.7 body"), MimeType: domain.MimePDF}
}

func TestExtractSendsPromptAndDocument(t *testing.T) {
	var captured generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-1.5-flash:generateContent" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			http.Error(w, "missing key", http.StatusUnauthorized)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(modelReply("```json\n{\"patientFirstName\":\" Jean \",\"patientLastName\":\"Dupont\",\"patientGender\":\"M\",\"patientBirthdate\":\"15/03/1985\",\"examinationDate\":\"20/12/2024\",\"examinationType\":\"Radiographie\\nThorax\",}\n```")))
	}))
	defer server.Close()

	fields, err := NewExtractor(newTestClient(server.URL)).Extract(context.Background(), pdfDocument(), "Compte rendu de radiologie.")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if fields.PatientFirstName != "Jean" || fields.ExaminationType != "Radiographie Thorax" {
		t.Fatalf("unexpected fields %+v", fields)
	}

	if len(captured.Contents) != 1 || len(captured.Contents[0].Parts) != 2 {
		t.Fatalf("unexpected request contents %+v", captured.Contents)
	}
	prompt := captured.Contents[0].Parts[0].Text
	if !strings.HasPrefix(prompt, "Compte rendu de radiologie.") || !strings.Contains(prompt, "## Format de sortie JSON") {
		t.Fatalf("custom prompt not combined with output rules: %q", prompt)
	}
	inline := captured.Contents[0].Parts[1].InlineData
	if inline == nil || inline.MimeType != domain.MimePDF || inline.Data == "" {
		t.Fatalf("expected inline pdf part, got %+v", inline)
	}
	if captured.GenerationConfig.Temperature != 0 || captured.GenerationConfig.TopK != 1 {
		t.Fatalf("unexpected generation config %+v", captured.GenerationConfig)
	}
	if len(captured.SafetySettings) != 4 {
		t.Fatalf("expected 4 safety settings, got %d", len(captured.SafetySettings))
	}
}

func TestExtractUsesDefaultPromptWhenEmpty(t *testing.T) {
	if got := buildExtractionPrompt("  "); got != defaultExtractionPrompt {
		t.Fatalf("expected default prompt")
	}
}

func TestExtractUnparseableResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(modelReply("Je ne peux pas lire ce document.")))
	}))
	defer server.Close()

	_, err := NewExtractor(newTestClient(server.URL)).Extract(context.Background(), pdfDocument(), "")
	if !errors.Is(err, domain.ErrUnparseableResponse) {
		t.Fatalf("expected unparseable response, got %v", err)
	}
}

func TestExtractBlockedPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer server.Close()

	_, err := NewExtractor(newTestClient(server.URL)).Extract(context.Background(), pdfDocument(), "")
	if !errors.Is(err, domain.ErrUnparseableResponse) || !strings.Contains(err.Error(), "SAFETY") {
		t.Fatalf("expected blocked response error, got %v", err)
	}
}

func TestExtractServerErrorIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewExtractor(newTestClient(server.URL)).Extract(context.Background(), pdfDocument(), "")
	if !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestExtractClientErrorIsNotTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "API key not valid", http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := NewExtractor(newTestClient(server.URL)).Extract(context.Background(), pdfDocument(), "")
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected http status error, got %v", err)
	}
	if errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("4xx must not be temporary")
	}
}

type pagesFake struct {
	text string
	err  error
}

func (f pagesFake) FirstPageText([]byte) (string, error) { return f.text, f.err }

func TestDetectCategoryUsesFirstPageText(t *testing.T) {
	var captured generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(modelReply(`{"category": "radiologie", "no_category": false}`)))
	}))
	defer server.Close()

	detector := NewCategoryDetector(newTestClient(server.URL), pagesFake{text: "COMPTE RENDU RADIOLOGIQUE"}, nil)
	got, err := detector.DetectCategory(context.Background(), pdfDocument(), []string{"radiologie", "biologie"})
	if err != nil {
		t.Fatalf("DetectCategory() error = %v", err)
	}
	if got.Category != "radiologie" || got.NoCategory {
		t.Fatalf("unexpected detection %+v", got)
	}
	parts := captured.Contents[0].Parts
	if !strings.Contains(parts[0].Text, "radiologie, biologie") {
		t.Fatalf("category list missing from prompt: %q", parts[0].Text)
	}
	if parts[1].InlineData != nil || !strings.Contains(parts[1].Text, "COMPTE RENDU RADIOLOGIQUE") {
		t.Fatalf("expected first page text part, got %+v", parts[1])
	}
	if captured.GenerationConfig.TopK != 64 {
		t.Fatalf("unexpected generation config %+v", captured.GenerationConfig)
	}
}

func TestDetectCategoryFallsBackToWholeDocument(t *testing.T) {
	var captured generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(modelReply(`{"category": "", "no_category": true}`)))
	}))
	defer server.Close()

	detector := NewCategoryDetector(newTestClient(server.URL), pagesFake{err: errors.New("malformed xref")}, nil)
	got, err := detector.DetectCategory(context.Background(), pdfDocument(), []string{"radiologie"})
	if err != nil {
		t.Fatalf("DetectCategory() error = %v", err)
	}
	if !got.NoCategory {
		t.Fatalf("expected no_category, got %+v", got)
	}
	if captured.Contents[0].Parts[1].InlineData == nil {
		t.Fatalf("expected inline document fallback")
	}
}

func TestDetectCategoryEmptyNameMeansNoCategory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(modelReply(`{"category": "  "}`)))
	}))
	defer server.Close()

	detector := NewCategoryDetector(newTestClient(server.URL), nil, nil)
	got, err := detector.DetectCategory(context.Background(), domain.Document{ID: "x", Content: []byte{1}, MimeType: domain.MimePNG}, []string{"a"})
	if err != nil {
		t.Fatalf("DetectCategory() error = %v", err)
	}
	if !got.NoCategory {
		t.Fatalf("expected no_category for blank category, got %+v", got)
	}
}

func TestDetectorDocumentPartIgnoresMimeParameters(t *testing.T) {
	detector := NewCategoryDetector(nil, pagesFake{text: "COMPTE RENDU"}, nil)

	got := detector.documentPart(domain.Document{ID: "doc-1", Content: []byte("%PDF"), MimeType: "Application/PDF; charset=binary"})
	if got.InlineData != nil || !strings.Contains(got.Text, "COMPTE RENDU") {
		t.Fatalf("expected first page text for parameterized pdf type, got %+v", got)
	}

	got = detector.documentPart(domain.Document{ID: "doc-2", Content: []byte("png"), MimeType: "image/png; name=scan.png"})
	if got.InlineData == nil || got.InlineData.MimeType != domain.MimePNG {
		t.Fatalf("expected bare inline mime type, got %+v", got.InlineData)
	}
}

func TestParseExtractedFieldsKeepsCommasInsideStrings(t *testing.T) {
	fields, err := parseExtractedFields(`{"patientLastName": "Dupont, ]", "examinationType": "Echo, }",}`)
	if err != nil {
		t.Fatalf("parseExtractedFields() error = %v", err)
	}
	if fields.PatientLastName != "Dupont, ]" || fields.ExaminationType != "Echo, }" {
		t.Fatalf("string values altered: %+v", fields)
	}

	fields, err = parseExtractedFields(`{"examinationType": "Echo, ]"}`)
	if err != nil {
		t.Fatalf("parseExtractedFields() error = %v", err)
	}
	if fields.ExaminationType != "Echo, ]" {
		t.Fatalf("valid json altered: %+v", fields)
	}
}

func TestStripTrailingCommas(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"{\"a\": 1,}", "{\"a\": 1}"},
		{"{\"a\": [1, 2 ,\n],\n}", "{\"a\": [1, 2 \n]\n}"},
		{`{"a": "x,}", "b": "\","}`, `{"a": "x,}", "b": "\","}`},
		{`{"a": "\\", }`, `{"a": "\\" }`},
	}
	for _, tc := range cases {
		if got := stripTrailingCommas(tc.in); got != tc.want {
			t.Errorf("stripTrailingCommas(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
