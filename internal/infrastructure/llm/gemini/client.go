package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
	"github.com/kirillkom/medical-doc-extractor/internal/infrastructure/resilience"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com"

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithExecutor(executor *resilience.Executor) Option {
	return func(c *Client) {
		c.executor = executor
	}
}

func New(baseURL, apiKey, model string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.executor == nil {
		c.executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return c
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	SafetySettings   []safetySetting  `json:"safetySettings,omitempty"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

var defaultSafetySettings = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_ONLY_HIGH"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_ONLY_HIGH"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_ONLY_HIGH"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_ONLY_HIGH"},
}

var (
	extractionConfig = generationConfig{Temperature: 0, TopP: 1, TopK: 1, MaxOutputTokens: 8192}
	detectionConfig  = generationConfig{Temperature: 0.2, TopP: 0.95, TopK: 64, MaxOutputTokens: 8192}
)

func textPart(text string) part {
	return part{Text: text}
}

func documentPart(mimeType string, data []byte) part {
	return part{InlineData: &inlineData{
		MimeType: domain.NormalizeMimeType(mimeType),
		Data:     base64.StdEncoding.EncodeToString(data),
	}}
}

// generate sends one user turn and returns the concatenated candidate text.
func (c *Client) generate(ctx context.Context, operation string, parts []part, cfg generationConfig) (string, error) {
	req := generateRequest{
		Contents:         []content{{Role: "user", Parts: parts}},
		SafetySettings:   defaultSafetySettings,
		GenerationConfig: cfg,
	}
	path := fmt.Sprintf("/v1beta/models/%s:generateContent", c.model)

	resp, err := resilience.Call(ctx, c.executor, "gemini_"+operation, func(ctx context.Context) (generateResponse, error) {
		var out generateResponse
		err := c.postJSON(ctx, path, req, &out, operation)
		return out, err
	}, callPolicy.Classify)
	if err != nil {
		return "", callPolicy.WrapTemporary("gemini "+operation, err)
	}

	if len(resp.Candidates) == 0 {
		reason := resp.PromptFeedback.BlockReason
		if reason == "" {
			reason = "no candidates"
		}
		return "", domain.WrapError(domain.ErrUnparseableResponse, "gemini "+operation, errors.New(reason))
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

func extractJSONObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1], true
	}
	return "", false
}
