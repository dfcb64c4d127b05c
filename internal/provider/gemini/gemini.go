package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/shpitdev/lead-contract/internal/provider/llm"
)

const (
	DefaultModel = "gemini-2.5-flash"
	name         = "gemini"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string

	// Timeout bounds one request. Zero means llm.DefaultTimeout.
	Timeout time.Duration
}

// Model calls GenerateContent with a JSON response schema.
type Model struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func New(ctx context.Context, cfg Config) (*Model, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = llm.DefaultTimeout
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Model{
		client:  client,
		model:   model,
		timeout: timeout,
	}, nil
}

func (m *Model) Name() string { return name + "/" + m.model }

// Nullable strings so the model can say "missing" instead of inventing a value.
var outputSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"name":  {Type: genai.TypeString, Nullable: genai.Ptr(true)},
		"email": {Type: genai.TypeString, Nullable: genai.Ptr(true)},
		"phone": {Type: genai.TypeString, Nullable: genai.Ptr(true)},
	},
	Required: []string{"name", "email", "phone"},
}

// Generate returns the raw response text for text.
func (m *Model) Generate(ctx context.Context, text string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	resp, err := m.client.Models.GenerateContent(
		reqCtx,
		m.model,
		genai.Text(llm.UserPrompt(text)),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(llm.SystemPrompt, genai.RoleUser),
			CandidateCount:    1,
			Temperature:       genai.Ptr[float32](0),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    outputSchema,
		},
	)
	if err != nil {
		return "", classifyErr(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return llm.Content(name, "")
	}
	return llm.Content(name, resp.Text())
}

func classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return llm.ClassifyStatus(name, apiErr.Code)
	}
	return llm.ClassifyTransport(name, err)
}
