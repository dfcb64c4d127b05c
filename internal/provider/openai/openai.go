package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/shpitdev/lead-contract/internal/provider/llm"
)

const (
	DefaultModel = "gpt-4o-mini"
	name         = "openai"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the OpenAI API base URL. Useful for proxies/testing.
	BaseURL string

	// Timeout bounds one request. Zero means llm.DefaultTimeout.
	Timeout time.Duration
}

// Model calls the Chat Completions API in JSON mode.
type Model struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

func New(cfg Config) (*Model, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = llm.DefaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		// Retries belong to the extraction loop, not the SDK.
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSpace(cfg.BaseURL)))
	}

	return &Model{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: timeout,
	}, nil
}

func (m *Model) Name() string { return name + "/" + m.model }

// Generate returns the raw message content for text.
func (m *Model) Generate(ctx context.Context, text string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	completion, err := m.client.Chat.Completions.New(reqCtx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(m.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(llm.SystemPrompt),
			openai.UserMessage(llm.UserPrompt(text)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", classifyErr(err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return llm.Content(name, "")
	}
	return llm.Content(name, completion.Choices[0].Message.Content)
}

func classifyErr(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return llm.ClassifyStatus(name, apiErr.StatusCode)
	}
	return llm.ClassifyTransport(name, err)
}
