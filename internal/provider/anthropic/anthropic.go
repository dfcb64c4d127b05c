package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/shpitdev/lead-contract/internal/provider/llm"
)

const (
	DefaultModel     = "claude-3-5-haiku-latest"
	defaultMaxTokens = 512
	name             = "anthropic"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Anthropic API base URL. Useful for proxies/testing.
	BaseURL string

	// Timeout bounds one request. Zero means llm.DefaultTimeout.
	Timeout time.Duration
}

// Model calls the Messages API and returns the joined text blocks.
type Model struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

func New(cfg Config) (*Model, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
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
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSpace(cfg.BaseURL)))
	}

	return &Model{
		client:  anthropic.NewClient(opts...),
		model:   model,
		timeout: timeout,
	}, nil
}

func (m *Model) Name() string { return name + "/" + m.model }

func (m *Model) Generate(ctx context.Context, text string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	msg, err := m.client.Messages.New(reqCtx, anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: defaultMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: llm.SystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(llm.UserPrompt(text))),
		},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", classifyErr(err)
	}
	if msg == nil {
		return llm.Content(name, "")
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return llm.Content(name, b.String())
}

func classifyErr(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return llm.ClassifyStatus(name, apiErr.StatusCode)
	}
	return llm.ClassifyTransport(name, err)
}
