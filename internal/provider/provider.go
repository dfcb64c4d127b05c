// Package provider builds the model collaborator selected by configuration.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shpitdev/lead-contract/internal/provider/anthropic"
	"github.com/shpitdev/lead-contract/internal/provider/gemini"
	"github.com/shpitdev/lead-contract/internal/provider/openai"
	"github.com/shpitdev/lead-contract/internal/provider/stub"
	"github.com/shpitdev/lead-contract/pkg/lead/core"
)

const (
	OpenAI    = "openai"
	Gemini    = "gemini"
	Anthropic = "anthropic"
	Stub      = "stub"
)

// Names lists the supported provider names.
func Names() []string {
	return []string{OpenAI, Gemini, Anthropic, Stub}
}

type Config struct {
	Name    string
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Model is a collaborator that can say what it is.
type Model interface {
	core.Model
	Name() string
}

// New returns the collaborator named by cfg.Name.
func New(ctx context.Context, cfg Config) (Model, error) {
	var (
		m   Model
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case OpenAI, "":
		m, err = nonNil(openai.New(openai.Config{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}))
	case Gemini:
		m, err = nonNil(gemini.New(ctx, gemini.Config{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}))
	case Anthropic:
		m, err = nonNil(anthropic.New(anthropic.Config{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}))
	case Stub:
		m = stub.Model{}
	default:
		err = fmt.Errorf("unknown provider %q (want one of %s)", cfg.Name, strings.Join(Names(), ", "))
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// nonNil keeps a failed constructor's typed nil pointer out of the Model interface.
func nonNil[T Model](m T, err error) (Model, error) {
	if err != nil {
		return nil, err
	}
	return m, nil
}
