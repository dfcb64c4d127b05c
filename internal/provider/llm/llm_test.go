package llm_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/lead-contract/internal/provider/llm"
	"github.com/shpitdev/lead-contract/pkg/lead/core"
)

type timeoutNetErr struct{}

func (timeoutNetErr) Error() string   { return "i/o timeout" }
func (timeoutNetErr) Timeout() bool   { return true }
func (timeoutNetErr) Temporary() bool { return true }

func TestUserPrompt(t *testing.T) {
	t.Parallel()

	p := llm.UserPrompt("Hi, I'm Ankit")
	assert.True(t, strings.HasPrefix(p, "Extract lead data from this text."))
	assert.True(t, strings.HasSuffix(p, "Text:\nHi, I'm Ankit\n"))
	assert.Contains(t, llm.SystemPrompt, "name, email, phone")
}

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   core.Kind
	}{
		{status: http.StatusRequestTimeout, want: core.KindTimeout},
		{status: http.StatusGatewayTimeout, want: core.KindTimeout},
		{status: http.StatusTooManyRequests, want: core.KindProviderError},
		{status: http.StatusUnauthorized, want: core.KindProviderError},
		{status: http.StatusInternalServerError, want: core.KindProviderError},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			t.Parallel()
			got := llm.ClassifyStatus("openai", tt.status)
			assert.Equal(t, tt.want, got.Kind)
			assert.Contains(t, got.Reason, fmt.Sprintf("openai: HTTP %d", tt.status))
		})
	}
}

func TestClassifyTransport(t *testing.T) {
	t.Parallel()

	assert.NoError(t, llm.ClassifyTransport("x", nil))

	tests := []struct {
		name string
		err  error
		want core.Kind
	}{
		{name: "deadline", err: fmt.Errorf("post: %w", context.DeadlineExceeded), want: core.KindTimeout},
		{name: "net timeout", err: timeoutNetErr{}, want: core.KindTimeout},
		{name: "cancel stays untyped", err: context.Canceled, want: core.KindExtractorError},
		{name: "typed passes through", err: core.InvalidOutput("no choices"), want: core.KindModelInvalidOutput},
		{name: "other transport", err: errors.New("connection refused"), want: core.KindProviderError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := llm.ClassifyTransport("gemini", tt.err)
			require.Error(t, got)
			assert.Equal(t, tt.want, core.KindOf(got))
		})
	}
}

func TestClassifyTransport_RedactsKeys(t *testing.T) {
	t.Parallel()

	err := llm.ClassifyTransport("openai", errors.New("bad request: api_key=sk-abcdefghijklmnopqrstuvwx"))
	assert.NotContains(t, err.Error(), "abcdefghijklmnop")
}

func TestContent(t *testing.T) {
	t.Parallel()

	got, err := llm.Content("anthropic", "  {\"name\":null}\n")
	require.NoError(t, err)
	assert.Equal(t, `{"name":null}`, got)

	_, err = llm.Content("anthropic", " \n ")
	assert.Equal(t, core.KindModelInvalidOutput, core.KindOf(err))
}
