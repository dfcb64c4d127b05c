package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/shpitdev/lead-contract/pkg/lead/core"
	"github.com/shpitdev/lead-contract/pkg/lead/redact"
)

// ClassifyStatus maps an HTTP status returned by a provider API.
//
// 408 and 504 are timeouts; every other non-2xx status is a provider failure.
func ClassifyStatus(provider string, status int) *core.Error {
	reason := fmt.Sprintf("%s: HTTP %d", provider, status)
	if text := http.StatusText(status); text != "" {
		reason += " " + text
	}
	switch status {
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return core.Timeout(reason)
	default:
		return core.Provider(reason)
	}
}

// ClassifyTransport maps a non-API failure (no HTTP status) from a provider call.
//
// Deadlines and network timeouts become TIMEOUT. Cancellation is returned untyped so the
// orchestrator classifies it. Anything else is a provider failure.
func ClassifyTransport(provider string, err error) error {
	if err == nil {
		return nil
	}
	var ce *core.Error
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", provider, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return core.Timeout(provider + ": request timed out")
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return core.Timeout(provider + ": request timed out")
	}
	return core.Provider(provider + ": " + redact.Truncate(redact.Secrets(err.Error()), 300))
}

// Content validates the text a provider returned. Empty output is invalid model output,
// not a provider failure.
func Content(provider, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", core.InvalidOutput(provider + ": empty message content")
	}
	return content, nil
}
