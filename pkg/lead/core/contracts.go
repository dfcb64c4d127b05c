package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/shpitdev/lead-contract/pkg/lead/redact"
)

// Kind classifies why an extraction attempt did not succeed.
//
// The set is closed: callers must not invent new kinds.
type Kind string

const (
	KindExtractorError     Kind = "EXTRACTOR_ERROR"
	KindModelInvalidOutput Kind = "MODEL_INVALID_OUTPUT"
	KindTimeout            Kind = "TIMEOUT"
	KindProviderError      Kind = "PROVIDER_ERROR"
	KindEmptyLead          Kind = "EMPTY_LEAD"
)

// Kinds returns every failure kind.
func Kinds() []Kind {
	return []Kind{
		KindExtractorError,
		KindModelInvalidOutput,
		KindTimeout,
		KindProviderError,
		KindEmptyLead,
	}
}

// Valid reports whether k is one of Kinds().
func (k Kind) Valid() bool {
	switch k {
	case KindExtractorError, KindModelInvalidOutput, KindTimeout, KindProviderError, KindEmptyLead:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	if !k.Valid() {
		return string(KindExtractorError)
	}
	return string(k)
}

// Error is the only failure value that crosses a component boundary.
//
// Reason is diagnostic text. It may quote a bounded snippet of model output but is
// never used as a data channel.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	if e == nil {
		return string(KindExtractorError)
	}
	if strings.TrimSpace(e.Reason) == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Reason
}

// New returns an Error of the given kind. Unknown kinds collapse to EXTRACTOR_ERROR.
func New(kind Kind, reason string) *Error {
	if !kind.Valid() {
		kind = KindExtractorError
	}
	return &Error{Kind: kind, Reason: reason}
}

func Errorf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

func InvalidOutput(reason string) *Error { return New(KindModelInvalidOutput, reason) }
func Timeout(reason string) *Error       { return New(KindTimeout, reason) }
func Provider(reason string) *Error      { return New(KindProviderError, reason) }
func EmptyLead(reason string) *Error     { return New(KindEmptyLead, reason) }

// AsError reclassifies err into exactly one taxonomy value.
//
// An *Error anywhere in the chain wins. Deadlines and network timeouts become TIMEOUT;
// everything else becomes EXTRACTOR_ERROR with a redacted reason.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e != nil {
		return New(e.Kind, e.Reason)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(redact.Secrets(err.Error()))
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return Timeout(redact.Secrets(err.Error()))
	}
	return New(KindExtractorError, redact.Secrets(err.Error()))
}

// KindOf returns the taxonomy kind of err, or "" for nil.
func KindOf(err error) Kind {
	e := AsError(err)
	if e == nil {
		return ""
	}
	return e.Kind
}

// Model is the injected text-generation call: raw text in, raw model output out.
//
// Implementations should fail with *Error values of kind PROVIDER_ERROR, TIMEOUT or
// MODEL_INVALID_OUTPUT. Anything else is reclassified by AsError.
type Model interface {
	Generate(ctx context.Context, text string) (string, error)
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, text string) (string, error)

func (f ModelFunc) Generate(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}
