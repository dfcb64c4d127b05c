package retry

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/shpitdev/lead-contract/pkg/lead/core"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
)

// Policy bounds how many attempts an extraction gets and how long to wait between them.
type Policy struct {
	MaxAttempts int
	// BaseDelay is the wait after the first failed attempt; it doubles per attempt.
	BaseDelay time.Duration
	// MaxDelay caps a single wait. Set to <=0 to disable.
	MaxDelay time.Duration
}

// Default returns 3 attempts with 1s base delay (1s, 2s).
func Default() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
	}
}

func (p Policy) WithDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay < 0 {
		p.MaxDelay = 0
	}
	return p
}

// IsRetriable is true only for invalid model output and timeouts.
func IsRetriable(kind core.Kind) bool {
	switch kind {
	case core.KindModelInvalidOutput, core.KindTimeout:
		return true
	default:
		return false
	}
}

// HasNextAttempt reports whether attempt (zero-indexed) is followed by another one.
func HasNextAttempt(attempt, maxAttempts int) bool {
	return attempt+1 < maxAttempts
}

// BackoffDelay returns BaseDelay * 2^attempt for a zero-indexed attempt. Without a
// MaxDelay it saturates at the largest time.Duration.
func (p Policy) BackoffDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	sleep := p.BaseDelay
	for i := 0; i < attempt; i++ {
		if p.MaxDelay > 0 && sleep >= p.MaxDelay {
			break
		}
		if sleep > math.MaxInt64/2 {
			sleep = math.MaxInt64
			break
		}
		sleep *= 2
	}
	if p.MaxDelay > 0 && sleep > p.MaxDelay {
		sleep = p.MaxDelay
	}
	return sleep
}

// WillRetry combines the attempt budget with the retriability of kind.
func (p Policy) WillRetry(attempt int, kind core.Kind) bool {
	return HasNextAttempt(attempt, p.MaxAttempts) && IsRetriable(kind)
}

// LogAttemptFailure records one failed attempt. Call it before waiting on any backoff so
// the record reflects the retry decision rather than the next attempt's outcome.
func LogAttemptFailure(logger *zap.Logger, attempt int, err *core.Error, willRetry bool) {
	if logger == nil || err == nil {
		return
	}
	logger.Warn("extraction attempt failed",
		zap.Int("attempt", attempt+1),
		zap.String("failure_kind", err.Kind.String()),
		zap.String("reason", err.Reason),
		zap.Bool("will_retry", willRetry),
	)
}
