// Package extract turns free text into a validated lead through an injected model call.
//
// Extract never hands back raw model output: the caller sees Ok(Lead) or a typed
// *core.Error, nothing in between.
package extract

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shpitdev/lead-contract/pkg/lead/core"
	"github.com/shpitdev/lead-contract/pkg/lead/retry"
	"github.com/shpitdev/lead-contract/pkg/lead/schema"
)

// Sleeper waits for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option configures an Extractor.
type Option func(*Extractor)

// WithPolicy overrides the retry policy. Non-positive fields fall back to defaults.
func WithPolicy(p retry.Policy) Option {
	return func(e *Extractor) { e.policy = p.WithDefaults() }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSleeper replaces the backoff wait. Tests use it to record delays.
func WithSleeper(s Sleeper) Option {
	return func(e *Extractor) {
		if s != nil {
			e.sleep = s
		}
	}
}

// WithAttemptTimeout bounds each model call. Set to <=0 to leave timeouts to the model.
func WithAttemptTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.attemptTimeout = d }
}

// Extractor drives the attempt loop. It holds no per-call state and is safe for
// concurrent use.
type Extractor struct {
	model          core.Model
	policy         retry.Policy
	logger         *zap.Logger
	sleep          Sleeper
	attemptTimeout time.Duration
}

func New(model core.Model, opts ...Option) *Extractor {
	e := &Extractor{
		model:  model,
		policy: retry.Default(),
		logger: zap.NewNop(),
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the effective retry policy.
func (e *Extractor) Policy() retry.Policy {
	return e.policy
}

// Extract runs text through the model with the default policy.
func Extract(ctx context.Context, text string, model core.Model) Result {
	return New(model).Extract(ctx, text)
}

// Extract returns Ok with a lead that has at least one contact channel, or Err with the
// last observed failure.
//
// Only MODEL_INVALID_OUTPUT and TIMEOUT are retried, up to the policy's MaxAttempts.
// Cancellation of ctx is checked before every attempt and every backoff wait.
func (e *Extractor) Extract(ctx context.Context, text string) Result {
	if e.model == nil {
		return Err(core.New(core.KindExtractorError, "no model configured"))
	}

	var lastErr *core.Error
	attempts := 0
	for attempt := 0; attempt < e.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return e.cancelled(err, attempts)
		}

		attempts++
		lead, err := e.attempt(ctx, text)
		if err == nil {
			e.logger.Debug("extraction succeeded", zap.Int("attempt", attempt+1))
			return Ok(lead).withAttempts(attempts)
		}
		lastErr = err

		retriable := e.policy.WillRetry(attempt, err.Kind)
		cerr := ctx.Err()
		willRetry := retriable && cerr == nil
		retry.LogAttemptFailure(e.logger, attempt, err, willRetry)
		if retriable && cerr != nil {
			return e.cancelled(cerr, attempts)
		}
		if !willRetry {
			return Err(err).withAttempts(attempts)
		}
		delay := e.policy.BackoffDelay(attempt)
		e.logger.Info("retrying extraction", zap.Duration("delay", delay), zap.Int("next_attempt", attempt+2))
		if serr := e.sleep(ctx, delay); serr != nil {
			return e.cancelled(serr, attempts)
		}
	}

	// Unreachable while MaxAttempts >= 1; kept so the loop always yields a failure.
	if lastErr == nil {
		lastErr = core.InvalidOutput("max retries exceeded without success")
	}
	return Err(lastErr).withAttempts(attempts)
}

// attempt is one model call plus validation and the empty-lead policy.
func (e *Extractor) attempt(ctx context.Context, text string) (schema.Lead, *core.Error) {
	callCtx := ctx
	if e.attemptTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.attemptTimeout)
		defer cancel()
	}

	raw, err := e.model.Generate(callCtx, text)
	if err != nil {
		return schema.Lead{}, core.AsError(err)
	}

	lead, verr := schema.Parse(raw)
	if verr != nil {
		return schema.Lead{}, verr
	}
	if !lead.HasContact() {
		return schema.Lead{}, core.EmptyLead("no email or phone extracted; lead has no contact info")
	}
	return lead, nil
}

func (e *Extractor) cancelled(err error, attempts int) Result {
	failure := core.AsError(err)
	e.logger.Info("extraction stopped by context",
		zap.Int("attempts", attempts),
		zap.String("failure_kind", failure.Kind.String()),
	)
	return Err(failure).withAttempts(attempts)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
