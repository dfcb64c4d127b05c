package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shpitdev/lead-contract/pkg/lead/core"
)

type tracedModel struct {
	next   core.Model
	logger *zap.Logger
}

// TraceModel logs every model call at debug level: duration, deadline, and outcome.
// Raw model output is never logged, only its length.
func TraceModel(next core.Model, logger *zap.Logger) core.Model {
	if logger == nil {
		return next
	}
	return &tracedModel{next: next, logger: logger}
}

func (t *tracedModel) Generate(ctx context.Context, text string) (string, error) {
	deadlineIn := "none"
	if d, ok := ctx.Deadline(); ok {
		deadlineIn = time.Until(d).Round(time.Millisecond).String()
	}
	t.logger.Debug("model request",
		zap.Int("text_len", len(text)),
		zap.String("deadline_in", deadlineIn),
	)

	start := time.Now()
	out, err := t.next.Generate(ctx, text)
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		t.logger.Debug("model response",
			zap.Duration("duration", elapsed),
			zap.String("status", "error"),
			zap.String("failure_kind", core.KindOf(err).String()),
		)
		return out, err
	}
	t.logger.Debug("model response",
		zap.Duration("duration", elapsed),
		zap.String("status", "ok"),
		zap.Int("output_len", len(out)),
	)
	return out, nil
}
