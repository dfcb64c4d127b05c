package pipeline

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shpitdev/lead-contract/pkg/lead/core"
	"github.com/shpitdev/lead-contract/pkg/lead/extract"
	"github.com/shpitdev/lead-contract/pkg/lead/redact"
	"github.com/shpitdev/lead-contract/pkg/lead/schema"
	"github.com/shpitdev/lead-contract/pkg/lead/worker"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Row is the stable output schema for one input text.
//
// Raw model output never lands here: an ok row carries the validated lead fields, an
// error row carries the failure kind and reason.
type Row struct {
	Text string
	// Lead is the transport payload of an ok row; all fields are nil on error rows.
	Lead        schema.Payload
	Name        string
	Email       string
	Phone       string
	Status      string
	FailureKind string
	Error       string
	Attempts    int
}

// Extractor is the per-text contract the batch layer drives.
type Extractor interface {
	Extract(ctx context.Context, text string) extract.Result
}

type Options struct {
	Workers int
	// ItemTimeout bounds one text, retries and backoff included.
	ItemTimeout  time.Duration
	RateLimitRPS float64
	FailFast     bool
}

// Header returns the stable CSV header for Row.
func Header() []string {
	return []string{
		"text",
		"name",
		"email",
		"phone",
		"status",
		"failure_kind",
		"error",
		"attempts",
	}
}

func (r Row) record() []string {
	return []string{
		r.Text,
		r.Name,
		r.Email,
		r.Phone,
		r.Status,
		r.FailureKind,
		r.Error,
		strconv.Itoa(r.Attempts),
	}
}

// ExtractTexts runs the extractor over all texts and returns rows in input order.
//
// Failures are recorded per-row and do not fail the run unless opts.FailFast is set.
func ExtractTexts(ctx context.Context, texts []string, extractor Extractor, opts Options) ([]Row, error) {
	out, err := worker.ProcessAll(ctx, texts, processor(extractor), workerOptions(opts))
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(out))
	for _, item := range out {
		rows = append(rows, toRow(item))
	}
	return rows, nil
}

// ExtractTextsStream is ExtractTexts with rows handed to onRow as each text completes.
// onRow is never called concurrently; an error from it stops the run.
func ExtractTextsStream(ctx context.Context, texts []string, extractor Extractor, opts Options, onRow func(Row) error) error {
	_, err := worker.ProcessAllWithCallback(ctx, texts, processor(extractor), func(item worker.Result[string, extract.Result]) error {
		if onRow == nil {
			return nil
		}
		return onRow(toRow(item))
	}, workerOptions(opts))
	return err
}

// RowFromResult converts one extraction result into an output row.
func RowFromResult(text string, res extract.Result) Row {
	row := Row{
		Text:     strings.TrimSpace(text),
		Attempts: res.Attempts(),
	}
	if failure := res.Failure(); failure != nil {
		row.Status = StatusError
		row.FailureKind = failure.Kind.String()
		row.Error = redact.Secrets(failure.Reason)
		return row
	}

	lead, _ := res.Lead()
	row.Status = StatusOK
	row.Lead = lead.Payload()
	row.Name, _ = lead.Name()
	row.Email, _ = lead.Email()
	row.Phone, _ = lead.Phone()
	return row
}

func processor(extractor Extractor) func(context.Context, string) (extract.Result, error) {
	return func(ctx context.Context, text string) (extract.Result, error) {
		res := extractor.Extract(ctx, text)
		if failure := res.Failure(); failure != nil {
			return res, failure
		}
		return res, nil
	}
}

func workerOptions(opts Options) worker.Options {
	policy := worker.FailurePolicyPartialOutput
	if opts.FailFast {
		policy = worker.FailurePolicyFailFast
	}
	return worker.Options{
		Workers:       opts.Workers,
		ItemTimeout:   opts.ItemTimeout,
		RateLimitRPS:  opts.RateLimitRPS,
		FailurePolicy: policy,
	}
}

func toRow(item worker.Result[string, extract.Result]) Row {
	res := item.Output
	// The pool can fail an item before the extractor runs (rate limiter wait); the
	// zero Result carries no failure, so fold the pool error in.
	if item.Err != nil && res.Failure() == nil {
		res = extract.Err(core.AsError(item.Err))
	}
	return RowFromResult(item.Input, res)
}
