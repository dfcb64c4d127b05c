package extract

import (
	"github.com/shpitdev/lead-contract/pkg/lead/core"
	"github.com/shpitdev/lead-contract/pkg/lead/schema"
)

// Result is either Ok(Lead) or Err(*core.Error); never both, never neither.
type Result struct {
	lead     schema.Lead
	err      *core.Error
	attempts int
}

// Ok wraps a lead that already passed the empty-lead policy.
func Ok(lead schema.Lead) Result {
	return Result{lead: lead}
}

// Err wraps a failure. A nil failure becomes a generic EXTRACTOR_ERROR so the
// Err variant is always populated.
func Err(err *core.Error) Result {
	if err == nil {
		err = core.New(core.KindExtractorError, "unspecified failure")
	}
	return Result{err: err}
}

func (r Result) withAttempts(n int) Result {
	r.attempts = n
	return r
}

func (r Result) IsOk() bool { return r.err == nil }

// Lead returns the extracted lead when the result is Ok.
func (r Result) Lead() (schema.Lead, bool) {
	if r.err != nil {
		return schema.Lead{}, false
	}
	return r.lead, true
}

// Failure returns the typed failure when the result is Err, nil otherwise.
func (r Result) Failure() *core.Error {
	return r.err
}

// Unpack converts the result into Go's (value, error) convention.
func (r Result) Unpack() (schema.Lead, error) {
	if r.err != nil {
		return schema.Lead{}, r.err
	}
	return r.lead, nil
}

// Attempts is the number of model calls made to produce this result.
func (r Result) Attempts() int {
	return r.attempts
}

func (r Result) String() string {
	if r.err != nil {
		return "Err(" + r.err.Error() + ")"
	}
	return "Ok(" + r.lead.String() + ")"
}
