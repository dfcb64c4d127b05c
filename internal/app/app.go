package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shpitdev/lead-contract/internal/pipeline"
	"github.com/shpitdev/lead-contract/pkg/lead/extract"
	localio "github.com/shpitdev/lead-contract/pkg/lead/io/local"
	"github.com/shpitdev/lead-contract/pkg/lead/redact"
	"github.com/shpitdev/lead-contract/pkg/lead/schema"
)

const (
	FormatCSV   = "csv"
	FormatJSONL = "jsonl"
)

// DemoInput is one labelled sample text.
type DemoInput struct {
	Label string
	Text  string
}

// DemoInputs covers the four shapes the contract has to handle.
func DemoInputs() []DemoInput {
	return []DemoInput{
		{Label: "Clean input", Text: "Hi, I'm Ankit. Email: ankit@gmail.com, phone 9876543210"},
		{Label: "Messy input", Text: "Call me 📞 9️⃣8️⃣7️⃣6️⃣5️⃣4️⃣3️⃣2️⃣1️⃣0️⃣ — Rohit"},
		{Label: "Partial input", Text: "Interested in demo, email is raj@abc.com"},
		{Label: "Garbage input", Text: "hello"},
	}
}

// RunDemo extracts every demo input in order and prints one result line per input.
func RunDemo(ctx context.Context, w io.Writer, extractor pipeline.Extractor) error {
	if _, err := fmt.Fprint(w, "--- lead extraction demo ---\n\n"); err != nil {
		return err
	}
	for _, in := range DemoInputs() {
		res := extractor.Extract(ctx, in.Text)
		if _, err := fmt.Fprintf(w, "[%s] input: %q\n  -> %s (attempts=%d)\n\n", in.Label, in.Text, res, res.Attempts()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "--- done ---")
	return err
}

// ExtractOutput is the JSON document printed for a single extraction.
type ExtractOutput struct {
	OK       bool            `json:"ok"`
	Lead     *schema.Payload `json:"lead"`
	Failure  *Failure        `json:"failure"`
	Attempts int             `json:"attempts"`
}

type Failure struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// NewExtractOutput converts a result into its printable form.
func NewExtractOutput(res extract.Result) ExtractOutput {
	out := ExtractOutput{OK: res.IsOk(), Attempts: res.Attempts()}
	if f := res.Failure(); f != nil {
		out.Failure = &Failure{Kind: f.Kind.String(), Reason: f.Reason}
		return out
	}
	lead, _ := res.Lead()
	p := lead.Payload()
	out.Lead = &p
	return out
}

// RunExtract extracts one text and writes the result as indented JSON.
//
// The returned error covers output only; an Err result is reported through the result.
func RunExtract(ctx context.Context, w io.Writer, text string, extractor pipeline.Extractor) (extract.Result, error) {
	res := extractor.Extract(ctx, text)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return res, enc.Encode(NewExtractOutput(res))
}

type LocalOptions struct {
	InputPath  string
	OutputPath string
	// Column names the input text column; empty means "text".
	Column string
	// Format is csv or jsonl; empty picks from the output extension.
	Format string
	Batch  pipeline.Options
}

// OutputFormat resolves the effective output format.
func (o LocalOptions) OutputFormat() (string, error) {
	f := strings.ToLower(strings.TrimSpace(o.Format))
	if f == "" {
		switch strings.ToLower(filepath.Ext(o.OutputPath)) {
		case ".jsonl", ".ndjson":
			return FormatJSONL, nil
		default:
			return FormatCSV, nil
		}
	}
	switch f {
	case FormatCSV, FormatJSONL:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want csv or jsonl)", o.Format)
	}
}

// RunLocal reads a local input CSV of texts and writes one output row per text.
func RunLocal(ctx context.Context, logger *zap.Logger, opts LocalOptions, extractor pipeline.Extractor) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	format, err := opts.OutputFormat()
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log := logger.With(zap.String("run_id", runID))
	runStart := time.Now()

	inF, err := os.Open(opts.InputPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = inF.Close()
	}()

	texts, err := localio.ReadTextsCSV(inF, opts.Column)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.InputPath, err)
	}
	log.Info("local run start",
		zap.String("input", opts.InputPath),
		zap.String("output", opts.OutputPath),
		zap.String("format", format),
		zap.Int("texts", len(texts)),
		zap.Int("workers", opts.Batch.Workers),
		zap.Float64("rate_limit_rps", opts.Batch.RateLimitRPS),
		zap.Bool("fail_fast", opts.Batch.FailFast),
	)

	var okRows, errorRows int
	count := func(row pipeline.Row) {
		if row.Status == pipeline.StatusOK {
			okRows++
			return
		}
		errorRows++
	}

	switch format {
	case FormatJSONL:
		err = streamJSONL(ctx, opts, texts, extractor, count)
	default:
		err = writeCSVBatch(ctx, opts, texts, extractor, count)
	}
	if err != nil {
		log.Warn("local run stopped",
			zap.Int("produced", okRows+errorRows),
			zap.String("error", redact.Secrets(err.Error())),
		)
		return err
	}
	log.Info("extraction complete",
		zap.Int("produced", okRows+errorRows),
		zap.Int("ok", okRows),
		zap.Int("error", errorRows),
		zap.Duration("duration", time.Since(runStart).Round(time.Millisecond)),
	)
	log.Info("local run complete", zap.Duration("total_duration", time.Since(runStart).Round(time.Millisecond)))
	return nil
}

// streamJSONL writes each row as its text completes, so rows finished before a
// cancellation or fail-fast stop are kept.
func streamJSONL(ctx context.Context, opts LocalOptions, texts []string, extractor pipeline.Extractor, onRow func(pipeline.Row)) error {
	outF, err := os.Create(opts.OutputPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = outF.Close()
	}()

	jw := pipeline.NewJSONLWriter(outF)
	err = pipeline.ExtractTextsStream(ctx, texts, extractor, opts.Batch, func(row pipeline.Row) error {
		if err := jw.Write(row); err != nil {
			return err
		}
		onRow(row)
		return nil
	})
	if err != nil {
		return err
	}
	return outF.Close()
}

// writeCSVBatch keeps input order, so the file is only written once every text is done.
func writeCSVBatch(ctx context.Context, opts LocalOptions, texts []string, extractor pipeline.Extractor, onRow func(pipeline.Row)) error {
	rows, err := pipeline.ExtractTexts(ctx, texts, extractor, opts.Batch)
	if err != nil {
		return err
	}
	for _, row := range rows {
		onRow(row)
	}

	outF, err := os.Create(opts.OutputPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = outF.Close()
	}()
	if err := pipeline.WriteCSV(outF, rows); err != nil {
		return err
	}
	return outF.Close()
}
