package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/shpitdev/lead-contract/internal/app"
	"github.com/shpitdev/lead-contract/internal/config"
	"github.com/shpitdev/lead-contract/internal/logging"
	"github.com/shpitdev/lead-contract/internal/provider"
	"github.com/shpitdev/lead-contract/internal/version"
	"github.com/shpitdev/lead-contract/pkg/lead/extract"
	"github.com/shpitdev/lead-contract/pkg/lead/redact"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}

	switch args[0] {
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	case "version", "--version":
		_, _ = fmt.Fprintf(stdout, "leadx %s\n", version.String())
		return 0
	case "demo":
		return runDemo(ctx, args[1:], stdout, stderr)
	case "extract":
		return runExtract(ctx, args[1:], stdin, stdout, stderr)
	case "local":
		return runLocal(ctx, args[1:], stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command: %s\n\n", args[0])
		usage(stderr)
		return 2
	}
}

// commonFlags are shared by every command that calls a model.
type commonFlags struct {
	provider       string
	model          string
	baseURL        string
	requestTimeout time.Duration
	maxAttempts    int
	baseDelay      time.Duration
	maxDelay       time.Duration
	logLevel       string
	logFormat      string
	dryRun         bool
}

func (c *commonFlags) register(fs *flag.FlagSet, cfg config.Config) {
	fs.StringVar(&c.provider, "provider", cfg.Provider.Name, "Model provider: "+strings.Join(provider.Names(), ", ")+" (env: LEAD_PROVIDER)")
	fs.StringVar(&c.model, "model", cfg.Provider.Model, "Model name; empty uses the provider default (env: LEAD_MODEL)")
	fs.StringVar(&c.baseURL, "base-url", cfg.Provider.BaseURL, "Provider API base URL override (env: LEAD_BASE_URL)")
	fs.DurationVar(&c.requestTimeout, "request-timeout", cfg.Provider.Timeout, "Per-request model timeout (env: LEAD_REQUEST_TIMEOUT)")
	fs.IntVar(&c.maxAttempts, "max-attempts", cfg.Retry.MaxAttempts, "Model calls per text, first attempt included (env: LEAD_MAX_ATTEMPTS)")
	fs.DurationVar(&c.baseDelay, "base-delay", cfg.Retry.BaseDelay, "Backoff before the second attempt; doubles after (env: LEAD_BASE_DELAY)")
	fs.DurationVar(&c.maxDelay, "max-delay", cfg.Retry.MaxDelay, "Backoff cap, 0 disables (env: LEAD_MAX_DELAY)")
	fs.StringVar(&c.logLevel, "log-level", cfg.Log.Level, "Log level: debug, info, warn, error (env: LEAD_LOG_LEVEL)")
	fs.StringVar(&c.logFormat, "log-format", cfg.Log.Format, "Log format: console or json (env: LEAD_LOG_FORMAT)")
	fs.BoolVar(&c.dryRun, "dry-run", false, "Use the offline stub model instead of a provider")
}

// extractor builds the logger and extractor described by the flags. A non-zero
// code means a configuration error that was already reported.
func (c *commonFlags) extractor(ctx context.Context, cfg config.Config, stderr io.Writer) (*extract.Extractor, *zap.Logger, int) {
	logger, err := logging.New(stderr, c.logLevel, c.logFormat)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config error: %s\n", err)
		return nil, nil, 2
	}
	if c.maxAttempts < 1 {
		_, _ = fmt.Fprintf(stderr, "config error: --max-attempts must be >= 1, got %d\n", c.maxAttempts)
		return nil, nil, 2
	}

	name := c.provider
	if c.dryRun {
		name = provider.Stub
	}
	model, err := provider.New(ctx, provider.Config{
		Name:    name,
		APIKey:  cfg.APIKeyFor(name),
		Model:   c.model,
		BaseURL: c.baseURL,
		Timeout: c.requestTimeout,
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "provider config error: %s\n", redact.Secrets(err.Error()))
		return nil, nil, 2
	}
	logger.Debug("model configured", zap.String("model", model.Name()))

	cfg.Retry.MaxAttempts = c.maxAttempts
	cfg.Retry.BaseDelay = c.baseDelay
	cfg.Retry.MaxDelay = c.maxDelay
	ex := extract.New(app.TraceModel(model, logger),
		extract.WithPolicy(cfg.RetryPolicy()),
		extract.WithLogger(logger),
	)
	return ex, logger, 0
}

func loadConfig(stderr io.Writer) (config.Config, bool) {
	cfg, err := config.Load(envOr("LEAD_CONFIG", "lead.yaml"), envOr("LEAD_ENV_FILE", ".env"))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return cfg, false
	}
	return cfg, true
}

func runDemo(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, ok := loadConfig(stderr)
	if !ok {
		return 2
	}

	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ex, logger, code := common.extractor(ctx, cfg, stderr)
	if code != 0 {
		return code
	}
	defer func() { _ = logger.Sync() }()

	if err := app.RunDemo(ctx, stdout, ex); err != nil {
		_, _ = fmt.Fprintf(stderr, "demo failed: %s\n", redact.Secrets(err.Error()))
		return 1
	}
	return 0
}

func runExtract(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, ok := loadConfig(stderr)
	if !ok {
		return 2
	}

	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs, cfg)
	var text string
	fs.StringVar(&text, "text", "", "Text to extract from; read from stdin when empty")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if text == "" && fs.NArg() > 0 {
		text = strings.Join(fs.Args(), " ")
	}
	if text == "" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "read stdin: %s\n", err)
			return 1
		}
		text = strings.TrimSpace(string(b))
	}
	if text == "" {
		_, _ = fmt.Fprintln(stderr, "extract requires --text or input on stdin")
		return 2
	}

	ex, logger, code := common.extractor(ctx, cfg, stderr)
	if code != 0 {
		return code
	}
	defer func() { _ = logger.Sync() }()

	res, err := app.RunExtract(ctx, stdout, text, ex)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "write result: %s\n", err)
		return 1
	}
	if !res.IsOk() {
		return 1
	}
	return 0
}

func runLocal(ctx context.Context, args []string, stderr io.Writer) int {
	cfg, ok := loadConfig(stderr)
	if !ok {
		return 2
	}

	fs := flag.NewFlagSet("local", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs, cfg)
	var opts app.LocalOptions
	fs.StringVar(&opts.InputPath, "input", "", "Input CSV file path")
	fs.StringVar(&opts.OutputPath, "output", "", "Output file path")
	fs.StringVar(&opts.Column, "column", "text", "Input column holding the raw text")
	fs.StringVar(&opts.Format, "format", "", "Output format: csv or jsonl; empty picks from the output extension")
	fs.IntVar(&opts.Batch.Workers, "workers", cfg.Batch.Workers, "Number of concurrent extraction workers (env: LEAD_WORKERS)")
	fs.DurationVar(&opts.Batch.ItemTimeout, "item-timeout", cfg.Batch.ItemTimeout, "Per-text budget including retries, 0 disables (env: LEAD_ITEM_TIMEOUT)")
	fs.Float64Var(&opts.Batch.RateLimitRPS, "rate-limit-rps", cfg.Batch.RateLimitRPS, "Global text rate limit (RPS), 0 disables (env: LEAD_RATE_LIMIT_RPS)")
	fs.BoolVar(&opts.Batch.FailFast, "fail-fast", cfg.Batch.FailFast, "Stop at the first failed text (env: LEAD_FAIL_FAST)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if opts.InputPath == "" || opts.OutputPath == "" {
		_, _ = fmt.Fprintln(stderr, "local requires --input and --output")
		return 2
	}
	if _, err := opts.OutputFormat(); err != nil {
		_, _ = fmt.Fprintf(stderr, "config error: %s\n", err)
		return 2
	}

	ex, logger, code := common.extractor(ctx, cfg, stderr)
	if code != 0 {
		return code
	}
	defer func() { _ = logger.Sync() }()

	if err := app.RunLocal(ctx, logger, opts, ex); err != nil {
		_, _ = fmt.Fprintf(stderr, "local run failed: %s\n", redact.Secrets(err.Error()))
		return 1
	}
	return 0
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintf(w, `leadx: extract validated leads (name, email, phone) from free text

Usage:
  leadx <command> [flags]

Commands:
  demo     Run the four built-in sample texts
  extract  Extract one text (--text or stdin); prints JSON, exits 1 on failure
  local    Extract every row of a local CSV into a CSV or JSONL file
  version  Print the version

Examples:
  leadx demo --dry-run
  echo "Hi, I'm Ankit. Email: ankit@gmail.com" | leadx extract
  leadx local --input leads.csv --output leads.jsonl --column message

Configuration (lowest to highest precedence):
  lead.yaml (or LEAD_CONFIG), .env (or LEAD_ENV_FILE), environment, flags

Environment:
  LEAD_PROVIDER        openai (default), gemini, anthropic, stub
  OPENAI_API_KEY       OpenAI key; OPENAI_EXTRACTION_MODEL picks the model
  GEMINI_API_KEY       Gemini key
  ANTHROPIC_API_KEY    Anthropic key
  LEAD_MAX_ATTEMPTS    Model calls per text (default 3)
  LEAD_BASE_DELAY      First backoff delay (default 1s)

Exit codes:
  0 success, 1 extraction or run failure, 2 usage or configuration error

`)
}
