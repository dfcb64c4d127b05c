package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/shpitdev/lead-contract/pkg/lead/core"
	"github.com/shpitdev/lead-contract/pkg/lead/redact"
)

var (
	//go:embed lead.schema.json
	leadSchemaJSON []byte

	//go:embed email.schema.json
	emailSchemaJSON []byte
)

// reasonSnippetMax bounds how much raw model output can be quoted in a failure reason.
const reasonSnippetMax = 120

type compiled struct {
	lead  *jsonschema.Schema
	email *jsonschema.Schema
}

var (
	compileOnce sync.Once
	schemas     compiled
	compileErr  error
)

func loadSchemas() (compiled, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft7
		c.AssertFormat = true
		if err := c.AddResource("lead.schema.json", bytes.NewReader(leadSchemaJSON)); err != nil {
			compileErr = fmt.Errorf("add lead schema: %w", err)
			return
		}
		if err := c.AddResource("email.schema.json", bytes.NewReader(emailSchemaJSON)); err != nil {
			compileErr = fmt.Errorf("add email schema: %w", err)
			return
		}
		lead, err := c.Compile("lead.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile lead schema: %w", err)
			return
		}
		email, err := c.Compile("email.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile email schema: %w", err)
			return
		}
		schemas = compiled{lead: lead, email: email}
	})
	return schemas, compileErr
}

// Parse decodes raw model output and validates it into a Lead.
//
// Every failure is MODEL_INVALID_OUTPUT.
func Parse(raw string) (Lead, *core.Error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return Lead{}, core.Errorf(core.KindModelInvalidOutput, "invalid JSON: %s", err.Error())
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Lead{}, core.InvalidOutput("invalid JSON: trailing data after top-level value")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return Lead{}, core.Errorf(core.KindModelInvalidOutput, "response is not a JSON object (got %s)", jsonKind(v))
	}
	return FromFields(obj)
}

// FromFields validates a decoded field mapping into a Lead.
//
// Values must be JSON-decoded (string, nil, json.Number/float64, bool, []any, map[string]any).
// Missing keys are absent fields; unknown keys are ignored.
func FromFields(fields map[string]any) (Lead, *core.Error) {
	s, err := loadSchemas()
	if err != nil {
		return Lead{}, core.New(core.KindExtractorError, err.Error())
	}
	if fields == nil {
		fields = map[string]any{}
	}
	if err := s.lead.Validate(fields); err != nil {
		return Lead{}, core.Errorf(core.KindModelInvalidOutput, "schema validation failed: %s", describe(err))
	}

	var lead Lead
	if v, ok := fields["name"].(string); ok {
		lead.name = ptr(v)
	}
	if v, ok := fields["email"].(string); ok {
		email, present, err := normalizeEmail(s.email, v)
		if err != nil {
			return Lead{}, core.Errorf(core.KindModelInvalidOutput, "email: %s", err.Error())
		}
		if present {
			lead.email = ptr(email)
		}
	}
	if v, ok := fields["phone"].(string); ok {
		phone, present, err := NormalizePhone(v)
		if err != nil {
			return Lead{}, core.Errorf(core.KindModelInvalidOutput, "phone: %s", err.Error())
		}
		if present {
			lead.phone = ptr(phone)
		}
	}
	return lead, nil
}

// describe flattens a jsonschema validation error to its leaf causes.
func describe(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return redact.Truncate(err.Error(), reasonSnippetMax)
	}
	var parts []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			parts = append(parts, fmt.Sprintf("%s: %s", loc, e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return redact.Truncate(strings.Join(parts, "; "), 2*reasonSnippetMax)
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func ptr(s string) *string { return &s }
