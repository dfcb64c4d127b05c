// Package llm holds what every model collaborator shares: the extraction prompt and
// the mapping from transport failures onto the failure taxonomy.
package llm

import (
	"strings"
	"time"
)

// DefaultTimeout bounds one provider request unless configured otherwise.
const DefaultTimeout = 30 * time.Second

// SystemPrompt only instructs the output format; validation enforces structure.
const SystemPrompt = `You extract lead fields from raw text. Return ONLY valid JSON.
Use exactly these keys: name, email, phone. Use null for any missing value.
Do not add other keys or text.`

const userTemplate = `Extract lead data from this text. Return ONLY valid JSON with keys: name, email, phone. Use null for missing values.

Text:
`

// UserPrompt wraps the raw input text in the extraction instruction.
func UserPrompt(text string) string {
	var b strings.Builder
	b.Grow(len(userTemplate) + len(text) + 1)
	b.WriteString(userTemplate)
	b.WriteString(text)
	b.WriteString("\n")
	return b.String()
}
