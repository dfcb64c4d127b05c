// Package stub is an offline collaborator that pulls contact details out of text with
// regular expressions. It backs --dry-run and tests; it is never a fallback for a real
// provider.
package stub

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shpitdev/lead-contract/pkg/lead/schema"
)

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// "I'm Ankit", "my name is Ankit", "this is Ankit".
	introNameRe = regexp.MustCompile(`(?i:\bi'?m|\bi am|\bname is|\bthis is)\s+([A-Z][a-z]+)`)
	// A trailing sign-off: "... - Rohit".
	signoffNameRe = regexp.MustCompile(`[-–—]\s*([A-Z][a-z]+)\s*$`)
)

type Model struct{}

func (Model) Name() string { return "stub" }

// Generate returns the lead JSON the stub can find in text. Missing fields are null.
func (Model) Generate(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var p schema.Payload
	if m := emailRe.FindString(text); m != "" {
		p.Email = &m
	}
	if d := findPhone(text); d != "" {
		p.Phone = &d
	}
	if n := findName(text); n != "" {
		p.Name = &n
	}

	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func findName(text string) string {
	if m := introNameRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := signoffNameRe.FindStringSubmatch(strings.TrimSpace(text)); m != nil {
		return m[1]
	}
	return ""
}

// findPhone returns the first run of at least 10 digits, in ASCII form. Separators
// and emoji modifiers inside the run are skipped; letters end it.
func findPhone(text string) string {
	var run []rune
	for _, r := range text {
		switch {
		case isDigit(r):
			d, _ := schema.ASCIIDigit(r)
			run = append(run, d)
		case isPhoneSeparator(r):
		default:
			if len(run) >= schema.PhoneDigitsMin {
				return string(run)
			}
			run = run[:0]
		}
	}
	if len(run) >= schema.PhoneDigitsMin {
		return string(run)
	}
	return ""
}

func isDigit(r rune) bool {
	_, ok := schema.ASCIIDigit(r)
	return ok
}

func isPhoneSeparator(r rune) bool {
	switch r {
	case ' ', '-', '.', '(', ')', '+', '\u00a0', '\ufe0f', '\u20e3':
		return true
	}
	return false
}
