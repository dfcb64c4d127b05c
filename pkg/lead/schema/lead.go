package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/shpitdev/lead-contract/pkg/lead/redact"
)

// Phone numbers are kept as digits only, 10-15 long (E.164-ish).
const (
	PhoneDigitsMin = 10
	PhoneDigitsMax = 15
)

// Lead is a validated extraction. The zero value has no fields.
//
// Leads are only produced by Parse and FromFields and cannot be mutated afterwards.
type Lead struct {
	name  *string
	email *string
	phone *string
}

func (l Lead) Name() (string, bool)  { return get(l.name) }
func (l Lead) Email() (string, bool) { return get(l.email) }
func (l Lead) Phone() (string, bool) { return get(l.phone) }

// HasContact reports whether the lead carries an email or a phone.
func (l Lead) HasContact() bool {
	return l.email != nil || l.phone != nil
}

// Payload is the transport-safe projection of a Lead. Absent fields encode as null.
type Payload struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// Payload returns exactly the three normalized fields. It is the only form in which
// extracted data should leave the extractor (CRM inserts, output files).
func (l Lead) Payload() Payload {
	return Payload{
		Name:  clone(l.name),
		Email: clone(l.email),
		Phone: clone(l.phone),
	}
}

func (l Lead) String() string {
	return fmt.Sprintf("Lead{name:%s, email:%s, phone:%s}", show(l.name), show(l.email), show(l.phone))
}

// NormalizeEmail trims s, checks it against the email grammar and lowercases the domain.
// Empty input reports present=false with no error.
func NormalizeEmail(s string) (email string, present bool, err error) {
	c, err := loadSchemas()
	if err != nil {
		return "", false, err
	}
	return normalizeEmail(c.email, s)
}

func normalizeEmail(grammar *jsonschema.Schema, s string) (string, bool, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return "", false, nil
	}
	if err := grammar.Validate(v); err != nil {
		return "", false, fmt.Errorf("value %q is not a valid email address", redact.Truncate(v, reasonSnippetMax))
	}
	at := strings.LastIndexByte(v, '@')
	local, domain := v[:at], v[at+1:]
	// The format check follows RFC 5321; leads need a plain mailbox on a routable domain.
	switch {
	case strings.HasPrefix(local, `"`):
		return "", false, fmt.Errorf("value %q is not a valid email address: quoted local part is not allowed", redact.Truncate(v, reasonSnippetMax))
	case strings.HasPrefix(domain, "["):
		return "", false, fmt.Errorf("value %q is not a valid email address: domain literal is not allowed", redact.Truncate(v, reasonSnippetMax))
	case !strings.Contains(strings.Trim(domain, "."), "."):
		return "", false, fmt.Errorf("value %q is not a valid email address: domain must contain a period", redact.Truncate(v, reasonSnippetMax))
	}
	return local + "@" + strings.ToLower(domain), true, nil
}

var errNoDigits = errors.New("must contain digits")

// NormalizePhone trims s and strips every non-digit character. Decimal digits from
// any script count and are kept in ASCII form.
// Empty input reports present=false with no error. Anything else must leave
// PhoneDigitsMin..PhoneDigitsMax digits.
func NormalizePhone(s string) (phone string, present bool, err error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return "", false, nil
	}
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range v {
		if d, ok := ASCIIDigit(r); ok {
			b.WriteRune(d)
		}
	}
	digits := b.String()
	if digits == "" {
		return "", false, errNoDigits
	}
	if n := len(digits); n < PhoneDigitsMin || n > PhoneDigitsMax {
		return "", false, fmt.Errorf("must be %d-%d digits, got %d", PhoneDigitsMin, PhoneDigitsMax, n)
	}
	return digits, true, nil
}

// ASCIIDigit maps a Unicode decimal digit (fullwidth, Devanagari, ...) to '0'..'9'.
func ASCIIDigit(r rune) (rune, bool) {
	if r >= '0' && r <= '9' {
		return r, true
	}
	if r < 0x80 || !unicode.IsDigit(r) {
		return 0, false
	}
	// Nd ranges start at a zero and hold whole runs of ten.
	for _, rg := range unicode.Nd.R16 {
		if r >= rune(rg.Lo) && r <= rune(rg.Hi) {
			return '0' + (r-rune(rg.Lo))%10, true
		}
	}
	for _, rg := range unicode.Nd.R32 {
		if r >= rune(rg.Lo) && r <= rune(rg.Hi) {
			return '0' + (r-rune(rg.Lo))%10, true
		}
	}
	return 0, false
}

func get(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	return *p, true
}

func clone(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func show(p *string) string {
	if p == nil {
		return "null"
	}
	return strconv.Quote(*p)
}
