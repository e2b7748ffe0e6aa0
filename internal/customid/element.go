package customid

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ElementKind enumerates the generator variants a template may contain.
type ElementKind string

const (
	// KindFixedText emits a literal string verbatim.
	KindFixedText ElementKind = "FIXED_TEXT"
	// KindRandomHex emits ceil(bits/4) random lowercase hex characters.
	KindRandomHex ElementKind = "RANDOM_HEX"
	// KindRandomDigits emits a fixed count of random decimal digits.
	KindRandomDigits ElementKind = "RANDOM_DIGITS"
	// KindGuid emits a random 128-bit identifier in canonical hyphenated form.
	KindGuid ElementKind = "GUID"
	// KindDateTime emits the current UTC timestamp in the configured layout.
	KindDateTime ElementKind = "DATETIME"
	// KindSequence draws the next value from the per-inventory counter.
	KindSequence ElementKind = "SEQUENCE"
)

// DateTime layouts accepted by KindDateTime elements. An empty format means
// the full ISO-8601 instant.
const (
	FormatDateOnly = "date"
	FormatTimeOnly = "time"
)

// InvalidTemplateError reports a template element the engine does not recognize
// or cannot render.
type InvalidTemplateError struct {
	Kind   ElementKind
	Detail string
}

func (e *InvalidTemplateError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("customid: invalid template element %q: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("customid: invalid template element %q", e.Kind)
}

// Element is one generator step of a custom-id template. Exactly the fields
// relevant to its kind are populated.
type Element struct {
	Kind   ElementKind `json:"type"`
	Text   string      `json:"text,omitempty"`
	Bits   int         `json:"bits,omitempty"`
	Digits int         `json:"digits,omitempty"`
	Format string      `json:"format,omitempty"`
}

// Template is the ordered recipe producing a human-readable item identifier.
type Template struct {
	Elements []Element `json:"elements"`
}

// IsEmpty reports whether the template has no generator steps.
func (t Template) IsEmpty() bool {
	return len(t.Elements) == 0
}

// Validate rejects templates containing unknown kinds or unusable parameters.
func (t Template) Validate() error {
	for _, element := range t.Elements {
		switch element.Kind {
		case KindFixedText, KindGuid, KindSequence:
		case KindRandomHex:
			if element.Bits <= 0 {
				return &InvalidTemplateError{Kind: element.Kind, Detail: "bit width must be positive"}
			}
		case KindRandomDigits:
			if element.Digits <= 0 {
				return &InvalidTemplateError{Kind: element.Kind, Detail: "digit count must be positive"}
			}
		case KindDateTime:
			switch element.Format {
			case "", FormatDateOnly, FormatTimeOnly:
			default:
				return &InvalidTemplateError{Kind: element.Kind, Detail: fmt.Sprintf("unknown format %q", element.Format)}
			}
		default:
			return &InvalidTemplateError{Kind: element.Kind}
		}
	}
	return nil
}

// ParseTemplate decodes and validates a stored template payload.
func ParseTemplate(raw []byte) (Template, error) {
	var tpl Template
	if err := json.Unmarshal(raw, &tpl); err != nil {
		return Template{}, fmt.Errorf("customid: decode template: %w", err)
	}
	if err := tpl.Validate(); err != nil {
		return Template{}, err
	}
	return tpl, nil
}

// Encode serializes the template for storage on the sequence row.
func (t Template) Encode() (string, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("customid: encode template: %w", err)
	}
	return string(raw), nil
}

const guidPattern = "[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}"

// Pattern compiles the template into an anchored, case-insensitive expression
// matching every identifier the template can render.
func (t Template) Pattern() (*regexp.Regexp, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	var builder strings.Builder
	builder.WriteString("(?i)^")
	for _, element := range t.Elements {
		switch element.Kind {
		case KindFixedText:
			builder.WriteString(regexp.QuoteMeta(element.Text))
		case KindRandomHex:
			fmt.Fprintf(&builder, "[0-9a-f]{%d}", hexWidth(element.Bits))
		case KindRandomDigits:
			fmt.Fprintf(&builder, "[0-9]{%d}", element.Digits)
		case KindGuid:
			builder.WriteString(guidPattern)
		case KindDateTime:
			builder.WriteString(`[0-9T:\-Z]+`)
		case KindSequence:
			builder.WriteString("[0-9]+")
		}
	}
	builder.WriteString("$")

	return regexp.Compile(builder.String())
}

// hexWidth rounds a bit width up to whole hex digits.
func hexWidth(bits int) int {
	return (bits + 3) / 4
}
