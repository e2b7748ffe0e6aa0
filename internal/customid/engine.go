package customid

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

const sequencePadWidth = 6

var errMissingSequenceProvider = errors.New("customid: sequence provider required")

// SequenceProvider supplies the next value of the per-inventory counter.
// Implementations must serialize concurrent draws for the same inventory.
type SequenceProvider interface {
	NextValue(ctx context.Context, inventoryID string) (int64, error)
}

// EngineConfig describes the ambient inputs consumed while rendering. Clock
// and Random default to the system clock and crypto/rand.
type EngineConfig struct {
	Clock  func() time.Time
	Random io.Reader
}

// Engine interprets custom-id templates into concrete identifiers.
type Engine struct {
	clock  func() time.Time
	random io.Reader
}

// NewEngine constructs a template engine.
func NewEngine(cfg EngineConfig) *Engine {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	random := cfg.Random
	if random == nil {
		random = cryptorand.Reader
	}
	return &Engine{clock: clock, random: random}
}

// Render produces a concrete identifier for the inventory by walking the
// template elements in order. A per-position override is emitted verbatim and
// skips generation for that position. Sequence elements draw from the supplied
// provider, so callers may pass a transaction-bound provider to keep the draw
// inside their own transactional boundary.
func (e *Engine) Render(ctx context.Context, inventoryID string, tpl Template, sequences SequenceProvider, overrides map[int]string) (string, error) {
	if sequences == nil {
		return "", errMissingSequenceProvider
	}

	var parts strings.Builder
	for position, element := range tpl.Elements {
		if override, ok := overrides[position]; ok {
			parts.WriteString(override)
			continue
		}

		rendered, err := e.renderElement(ctx, inventoryID, element, sequences)
		if err != nil {
			return "", err
		}
		parts.WriteString(rendered)
	}
	return parts.String(), nil
}

// SampleRender produces a representative preview of the template without
// consuming a sequence slot. Sequence elements render as the literal first
// value; random elements still draw real values.
func (e *Engine) SampleRender(tpl Template) (string, error) {
	var parts strings.Builder
	for _, element := range tpl.Elements {
		rendered, err := e.renderElement(context.Background(), "", element, sampleSequence{})
		if err != nil {
			return "", err
		}
		parts.WriteString(rendered)
	}
	return parts.String(), nil
}

// Matches reports whether a candidate identifier conforms to the template.
func (e *Engine) Matches(candidate string, tpl Template) (bool, error) {
	pattern, err := tpl.Pattern()
	if err != nil {
		return false, err
	}
	return pattern.MatchString(candidate), nil
}

// sampleSequence renders previews as the counter's first value without
// touching durable state.
type sampleSequence struct{}

func (sampleSequence) NextValue(context.Context, string) (int64, error) {
	return 1, nil
}

func (e *Engine) renderElement(ctx context.Context, inventoryID string, element Element, sequences SequenceProvider) (string, error) {
	switch element.Kind {
	case KindFixedText:
		return element.Text, nil
	case KindRandomHex:
		if element.Bits <= 0 {
			return "", &InvalidTemplateError{Kind: element.Kind, Detail: "bit width must be positive"}
		}
		return e.randomHex(element.Bits)
	case KindRandomDigits:
		if element.Digits <= 0 {
			return "", &InvalidTemplateError{Kind: element.Kind, Detail: "digit count must be positive"}
		}
		return e.randomDigits(element.Digits)
	case KindGuid:
		value, err := uuid.NewRandomFromReader(e.random)
		if err != nil {
			return "", fmt.Errorf("customid: draw guid: %w", err)
		}
		return value.String(), nil
	case KindDateTime:
		return formatInstant(e.clock().UTC(), element.Format), nil
	case KindSequence:
		value, err := sequences.NextValue(ctx, inventoryID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%0*d", sequencePadWidth, value), nil
	default:
		return "", &InvalidTemplateError{Kind: element.Kind}
	}
}

func (e *Engine) randomHex(bits int) (string, error) {
	width := hexWidth(bits)
	raw := make([]byte, (width+1)/2)
	if _, err := io.ReadFull(e.random, raw); err != nil {
		return "", fmt.Errorf("customid: draw random hex: %w", err)
	}
	return hex.EncodeToString(raw)[:width], nil
}

func (e *Engine) randomDigits(count int) (string, error) {
	digits := make([]byte, 0, count)
	buf := make([]byte, 1)
	for len(digits) < count {
		if _, err := io.ReadFull(e.random, buf); err != nil {
			return "", fmt.Errorf("customid: draw random digits: %w", err)
		}
		// Reject the tail of the byte range to keep each digit uniform.
		if buf[0] >= 250 {
			continue
		}
		digits = append(digits, '0'+buf[0]%10)
	}
	return string(digits), nil
}

func formatInstant(instant time.Time, format string) string {
	switch format {
	case FormatDateOnly:
		return instant.Format("2006-01-02")
	case FormatTimeOnly:
		return instant.Format("15:04:05")
	default:
		return instant.Format(time.RFC3339)
	}
}
