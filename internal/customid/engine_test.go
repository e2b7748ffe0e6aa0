package customid

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type countingSequence struct {
	next int64
}

func (s *countingSequence) NextValue(context.Context, string) (int64, error) {
	value := s.next
	s.next++
	return value, nil
}

func fixedClock(t *testing.T) func() time.Time {
	t.Helper()
	instant, err := time.Parse(time.RFC3339, "2026-03-14T09:26:53Z")
	if err != nil {
		t.Fatalf("parse instant: %v", err)
	}
	return func() time.Time { return instant }
}

func TestRenderFixedTextIsDeterministic(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	tpl := Template{Elements: []Element{
		{Kind: KindFixedText, Text: "EQ-"},
		{Kind: KindFixedText, Text: "LAB"},
	}}

	first, err := engine.Render(context.Background(), "inv-1", tpl, &countingSequence{next: 1}, nil)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	second, err := engine.Render(context.Background(), "inv-1", tpl, &countingSequence{next: 1}, nil)
	if err != nil {
		t.Fatalf("second render failed: %v", err)
	}
	if first != "EQ-LAB" || first != second {
		t.Fatalf("expected deterministic EQ-LAB, got %q then %q", first, second)
	}
}

func TestRenderRandomHexWidths(t *testing.T) {
	cases := []struct {
		bits  int
		width int
	}{
		{bits: 1, width: 1},
		{bits: 4, width: 1},
		{bits: 20, width: 5},
		{bits: 32, width: 8},
	}
	engine := NewEngine(EngineConfig{})
	for _, testCase := range cases {
		tpl := Template{Elements: []Element{{Kind: KindRandomHex, Bits: testCase.bits}}}
		rendered, err := engine.Render(context.Background(), "inv-1", tpl, &countingSequence{next: 1}, nil)
		if err != nil {
			t.Fatalf("render %d bits failed: %v", testCase.bits, err)
		}
		if len(rendered) != testCase.width {
			t.Fatalf("bits=%d: expected %d hex chars, got %q", testCase.bits, testCase.width, rendered)
		}
		if strings.ToLower(rendered) != rendered {
			t.Fatalf("expected lowercase hex, got %q", rendered)
		}
	}
}

func TestRenderRandomDigitsOnlyDigits(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	tpl := Template{Elements: []Element{{Kind: KindRandomDigits, Digits: 9}}}
	rendered, err := engine.Render(context.Background(), "inv-1", tpl, &countingSequence{next: 1}, nil)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if len(rendered) != 9 {
		t.Fatalf("expected 9 digits, got %q", rendered)
	}
	for _, character := range rendered {
		if character < '0' || character > '9' {
			t.Fatalf("non-digit character in %q", rendered)
		}
	}
}

func TestRenderSequencePadsToSixDigits(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	tpl := Template{Elements: []Element{
		{Kind: KindFixedText, Text: "EQ-"},
		{Kind: KindSequence},
	}}

	sequences := &countingSequence{next: 1}
	for _, expected := range []string{"EQ-000001", "EQ-000002", "EQ-000003"} {
		rendered, err := engine.Render(context.Background(), "inv-1", tpl, sequences, nil)
		if err != nil {
			t.Fatalf("render failed: %v", err)
		}
		if rendered != expected {
			t.Fatalf("expected %q, got %q", expected, rendered)
		}
	}

	wide, err := engine.Render(context.Background(), "inv-1", tpl, &countingSequence{next: 1234567}, nil)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if wide != "EQ-1234567" {
		t.Fatalf("expected value past the pad width to widen, got %q", wide)
	}
}

func TestRenderDateTimeFormats(t *testing.T) {
	engine := NewEngine(EngineConfig{Clock: fixedClock(t)})
	cases := []struct {
		format   string
		expected string
	}{
		{format: "", expected: "2026-03-14T09:26:53Z"},
		{format: FormatDateOnly, expected: "2026-03-14"},
		{format: FormatTimeOnly, expected: "09:26:53"},
	}
	for _, testCase := range cases {
		tpl := Template{Elements: []Element{{Kind: KindDateTime, Format: testCase.format}}}
		rendered, err := engine.Render(context.Background(), "inv-1", tpl, &countingSequence{next: 1}, nil)
		if err != nil {
			t.Fatalf("render format %q failed: %v", testCase.format, err)
		}
		if rendered != testCase.expected {
			t.Fatalf("format %q: expected %q, got %q", testCase.format, testCase.expected, rendered)
		}
	}
}

func TestRenderGuidFromSeededReader(t *testing.T) {
	seed := bytes.NewReader(bytes.Repeat([]byte{0xab}, 32))
	engine := NewEngine(EngineConfig{Random: seed})
	tpl := Template{Elements: []Element{{Kind: KindGuid}}}
	rendered, err := engine.Render(context.Background(), "inv-1", tpl, &countingSequence{next: 1}, nil)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	matched, err := engine.Matches(rendered, tpl)
	if err != nil {
		t.Fatalf("matches failed: %v", err)
	}
	if !matched {
		t.Fatalf("guid %q does not match its own template", rendered)
	}
}

func TestRenderOverridesAreVerbatim(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	tpl := Template{Elements: []Element{
		{Kind: KindFixedText, Text: "EQ-"},
		{Kind: KindRandomHex, Bits: 32},
		{Kind: KindSequence},
	}}

	sequences := &countingSequence{next: 7}
	rendered, err := engine.Render(context.Background(), "inv-1", tpl, sequences, map[int]string{1: "CUSTOM"})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if rendered != "EQ-CUSTOM000007" {
		t.Fatalf("expected override emitted verbatim, got %q", rendered)
	}
	// the overridden hex position must not have consumed randomness, but the
	// sequence position still draws.
	if sequences.next != 8 {
		t.Fatalf("expected sequence draw to proceed, next=%d", sequences.next)
	}
}

func TestSampleRenderDoesNotConsumeSequence(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	tpl := Template{Elements: []Element{
		{Kind: KindFixedText, Text: "EQ-"},
		{Kind: KindSequence},
	}}

	sample, err := engine.SampleRender(tpl)
	if err != nil {
		t.Fatalf("sample render failed: %v", err)
	}
	if sample != "EQ-000001" {
		t.Fatalf("expected preview with the counter's first value, got %q", sample)
	}
}

func TestRenderUnknownKindFailsClosed(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	tpl := Template{Elements: []Element{{Kind: ElementKind("BARCODE")}}}

	_, err := engine.Render(context.Background(), "inv-1", tpl, &countingSequence{next: 1}, nil)
	var invalid *InvalidTemplateError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTemplateError, got %v", err)
	}
	if invalid.Kind != ElementKind("BARCODE") {
		t.Fatalf("expected offending kind in error, got %q", invalid.Kind)
	}
}

func TestMatchesRoundTrip(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	tpl := Template{Elements: []Element{
		{Kind: KindFixedText, Text: "EQ-"},
		{Kind: KindRandomHex, Bits: 20},
		{Kind: KindFixedText, Text: "/"},
		{Kind: KindRandomDigits, Digits: 4},
		{Kind: KindSequence},
	}}

	rendered, err := engine.Render(context.Background(), "inv-1", tpl, &countingSequence{next: 42}, nil)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	matched, err := engine.Matches(rendered, tpl)
	if err != nil {
		t.Fatalf("matches failed: %v", err)
	}
	if !matched {
		t.Fatalf("rendered id %q rejected by its own template", rendered)
	}

	matched, err = engine.Matches("EQ-zz/123", tpl)
	if err != nil {
		t.Fatalf("matches failed: %v", err)
	}
	if matched {
		t.Fatalf("expected malformed candidate to be rejected")
	}
}

func TestMatchesIsCaseInsensitive(t *testing.T) {
	engine := NewEngine(EngineConfig{})
	tpl := Template{Elements: []Element{
		{Kind: KindFixedText, Text: "eq-"},
		{Kind: KindRandomHex, Bits: 8},
	}}

	matched, err := engine.Matches("EQ-AB", tpl)
	if err != nil {
		t.Fatalf("matches failed: %v", err)
	}
	if !matched {
		t.Fatalf("expected case-insensitive match")
	}
}

func TestValidateRejectsBadParameters(t *testing.T) {
	cases := []Template{
		{Elements: []Element{{Kind: KindRandomHex}}},
		{Elements: []Element{{Kind: KindRandomDigits, Digits: -1}}},
		{Elements: []Element{{Kind: KindDateTime, Format: "weekday"}}},
		{Elements: []Element{{Kind: ElementKind("EMOJI")}}},
	}
	for _, tpl := range cases {
		if err := tpl.Validate(); err == nil {
			t.Fatalf("expected validation failure for %+v", tpl.Elements[0])
		}
	}
}

func TestTemplateEncodeParseRoundTrip(t *testing.T) {
	tpl := Template{Elements: []Element{
		{Kind: KindFixedText, Text: "EQ-"},
		{Kind: KindRandomHex, Bits: 20},
		{Kind: KindSequence},
	}}

	encoded, err := tpl.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := ParseTemplate([]byte(encoded))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(decoded.Elements) != 3 || decoded.Elements[1].Bits != 20 {
		t.Fatalf("round trip lost element data: %+v", decoded.Elements)
	}
}
