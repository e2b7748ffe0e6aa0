package inventory

import (
	"errors"
	"testing"
)

func TestValidateFieldValuesUnknownDefinition(t *testing.T) {
	text := "hello"
	err := validateFieldValues(nil, []FieldValue{
		{FieldDefinitionID: "missing", ValueText: &text},
	})
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for unknown definition, got %v", err)
	}
	if notFound.Entity != "field definition" {
		t.Fatalf("expected field definition entity, got %q", notFound.Entity)
	}
}

func TestValidateFieldValuesExactlyOneSlot(t *testing.T) {
	definitions := []FieldDefinition{{ID: "f1", Kind: FieldSingleLine}}
	text := "hello"
	number := 4.2

	if err := validateFieldValues(definitions, []FieldValue{{FieldDefinitionID: "f1"}}); !errors.Is(err, ErrInvalidFieldValue) {
		t.Fatalf("expected empty value to be rejected, got %v", err)
	}
	err := validateFieldValues(definitions, []FieldValue{
		{FieldDefinitionID: "f1", ValueText: &text, ValueNumber: &number},
	})
	if !errors.Is(err, ErrInvalidFieldValue) {
		t.Fatalf("expected double-populated value to be rejected, got %v", err)
	}
}

func TestValidateFieldValuesSlotMustMatchKind(t *testing.T) {
	text := "hello"
	number := 4.2
	flag := true
	link := "https://example.com/doc"

	cases := []struct {
		kind  FieldKind
		value FieldValue
		ok    bool
	}{
		{kind: FieldSingleLine, value: FieldValue{ValueText: &text}, ok: true},
		{kind: FieldMultiLine, value: FieldValue{ValueText: &text}, ok: true},
		{kind: FieldNumber, value: FieldValue{ValueNumber: &number}, ok: true},
		{kind: FieldBool, value: FieldValue{ValueBool: &flag}, ok: true},
		{kind: FieldDocument, value: FieldValue{ValueLink: &link}, ok: true},
		{kind: FieldNumber, value: FieldValue{ValueText: &text}, ok: false},
		{kind: FieldBool, value: FieldValue{ValueNumber: &number}, ok: false},
		{kind: FieldDocument, value: FieldValue{ValueText: &text}, ok: false},
	}
	for _, testCase := range cases {
		definitions := []FieldDefinition{{ID: "f1", Kind: testCase.kind}}
		value := testCase.value
		value.FieldDefinitionID = "f1"
		err := validateFieldValues(definitions, []FieldValue{value})
		if testCase.ok && err != nil {
			t.Fatalf("kind %s: expected value to pass, got %v", testCase.kind, err)
		}
		if !testCase.ok && !errors.Is(err, ErrInvalidFieldValue) {
			t.Fatalf("kind %s: expected mismatch rejection, got %v", testCase.kind, err)
		}
	}
}

func TestParseFieldKind(t *testing.T) {
	if kind, err := ParseFieldKind("number"); err != nil || kind != FieldNumber {
		t.Fatalf("expected NUMBER, got %q err=%v", kind, err)
	}
	if _, err := ParseFieldKind("EMOJI"); err == nil {
		t.Fatalf("expected unknown kind to be rejected")
	}
}
