package inventory

import (
	"errors"
	"testing"
)

func TestCheckAndBumpMatchingExpected(t *testing.T) {
	expected := int64(3)
	next, err := CheckAndBump(&expected, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != 4 {
		t.Fatalf("expected bump to 4, got %d", next)
	}
}

func TestCheckAndBumpStaleExpected(t *testing.T) {
	expected := int64(2)
	_, err := CheckAndBump(&expected, 3)
	var conflict *VersionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected VersionConflictError, got %v", err)
	}
	if conflict.Current != 3 {
		t.Fatalf("expected conflict to carry current version 3, got %d", conflict.Current)
	}
}

func TestCheckAndBumpNilSkipsCheck(t *testing.T) {
	next, err := CheckAndBump(nil, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != 4 {
		t.Fatalf("expected bump to 4, got %d", next)
	}
}
