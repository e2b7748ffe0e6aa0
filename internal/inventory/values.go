package inventory

import (
	"errors"
	"fmt"
)

// ErrInvalidFieldValue indicates a field value whose populated slot does not
// match its definition's kind.
var ErrInvalidFieldValue = errors.New("inventory: invalid field value")

// validateFieldValues checks each value against the inventory's definitions:
// the referenced definition must exist, and exactly the slot matching its
// kind must be populated.
func validateFieldValues(definitions []FieldDefinition, values []FieldValue) error {
	kinds := make(map[string]FieldKind, len(definitions))
	for _, definition := range definitions {
		kinds[definition.ID] = definition.Kind
	}

	for _, value := range values {
		kind, ok := kinds[value.FieldDefinitionID]
		if !ok {
			return &NotFoundError{Entity: "field definition", ID: value.FieldDefinitionID}
		}

		populated := 0
		if value.ValueText != nil {
			populated++
		}
		if value.ValueNumber != nil {
			populated++
		}
		if value.ValueBool != nil {
			populated++
		}
		if value.ValueLink != nil {
			populated++
		}
		if populated != 1 {
			return fmt.Errorf("%w: field %s must populate exactly one slot", ErrInvalidFieldValue, value.FieldDefinitionID)
		}

		matches := false
		switch kind {
		case FieldSingleLine, FieldMultiLine:
			matches = value.ValueText != nil
		case FieldNumber:
			matches = value.ValueNumber != nil
		case FieldBool:
			matches = value.ValueBool != nil
		case FieldDocument:
			matches = value.ValueLink != nil
		}
		if !matches {
			return fmt.Errorf("%w: field %s expects a %s value", ErrInvalidFieldValue, value.FieldDefinitionID, kind)
		}
	}
	return nil
}
