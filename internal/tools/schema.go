package tools

import (
	"fmt"
	"math"
)

// validateArgs checks args against a tool's JSON-schema parameters.
// Coverage is deliberately minimal: required fields, enum membership,
// and primitive type checks. Unknown keys pass through untouched so
// the model can include extra context without breaking a call.
func validateArgs(params map[string]any, args map[string]any) error {
	if params == nil {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}

	if required, ok := params["required"].([]string); ok {
		for _, field := range required {
			if _, exists := args[field]; !exists {
				return fmt.Errorf("missing required field: %s", field)
			}
		}
	} else if required, ok := params["required"].([]any); ok {
		for _, f := range required {
			field, _ := f.(string)
			if _, exists := args[field]; !exists {
				return fmt.Errorf("missing required field: %s", field)
			}
		}
	}

	properties, ok := params["properties"].(map[string]any)
	if !ok || len(properties) == 0 {
		return nil
	}

	for key, value := range args {
		propDef, ok := properties[key].(map[string]any)
		if !ok {
			continue
		}

		if expectedType, ok := propDef["type"].(string); ok {
			if err := validateType(value, expectedType); err != nil {
				return fmt.Errorf("field %s: %w", key, err)
			}
		}

		if enum, ok := propDef["enum"].([]string); ok {
			if err := validateEnum(value, anySlice(enum)); err != nil {
				return fmt.Errorf("field %s: %w", key, err)
			}
		} else if enum, ok := propDef["enum"].([]any); ok {
			if err := validateEnum(value, enum); err != nil {
				return fmt.Errorf("field %s: %w", key, err)
			}
		}
	}

	return nil
}

func validateType(value any, expected string) error {
	switch expected {
	case "string":
		if _, ok := value.(string); ok {
			return nil
		}
	case "number":
		if isNumber(value) {
			return nil
		}
	case "integer":
		if isInteger(value) {
			return nil
		}
	case "boolean":
		if _, ok := value.(bool); ok {
			return nil
		}
	case "object":
		if _, ok := value.(map[string]any); ok {
			return nil
		}
	case "array":
		if _, ok := value.([]any); ok {
			return nil
		}
	default:
		// Do not fail calls over schema features we don't check.
		return nil
	}
	return fmt.Errorf("expected %s but got %T", expected, value)
}

func validateEnum(value any, allowed []any) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("value %v is not one of the allowed values", value)
}

func isNumber(value any) bool {
	switch value.(type) {
	case float32, float64:
		return true
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return math.Trunc(float64(v)) == float64(v)
	case float64:
		return math.Trunc(v) == v
	}
	return false
}

func anySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
