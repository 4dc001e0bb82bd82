package component

import (
	"fmt"
	"sort"
)

// ConfigSchema describes the constructor parameters for a component factory
type ConfigSchema struct {
	Properties map[string]PropertySchema `json:"properties"`
	Required   []string                  `json:"required"`
}

// PropertySchema describes a single constructor parameter
type PropertySchema struct {
	Type        string   `json:"type"` // "string", "int", "bool", "float", "enum"
	Description string   `json:"description"`
	Default     any      `json:"default,omitempty"`
	Enum        []string `json:"enum,omitempty"` // Valid string values
	Minimum     *int     `json:"minimum,omitempty"`
	Maximum     *int     `json:"maximum,omitempty"`
}

// ValidationError represents a validation error for a specific parameter.
//
// Error codes are standardized:
//   - "required": Parameter is required but missing
//   - "min": Numeric value below minimum threshold
//   - "max": Numeric value above maximum threshold
//   - "enum": Value not in allowed enum values
//   - "type": Value doesn't match expected type
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidateParams validates constructor parameters against a ConfigSchema.
// It checks required fields, type constraints, min/max bounds, and enum
// values. The validation is lenient: unknown parameters are allowed to
// support schema evolution. Returns every validation failure found; an
// empty slice indicates the parameters are valid.
func ValidateParams(params map[string]any, schema ConfigSchema) []ValidationError {
	var errs []ValidationError

	// Check required fields
	for _, requiredField := range schema.Required {
		if _, exists := params[requiredField]; !exists {
			// A schema default satisfies a required field
			if prop, ok := schema.Properties[requiredField]; ok && prop.Default != nil {
				continue
			}
			errs = append(errs, ValidationError{
				Field:   requiredField,
				Message: fmt.Sprintf("parameter %q is required", requiredField),
				Code:    "required",
			})
		}
	}

	// Validate supplied values against their property schemas
	fields := make([]string, 0, len(params))
	for field := range params {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		prop, defined := schema.Properties[field]
		if !defined {
			continue // unknown parameters are allowed
		}
		if err := validateValue(field, params[field], prop); err != nil {
			errs = append(errs, *err)
		}
	}

	return errs
}

// validateValue checks a single value against its property schema.
func validateValue(field string, value any, prop PropertySchema) *ValidationError {
	switch prop.Type {
	case "string":
		s, ok := value.(string)
		if !ok {
			return typeError(field, "string", value)
		}
		if len(prop.Enum) > 0 {
			for _, allowed := range prop.Enum {
				if s == allowed {
					return nil
				}
			}
			return &ValidationError{
				Field:   field,
				Message: fmt.Sprintf("value %q not in allowed values %v", s, prop.Enum),
				Code:    "enum",
			}
		}
	case "int":
		i, ok := value.(int)
		if !ok {
			return typeError(field, "int", value)
		}
		if prop.Minimum != nil && i < *prop.Minimum {
			return &ValidationError{
				Field:   field,
				Message: fmt.Sprintf("value %d below minimum %d", i, *prop.Minimum),
				Code:    "min",
			}
		}
		if prop.Maximum != nil && i > *prop.Maximum {
			return &ValidationError{
				Field:   field,
				Message: fmt.Sprintf("value %d above maximum %d", i, *prop.Maximum),
				Code:    "max",
			}
		}
	case "float":
		if _, ok := value.(float64); !ok {
			return typeError(field, "float", value)
		}
	case "bool":
		if _, ok := value.(bool); !ok {
			return typeError(field, "bool", value)
		}
	}
	return nil
}

func typeError(field, want string, got any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("expected %s, got %T", want, got),
		Code:    "type",
	}
}
