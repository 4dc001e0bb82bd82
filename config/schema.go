package config

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/openscripts/carrot2/errors"
)

// configSchema is the JSON meta-schema every configuration file must
// satisfy before structural validation runs. Duration fields are strings
// in Go duration syntax when written by hand ("30s", "1m"), which YAML
// delivers as strings; numeric nanosecond values are also accepted.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "controller": {
      "type": "object",
      "properties": {
        "cache_capacity": {"type": "integer", "minimum": 1},
        "wait_timeout": {"type": ["string", "integer"]},
        "shutdown_grace": {"type": ["string", "integer"]},
        "stop_timeout": {"type": ["string", "integer"]}
      },
      "additionalProperties": false
    },
    "chains": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "terminal": {"type": "array", "items": {"type": "string"}},
          "components": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "properties": {
                "name": {"type": "string", "minLength": 1},
                "params": {"type": "object"}
              },
              "required": ["name"],
              "additionalProperties": false
            }
          }
        },
        "required": ["name", "components"],
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

// ValidateDocument checks a raw configuration document (already decoded
// from YAML into plain maps) against the configuration meta-schema.
// Returns every violation found.
func ValidateDocument(doc map[string]any) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return errors.WrapInvalid(err, "config", "ValidateDocument", "marshal document")
	}

	schemaLoader := gojsonschema.NewStringLoader(configSchema)
	documentLoader := gojsonschema.NewBytesLoader(docBytes)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.WrapInvalid(err, "config", "ValidateDocument", "schema validation")
	}

	if !result.Valid() {
		errMsg := "configuration schema validation failed:\n"
		for _, desc := range result.Errors() {
			errMsg += fmt.Sprintf("  - %s: %s\n", desc.Field(), desc.Description())
		}
		return errors.WrapInvalid(fmt.Errorf("%s", errMsg), "config", "ValidateDocument", "schema validation")
	}

	return nil
}
