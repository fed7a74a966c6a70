package codec

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Structural schemas for the JSON-encoded payloads. Semantic checks
// (letters in range, permutations) happen after typed decoding.
const (
	schemaStringList   = "string_list"
	schemaPairs        = "pairs"
	schemaMatchAnswer  = "match_answer"
	schemaDropOptions  = "drop_options"
	schemaDropKey      = "drop_key"
	schemaDropResponse = "drop_response"
)

var schemaSources = map[string]string{
	schemaStringList: `{
		"type": "array",
		"items": {"type": "string"}
	}`,
	schemaPairs: `{
		"type": "array",
		"minItems": 1,
		"items": {
			"type": "object",
			"required": ["left", "right"],
			"properties": {
				"left": {"type": "string"},
				"right": {"type": "string"}
			}
		}
	}`,
	schemaMatchAnswer: `{
		"type": "object",
		"propertyNames": {"pattern": "^[0-9]+$"},
		"additionalProperties": {"type": "string"}
	}`,
	schemaDropOptions: `{
		"type": "object",
		"required": ["zones", "items"],
		"properties": {
			"zones": {"type": "array", "minItems": 1, "items": {"type": "string"}},
			"items": {"type": "array", "items": {"type": "string"}}
		}
	}`,
	schemaDropKey: `{
		"type": "object",
		"required": ["zones"],
		"properties": {
			"zones": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["zone", "items"],
					"properties": {
						"zone": {"type": "string"},
						"items": {"type": "array", "items": {"type": "string"}}
					}
				}
			}
		}
	}`,
	schemaDropResponse: `{
		"type": "object",
		"additionalProperties": {"type": "array", "items": {"type": "string"}}
	}`,
}

// schemaCache caches compiled JSON schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// validateShape checks raw against the named schema.
func validateShape(name string, raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	compiled, err := compiledSchema(name)
	if err != nil {
		return err
	}

	if err := compiled.Validate(parsed); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func compiledSchema(name string) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	src, ok := schemaSources[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	var def any
	if err := json.Unmarshal([]byte(src), &def); err != nil {
		return nil, fmt.Errorf("parse schema %q: %w", name, err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://codec/%s.json", name)
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(name, compiled)
	return compiled, nil
}

// decodeJSON validates raw against the named schema and unmarshals it into dst.
func decodeJSON(name string, raw []byte, dst any) error {
	if err := validateShape(name, raw); err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
