package server

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// processRequestSchema guards the ingestion request body. The column map may
// be null, absent or empty; an unusable mapping is reported by the task
// result instead of a 400 so callers always get the column listing.
var processRequestSchema = map[string]any{
	"type":     "object",
	"required": []any{"file_id"},
	"properties": map[string]any{
		"file_id": map[string]any{
			"type":      "string",
			"minLength": 1,
		},
		"column_map": map[string]any{
			"type": []any{"object", "null"},
			"additionalProperties": map[string]any{
				"type": "string",
			},
		},
	},
}

// validateJSONAgainstSchema validates "data" against "schemaMap".
func validateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
