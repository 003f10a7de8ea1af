// Package seed loads the initial activity catalog. The default catalog is
// embedded in the binary; operators can point SEED_FILE at their own JSON
// document with the same shape.
package seed

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/mergington/activity-signup/internal/model"
)

//go:embed activities.json
var defaultCatalog []byte

// catalogSchema describes a seed document: activity name → record.
const catalogSchema = `{
  "type": "object",
  "minProperties": 1,
  "additionalProperties": {
    "type": "object",
    "required": ["description", "schedule", "max_participants", "participants"],
    "additionalProperties": false,
    "properties": {
      "description": {"type": "string", "minLength": 1},
      "schedule": {"type": "string", "minLength": 1},
      "max_participants": {"type": "integer", "minimum": 0},
      "participants": {
        "type": "array",
        "uniqueItems": true,
        "items": {"type": "string", "minLength": 1}
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(catalogSchema)

// Default returns the embedded catalog.
func Default() (map[string]model.Activity, error) {
	return Parse(defaultCatalog)
}

// Load reads the catalog at path, or the embedded one when path is empty.
func Load(path string) (map[string]model.Activity, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse validates data against the catalog schema and decodes it.
func Parse(data []byte) (map[string]model.Activity, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validate seed: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("invalid seed: %s", strings.Join(errs, "; "))
	}

	var catalog map[string]model.Activity
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	for name, a := range catalog {
		catalog[name] = a.Clone()
	}
	return catalog, nil
}
