package jobs

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// jobsSchema describes the jobs file written by content generators.
const jobsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["jobs"],
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "jobs": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["prompt"],
        "properties": {
          "id": {"type": "string"},
          "prompt": {"type": "string", "minLength": 1},
          "system_prompt": {"type": "string"},
          "complexity": {
            "oneOf": [
              {"type": "integer", "minimum": 1, "maximum": 4},
              {"type": "string", "enum": ["simple", "medium", "complex", "advanced", "1", "2", "3", "4"]}
            ]
          },
          "temperature": {"type": "number", "minimum": 0, "maximum": 2},
          "status": {"type": "string", "enum": ["pending", "running", "done", "failed"]},
          "output": {"type": "string"},
          "backend": {"type": "string"},
          "model": {"type": "string"},
          "error": {"type": "string"},
          "degraded": {"type": "boolean"},
          "created_at": {"type": "string"},
          "completed_at": {"type": ["string", "null"]}
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(jobsSchema)

// SchemaError lists every violation found in a jobs file.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("jobs file failed schema validation: %s", strings.Join(e.Violations, "; "))
}

// validate checks a jobs document against the schema.
func validate(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("failed to validate jobs file: %w", err)
	}
	if result.Valid() {
		return nil
	}

	schemaErr := &SchemaError{Violations: make([]string, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		schemaErr.Violations = append(schemaErr.Violations, field+": "+desc.Description())
	}
	return schemaErr
}
