package dataset

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

const qaSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["questions", "answers"],
  "additionalProperties": false,
  "properties": {
    "questions": {"type": "array", "items": {"type": "string"}},
    "answers": {"type": "array", "items": {"type": "string"}}
  }
}`

var qaSchemaLoader = gojsonschema.NewStringLoader(qaSchema)

// ValidateQAShape checks raw JSON against the dataset schema.
func ValidateQAShape(data []byte) error {
	result, err := gojsonschema.Validate(qaSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("parse json: %w", err)
	}
	if result.Valid() {
		return nil
	}
	collector := &issueCollector{}
	for _, desc := range result.Errors() {
		collector.add(desc.Field(), desc.Description())
	}
	return collector.result()
}
