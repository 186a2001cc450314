package judge

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"qabench/internal/agent"
)

// verdictOutput is the structured response requested from the judge model.
type verdictOutput struct {
	Correct   bool   `json:"correct" jsonschema:"required,description=Whether the model's answer is correct"`
	Rationale string `json:"rationale" jsonschema:"required,description=Brief explanation of why the answer is correct or incorrect"`
}

// VerdictSchema returns the JSON schema of a verdict.
func VerdictSchema() (json.RawMessage, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(&verdictOutput{})
	schema.Version = ""
	schema.ID = ""
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal verdict schema: %w", err)
	}
	return data, nil
}

func verdictOutputSchema() (*agent.OutputSchema, error) {
	schema, err := VerdictSchema()
	if err != nil {
		return nil, err
	}
	return &agent.OutputSchema{Name: "verdict", Schema: schema}, nil
}
