package protocol

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/act.schema.json
var actSchemaJSON string

var actSchema = jsonschema.MustCompileString("act.schema.json", actSchemaJSON)

// ValidateAct checks a raw ACT payload against the wire schema before it is
// decoded. Schema failures are a normalization concern, not a fatal one: the
// caller logs the error and substitutes a pass action.
func ValidateAct(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("act json: %w", err)
	}
	if err := actSchema.Validate(v); err != nil {
		return fmt.Errorf("act schema: %w", err)
	}
	return nil
}
