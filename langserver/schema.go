package langserver

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// envelopeSchemaJSON describes the outer shape of a JSON-RPC 2.0 message
// well enough to catch a malformed peer (an id that isn't string/number/
// null, a method that isn't a string) before a handler ever sees it, without
// requiring "method" — an envelope carrying only params is a valid shape
// this dispatcher chooses to drop, not a schema violation.
const envelopeSchemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"$id": "https://eventide.local/schemas/jsonrpc-envelope.schema.json",
	"type": "object",
	"properties": {
		"jsonrpc": { "type": "string" },
		"method":  { "type": "string" },
		"params":  { "type": ["object", "array"] },
		"id":      { "type": ["string", "number", "null"] }
	}
}`

var envelopeSchema *jsonschema.Schema

func init() {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(envelopeSchemaJSON))
	if err != nil {
		panic(err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("envelope.json", doc); err != nil {
		panic(err)
	}
	s, err := c.Compile("envelope.json")
	if err != nil {
		panic(err)
	}
	envelopeSchema = s
}

// validateEnvelopeShape rejects a decoded message that does not match the
// JSON-RPC 2.0 envelope shape.
func validateEnvelopeShape(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return envelopeSchema.Validate(v)
}
