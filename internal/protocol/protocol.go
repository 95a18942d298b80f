package protocol

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const Version = "1.0"

var (
	//go:embed schemas/snapshot.schema.json
	SnapshotSchemaJSON string
	//go:embed schemas/command.schema.json
	CommandSchemaJSON string

	snapshotSchema = jsonschema.MustCompileString("https://universe.local/schemas/snapshot.schema.json", SnapshotSchemaJSON)
	commandSchema  = jsonschema.MustCompileString("https://universe.local/schemas/command.schema.json", CommandSchemaJSON)
)

// SchemaError reports a document that does not match its envelope schema.
type SchemaError struct {
	Schema string
	Err    error
}

func (e *SchemaError) Error() string { return fmt.Sprintf("%s schema: %v", e.Schema, e.Err) }
func (e *SchemaError) Unwrap() error { return e.Err }

// decodeRaw decodes b into generic JSON values, keeping numbers exact.
func decodeRaw(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return v, nil
}

func unmarshalNumbers(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}
