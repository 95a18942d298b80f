package protocol_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jbradberry/universe/internal/protocol"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name, src string) *jsonschema.Schema {
		t.Helper()
		s, err := jsonschema.CompileString(name, src)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}
	decode := func(doc string) any {
		t.Helper()
		dec := json.NewDecoder(bytes.NewReader([]byte(doc)))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return v
	}
	validate := func(s *jsonschema.Schema, doc string) {
		t.Helper()
		if err := s.Validate(decode(doc)); err != nil {
			t.Fatalf("validate %s: %v", doc, err)
		}
	}
	reject := func(s *jsonschema.Schema, doc string) {
		t.Helper()
		if err := s.Validate(decode(doc)); err == nil {
			t.Fatalf("expected %s to fail validation", doc)
		}
	}

	snap := compile("snapshot.schema.json", protocol.SnapshotSchemaJSON)
	cmd := compile("command.schema.json", protocol.CommandSchemaJSON)

	validate(snap, `{"turn": 0, "width": 1, "seq": 0, "entities": []}`)
	validate(snap, `{"turn": 2500, "width": 1000, "seq": 3, "entities": [{"pk": 0, "type": "ship", "x": 1, "y": 2}]}`)
	reject(snap, `{"turn": -1, "width": 1, "seq": 0, "entities": []}`)
	reject(snap, `{"turn": 0, "width": 1, "seq": 0}`)
	reject(snap, `{"turn": 0, "width": 1, "seq": 0, "entities": {}}`)

	validate(cmd, `{"action": "create", "actor_id": 1, "seq": 0, "warp": 10, "x_t": 4, "y_t": 5}`)
	validate(cmd, `{"action": "create", "actor_id": 1, "seq": 0, "warp": 0, "target_id": 3}`)
	validate(cmd, `{"action": "update", "actor_id": 1, "seq": 2}`)
	validate(cmd, `{"action": "reorder", "actor_id": 1, "seq1": 0, "seq2": 1}`)
	validate(cmd, `{"action": "delete", "actor_id": 1, "seq": 0}`)
	reject(cmd, `{"action": "create", "actor_id": 1, "seq": 0, "warp": 11, "target_id": 3}`)
	reject(cmd, `{"action": "update", "actor_id": 1}`)
	reject(cmd, `{"action": "reorder", "actor_id": 1, "seq1": 0}`)
	reject(cmd, `{"action": "delete", "actor_id": 1, "seq": 0, "y_t": 2}`)
	reject(cmd, `{"action": "delete", "actor_id": 1.5, "seq": 0}`)
}
