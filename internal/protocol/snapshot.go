package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/jbradberry/universe/internal/sim/schema"
)

// Snapshot is the complete state of a universe between turns. Seq is the
// next free primary key.
type Snapshot struct {
	Turn     int64           `json:"turn"`
	Width    int64           `json:"width"`
	Seq      int64           `json:"seq"`
	Entities []schema.Record `json:"entities"`
}

// DecodeSnapshot checks b against the snapshot schema and decodes it.
// Entity fields are left untyped (numbers as json.Number) for the entity
// validators to check.
func DecodeSnapshot(b []byte) (Snapshot, error) {
	raw, err := decodeRaw(b)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := snapshotSchema.Validate(raw); err != nil {
		return Snapshot{}, &SchemaError{Schema: "snapshot", Err: err}
	}
	var s Snapshot
	if err := unmarshalNumbers(b, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Entities == nil {
		s.Entities = []schema.Record{}
	}
	return s, nil
}

func EncodeSnapshot(s Snapshot) ([]byte, error) {
	if s.Entities == nil {
		s.Entities = []schema.Record{}
	}
	return json.Marshal(s)
}
