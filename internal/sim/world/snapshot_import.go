package world

import (
	"github.com/jbradberry/universe/internal/protocol"
	"github.com/jbradberry/universe/internal/sim/schema"
	modelpkg "github.com/jbradberry/universe/internal/sim/world/kernel/model"
)

// Import replaces the registry with the contents of snap. Every entity is
// registered before any is validated so references may point forward. On
// error the registry is left empty.
func (w *World) Import(snap protocol.Snapshot) error {
	w.reset()
	w.turn, w.width, w.seq = snap.Turn, snap.Width, snap.Seq

	records := make([]schema.Record, 0, len(snap.Entities))
	for _, raw := range snap.Entities {
		r := raw.Clone()
		if _, err := componentsOf(r); err != nil {
			w.reset()
			return err
		}
		e, err := modelpkg.Decode(r)
		if err != nil {
			w.reset()
			return err
		}
		if err := w.insert(e); err != nil {
			w.reset()
			return err
		}
		records = append(records, r)
	}

	for _, r := range records {
		if err := w.Validate(r); err != nil {
			w.reset()
			return err
		}
	}
	return nil
}
