package world

import (
	"github.com/jbradberry/universe/internal/protocol"
	"github.com/jbradberry/universe/internal/sim/components"
	"github.com/jbradberry/universe/internal/sim/schema"
	modelpkg "github.com/jbradberry/universe/internal/sim/world/kernel/model"
)

// Export serializes the registry, entities by ascending pk, each through its
// components.
func (w *World) Export() (protocol.Snapshot, error) {
	snap := protocol.Snapshot{
		Turn:     w.turn,
		Width:    w.width,
		Seq:      w.seq,
		Entities: make([]schema.Record, 0, len(w.entities)),
	}
	for _, e := range w.Entities() {
		r, err := w.serialize(e, (*schema.Component).Serialize)
		if err != nil {
			return protocol.Snapshot{}, err
		}
		snap.Entities = append(snap.Entities, r)
	}
	return snap, nil
}

// Display is Export's entity list with display transforms applied. A
// non-empty typ keeps only entities of that type.
func (w *World) Display(typ string) ([]schema.Record, error) {
	var out []schema.Record
	for _, e := range w.Entities() {
		if typ != "" && e.Meta().Type != typ {
			continue
		}
		r, err := w.serialize(e, (*schema.Component).Display)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

type serializeFn func(c *schema.Component, r schema.Record, res schema.Resolver) (schema.Record, error)

func (w *World) serialize(e modelpkg.Entity, fn serializeFn) (schema.Record, error) {
	comps, _ := components.ForType(e.Meta().Type)
	src := e.Record()
	out := schema.Record{}
	for _, c := range comps {
		part, err := fn(c, src, w)
		if err != nil {
			return nil, err
		}
		for k, v := range part {
			out[k] = v
		}
	}
	return out, nil
}

// typeCounts counts registered entities per type.
func (w *World) typeCounts() map[string]int {
	counts := make(map[string]int, len(components.Types()))
	for _, typ := range components.Types() {
		counts[typ] = 0
	}
	for _, e := range w.entities {
		counts[e.Meta().Type]++
	}
	return counts
}
