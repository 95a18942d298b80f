package world

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbradberry/universe/internal/protocol"
	"github.com/jbradberry/universe/internal/sim/components"
	"github.com/jbradberry/universe/internal/sim/schema"
	modelpkg "github.com/jbradberry/universe/internal/sim/world/kernel/model"
)

const humans = `{"pk": 0, "type": "species", "name": "Human", "plural_name": "Humans", "growth_rate": 15,
  "gravity_immune": true, "temperature_immune": true, "radiation_immune": true}`

func snapshotOf(t *testing.T, doc string) protocol.Snapshot {
	t.Helper()
	s, err := protocol.DecodeSnapshot([]byte(doc))
	require.NoError(t, err)
	return s
}

func commandsOf(t *testing.T, doc string) protocol.Batch {
	t.Helper()
	b, rejected, err := protocol.DecodeCommands([]byte(doc))
	require.NoError(t, err)
	require.Zero(t, rejected)
	return b
}

func generate(t *testing.T, w *World, snap protocol.Snapshot, cmds protocol.Batch) (protocol.Snapshot, Report) {
	t.Helper()
	out, rep, err := w.Generate(context.Background(), snap, cmds)
	require.NoError(t, err)
	return out, rep
}

func byPK(s protocol.Snapshot) map[int64]schema.Record {
	out := map[int64]schema.Record{}
	for _, r := range s.Entities {
		pk, _ := schema.AsInt(r["pk"])
		out[pk] = r
	}
	return out
}

func requireValidation(t *testing.T, err error, msg string) {
	t.Helper()
	var ve *schema.ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	assert.Equal(t, msg, ve.Message)
}

func TestEmptyUniverse(t *testing.T) {
	w := New(WorldConfig{})
	out, rep := generate(t, w, snapshotOf(t, `{"turn": 2500, "width": 1000, "seq": 0, "entities": []}`), nil)

	assert.Equal(t, protocol.Snapshot{Turn: 2501, Width: 1000, Seq: 0, Entities: []schema.Record{}}, out)
	assert.Equal(t, int64(2501), rep.Turn)
	assert.Len(t, rep.Digest, 64)
	names := make([]string, 0, len(rep.Stages))
	for _, s := range rep.Stages {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{StageImport, StageUpdate, StageMovement, StageMining, StageGrowth, StageExport}, names)
}

func TestStationaryObject(t *testing.T) {
	w := New(WorldConfig{})
	out, _ := generate(t, w, snapshotOf(t, `{"turn": 2500, "width": 1000, "seq": 1, "entities": [
	  {"pk": 0, "type": "ship", "x": 456, "y": 337}
	]}`), nil)

	assert.Equal(t, []schema.Record{{
		"pk": int64(0), "type": "ship", "x": int64(456), "y": int64(337), "x_prev": int64(456), "y_prev": int64(337),
	}}, out.Entities)
}

func TestSingleTurnMoveFromCommand(t *testing.T) {
	w := New(WorldConfig{})
	snap := snapshotOf(t, `{"turn": 2500, "width": 1000, "seq": 2, "entities": [`+humans+`,
	  {"pk": 1, "type": "ship", "x": 480, "y": 235, "owner_id": 0}
	]}`)
	cmds := commandsOf(t, `{"0": [{"action": "create", "actor_id": 1, "seq": 0, "x_t": 422, "y_t": 210, "warp": 10}]}`)

	out, rep := generate(t, w, snap, cmds)
	assert.Equal(t, 1, rep.Update.Applied)
	assert.Equal(t, 1, rep.Movement.Fulfilled)

	ents := byPK(out)
	require.Len(t, ents, 2)
	ship := ents[1]
	assert.Equal(t, int64(422), ship["x"])
	assert.Equal(t, int64(210), ship["y"])
	assert.Equal(t, int64(480), ship["x_prev"])
	assert.Equal(t, int64(235), ship["y_prev"])
	// The order took pk 2 and was consumed; its pk is not reused.
	assert.Equal(t, int64(3), out.Seq)
}

func TestMultiTurnMoveKeepsOrder(t *testing.T) {
	w := New(WorldConfig{})
	snap := snapshotOf(t, `{"turn": 2500, "width": 1000, "seq": 3, "entities": [`+humans+`,
	  {"pk": 1, "type": "ship", "x": 480, "y": 235, "owner_id": 0},
	  {"pk": 2, "type": "movement_order", "actor_id": 1, "seq": 0, "x_t": 168, "y_t": 870, "warp": 10}
	]}`)

	out, _ := generate(t, w, snap, nil)
	ents := byPK(out)
	assert.Equal(t, int64(436), ents[1]["x"])
	assert.Equal(t, int64(325), ents[1]["y"])
	assert.Equal(t, schema.Record{
		"pk": int64(2), "type": "movement_order", "actor_id": int64(1), "seq": int64(0),
		"x_t": int64(168), "y_t": int64(870), "warp": int64(10),
	}, ents[2])
}

func TestReplaceQueuedMove(t *testing.T) {
	w := New(WorldConfig{})
	snap := snapshotOf(t, `{"turn": 2500, "width": 1000, "seq": 3, "entities": [`+humans+`,
	  {"pk": 1, "type": "ship", "x": 480, "y": 235, "owner_id": 0},
	  {"pk": 2, "type": "movement_order", "actor_id": 1, "seq": 0, "x_t": 637, "y_t": 786, "warp": 8}
	]}`)
	cmds := commandsOf(t, `{"0": [{"action": "update", "actor_id": 1, "seq": 0, "x_t": 422, "y_t": 210, "warp": 10}]}`)

	out, _ := generate(t, w, snap, cmds)
	ents := byPK(out)
	assert.Len(t, ents, 2)
	assert.Equal(t, int64(422), ents[1]["x"])
	assert.Equal(t, int64(210), ents[1]["y"])
}

func TestAddToQueuedMoves(t *testing.T) {
	w := New(WorldConfig{})
	snap := snapshotOf(t, `{"turn": 2500, "width": 1000, "seq": 3, "entities": [`+humans+`,
	  {"pk": 1, "type": "ship", "x": 480, "y": 235, "owner_id": 0},
	  {"pk": 2, "type": "movement_order", "actor_id": 1, "seq": 0, "x_t": 422, "y_t": 210, "warp": 10}
	]}`)
	cmds := commandsOf(t, `{"0": [{"action": "create", "actor_id": 1, "seq": 1, "x_t": 637, "y_t": 786, "warp": 8}]}`)

	out, _ := generate(t, w, snap, cmds)
	ents := byPK(out)
	require.Len(t, ents, 3)
	assert.Equal(t, int64(422), ents[1]["x"])
	next := ents[3]
	assert.Equal(t, int64(0), next["seq"])
	assert.Equal(t, int64(637), next["x_t"])
	assert.Equal(t, int64(8), next["warp"])
}

func TestUnauthorizedCommandIsDropped(t *testing.T) {
	w := New(WorldConfig{})
	snap := snapshotOf(t, `{"turn": 1, "width": 1000, "seq": 3, "entities": [`+humans+`,
	  {"pk": 1, "type": "ship", "x": 480, "y": 235, "owner_id": 0},
	  {"pk": 2, "type": "ship", "x": 10, "y": 10}
	]}`)
	cmds := commandsOf(t, `{
	  "5": [{"action": "create", "actor_id": 1, "seq": 0, "x_t": 422, "y_t": 210, "warp": 10}],
	  "0": [{"action": "create", "actor_id": 2, "seq": 0, "x_t": 422, "y_t": 210, "warp": 10},
	        {"action": "create", "actor_id": 0, "seq": 0, "x_t": 422, "y_t": 210, "warp": 10},
	        {"action": "create", "actor_id": 9, "seq": 0, "x_t": 422, "y_t": 210, "warp": 10}]
	}`)

	out, rep := generate(t, w, snap, cmds)
	assert.Equal(t, 0, rep.Update.Applied)
	assert.Equal(t, 4, rep.Update.Dropped)
	ents := byPK(out)
	assert.Equal(t, int64(480), ents[1]["x"])
	assert.Equal(t, int64(3), out.Seq)
}

func TestPopulationDiesOut(t *testing.T) {
	w := New(WorldConfig{})
	snap := snapshotOf(t, `{"turn": 1, "width": 1000, "seq": 2, "entities": [`+humans+`,
	  {"pk": 1, "type": "planet", "x": 1, "y": 2, "gravity": 50, "temperature": 50, "radiation": 50,
	   "ironium_conc": 10, "boranium_conc": 10, "germanium_conc": 10, "population": 0, "owner_id": 0}
	]}`)

	out, rep := generate(t, w, snap, nil)
	assert.Equal(t, 1, rep.Growth.Depopulated)
	planet := byPK(out)[1]
	assert.NotContains(t, planet, "population")
	assert.NotContains(t, planet, "owner_id")
}

func TestMiningAndGrowth(t *testing.T) {
	w := New(WorldConfig{})
	snap := snapshotOf(t, `{"turn": 1, "width": 1000, "seq": 2, "entities": [`+humans+`,
	  {"pk": 1, "type": "planet", "x": 1, "y": 2, "gravity": 50, "temperature": 50, "radiation": 50,
	   "ironium_conc": 100, "boranium_conc": 100, "germanium_conc": 100,
	   "population": 1000000, "mines": 1000, "owner_id": 0}
	]}`)

	out, rep := generate(t, w, snap, nil)
	assert.Equal(t, int64(1000), rep.Mining.Total.Ironium)
	planet := byPK(out)[1]
	assert.Equal(t, int64(1000), planet["ironium"])
	assert.Equal(t, int64(1000), planet["boranium"])
	assert.Equal(t, int64(1000), planet["germanium"])
	// At capacity, crowding stops growth.
	assert.Equal(t, int64(1_000_000), planet["population"])
}

func TestMutualInterceptEndToEnd(t *testing.T) {
	w := New(WorldConfig{})
	snap := snapshotOf(t, `{"turn": 2500, "width": 1000, "seq": 4, "entities": [
	  {"pk": 0, "type": "ship", "x": 480, "y": 235},
	  {"pk": 1, "type": "ship", "x": 460, "y": 215},
	  {"pk": 2, "type": "movement_order", "actor_id": 0, "seq": 0, "target_id": 1, "warp": 10},
	  {"pk": 3, "type": "movement_order", "actor_id": 1, "seq": 0, "target_id": 0, "warp": 10}
	]}`)

	out, rep := generate(t, w, snap, nil)
	assert.Equal(t, 2, rep.Movement.Fulfilled)
	require.Len(t, out.Entities, 2)
	a, b := out.Entities[0], out.Entities[1]
	assert.Equal(t, a["x"], b["x"])
	assert.Equal(t, a["y"], b["y"])
}

func TestGenerateIsDeterministic(t *testing.T) {
	doc := `{"turn": 7, "width": 1000, "seq": 6, "entities": [` + humans + `,
	  {"pk": 1, "type": "ship", "x": 480, "y": 235, "owner_id": 0},
	  {"pk": 2, "type": "ship", "x": 460, "y": 215},
	  {"pk": 3, "type": "ship", "x": 500, "y": 205},
	  {"pk": 4, "type": "movement_order", "actor_id": 1, "seq": 0, "target_id": 2, "warp": 9},
	  {"pk": 5, "type": "movement_order", "actor_id": 2, "seq": 0, "target_id": 3, "warp": 7}
	]}`
	var digests []string
	var outputs [][]byte
	for i := 0; i < 2; i++ {
		out, rep := generate(t, New(WorldConfig{}), snapshotOf(t, doc), nil)
		b, err := protocol.EncodeSnapshot(out)
		require.NoError(t, err)
		digests = append(digests, rep.Digest)
		outputs = append(outputs, b)
	}
	assert.Equal(t, digests[0], digests[1])
	assert.Equal(t, outputs[0], outputs[1])
}

func TestImportForwardReference(t *testing.T) {
	w := New(WorldConfig{})
	err := w.Import(snapshotOf(t, `{"turn": 1, "width": 10, "seq": 0, "entities": [
	  {"pk": 0, "type": "movement_order", "actor_id": 1, "seq": 0, "target_id": 2, "warp": 3},
	  {"pk": 1, "type": "ship", "x": 1, "y": 1},
	  {"pk": 2, "type": "planet", "x": 5, "y": 5, "gravity": 1, "temperature": 2, "radiation": 3,
	   "ironium_conc": 1, "boranium_conc": 2, "germanium_conc": 3}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, int64(3), w.Seq())
}

func TestImportIsAllOrNothing(t *testing.T) {
	cases := []struct {
		name string
		ents string
		msg  string
	}{
		{"dangling owner", `{"pk": 0, "type": "ship", "x": 1, "y": 1, "owner_id": 9}`, "'owner_id' is not an existing entity."},
		{"owner of wrong type", `{"pk": 0, "type": "ship", "x": 1, "y": 1, "owner_id": 0}`, "'owner_id' cannot point to an entity of this type."},
		{"missing field", `{"pk": 0, "type": "ship", "x": 1}`, "'y' is required."},
		{"duplicate pk", `{"pk": 0, "type": "ship", "x": 1, "y": 1}, {"pk": 0, "type": "ship", "x": 2, "y": 2}`, "'pk' is already in use."},
		{"unknown type", `{"pk": 0, "type": "comet"}`, "'type' is not a known entity type."},
		{"order actor not ship", humans + `, {"pk": 1, "type": "movement_order", "actor_id": 0, "seq": 0, "x_t": 1, "y_t": 1, "warp": 1}`, "The acting object must be a ship."},
		{"self target", `{"pk": 0, "type": "ship", "x": 1, "y": 1}, {"pk": 1, "type": "movement_order", "actor_id": 0, "seq": 0, "target_id": 0, "warp": 1}`, "A ship cannot target itself for a movement order."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := New(WorldConfig{})
			snap := snapshotOf(t, `{"turn": 1, "width": 10, "seq": 0, "entities": [`+tc.ents+`]}`)
			err := w.Import(snap)
			requireValidation(t, err, tc.msg)
			assert.Zero(t, w.Len())

			_, _, err = New(WorldConfig{}).Generate(context.Background(), snap, nil)
			requireValidation(t, err, tc.msg)
		})
	}
}

func TestRegisterAllocatesAndNeverReuses(t *testing.T) {
	w := New(WorldConfig{})
	require.NoError(t, w.Import(protocol.Snapshot{Turn: 1, Width: 10, Seq: 5}))

	s := modelpkg.NewShip()
	s.Position = modelpkg.Position{X: 1, Y: 2}
	require.NoError(t, w.Register(s))
	assert.Equal(t, int64(5), s.Meta().PK)
	assert.Equal(t, int64(6), w.Seq())

	got, ok := w.Get(components.Position, 5)
	require.True(t, ok)
	assert.Same(t, s, got)

	w.Unregister(s)
	assert.Equal(t, modelpkg.NoPK, s.Meta().PK)
	_, ok = w.Lookup(5)
	assert.False(t, ok)
	assert.Empty(t, w.All(components.Position))

	e, err := w.RegisterRecord(schema.Record{"pk": int64(20), "type": "ship", "x": 0, "y": 0})
	require.NoError(t, err)
	assert.Equal(t, int64(20), e.Meta().PK)
	assert.Equal(t, int64(21), w.Seq())

	e, err = w.RegisterRecord(schema.Record{"type": "ship", "x": 0, "y": 0})
	require.NoError(t, err)
	assert.Equal(t, int64(21), e.Meta().PK)
}

func TestRegisterRejectsInvalid(t *testing.T) {
	w := New(WorldConfig{})
	s := modelpkg.NewShip()
	s.Ownership.OwnerID = modelpkg.Int(3)
	err := w.Register(s)
	requireValidation(t, err, "'owner_id' is not an existing entity.")
	assert.Equal(t, modelpkg.NoPK, s.Meta().PK)
	assert.Zero(t, w.Seq())
}

func TestDisplay(t *testing.T) {
	w := New(WorldConfig{})
	require.NoError(t, w.Import(snapshotOf(t, `{"turn": 1, "width": 10, "seq": 0, "entities": [`+humans+`,
	  {"pk": 1, "type": "planet", "x": 5, "y": 5, "gravity": 35, "temperature": 62, "radiation": 50,
	   "ironium_conc": 1, "boranium_conc": 2, "germanium_conc": 3}
	]}`)))

	got, err := w.Display(components.TypePlanet)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0.536g", got[0]["gravity"])
	assert.Equal(t, "48°C", got[0]["temperature"])
	assert.Equal(t, "50mR", got[0]["radiation"])

	all, err := w.Display("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

type memTurnLogger struct{ entries []TurnLogEntry }

func (m *memTurnLogger) WriteTurn(e TurnLogEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func TestTurnLoggerReceivesEntry(t *testing.T) {
	w := New(WorldConfig{})
	tl := &memTurnLogger{}
	w.SetTurnLogger(tl)
	cmds := commandsOf(t, `{"0": [{"action": "delete", "actor_id": 1, "seq": 0}]}`)
	_, rep := generate(t, w, snapshotOf(t, `{"turn": 4, "width": 10, "seq": 2, "entities": [`+humans+`,
	  {"pk": 1, "type": "ship", "x": 1, "y": 1, "owner_id": 0}]}`), cmds)

	require.Len(t, tl.entries, 1)
	e := tl.entries[0]
	assert.Equal(t, int64(5), e.Turn)
	assert.Equal(t, rep.Digest, e.Digest)
	assert.Equal(t, 1, e.Dropped)

	b, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"commands":{"0":[`)
}

func TestConfigDefaults(t *testing.T) {
	cfg := New(WorldConfig{}).Config()
	assert.Equal(t, 1000, cfg.Substeps)
	assert.Equal(t, int64(10), cfg.Production.MinesPerPop)
}
