package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbradberry/universe/internal/persistence/indexdb"
	persistlog "github.com/jbradberry/universe/internal/persistence/log"
	"github.com/jbradberry/universe/internal/persistence/snapshot"
	"github.com/jbradberry/universe/internal/sim/schema"
	"github.com/jbradberry/universe/internal/sim/world"
)

const input = `{"turn": 99, "width": 1000, "seq": 2, "entities": [
  {"pk": 0, "type": "species", "name": "Human", "plural_name": "Humans", "growth_rate": 15,
   "gravity_immune": true, "temperature_immune": true, "radiation_immune": true},
  {"pk": 1, "type": "ship", "x": 480, "y": 235, "owner_id": 0}
]}`

const commands = `{"0": [
  {"action": "create", "actor_id": 1, "seq": 0, "x_t": 422, "y_t": 210, "warp": 10},
  {"action": "jump", "actor_id": 1}
]}`

func TestRunWritesEverything(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}
	opts := options{
		snapshot:        write("99.json", input),
		commands:        write("commands.json", commands),
		config:          write("tuning.yaml", "log:\n  level: error\narchive:\n  every_turns: 10\n"),
		out:             filepath.Join(dir, "out", "100.json.zst"),
		logDir:          filepath.Join(dir, "turns"),
		indexDB:         filepath.Join(dir, "index.db"),
		metricsTextfile: filepath.Join(dir, "turn.prom"),
	}
	require.NoError(t, run(context.Background(), opts))

	out, err := snapshot.ReadSnapshot(opts.out)
	require.NoError(t, err)
	assert.Equal(t, int64(100), out.Turn)
	assert.Equal(t, int64(3), out.Seq)
	require.Len(t, out.Entities, 2)
	x, _ := schema.AsInt(out.Entities[1]["x"])
	assert.Equal(t, int64(422), x)

	var entries []world.TurnLogEntry
	require.NoError(t, persistlog.ReadTurns(opts.logDir, func(e world.TurnLogEntry) error {
		entries = append(entries, e)
		return nil
	}))
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Applied)
	assert.Equal(t, 1, entries[0].Commands.Len())

	idx, err := indexdb.OpenSQLite(opts.indexDB)
	require.NoError(t, err)
	row, ok, err := idx.LookupTurn(context.Background(), 100)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entries[0].Digest, row.Digest)
	assert.Equal(t, opts.out, row.Path)
	require.NoError(t, idx.Close())

	_, err = os.Stat(filepath.Join(dir, "out", "archives", "turn_000100", "100.json.zst"))
	assert.NoError(t, err)

	prom, err := os.ReadFile(opts.metricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `universe_commands_total{result="rejected"} 1`)
	assert.Contains(t, string(prom), `universe_commands_total{result="applied"} 1`)
}

func TestRunInvalidSnapshot(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"turn": 1, "width": 10, "seq": 0, "entities": [
	  {"pk": 0, "type": "ship", "x": 1, "y": 1, "owner_id": 5}
	]}`), 0o644))

	err := run(context.Background(), options{snapshot: p, config: writeQuiet(t, dir), out: filepath.Join(dir, "next.json")})
	var ve *schema.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "'owner_id' is not an existing entity.", ve.Message)
	_, statErr := os.Stat(filepath.Join(dir, "next.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func writeQuiet(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "quiet.yaml")
	require.NoError(t, os.WriteFile(p, []byte("log:\n  level: error\n"), 0o644))
	return p
}

func TestRunRejectsProtocolMismatch(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "tuning.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("protocol_version: \"0.9\"\n"), 0o644))

	err := run(context.Background(), options{snapshot: filepath.Join(dir, "missing.json"), config: cfg})
	assert.ErrorContains(t, err, "protocol 0.9")
}
