package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbradberry/universe/internal/protocol"
	"github.com/jbradberry/universe/internal/sim/schema"
)

func sample() protocol.Snapshot {
	return protocol.Snapshot{
		Turn:  2500,
		Width: 1000,
		Seq:   2,
		Entities: []schema.Record{
			{"pk": int64(0), "type": "ship", "x": int64(480), "y": int64(235)},
			{"pk": int64(1), "type": "movement_order", "actor_id": int64(0), "seq": int64(0), "warp": int64(10), "target_id": int64(0)},
		},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	for _, name := range []string{"turn.json", "turn.json.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			require.NoError(t, WriteSnapshot(path, sample()))

			got, err := ReadSnapshot(path)
			require.NoError(t, err)
			assert.Equal(t, int64(2500), got.Turn)
			assert.Equal(t, int64(2), got.Seq)
			require.Len(t, got.Entities, 2)
			x, ok := schema.AsInt(got.Entities[0]["x"])
			require.True(t, ok)
			assert.Equal(t, int64(480), x)

			entries, err := os.ReadDir(filepath.Dir(path))
			require.NoError(t, err)
			assert.Len(t, entries, 1)
		})
	}
}

func TestCompressedFileIsNotPlainJSON(t *testing.T) {
	dir := t.TempDir()
	plain, packed := filepath.Join(dir, "a.json"), filepath.Join(dir, "a.json.zst")
	require.NoError(t, WriteSnapshot(plain, sample()))
	require.NoError(t, WriteSnapshot(packed, sample()))

	raw, err := os.ReadFile(packed)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, raw[:4])

	raw, err = os.ReadFile(plain)
	require.NoError(t, err)
	assert.Equal(t, byte('{'), raw[0])
}

func TestReadSnapshotSchemaError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"turn": 1}`), 0o644))

	_, err := ReadSnapshot(path)
	var se *protocol.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, err.Error(), path)
}

func TestReadSnapshotMissing(t *testing.T) {
	_, err := ReadSnapshot(filepath.Join(t.TempDir(), "nope.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCommandsRoundTrip(t *testing.T) {
	seq, warp, x, y := int64(0), int64(7), int64(10), int64(20)
	batch := protocol.Batch{3: {{Action: protocol.ActionCreate, ActorID: 4, Seq: &seq, Warp: &warp, XT: &x, YT: &y}}}
	path := filepath.Join(t.TempDir(), "commands.json.zst")
	require.NoError(t, WriteCommands(path, batch))

	got, rejected, err := ReadCommands(path)
	require.NoError(t, err)
	assert.Zero(t, rejected)
	assert.Equal(t, batch, got)
}

func TestReadCommandsEmptyPath(t *testing.T) {
	got, rejected, err := ReadCommands("")
	require.NoError(t, err)
	assert.Zero(t, rejected)
	assert.Zero(t, got.Len())
}

func TestReadCommandsCountsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"1": [{"action": "warp", "actor_id": 1}]}`), 0o644))

	got, rejected, err := ReadCommands(path)
	require.NoError(t, err)
	assert.Equal(t, 1, rejected)
	assert.Zero(t, got.Len())
}
