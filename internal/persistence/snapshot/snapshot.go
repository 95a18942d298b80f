// Package snapshot reads and writes universe snapshot and command files.
// A ".zst" suffix selects zstd compression.
package snapshot

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/jbradberry/universe/internal/protocol"
)

const compressedExt = ".zst"

func Compressed(path string) bool { return strings.HasSuffix(path, compressedExt) }

func ReadSnapshot(path string) (protocol.Snapshot, error) {
	b, err := readFile(path)
	if err != nil {
		return protocol.Snapshot{}, err
	}
	snap, err := protocol.DecodeSnapshot(b)
	if err != nil {
		return protocol.Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

func WriteSnapshot(path string, snap protocol.Snapshot) error {
	b, err := protocol.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	return writeFile(path, b)
}

// ReadCommands loads a command batch. An empty path is an empty batch.
// rejected counts commands that failed the command schema.
func ReadCommands(path string) (protocol.Batch, int, error) {
	if path == "" {
		return protocol.Batch{}, 0, nil
	}
	b, err := readFile(path)
	if err != nil {
		return nil, 0, err
	}
	batch, rejected, err := protocol.DecodeCommands(b)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	return batch, rejected, nil
}

func WriteCommands(path string, batch protocol.Batch) error {
	b, err := protocol.EncodeCommands(batch)
	if err != nil {
		return err
	}
	return writeFile(path, b)
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = bufio.NewReaderSize(f, 256*1024)
	if Compressed(path) {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		r = dec
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

// writeFile writes through a temp file in the same directory and renames it
// into place.
func writeFile(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := encodeTo(tmp, b, Compressed(path)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func encodeTo(w io.Writer, b []byte, compress bool) error {
	bw := bufio.NewWriterSize(w, 256*1024)
	if !compress {
		if _, err := bw.Write(b); err != nil {
			return err
		}
		return bw.Flush()
	}
	enc, err := zstd.NewWriter(bw, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if _, err := enc.Write(b); err != nil {
		_ = enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return bw.Flush()
}
