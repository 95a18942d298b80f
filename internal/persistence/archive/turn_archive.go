package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

type TurnArchiveMeta struct {
	Turn      int64  `json:"turn"`
	RunID     string `json:"run_id"`
	Digest    string `json:"digest"`
	Snapshot  string `json:"snapshot"`
	Entities  int    `json:"entities"`
	CreatedAt string `json:"created_at"`
}

// ArchiveTurnSnapshot copies a milestone snapshot into
// `baseDir/archives/turn_<NNNNNN>/` with a meta.json beside it. A turn is a
// milestone when every > 0 and turn is a multiple of every.
func ArchiveTurnSnapshot(baseDir, snapshotPath string, every int64, meta TurnArchiveMeta) (archivedPath string, archived bool, err error) {
	if every <= 0 || meta.Turn <= 0 || meta.Turn%every != 0 {
		return "", false, nil
	}

	archiveDir := filepath.Join(baseDir, "archives", fmt.Sprintf("turn_%06d", meta.Turn))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta.Snapshot = filepath.Base(dst)
	if meta.CreatedAt == "" {
		meta.CreatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
