package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/jbradberry/universe/internal/sim/world"
)

const bucketLayout = "2006-01-02-15"

// JSONLZstdWriter appends JSON lines to zstd files named
// <prefix>-YYYY-MM-DD-HH.jsonl.zst, starting a new file every rotate.
// A zero rotate writes a single <prefix>.jsonl.zst.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	rotate  time.Duration
	now     func() time.Time

	mu     sync.Mutex
	bucket string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string, rotate time.Duration) *JSONLZstdWriter {
	if rotate < 0 {
		rotate = 0
	}
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		rotate:  rotate,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	bucket := w.bucketFor(w.now().UTC())
	if bucket != w.bucket || w.w == nil {
		if err := w.rotateLocked(bucket); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// Path is the file the next write at t lands in.
func (w *JSONLZstdWriter) Path(t time.Time) string {
	return w.pathFor(w.bucketFor(t.UTC()))
}

func (w *JSONLZstdWriter) bucketFor(t time.Time) string {
	if w.rotate == 0 {
		return ""
	}
	return t.Truncate(w.rotate).Format(bucketLayout)
}

func (w *JSONLZstdWriter) rotateLocked(bucket string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathFor(bucket)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.bucket = bucket
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *JSONLZstdWriter) pathFor(bucket string) string {
	if bucket == "" {
		return filepath.Join(w.baseDir, w.prefix+".jsonl.zst")
	}
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, bucket))
}

// TurnLogger writes one JSONL entry per generated turn (compressed).
type TurnLogger struct{ w *JSONLZstdWriter }

func NewTurnLogger(dir string, rotate time.Duration) *TurnLogger {
	return &TurnLogger{w: NewJSONLZstdWriter(dir, "turns", rotate)}
}

func (l *TurnLogger) WriteTurn(e world.TurnLogEntry) error { return l.w.Write(e) }
func (l *TurnLogger) Path(t time.Time) string             { return l.w.Path(t) }
func (l *TurnLogger) Close() error                        { return l.w.Close() }
