// Package indexdb keeps a queryable SQLite index of generated turns next to
// the snapshot files, which remain the source of truth.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jbradberry/universe/internal/sim/tuning"
)

var ErrClosed = errors.New("indexdb: closed")

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

// TurnRow is one generated turn.
type TurnRow struct {
	Turn       int64
	RunID      string
	Digest     string
	Entities   int
	Applied    int
	Dropped    int
	Fulfilled  int
	Path       string
	RecordedAt string
}

type reqKind int

const (
	reqTurn reqKind = iota + 1
	reqLookup
)

type lookupReply struct {
	row TurnRow
	ok  bool
	err error
}

type req struct {
	kind reqKind

	turn   TurnRow
	lookup int64
	reply  chan lookupReply
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 1024),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS config (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS turns (
			turn INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL,
			digest TEXT NOT NULL,
			entities INTEGER NOT NULL,
			applied INTEGER NOT NULL,
			dropped INTEGER NOT NULL,
			fulfilled INTEGER NOT NULL,
			path TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_turns_run ON turns(run_id, turn);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains queued writes and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordTurn queues row. A turn already in the index is replaced.
func (s *SQLiteIndex) RecordTurn(row TurnRow) {
	if s == nil || s.closed.Load() {
		return
	}
	if row.RecordedAt == "" {
		row.RecordedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	select {
	case s.ch <- req{kind: reqTurn, turn: row}:
	default:
		// Dropped if the writer falls behind; the turn log still has it.
	}
}

// LookupTurn returns the indexed row for turn, seeing every write queued
// before it.
func (s *SQLiteIndex) LookupTurn(ctx context.Context, turn int64) (TurnRow, bool, error) {
	if s == nil || s.closed.Load() {
		return TurnRow{}, false, ErrClosed
	}
	reply := make(chan lookupReply, 1)
	select {
	case s.ch <- req{kind: reqLookup, lookup: turn, reply: reply}:
	case <-ctx.Done():
		return TurnRow{}, false, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.row, r.ok, r.err
	case <-ctx.Done():
		return TurnRow{}, false, ctx.Err()
	}
}

// UpsertTuning stores the tuning values a run applied, keyed by digest. It
// writes outside the queue, so call it before queuing turns.
func (s *SQLiteIndex) UpsertTuning(tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO config(name,digest,json,updated_at) VALUES(?,?,?,?)`,
		"tuning", hex.EncodeToString(sum[:]), string(b), now); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTurn, _ := s.db.Prepare(`INSERT OR REPLACE INTO turns(turn,run_id,digest,entities,applied,dropped,fulfilled,path,recorded_at) VALUES(?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertTurn != nil {
			_ = insertTurn.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		switch r.kind {
		case reqTurn:
			begin()
			if tx == nil || insertTurn == nil {
				continue
			}
			t := r.turn
			if _, err := tx.Stmt(insertTurn).Exec(
				t.Turn, t.RunID, t.Digest, t.Entities, t.Applied, t.Dropped, t.Fulfilled, t.Path, t.RecordedAt,
			); err != nil {
				rollback()
				continue
			}
			opCount++
			if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
				commit()
			}

		case reqLookup:
			commit()
			row, ok, err := queryTurn(ctx, s.db, r.lookup)
			r.reply <- lookupReply{row: row, ok: ok, err: err}
		}
	}

	commit()
}

func queryTurn(ctx context.Context, db *sql.DB, turn int64) (TurnRow, bool, error) {
	var row TurnRow
	err := db.QueryRowContext(ctx,
		`SELECT turn,run_id,digest,entities,applied,dropped,fulfilled,path,recorded_at FROM turns WHERE turn=?`, turn,
	).Scan(&row.Turn, &row.RunID, &row.Digest, &row.Entities, &row.Applied, &row.Dropped, &row.Fulfilled, &row.Path, &row.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return TurnRow{}, false, nil
	}
	if err != nil {
		return TurnRow{}, false, err
	}
	return row, true, nil
}
