// Package cachedb keeps a small local read-model in SQLite: the last world
// geometry and item catalog the client saw, plus an index of slice writes.
// It lets the client boot the map and quick battle while the authority is
// unreachable. The zstd journal stays the full record.
package cachedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
)

type DB struct {
	db *sql.DB

	// mu guards ch against a send after Close.
	mu     sync.RWMutex
	ch     chan req
	closed bool
	wg     sync.WaitGroup
	once   sync.Once

	dropped atomic.Uint64
}

type reqKind int

const (
	reqSliceWrite reqKind = iota + 1
	reqCatalog
	reqBarrier
)

type req struct {
	kind reqKind

	write   sliceRow
	catalog protocol.Options
	done    chan struct{}
}

type sliceRow struct {
	At        time.Time
	Identity  string
	Slice     session.Slice
	Source    session.Source
	RequestID string
}

// SliceWrite is one indexed write as read back by Writes.
type SliceWrite struct {
	At        time.Time
	Identity  string
	Slice     session.Slice
	Source    session.Source
	RequestID string
}

func OpenSQLite(path string) (*DB, error) {
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

	s := &DB{
		db: db,
		ch: make(chan req, 4096),
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
		`CREATE TABLE IF NOT EXISTS world (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			json TEXT NOT NULL,
			saved_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalog (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			items INTEGER NOT NULL,
			json TEXT NOT NULL,
			saved_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS slice_writes (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			identity TEXT NOT NULL,
			slice TEXT NOT NULL,
			source TEXT NOT NULL,
			request_id TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_slice_writes_identity ON slice_writes(identity, seq);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Dropped counts writes discarded because the writer fell behind.
func (s *DB) Dropped() uint64 { return s.dropped.Load() }

// SliceReplaced implements session.Observer. Writes are queued and dropped
// if the queue is full; the journal remains the source of truth.
func (s *DB) SliceReplaced(identity string, slice session.Slice, origin session.Origin, value any) {
	if s == nil {
		return
	}
	s.enqueue(req{kind: reqSliceWrite, write: sliceRow{
		At:        time.Now().UTC(),
		Identity:  identity,
		Slice:     slice,
		Source:    origin.Source,
		RequestID: origin.RequestID,
	}})
	// A local catalog write came from this cache; saving it again is a no-op.
	if c, ok := value.(protocol.Options); ok && slice == session.SliceCatalog && origin.Source != session.SourceLocal {
		s.enqueue(req{kind: reqCatalog, catalog: c})
	}
}

func (s *DB) enqueue(r req) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return
	}
	select {
	case s.ch <- r:
	default:
		s.dropped.Add(1)
	}
}

// Sync blocks until every write queued before it has been committed.
func (s *DB) Sync(ctx context.Context) error {
	done := make(chan struct{})
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return errors.New("cachedb closed")
	}
	select {
	case s.ch <- req{kind: reqBarrier, done: done}:
	case <-ctx.Done():
		s.mu.RUnlock()
		return ctx.Err()
	}
	s.mu.RUnlock()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SaveWorld stores w as the single cached world.
func (s *DB) SaveWorld(w protocol.World) error {
	b, err := json.Marshal(w)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO world(id,width,height,json,saved_at) VALUES(1,?,?,?,?)`,
		w.Width, w.Height, string(b), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// LoadWorld returns the cached world; ok is false when none was saved.
func (s *DB) LoadWorld() (w protocol.World, ok bool, err error) {
	var raw string
	err = s.db.QueryRow(`SELECT json FROM world WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return w, false, nil
	}
	if err != nil {
		return w, false, err
	}
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return w, false, err
	}
	return w, true, nil
}

func (s *DB) LoadCatalog() (c protocol.Options, ok bool, err error) {
	var raw string
	err = s.db.QueryRow(`SELECT json FROM catalog WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return c, false, nil
	}
	if err != nil {
		return c, false, err
	}
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return c, false, err
	}
	return c, true, nil
}

// Writes returns the newest indexed writes for identity, newest first.
func (s *DB) Writes(ctx context.Context, identity string, limit int) ([]SliceWrite, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, identity, slice, source, COALESCE(request_id,'') FROM slice_writes WHERE identity = ? ORDER BY seq DESC LIMIT ?`,
		identity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SliceWrite
	for rows.Next() {
		var (
			w           SliceWrite
			at, sl, src string
		)
		if err := rows.Scan(&at, &w.Identity, &sl, &src, &w.RequestID); err != nil {
			return nil, err
		}
		w.At, _ = time.Parse(time.RFC3339Nano, at)
		w.Slice, w.Source = session.Slice(sl), session.Source(src)
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *DB) loop() {
	ctx := context.Background()

	insertWrite, _ := s.db.Prepare(`INSERT INTO slice_writes(at,identity,slice,source,request_id) VALUES(?,?,?,?,?)`)
	upsertCatalog, _ := s.db.Prepare(`INSERT OR REPLACE INTO catalog(id,items,json,saved_at) VALUES(1,?,?,?)`)
	defer func() {
		if insertWrite != nil {
			_ = insertWrite.Close()
		}
		if upsertCatalog != nil {
			_ = upsertCatalog.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = time.Second
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
		if r.kind == reqBarrier {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqSliceWrite:
			if insertWrite == nil {
				break
			}
			w := r.write
			if _, err := tx.Stmt(insertWrite).Exec(
				w.At.Format(time.RFC3339Nano),
				w.Identity,
				string(w.Slice),
				string(w.Source),
				w.RequestID,
			); err != nil {
				rollback()
				continue
			}
			opCount++
		case reqCatalog:
			if upsertCatalog == nil {
				break
			}
			b, err := json.Marshal(r.catalog)
			if err != nil {
				continue
			}
			if _, err := tx.Stmt(upsertCatalog).Exec(len(r.catalog.Items), string(b), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		// The single connection is shared with SaveWorld and the readers, so
		// an idle writer never keeps a transaction open.
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}
	commit()
}
