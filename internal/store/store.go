// Package store implements the Event Store (C4): a persistent,
// retention-bounded, append-only SQLite database of system/process
// snapshots, lifecycle events, and socket observations, plus the
// queries the Diagnostic Engine (C5) needs. Grounded on the teacher's
// per-tick recorder (engine/recorder.go wrote JSON lines); upgraded to
// a real embedded SQL engine because spec.md §4.4/§6 requires indexed,
// queryable history and retention purge that a line-oriented log cannot
// serve efficiently.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// CleanupInterval is how many inserts elapse between retention purges
// (spec.md §5 Backpressure / §4.4 Retention).
const CleanupInterval = 100

// TopCPUSnapshotCount and TopMemSnapshotCount bound the per-tick
// process_snapshots insert regardless of live process count (spec.md
// §4.4 Process-snapshot sampling policy).
const (
	TopCPUSnapshotCount = 50
	TopMemSnapshotCount = 30
)

const schema = `
CREATE TABLE IF NOT EXISTS system_snapshots (
	ts INTEGER NOT NULL,
	cpu_global REAL NOT NULL,
	mem_used INTEGER NOT NULL,
	mem_total INTEGER NOT NULL,
	swap_used INTEGER NOT NULL,
	swap_total INTEGER NOT NULL,
	load_1 REAL NOT NULL,
	load_5 REAL NOT NULL,
	load_15 REAL NOT NULL,
	gpu_util REAL,
	gpu_mem_used INTEGER,
	gpu_temp REAL
);
CREATE INDEX IF NOT EXISTS idx_system_snapshots_ts ON system_snapshots(ts);

CREATE TABLE IF NOT EXISTS process_snapshots (
	ts INTEGER NOT NULL,
	pid INTEGER NOT NULL,
	name TEXT NOT NULL,
	cpu REAL NOT NULL,
	mem_bytes INTEGER NOT NULL,
	disk_read INTEGER NOT NULL,
	disk_write INTEGER NOT NULL,
	status TEXT NOT NULL,
	user TEXT
);
CREATE INDEX IF NOT EXISTS idx_process_snapshots_ts ON process_snapshots(ts);
CREATE INDEX IF NOT EXISTS idx_process_snapshots_pid_ts ON process_snapshots(pid, ts);

CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts INTEGER NOT NULL,
	kind TEXT NOT NULL,
	pid INTEGER,
	name TEXT,
	detail TEXT,
	severity TEXT
);
CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
CREATE INDEX IF NOT EXISTS idx_events_kind_ts ON events(kind, ts);

CREATE TABLE IF NOT EXISTS network_sockets (
	ts INTEGER NOT NULL,
	pid INTEGER,
	name TEXT,
	protocol TEXT NOT NULL,
	local_addr TEXT NOT NULL,
	local_port INTEGER NOT NULL,
	remote_addr TEXT,
	remote_port INTEGER,
	state TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_network_sockets_ts ON network_sockets(ts);
CREATE INDEX IF NOT EXISTS idx_network_sockets_port_ts ON network_sockets(local_port, ts);
`

// Store owns the database handle and the previous-tick diff sets used
// for lifecycle and listener diffing (spec.md §3 ownership rule: C4
// exclusively owns these).
type Store struct {
	db *sql.DB

	insertsSinceCleanup int
	retention           time.Duration

	prevPIDs      map[uint32]bool
	prevPIDNames  map[uint32]string
	prevListeners map[listenerKey]bool

	seenFirstTick         bool
	seenFirstListenerTick bool
}

type listenerKey struct {
	protocol string
	port     int
	pid      uint32
}

// Open opens (creating if absent) the sqlite database at path, enables
// WAL mode so readers (the diagnostics engine, an external metrics
// scraper) are never blocked by the sampling task's writes (spec.md
// §4.4 Concurrent access discipline), and creates the schema.
func Open(path string, retention time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: serialize writers, WAL allows concurrent readers

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{
		db:            db,
		retention:     retention,
		prevPIDs:      make(map[uint32]bool),
		prevPIDNames:  make(map[uint32]string),
		prevListeners: make(map[listenerKey]bool),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
