package store

import (
	"database/sql"
	"fmt"

	"github.com/ftahirops/sentinel/internal/model"
)

// SystemSnapshotRow is one row of the system_snapshots table, as
// returned by the history queries (a narrower projection than
// model.SystemSnapshot, which also carries per-core data never
// persisted per spec.md §4.4's column list).
type SystemSnapshotRow struct {
	TimestampMs int64
	CPUGlobal   float64
	MemUsed     uint64
	MemTotal    uint64
	SwapUsed    uint64
	SwapTotal   uint64
	Load1       float64
	Load5       float64
	Load15      float64
	GPUUtil     *float64
	GPUMemUsed  *uint64
	GPUTemp     *float64
}

// ProcessSnapshotRow is one row of the process_snapshots table.
type ProcessSnapshotRow struct {
	TimestampMs int64
	PID         uint32
	Name        string
	CPU         float64
	MemBytes    uint64
	DiskRead    uint64
	DiskWrite   uint64
	Status      string
	User        string
}

// QuerySystemHistory returns system snapshots at or after sinceMs, in
// chronological order (spec.md §4.4 query_system_history).
func (s *Store) QuerySystemHistory(sinceMs int64) ([]SystemSnapshotRow, error) {
	rows, err := s.db.Query(
		`SELECT ts, cpu_global, mem_used, mem_total, swap_used, swap_total, load_1, load_5, load_15, gpu_util, gpu_mem_used, gpu_temp
		 FROM system_snapshots WHERE ts >= ? ORDER BY ts ASC`, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("query system history: %w", err)
	}
	defer rows.Close()

	var out []SystemSnapshotRow
	for rows.Next() {
		var r SystemSnapshotRow
		if err := rows.Scan(&r.TimestampMs, &r.CPUGlobal, &r.MemUsed, &r.MemTotal, &r.SwapUsed, &r.SwapTotal, &r.Load1, &r.Load5, &r.Load15, &r.GPUUtil, &r.GPUMemUsed, &r.GPUTemp); err != nil {
			return nil, fmt.Errorf("scan system history row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// QueryProcessHistory returns snapshots for one pid at or after sinceMs,
// chronologically (spec.md §4.4 query_process_history).
func (s *Store) QueryProcessHistory(pid uint32, sinceMs int64) ([]ProcessSnapshotRow, error) {
	rows, err := s.db.Query(
		`SELECT ts, pid, name, cpu, mem_bytes, disk_read, disk_write, status, user
		 FROM process_snapshots WHERE pid = ? AND ts >= ? ORDER BY ts ASC`, pid, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("query process history: %w", err)
	}
	defer rows.Close()

	var out []ProcessSnapshotRow
	for rows.Next() {
		var r ProcessSnapshotRow
		if err := rows.Scan(&r.TimestampMs, &r.PID, &r.Name, &r.CPU, &r.MemBytes, &r.DiskRead, &r.DiskWrite, &r.Status, &r.User); err != nil {
			return nil, fmt.Errorf("scan process history row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// QueryEventsSince returns events at or after sinceMs, reverse-
// chronological (spec.md §4.4 query_events_since).
func (s *Store) QueryEventsSince(sinceMs int64) ([]model.EventRecord, error) {
	return s.queryEvents(`SELECT id, ts, kind, pid, name, detail, severity FROM events WHERE ts >= ? ORDER BY ts DESC`, sinceMs)
}

// QueryEventsByKind is QueryEventsSince filtered to one kind (spec.md
// §4.4 query_events_by_kind).
func (s *Store) QueryEventsByKind(kind model.EventKind, sinceMs int64) ([]model.EventRecord, error) {
	return s.queryEvents(`SELECT id, ts, kind, pid, name, detail, severity FROM events WHERE kind = ? AND ts >= ? ORDER BY ts DESC`, kind.String(), sinceMs)
}

func (s *Store) queryEvents(query string, args ...any) ([]model.EventRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []model.EventRecord
	for rows.Next() {
		var rec model.EventRecord
		var kindStr string
		var severity *string
		if err := rows.Scan(&rec.ID, &rec.TimestampMs, &kindStr, &rec.PID, &rec.Name, &rec.Detail, &severity); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		if kind, ok := model.ParseEventKind(kindStr); ok {
			rec.Kind = kind
		}
		if severity != nil {
			sev := parseSeverity(*severity)
			rec.Severity = &sev
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func parseSeverity(s string) model.Severity {
	switch s {
	case "Info":
		return model.SeverityInfo
	case "Warning":
		return model.SeverityWarning
	case "Critical":
		return model.SeverityCritical
	case "Danger":
		return model.SeverityDanger
	}
	return model.SeverityInfo
}

// QueryCurrentListeners returns the LISTEN rows from the most recent
// socket snapshot timestamp (spec.md §4.4 query_current_listeners).
func (s *Store) QueryCurrentListeners() ([]model.SocketRecord, error) {
	var latestTs sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(ts) FROM network_sockets WHERE state = 'LISTEN'`).Scan(&latestTs); err != nil {
		return nil, fmt.Errorf("query latest listener ts: %w", err)
	}
	if !latestTs.Valid {
		return nil, nil
	}

	rows, err := s.db.Query(
		`SELECT ts, pid, name, protocol, local_addr, local_port, remote_addr, remote_port, state
		 FROM network_sockets WHERE ts = ? AND state = 'LISTEN'`, latestTs.Int64)
	if err != nil {
		return nil, fmt.Errorf("query current listeners: %w", err)
	}
	defer rows.Close()
	return scanSockets(rows)
}

// QueryPortHistory returns socket rows for one local port at or after
// sinceMs (spec.md §4.4 query_port_history).
func (s *Store) QueryPortHistory(port int, sinceMs int64) ([]model.SocketRecord, error) {
	rows, err := s.db.Query(
		`SELECT ts, pid, name, protocol, local_addr, local_port, remote_addr, remote_port, state
		 FROM network_sockets WHERE local_port = ? AND ts >= ? ORDER BY ts ASC`, port, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("query port history: %w", err)
	}
	defer rows.Close()
	return scanSockets(rows)
}

func scanSockets(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]model.SocketRecord, error) {
	var out []model.SocketRecord
	for rows.Next() {
		var r model.SocketRecord
		if err := rows.Scan(&r.TimestampMs, &r.PID, &r.Name, &r.Protocol, &r.LocalAddr, &r.LocalPort, &r.RemoteAddr, &r.RemotePort, &r.State); err != nil {
			return nil, fmt.Errorf("scan socket row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// EventCounts returns a count per event kind over the trailing window
// (spec.md §4.4 event_counts).
func (s *Store) EventCounts(sinceMs int64) (map[string]int, error) {
	rows, err := s.db.Query(`SELECT kind, COUNT(*) FROM events WHERE ts >= ? GROUP BY kind`, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("event counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan event count row: %w", err)
		}
		out[kind] = count
	}
	return out, rows.Err()
}

// TableStats returns the row count of each table, for operator
// visibility (spec.md §4.4 table_stats).
func (s *Store) TableStats() (map[string]int64, error) {
	tables := []string{"system_snapshots", "process_snapshots", "events", "network_sockets"}
	out := make(map[string]int64, len(tables))
	for _, table := range tables {
		var count int64
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			return nil, fmt.Errorf("table stats %s: %w", table, err)
		}
		out[table] = count
	}
	return out, nil
}

// DBSizeBytes reports the on-disk database size via sqlite's page
// accounting (spec.md §4.4 db_size_bytes).
func (s *Store) DBSizeBytes() (int64, error) {
	var pageCount, pageSize int64
	if err := s.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, fmt.Errorf("page_count: %w", err)
	}
	if err := s.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("page_size: %w", err)
	}
	return pageCount * pageSize, nil
}
