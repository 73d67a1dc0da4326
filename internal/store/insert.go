package store

import (
	"fmt"
	"sort"

	"github.com/ftahirops/sentinel/internal/model"
)

// InsertSystemSnapshot appends one system_snapshots row (spec.md §4.4).
// Append-only: inserting the same snapshot twice yields two rows.
func (s *Store) InsertSystemSnapshot(snap *model.SystemSnapshot) error {
	var gpuUtil, gpuTemp *float64
	var gpuMemUsed *uint64
	if snap.GPU != nil {
		u, t, m := snap.GPU.UtilizationPct, snap.GPU.TemperatureC, snap.GPU.MemoryUsedBytes
		gpuUtil, gpuTemp, gpuMemUsed = &u, &t, &m
	}

	_, err := s.db.Exec(
		`INSERT INTO system_snapshots
			(ts, cpu_global, mem_used, mem_total, swap_used, swap_total, load_1, load_5, load_15, gpu_util, gpu_mem_used, gpu_temp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Timestamp.UnixMilli(), snap.GlobalCPUUsage, snap.UsedMemory, snap.TotalMemory,
		snap.UsedSwap, snap.TotalSwap, snap.Load.Load1, snap.Load.Load5, snap.Load.Load15,
		gpuUtil, gpuMemUsed, gpuTemp,
	)
	if err != nil {
		return fmt.Errorf("insert system snapshot: %w", err)
	}
	s.insertsSinceCleanup++
	return nil
}

// InsertProcessSnapshots persists the union of the top TopCPUSnapshotCount
// processes by CPU and top TopMemSnapshotCount by memory, deduplicated by
// pid, in a single transaction (spec.md §4.4 Process-snapshot sampling
// policy).
func (s *Store) InsertProcessSnapshots(ts int64, procs []model.ProcessInfo) error {
	selected := selectTopProcesses(procs, TopCPUSnapshotCount, TopMemSnapshotCount)
	if len(selected) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin process snapshot tx: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO process_snapshots (ts, pid, name, cpu, mem_bytes, disk_read, disk_write, status, user)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare process snapshot insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range selected {
		if _, err := stmt.Exec(ts, p.PID, p.Name, p.CPUUsage, p.MemoryBytes, p.DiskReadBytes, p.DiskWriteBytes, p.Status.String(), p.User); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert process snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit process snapshot tx: %w", err)
	}
	s.insertsSinceCleanup += len(selected)
	return nil
}

// selectTopProcesses unions the top-by-CPU and top-by-memory processes,
// deduplicated by pid.
func selectTopProcesses(procs []model.ProcessInfo, topCPU, topMem int) []model.ProcessInfo {
	byCPU := append([]model.ProcessInfo(nil), procs...)
	sort.Slice(byCPU, func(i, j int) bool { return byCPU[i].CPUUsage > byCPU[j].CPUUsage })
	if len(byCPU) > topCPU {
		byCPU = byCPU[:topCPU]
	}

	byMem := append([]model.ProcessInfo(nil), procs...)
	sort.Slice(byMem, func(i, j int) bool { return byMem[i].MemoryBytes > byMem[j].MemoryBytes })
	if len(byMem) > topMem {
		byMem = byMem[:topMem]
	}

	seen := make(map[uint32]bool, len(byCPU)+len(byMem))
	out := make([]model.ProcessInfo, 0, len(byCPU)+len(byMem))
	for _, group := range [][]model.ProcessInfo{byCPU, byMem} {
		for _, p := range group {
			if seen[p.PID] {
				continue
			}
			seen[p.PID] = true
			out = append(out, p)
		}
	}
	return out
}

// InsertEvent appends one events row and returns its assigned id.
func (s *Store) InsertEvent(rec model.EventRecord) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO events (ts, kind, pid, name, detail, severity) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.TimestampMs, rec.Kind.String(), rec.PID, rec.Name, rec.Detail, severityOrNil(rec.Severity),
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	s.insertsSinceCleanup++
	return res.LastInsertId()
}

func severityOrNil(sev *model.Severity) *string {
	if sev == nil {
		return nil
	}
	s := sev.String()
	return &s
}

// InsertAlert records an Alert as an events row with kind "alert",
// preserving the ordering guarantee that alerts for tick N are persisted
// before tick N+1's (spec.md §5).
func (s *Store) InsertAlert(a model.Alert) (int64, error) {
	var pid *uint32
	if a.PID != 0 {
		p := a.PID
		pid = &p
	}
	var name *string
	if a.ProcessName != "" {
		n := a.ProcessName
		name = &n
	}
	detail := fmt.Sprintf("%s (value=%.2f threshold=%.2f)", a.Message, a.Value, a.Threshold)
	sev := a.Severity
	return s.InsertEvent(model.EventRecord{
		TimestampMs: a.Timestamp.UnixMilli(),
		Kind:        model.EventAlert,
		PID:         pid,
		Name:        name,
		Detail:      &detail,
		Severity:    &sev,
	})
}

// InsertSockets persists the current listener set in one transaction
// (spec.md §4.4 Concurrent access discipline).
func (s *Store) InsertSockets(socks []model.SocketRecord) error {
	if len(socks) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin socket tx: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO network_sockets (ts, pid, name, protocol, local_addr, local_port, remote_addr, remote_port, state)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare socket insert: %w", err)
	}
	defer stmt.Close()

	for _, sock := range socks {
		if _, err := stmt.Exec(sock.TimestampMs, sock.PID, sock.Name, sock.Protocol, sock.LocalAddr, sock.LocalPort, sock.RemoteAddr, sock.RemotePort, sock.State); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert socket: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit socket tx: %w", err)
	}
	s.insertsSinceCleanup += len(socks)
	return nil
}
