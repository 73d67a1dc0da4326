package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ftahirops/sentinel/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentinel.db")
	s, err := Open(path, 24*time.Hour)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertSystemSnapshotAppendOnly(t *testing.T) {
	s := openTestStore(t)
	snap := &model.SystemSnapshot{Timestamp: time.Unix(1_700_000_000, 0), TotalMemory: 16 << 30}

	if err := s.InsertSystemSnapshot(snap); err != nil {
		t.Fatalf("insert 1: %v", err)
	}
	if err := s.InsertSystemSnapshot(snap); err != nil {
		t.Fatalf("insert 2: %v", err)
	}

	stats, err := s.TableStats()
	if err != nil {
		t.Fatalf("table stats: %v", err)
	}
	if stats["system_snapshots"] != 2 {
		t.Fatalf("expected two rows for identical inserts, got %d", stats["system_snapshots"])
	}
}

func TestLifecycleDiff(t *testing.T) {
	s := openTestStore(t)
	t0 := time.Unix(1_700_000_000, 0)

	evs := s.DiffProcessLifecycle(t0, []model.ProcessInfo{{PID: 1, Name: "init"}, {PID: 2, Name: "a"}})
	if len(evs) != 0 {
		t.Fatalf("expected no events on first tick, got %+v", evs)
	}

	evs2 := s.DiffProcessLifecycle(t0.Add(time.Second), []model.ProcessInfo{{PID: 1, Name: "init"}, {PID: 3, Name: "b"}})
	var started, exited int
	for _, e := range evs2 {
		switch e.Kind {
		case model.EventProcessStart:
			started++
			if e.PID == nil || *e.PID != 3 {
				t.Fatalf("expected process_start for pid 3, got %+v", e)
			}
		case model.EventProcessExit:
			exited++
			if e.PID == nil || *e.PID != 2 {
				t.Fatalf("expected process_exit for pid 2, got %+v", e)
			}
		}
	}
	if started != 1 || exited != 1 {
		t.Fatalf("expected exactly one start and one exit, got started=%d exited=%d", started, exited)
	}

	for _, ev := range evs2 {
		if _, err := s.InsertEvent(ev); err != nil {
			t.Fatalf("insert event: %v", err)
		}
	}
	got, err := s.QueryEventsSince(0)
	if err != nil {
		t.Fatalf("query events: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events stored, got %d", len(got))
	}
}

func TestListenerDiffFirstTick(t *testing.T) {
	s := openTestStore(t)
	t0 := time.Unix(1_700_000_000, 0)
	pid := uint32(100)

	listeners := []model.SocketRecord{
		{Protocol: "tcp", LocalPort: 8080, PID: &pid, State: "LISTEN"},
	}

	evs := s.DiffListeners(t0, listeners)
	if len(evs) != 0 {
		t.Fatalf("expected no events on first tick, got %+v", evs)
	}

	pid2 := uint32(200)
	evs2 := s.DiffListeners(t0.Add(time.Second), []model.SocketRecord{
		{Protocol: "tcp", LocalPort: 8080, PID: &pid, State: "LISTEN"},
		{Protocol: "tcp", LocalPort: 9090, PID: &pid2, State: "LISTEN"},
	})
	var binds, releases int
	for _, e := range evs2 {
		switch e.Kind {
		case model.EventPortBind:
			binds++
			if e.PID == nil || *e.PID != pid2 {
				t.Fatalf("expected port_bind for pid %d, got %+v", pid2, e)
			}
		case model.EventPortRelease:
			releases++
		}
	}
	if binds != 1 || releases != 0 {
		t.Fatalf("expected exactly one bind and no releases, got binds=%d releases=%d", binds, releases)
	}
}

func TestCleanupNoopWhenNothingExpired(t *testing.T) {
	s := openTestStore(t)
	snap := &model.SystemSnapshot{Timestamp: time.Now(), TotalMemory: 16 << 30}
	if err := s.InsertSystemSnapshot(snap); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.Cleanup(time.Now()); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	stats, err := s.TableStats()
	if err != nil {
		t.Fatalf("table stats: %v", err)
	}
	if stats["system_snapshots"] != 1 {
		t.Fatalf("expected cleanup to be a no-op for fresh rows, got %d remaining", stats["system_snapshots"])
	}
}

func TestProcessSnapshotSamplingPolicyBoundsRowCount(t *testing.T) {
	s := openTestStore(t)
	procs := make([]model.ProcessInfo, 0, 200)
	for i := uint32(1); i <= 200; i++ {
		procs = append(procs, model.ProcessInfo{PID: i, Name: "p", CPUUsage: float64(i), MemoryBytes: uint64(i)})
	}

	if err := s.InsertProcessSnapshots(time.Now().UnixMilli(), procs); err != nil {
		t.Fatalf("insert: %v", err)
	}

	stats, err := s.TableStats()
	if err != nil {
		t.Fatalf("table stats: %v", err)
	}
	// top-50-by-CPU union top-30-by-mem, both rankings identical here (both
	// increasing in i), so the union is simply the top 50.
	if stats["process_snapshots"] != TopCPUSnapshotCount {
		t.Fatalf("expected %d rows, got %d", TopCPUSnapshotCount, stats["process_snapshots"])
	}
}
