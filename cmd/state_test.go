package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ftahirops/sentinel/internal/model"
	"github.com/ftahirops/sentinel/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentinel.db")
	s, err := store.Open(path, 24*time.Hour)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStateHolderLatestBeforeFirstTick(t *testing.T) {
	h := newStateHolder(nil)
	_, _, ok := h.Latest()
	if ok {
		t.Fatalf("expected ok=false before any Observe call")
	}
}

func TestStateHolderLatestReturnsAlertsFromStore(t *testing.T) {
	st := openTestStore(t)
	h := newStateHolder(st)

	now := time.Now()
	h.Observe(&model.SystemSnapshot{Timestamp: now, Hostname: "box1"}, 1)

	if _, err := st.InsertAlert(model.Alert{
		Severity:  model.SeverityCritical,
		Category:  model.CategoryHighDiskIO,
		Message:   "disk nearly full",
		Timestamp: now,
	}); err != nil {
		t.Fatalf("InsertAlert: %v", err)
	}

	snap, alerts, ok := h.Latest()
	if !ok {
		t.Fatalf("expected ok=true after Observe")
	}
	if snap.Hostname != "box1" {
		t.Fatalf("expected cached snapshot, got %+v", snap)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected one alert pulled from the store, got %d", len(alerts))
	}
	if alerts[0].Severity != model.SeverityCritical {
		t.Fatalf("expected severity to round-trip, got %v", alerts[0].Severity)
	}
}

func TestMultiMetricsSinkFansOutToEverySink(t *testing.T) {
	h1 := newStateHolder(nil)
	h2 := newStateHolder(nil)
	sinks := multiMetricsSink{h1, h2}

	snap := &model.SystemSnapshot{Hostname: "box1"}
	sinks.Observe(snap, 3)

	if h1.Snapshot() == nil || h2.Snapshot() == nil {
		t.Fatalf("expected both sinks to observe the tick")
	}
}
