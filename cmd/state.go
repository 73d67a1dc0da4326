package cmd

import (
	"sync"
	"time"

	"github.com/ftahirops/sentinel/internal/model"
	"github.com/ftahirops/sentinel/internal/store"
)

// stateHolder caches the most recent tick's snapshot for collaborators
// that need pull-based access to it outside the coordinator's own
// single-goroutine loop: the TUI's periodic redraw and the auto-analysis
// dispatcher's context assembly. It implements coordinator.MetricsSink
// (Observe is called once per tick) and tui.StateProvider.
type stateHolder struct {
	mu   sync.Mutex
	snap *model.SystemSnapshot

	store *store.Store // for pulling recent alerts; may be nil
}

func newStateHolder(st *store.Store) *stateHolder {
	return &stateHolder{store: st}
}

// Observe implements coordinator.MetricsSink. It stores a copy of snap so
// the cached value does not share memory with the caller's snapshot.
func (h *stateHolder) Observe(snap *model.SystemSnapshot, alertCount int) {
	cp := *snap
	h.mu.Lock()
	h.snap = &cp
	h.mu.Unlock()
}

// Snapshot returns the cached snapshot, or nil if no tick has landed
// yet.
func (h *stateHolder) Snapshot() *model.SystemSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snap
}

// Latest implements tui.StateProvider: the cached snapshot plus alerts
// recorded in the event store over the trailing minute (alerts are
// stored as events of kind "alert", spec.md §4.4's InsertAlert
// convention).
func (h *stateHolder) Latest() (*model.SystemSnapshot, []model.Alert, bool) {
	snap := h.Snapshot()
	if snap == nil {
		return nil, nil, false
	}
	if h.store == nil {
		return snap, nil, true
	}

	sinceMs := snap.Timestamp.Add(-time.Minute).UnixMilli()
	recs, err := h.store.QueryEventsByKind(model.EventAlert, sinceMs)
	if err != nil {
		return snap, nil, true
	}

	alerts := make([]model.Alert, 0, len(recs))
	for _, rec := range recs {
		sev := model.SeverityInfo
		if rec.Severity != nil {
			sev = *rec.Severity
		}
		msg := ""
		if rec.Detail != nil {
			msg = *rec.Detail
		}
		alerts = append(alerts, model.Alert{Severity: sev, Message: msg, Timestamp: time.UnixMilli(rec.TimestampMs)})
	}
	return snap, alerts, true
}

// multiMetricsSink fans one Observe call out to several sinks (the
// cached stateHolder and the Prometheus exporter both want every tick).
type multiMetricsSink []interface {
	Observe(snap *model.SystemSnapshot, alertCount int)
}

func (m multiMetricsSink) Observe(snap *model.SystemSnapshot, alertCount int) {
	for _, sink := range m {
		sink.Observe(snap, alertCount)
	}
}
