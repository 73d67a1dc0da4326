// Package sampling implements the sampling loop (C2): it drives the
// platform probe (C1) on a throttled cadence. The outer coordinator may
// poll this loop at a finer interval than refresh_interval_ms (e.g. for
// UI responsiveness); Loop.Tick only actually probes once per elapsed
// interval and reports whether it did, grounded on the teacher's
// interval-ticker idiom in its daemon loop.
package sampling

import (
	"time"

	"github.com/ftahirops/sentinel/internal/model"
	"github.com/ftahirops/sentinel/internal/probe"
)

// MinRefreshInterval is the configuration floor for refresh_interval_ms
// (spec.md §6).
const MinRefreshInterval = 100 * time.Millisecond

// Loop throttles calls into the Prober to at most once per Interval.
type Loop struct {
	prober    *probe.Prober
	Interval  time.Duration
	lastTick  time.Time
	hasTicked bool
}

// NewLoop constructs a Loop over an already-settled Prober. interval is
// clamped to MinRefreshInterval.
func NewLoop(prober *probe.Prober, interval time.Duration) *Loop {
	if interval < MinRefreshInterval {
		interval = MinRefreshInterval
	}
	return &Loop{prober: prober, Interval: interval}
}

// Due reports whether enough wall-clock time has elapsed since the last
// probe for Tick to actually fire.
func (l *Loop) Due(now time.Time) bool {
	if !l.hasTicked {
		return true
	}
	return now.Sub(l.lastTick) >= l.Interval
}

// Tick probes the platform if due, otherwise it is a no-op and ok is
// false. Callers should poll Tick from their own finer-grained loop
// (e.g. a 50ms UI-responsiveness ticker) and skip downstream work when
// ok is false.
func (l *Loop) Tick(now time.Time) (snap model.SystemSnapshot, procs []model.ProcessInfo, ok bool, err error) {
	if !l.Due(now) {
		return model.SystemSnapshot{}, nil, false, nil
	}
	snap, procs, err = l.prober.Probe()
	l.lastTick = now
	l.hasTicked = true
	if err != nil {
		return snap, procs, false, err
	}
	return snap, procs, true, nil
}
