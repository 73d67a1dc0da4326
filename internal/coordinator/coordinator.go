// Package coordinator implements the Coordinator (C7): the single
// goroutine that owns the clock, drives C1-C6 in the fixed per-tick
// order spec.md §5 requires, and hands results to the external
// collaborators (metrics sink, notifier) through direct method calls.
// Grounded on the teacher's
// engine/daemon.go RunDaemon select-loop (signal channel + interval
// ticker), generalized from its JSONL event log to the sqlite-backed
// event store and from its single Notifier to the full
// probe->analyze->persist->thermal cascade.
package coordinator

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/ftahirops/sentinel/internal/alerts"
	"github.com/ftahirops/sentinel/internal/model"
	"github.com/ftahirops/sentinel/internal/probe"
	"github.com/ftahirops/sentinel/internal/sampling"
	"github.com/ftahirops/sentinel/internal/store"
	"github.com/ftahirops/sentinel/internal/thermal"
)

// STARTUP_SETTLE_TICKS is the number of ticks after which auto-analysis
// dispatch becomes eligible (spec.md §4.7), giving rate-derived fields
// time to stabilize beyond the prober's own settle sleep.
const STARTUP_SETTLE_TICKS = 3

// Notifier is the SMTP external collaborator's interface as seen by the
// coordinator: fire-and-forget, rate-limited internally.
type Notifier interface {
	Notify(kind string, detail string)
}

// MetricsSink is the Prometheus external collaborator's interface: the
// coordinator pushes its latest snapshot: the exporter owns translating
// it into gauges.
type MetricsSink interface {
	Observe(snap *model.SystemSnapshot, alertCount int)
}

// AutoAnalysisDispatcher is the LLM external collaborator's interface
// for the coordinator's periodic auto-analysis trigger (spec.md §4.7).
// Fire-and-forget: the coordinator never waits on it.
type AutoAnalysisDispatcher interface {
	DispatchAutoAnalysis()
}

// Coordinator binds C1-C6 together and owns the clock (spec.md §4.7).
// It is not safe for concurrent use: everything on Coordinator runs on
// the single goroutine that calls Run/Tick.
type Coordinator struct {
	prober    *probe.Prober
	loop      *sampling.Loop
	detector  *alerts.Detector
	store     *store.Store
	thermal   *thermal.Controller
	notifier  Notifier
	metrics   MetricsSink
	autoLLM   AutoAnalysisDispatcher

	autoAnalysisInterval time.Duration
	lastAutoAnalysis     time.Time
	tickCount            int
}

// Config bundles the constructor dependencies; Notifier, MetricsSink,
// and AutoAnalysisDispatcher may be nil to disable that collaborator.
type Config struct {
	Prober                *probe.Prober
	RefreshInterval       time.Duration
	Detector              *alerts.Detector
	Store                 *store.Store
	Thermal               *thermal.Controller
	Notifier              Notifier
	Metrics               MetricsSink
	AutoAnalysis          AutoAnalysisDispatcher
	AutoAnalysisInterval  time.Duration
}

// New builds a Coordinator from its collaborators.
func New(cfg Config) *Coordinator {
	return &Coordinator{
		prober:                cfg.Prober,
		loop:                  sampling.NewLoop(cfg.Prober, cfg.RefreshInterval),
		detector:              cfg.Detector,
		store:                 cfg.Store,
		thermal:               cfg.Thermal,
		notifier:              cfg.Notifier,
		metrics:               cfg.Metrics,
		autoLLM:               cfg.AutoAnalysis,
		autoAnalysisInterval:  cfg.AutoAnalysisInterval,
	}
}

// Run drives Tick on every sampling-loop cadence until ctx is canceled
// (spec.md §5 cancellation: dropping the ticker and returning tears
// down the whole coordinator loop).
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.Tick(now)
		}
	}
}

// Tick runs one coordinator iteration: if the sampling loop is due,
// probe -> analyze -> persist system -> persist processes -> detect
// lifecycle -> persist alerts-as-events -> persist sockets+detect port
// changes -> thermal tick, in that fixed order (spec.md §5). A probe
// that isn't due yet, or a probe error, ends the tick early.
func (c *Coordinator) Tick(now time.Time) {
	if !c.loop.Due(now) {
		return
	}

	snap, procs, ok, err := c.loop.Tick(now)
	if err != nil {
		log.Printf("sentinel: probe error: %v", err)
		return
	}
	if !ok {
		return
	}
	c.tickCount++

	alertList := c.detector.Analyze(&snap, procs, now)

	if thermalSnap := deriveThermalSnapshot(&snap); thermalSnap != nil {
		alertList = append(alertList, c.detector.CheckThermal(thermalSnap, now)...)
	}

	if err := c.store.InsertSystemSnapshot(&snap); err != nil {
		log.Printf("sentinel: persist system snapshot: %v", err)
	}
	if err := c.store.InsertProcessSnapshots(now.UnixMilli(), procs); err != nil {
		log.Printf("sentinel: persist process snapshots: %v", err)
	}

	for _, ev := range c.store.DiffProcessLifecycle(now, procs) {
		if _, err := c.store.InsertEvent(ev); err != nil {
			log.Printf("sentinel: persist lifecycle event: %v", err)
		}
	}

	for _, a := range alertList {
		if _, err := c.store.InsertAlert(a); err != nil {
			log.Printf("sentinel: persist alert event: %v", err)
		}
	}

	socks, err := collectSockets(now)
	if err != nil {
		log.Printf("sentinel: socket collection: %v", err)
	} else {
		if err := c.store.InsertSockets(socks); err != nil {
			log.Printf("sentinel: persist sockets: %v", err)
		}
		for _, ev := range c.store.DiffListeners(now, socks) {
			if _, err := c.store.InsertEvent(ev); err != nil {
				log.Printf("sentinel: persist listener event: %v", err)
			}
		}
	}

	c.detector.PurgeCooldowns(procs)

	if err := c.store.MaybeCleanup(now); err != nil {
		log.Printf("sentinel: retention cleanup: %v", err)
	}

	if c.thermal != nil {
		c.tickThermal(&snap, now)
	}

	if c.metrics != nil {
		c.metrics.Observe(&snap, len(alertList))
	}

	c.maybeAutoAnalyze(now)
}

func (c *Coordinator) tickThermal(snap *model.SystemSnapshot, now time.Time) {
	thermalSnap := deriveThermalSnapshot(snap)
	maxTemp := 0.0
	if thermalSnap != nil {
		maxTemp = thermalSnap.MaxTempC
	}

	event, err := c.thermal.Tick(maxTemp, now)
	if err != nil {
		log.Printf("sentinel: thermal shutdown invocation failed: %v", err)
	}

	c.notifyThermalTransition(event)
}

// notifyThermalTransition fires the SMTP notifier on exactly the four
// state-transition events named in spec.md §4.7/§9's open question
// resolution: email is tied to C6 transitions, not to raw thermal
// alerts.
func (c *Coordinator) notifyThermalTransition(event thermal.Event) {
	if c.notifier == nil {
		return
	}
	switch event.Kind {
	case thermal.EventEmergencyStarted, thermal.EventGracePeriodStarted, thermal.EventShutdownNow, thermal.EventRecovered:
		c.notifier.Notify(event.Kind.String(), thermal.FormatEvent(event))
	}
}

// maybeAutoAnalyze dispatches the LLM auto-analysis request once per
// auto_analysis_interval_secs, starting only after STARTUP_SETTLE_TICKS
// (spec.md §4.7). A zero interval disables auto-analysis entirely.
func (c *Coordinator) maybeAutoAnalyze(now time.Time) {
	if c.autoLLM == nil || c.autoAnalysisInterval <= 0 {
		return
	}
	if c.tickCount < STARTUP_SETTLE_TICKS {
		return
	}
	if c.lastAutoAnalysis.IsZero() || now.Sub(c.lastAutoAnalysis) >= c.autoAnalysisInterval {
		c.lastAutoAnalysis = now
		c.autoLLM.DispatchAutoAnalysis()
	}
}

// collectSockets is a package-level var so tests can stub it without
// needing real /proc/net state.
var collectSockets = store.CollectSockets

// deriveThermalSnapshot reduces a SystemSnapshot's CPU/GPU temperature
// readings into the ThermalSnapshot shape the detector and controller
// consume, or nil if no sensor resolved this tick.
func deriveThermalSnapshot(snap *model.SystemSnapshot) *model.ThermalSnapshot {
	bySensor := make(map[string]float64)

	if t := snap.CPUTemperature; t != nil {
		bySensor["cpu_package"] = t.PackageCelsius
		for i, c := range t.PerCoreCelsius {
			bySensor[coreSensorName(i)] = c
		}
	}
	if g := snap.GPU; g != nil {
		bySensor["gpu"] = g.TemperatureC
	}

	if len(bySensor) == 0 {
		return nil
	}

	var max float64
	for _, v := range bySensor {
		if v > max {
			max = v
		}
	}
	return &model.ThermalSnapshot{Timestamp: snap.Timestamp, MaxTempC: max, BySensor: bySensor}
}

func coreSensorName(i int) string {
	return "cpu_core_" + strconv.Itoa(i)
}
