package coordinator

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ftahirops/sentinel/internal/alerts"
	"github.com/ftahirops/sentinel/internal/model"
	"github.com/ftahirops/sentinel/internal/probe"
	"github.com/ftahirops/sentinel/internal/store"
	"github.com/ftahirops/sentinel/internal/thermal"
)

type fakeNotifier struct {
	calls []string
}

func (f *fakeNotifier) Notify(kind string, detail string) { f.calls = append(f.calls, kind) }

type fakeMetrics struct {
	observed int
}

func (f *fakeMetrics) Observe(snap *model.SystemSnapshot, alertCount int) { f.observed++ }

type fakeAutoAnalysis struct {
	dispatches int
}

func (f *fakeAutoAnalysis) DispatchAutoAnalysis() { f.dispatches++ }

func newTestCoordinator(t *testing.T) (*Coordinator, *store.Store) {
	t.Helper()
	collectSockets = func(now time.Time) ([]model.SocketRecord, error) { return nil, nil }
	t.Cleanup(func() { collectSockets = store.CollectSockets })

	s, err := store.Open(filepath.Join(t.TempDir(), "sentinel.db"), 24*time.Hour)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	c := New(Config{
		Prober:          probe.NewProber(),
		RefreshInterval: time.Millisecond,
		Detector:        alerts.NewDetector(alerts.DefaultThresholds()),
		Store:           s,
		Thermal:         thermal.NewController(thermal.Config{WarningC: 85, CriticalC: 95, EmergencyC: 100}),
	})
	return c, s
}

func TestTickPersistsSystemSnapshot(t *testing.T) {
	c, s := newTestCoordinator(t)
	now := time.Now()

	c.Tick(now)

	stats, err := s.TableStats()
	if err != nil {
		t.Fatalf("table stats: %v", err)
	}
	if stats["system_snapshots"] != 1 {
		t.Fatalf("expected one system snapshot persisted, got %d", stats["system_snapshots"])
	}
}

func TestTickSkipsWhenNotDue(t *testing.T) {
	c, s := newTestCoordinator(t)
	now := time.Now()

	c.Tick(now)
	c.Tick(now) // same instant again: Due() should gate a same-tick re-entry away

	stats, err := s.TableStats()
	if err != nil {
		t.Fatalf("table stats: %v", err)
	}
	if stats["system_snapshots"] != 1 {
		t.Fatalf("expected exactly one snapshot since the second call at the same instant isn't due, got %d", stats["system_snapshots"])
	}
}

func TestTickSkipsNotifierWhenUnarmed(t *testing.T) {
	c, _ := newTestCoordinator(t)
	notifier := &fakeNotifier{}
	c.notifier = notifier
	c.thermal = thermal.NewController(thermal.Config{
		WarningC: 10, CriticalC: 20, EmergencyC: 30,
		SustainedSeconds: 0, GracePeriod: time.Minute,
		AutoShutdownEnabled: false, CredentialPresent: false,
	})

	snap := &model.SystemSnapshot{
		Timestamp:      time.Now(),
		CPUTemperature: &model.CPUTemperature{PackageCelsius: 101},
	}
	c.tickThermal(snap, time.Now())

	// Not armed (AutoShutdownEnabled=false), so the controller never
	// transitions out of Idle and no notification should fire.
	if len(notifier.calls) != 0 {
		t.Fatalf("expected no notifications while unarmed, got %+v", notifier.calls)
	}
}

func TestTickDispatchesNotifierWhenArmed(t *testing.T) {
	c, _ := newTestCoordinator(t)
	notifier := &fakeNotifier{}
	c.notifier = notifier
	c.thermal = thermal.NewController(thermal.Config{
		WarningC: 10, CriticalC: 20, EmergencyC: 30,
		SustainedSeconds: 0, GracePeriod: time.Minute,
		AutoShutdownEnabled: true, CredentialPresent: true,
	})

	snap := &model.SystemSnapshot{
		Timestamp:      time.Now(),
		CPUTemperature: &model.CPUTemperature{PackageCelsius: 101},
	}
	c.tickThermal(snap, time.Now())

	if len(notifier.calls) != 1 || notifier.calls[0] != "EmergencyStarted" {
		t.Fatalf("expected one EmergencyStarted notification, got %+v", notifier.calls)
	}
}

func TestDeriveThermalSnapshotNilWithoutSensors(t *testing.T) {
	snap := &model.SystemSnapshot{}
	if deriveThermalSnapshot(snap) != nil {
		t.Fatalf("expected nil thermal snapshot without any sensor data")
	}
}

func TestMaybeAutoAnalyzeRespectsSettleTicksAndInterval(t *testing.T) {
	c, _ := newTestCoordinator(t)
	dispatcher := &fakeAutoAnalysis{}
	c.autoLLM = dispatcher
	c.autoAnalysisInterval = time.Minute

	now := time.Now()
	for i := 0; i < STARTUP_SETTLE_TICKS; i++ {
		c.tickCount = i
		c.maybeAutoAnalyze(now)
	}
	if dispatcher.dispatches != 0 {
		t.Fatalf("expected no dispatch before settle ticks elapse, got %d", dispatcher.dispatches)
	}

	c.tickCount = STARTUP_SETTLE_TICKS
	c.maybeAutoAnalyze(now)
	if dispatcher.dispatches != 1 {
		t.Fatalf("expected exactly one dispatch once settled, got %d", dispatcher.dispatches)
	}

	c.maybeAutoAnalyze(now.Add(time.Second))
	if dispatcher.dispatches != 1 {
		t.Fatalf("expected no second dispatch before the interval elapses, got %d", dispatcher.dispatches)
	}
}
