package diagnostics

import (
	"errors"
	"testing"
	"time"

	"github.com/ftahirops/sentinel/internal/model"
	"github.com/ftahirops/sentinel/internal/store"
)

type fakeAnomalySource struct {
	history []store.SystemSnapshotRow
	counts  map[string]int

	historyErr error
	countsErr  error
}

func (f fakeAnomalySource) QuerySystemHistory(sinceMs int64) ([]store.SystemSnapshotRow, error) {
	return f.history, f.historyErr
}

func (f fakeAnomalySource) EventCounts(sinceMs int64) (map[string]int, error) {
	return f.counts, f.countsErr
}

// TestAnomalyScanCPUSpike matches scenario 6: eight snapshots with cpu
// in {20,22,21,19,20,22,95,21} should flag exactly one CPU spike with
// peak 95.
func TestAnomalyScanCPUSpike(t *testing.T) {
	cpus := []float64{20, 22, 21, 19, 20, 22, 95, 21}
	var history []store.SystemSnapshotRow
	for i, c := range cpus {
		history = append(history, store.SystemSnapshotRow{TimestampMs: int64(i), CPUGlobal: c, MemUsed: 1, MemTotal: 2})
	}
	src := fakeAnomalySource{history: history, counts: map[string]int{}}

	report, err := AnomalyScan(src, time.Now(), 30)
	if err != nil {
		t.Fatalf("AnomalyScan: %v", err)
	}

	var found bool
	for _, f := range report.Findings {
		if f.Title == "1 CPU spike(s) detected" {
			found = true
			if !contains(f.Detail, "peak 95.0%") {
				t.Fatalf("expected peak 95.0%% in detail, got %q", f.Detail)
			}
		}
	}
	if !found {
		t.Fatalf("expected a single CPU spike finding, got %+v", report.Findings)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}

func TestAnomalyScanRespawnStorm(t *testing.T) {
	src := fakeAnomalySource{counts: map[string]int{"process_start": 50, "process_exit": 50}}
	report, err := AnomalyScan(src, time.Now(), 4)
	if err != nil {
		t.Fatalf("AnomalyScan: %v", err)
	}
	var found bool
	for _, f := range report.Findings {
		if f.Title == "Respawn storm" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a respawn storm finding, got %+v", report.Findings)
	}
}

func TestAnomalyScanQuiet(t *testing.T) {
	src := fakeAnomalySource{counts: map[string]int{}}
	report, err := AnomalyScan(src, time.Now(), 30)
	if err != nil {
		t.Fatalf("AnomalyScan: %v", err)
	}
	if len(report.Findings) != 1 || report.Findings[0].Title != "No anomalies detected" {
		t.Fatalf("expected a single no-anomalies finding, got %+v", report.Findings)
	}
}

func TestAnomalyScanDegradesOnStoreError(t *testing.T) {
	src := fakeAnomalySource{historyErr: errors.New("database is locked")}
	report, err := AnomalyScan(src, time.Now(), 30)
	if err != nil {
		t.Fatalf("expected AnomalyScan to degrade rather than return an error, got %v", err)
	}
	if len(report.Findings) != 1 || report.Findings[0].Title != "store unavailable" {
		t.Fatalf("expected a single store-unavailable finding, got %+v", report.Findings)
	}
	if report.Findings[0].Severity != model.SeverityInfo {
		t.Fatalf("expected Info severity, got %v", report.Findings[0].Severity)
	}

	src2 := fakeAnomalySource{countsErr: errors.New("schema mismatch")}
	report2, err := AnomalyScan(src2, time.Now(), 30)
	if err != nil {
		t.Fatalf("expected AnomalyScan to degrade rather than return an error, got %v", err)
	}
	var sawUnavailable bool
	for _, f := range report2.Findings {
		if f.Title == "store unavailable" {
			sawUnavailable = true
		}
	}
	if !sawUnavailable {
		t.Fatalf("expected a store-unavailable finding, got %+v", report2.Findings)
	}
}
