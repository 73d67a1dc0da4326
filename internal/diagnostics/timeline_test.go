package diagnostics

import (
	"errors"
	"testing"
	"time"

	"github.com/ftahirops/sentinel/internal/model"
	"github.com/ftahirops/sentinel/internal/store"
)

type fakeTimelineSource struct {
	counts  map[string]int
	history []store.SystemSnapshotRow

	countsErr  error
	historyErr error
}

func (f fakeTimelineSource) EventCounts(sinceMs int64) (map[string]int, error) {
	return f.counts, f.countsErr
}
func (f fakeTimelineSource) QuerySystemHistory(sinceMs int64) ([]store.SystemSnapshotRow, error) {
	return f.history, f.historyErr
}

func TestTimelineQuiet(t *testing.T) {
	report, err := Timeline(fakeTimelineSource{counts: map[string]int{}}, time.Now(), 15)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(report.Findings) != 1 || report.Findings[0].Title != "Quiet period" {
		t.Fatalf("expected a single quiet-period finding, got %+v", report.Findings)
	}
}

func TestTimelineHighAlertVolume(t *testing.T) {
	src := fakeTimelineSource{counts: map[string]int{"alert": 15}}
	report, err := Timeline(src, time.Now(), 15)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	var found bool
	for _, f := range report.Findings {
		if f.Title == "High alert volume" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a high alert volume finding, got %+v", report.Findings)
	}
}

func TestTimelineCPUTrend(t *testing.T) {
	src := fakeTimelineSource{
		counts: map[string]int{},
		history: []store.SystemSnapshotRow{
			{TimestampMs: 0, CPUGlobal: 10, MemTotal: 1, MemUsed: 1},
			{TimestampMs: 1, CPUGlobal: 40, MemTotal: 1, MemUsed: 1},
		},
	}
	report, err := Timeline(src, time.Now(), 15)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	var found bool
	for _, f := range report.Findings {
		if f.Title == "CPU trend" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a CPU trend finding, got %+v", report.Findings)
	}
}

func TestTimelineDegradesOnStoreError(t *testing.T) {
	src := fakeTimelineSource{countsErr: errors.New("database is locked")}
	report, err := Timeline(src, time.Now(), 15)
	if err != nil {
		t.Fatalf("expected Timeline to degrade rather than return an error, got %v", err)
	}
	if len(report.Findings) != 1 || report.Findings[0].Title != "store unavailable" {
		t.Fatalf("expected a single store-unavailable finding, got %+v", report.Findings)
	}
	if report.Findings[0].Severity != model.SeverityInfo {
		t.Fatalf("expected Info severity, got %v", report.Findings[0].Severity)
	}

	src2 := fakeTimelineSource{counts: map[string]int{}, historyErr: errors.New("schema mismatch")}
	report2, err := Timeline(src2, time.Now(), 15)
	if err != nil {
		t.Fatalf("expected Timeline to degrade rather than return an error, got %v", err)
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
