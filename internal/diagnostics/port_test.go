package diagnostics

import (
	"errors"
	"testing"
	"time"

	"github.com/ftahirops/sentinel/internal/model"
)

type fakePortSource struct {
	listeners []model.SocketRecord
	history   []model.SocketRecord

	listenersErr error
	historyErr   error
}

func (f fakePortSource) QueryCurrentListeners() ([]model.SocketRecord, error) {
	return f.listeners, f.listenersErr
}
func (f fakePortSource) QueryPortHistory(port int, sinceMs int64) ([]model.SocketRecord, error) {
	return f.history, f.historyErr
}

func uptr(u uint32) *uint32 { return &u }
func sptr(s string) *string { return &s }

// TestPortDiagnosisContention matches scenario 5: two socket rows for
// port 8080 at t-100/t-50 with pids 1111/2222 -> current-listener
// finding for 2222 plus a contention warning.
func TestPortDiagnosisContention(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	src := fakePortSource{
		listeners: []model.SocketRecord{
			{PID: uptr(2222), Name: sptr("nginx"), Protocol: "tcp", LocalPort: 8080, State: "LISTEN"},
		},
		history: []model.SocketRecord{
			{TimestampMs: now.Add(-100 * time.Second).UnixMilli(), PID: uptr(1111), LocalPort: 8080, State: "LISTEN"},
			{TimestampMs: now.Add(-50 * time.Second).UnixMilli(), PID: uptr(2222), LocalPort: 8080, State: "LISTEN"},
		},
	}

	report, err := PortDiagnosis(src, now, 8080)
	if err != nil {
		t.Fatalf("PortDiagnosis: %v", err)
	}

	var sawListener, sawContention bool
	for _, f := range report.Findings {
		if f.Title == "Port 8080 is listening" {
			sawListener = true
			if f.Action == nil || f.Action.PID != 2222 {
				t.Fatalf("expected free-port action for pid 2222, got %+v", f.Action)
			}
		}
		if f.Title == "Port contention" {
			sawContention = true
		}
	}
	if !sawListener || !sawContention {
		t.Fatalf("expected both a listener finding and a contention warning, got %+v", report.Findings)
	}
}

func TestPortDiagnosisQuiet(t *testing.T) {
	report, err := PortDiagnosis(fakePortSource{}, time.Now(), 9999)
	if err != nil {
		t.Fatalf("PortDiagnosis: %v", err)
	}
	if len(report.Findings) != 1 || report.Findings[0].Title != "No activity" {
		t.Fatalf("expected a single no-activity finding, got %+v", report.Findings)
	}
}

// TestPortDiagnosisDegradesOnStoreError covers spec.md §7's error
// taxonomy: a store query failure degrades to an Info finding instead
// of propagating the error.
func TestPortDiagnosisDegradesOnStoreError(t *testing.T) {
	src := fakePortSource{listenersErr: errors.New("database is locked")}
	report, err := PortDiagnosis(src, time.Now(), 8080)
	if err != nil {
		t.Fatalf("expected PortDiagnosis to degrade rather than return an error, got %v", err)
	}
	if len(report.Findings) != 1 || report.Findings[0].Title != "store unavailable" {
		t.Fatalf("expected a single store-unavailable finding, got %+v", report.Findings)
	}
	if report.Findings[0].Severity != model.SeverityInfo {
		t.Fatalf("expected Info severity, got %v", report.Findings[0].Severity)
	}

	src2 := fakePortSource{historyErr: errors.New("schema mismatch")}
	report2, err := PortDiagnosis(src2, time.Now(), 8080)
	if err != nil {
		t.Fatalf("expected PortDiagnosis to degrade rather than return an error, got %v", err)
	}
	if len(report2.Findings) != 1 || report2.Findings[0].Title != "store unavailable" {
		t.Fatalf("expected a single store-unavailable finding, got %+v", report2.Findings)
	}
}
