package metricsexport

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ftahirops/sentinel/internal/model"
)

func TestObserveExposesGauges(t *testing.T) {
	e := New()
	snap := &model.SystemSnapshot{
		GlobalCPUUsage: 42.5,
		TotalMemory:    16 << 30,
		UsedMemory:     8 << 30,
		TotalProcesses: 123,
		GPU:            &model.GPU{UtilizationPct: 10, TemperatureC: 55},
	}
	e.Observe(snap, 3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "sentinel_cpu_usage_percent 42.5") {
		t.Fatalf("expected cpu gauge in output, got %s", body)
	}
	if !strings.Contains(body, "sentinel_alerts_last_tick 3") {
		t.Fatalf("expected alert count gauge in output, got %s", body)
	}
	if !strings.Contains(body, "sentinel_gpu_temperature_celsius 55") {
		t.Fatalf("expected gpu temperature gauge in output, got %s", body)
	}
}

func TestObserveWithoutGPULeavesGaugesAtZero(t *testing.T) {
	e := New()
	e.Observe(&model.SystemSnapshot{}, 0)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), "sentinel_gpu_utilization_percent 0") {
		t.Fatalf("expected gpu utilization gauge defaulted to 0")
	}
}
