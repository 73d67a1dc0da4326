package diagnostics

import (
	"fmt"
	"math"
	"time"

	"github.com/ftahirops/sentinel/internal/model"
	"github.com/ftahirops/sentinel/internal/store"
)

// AnomalySource is the subset of *store.Store the anomaly scan needs,
// so tests can substitute a fake.
type AnomalySource interface {
	QuerySystemHistory(sinceMs int64) ([]store.SystemSnapshotRow, error)
	EventCounts(sinceMs int64) (map[string]int, error)
}

// AnomalyScan is §4.5.5: mean/stddev z-score CPU spike detection,
// memory drift between the first and last ten samples of the window, and
// process-churn-rate respawn-storm detection. Grounded on the
// teacher's History ring-buffer statistics idiom, generalized from a
// fixed rolling window to an arbitrary store-backed window.
func AnomalyScan(src AnomalySource, now time.Time, minutes int) (model.Report, error) {
	report := model.Report{Title: fmt.Sprintf("Anomaly scan (last %d min)", minutes)}
	sinceMs := now.Add(-time.Duration(minutes) * time.Minute).UnixMilli()

	history, err := src.QuerySystemHistory(sinceMs)
	if err != nil {
		report.Findings = append(report.Findings, infoFinding(model.SeverityInfo, "store unavailable", err.Error()))
		return report, nil
	}

	if len(history) >= 5 {
		mean, stddev := cpuMeanStddev(history)
		threshold := mean + 2*stddev
		var spikes int
		var peak float64
		for _, h := range history {
			if h.CPUGlobal > threshold && h.CPUGlobal > 70 {
				spikes++
				if h.CPUGlobal > peak {
					peak = h.CPUGlobal
				}
			}
		}
		if spikes > 0 {
			report.Findings = append(report.Findings, infoFinding(model.SeverityWarning,
				fmt.Sprintf("%d CPU spike(s) detected", spikes),
				fmt.Sprintf("peak %.1f%% (mean %.1f%%, stddev %.1f)", peak, mean, stddev)))
		}
	}

	if len(history) >= 10 {
		firstMean := meanMemPercent(history[:10])
		lastMean := meanMemPercent(history[len(history)-10:])
		drift := lastMean - firstMean
		if drift > 15 || drift < -15 {
			report.Findings = append(report.Findings, infoFinding(model.SeverityWarning, "Memory drift",
				fmt.Sprintf("memory usage moved %+.1fpp between the start and end of the window", drift)))
		}
	}

	counts, err := src.EventCounts(sinceMs)
	if err != nil {
		report.Findings = append(report.Findings, infoFinding(model.SeverityInfo, "store unavailable", err.Error()))
		return report, nil
	}
	churn := counts["process_start"] + counts["process_exit"]
	perMinute := 0.0
	if minutes > 0 {
		perMinute = float64(churn) / float64(minutes)
	}
	switch {
	case perMinute > 20:
		report.Findings = append(report.Findings, infoFinding(model.SeverityWarning, "Respawn storm",
			fmt.Sprintf("%.1f process starts+exits per minute", perMinute)))
	case perMinute > 5:
		report.Findings = append(report.Findings, infoFinding(model.SeverityInfo, "Elevated process churn",
			fmt.Sprintf("%.1f process starts+exits per minute", perMinute)))
	}

	if len(report.Findings) == 0 {
		report.Findings = append(report.Findings, infoFinding(model.SeverityInfo, "No anomalies detected", "all metrics within normal range"))
	}
	return report, nil
}

func cpuMeanStddev(history []store.SystemSnapshotRow) (mean, stddev float64) {
	var sum float64
	for _, h := range history {
		sum += h.CPUGlobal
	}
	mean = sum / float64(len(history))

	var variance float64
	for _, h := range history {
		d := h.CPUGlobal - mean
		variance += d * d
	}
	variance /= float64(len(history))
	return mean, math.Sqrt(variance)
}

func meanMemPercent(history []store.SystemSnapshotRow) float64 {
	var sum float64
	for _, h := range history {
		sum += percentOf(h.MemUsed, h.MemTotal)
	}
	return sum / float64(len(history))
}
