package diagnostics

import (
	"fmt"
	"time"

	"github.com/ftahirops/sentinel/internal/model"
	"github.com/ftahirops/sentinel/internal/store"
)

// historySource is the subset of *store.Store the diagnostics package
// needs, so tests can substitute a fake.
type historySource interface {
	EventCounts(sinceMs int64) (map[string]int, error)
	QuerySystemHistory(sinceMs int64) ([]store.SystemSnapshotRow, error)
}

// Timeline is §4.5.2: process churn, alert volume, and port activity
// over the trailing window, plus CPU/memory trend and peak detection
// from system_snapshots. Grounded on the teacher's History ring-buffer
// aggregation idiom, re-pointed at the event store since the teacher has
// no persistent history of its own.
func Timeline(src historySource, now time.Time, minutes int) (model.Report, error) {
	report := model.Report{Title: fmt.Sprintf("Timeline (last %d min)", minutes)}
	sinceMs := now.Add(-time.Duration(minutes) * time.Minute).UnixMilli()

	counts, err := src.EventCounts(sinceMs)
	if err != nil {
		report.Findings = append(report.Findings, infoFinding(model.SeverityInfo, "store unavailable", err.Error()))
		return report, nil
	}

	churn := counts["process_start"] + counts["process_exit"]
	if churn > 100 {
		report.Findings = append(report.Findings, infoFinding(model.SeverityWarning, "High process churn",
			fmt.Sprintf("%d process starts+exits in the window", churn)))
	}

	alertCount := counts["alert"]
	switch {
	case alertCount > 10:
		report.Findings = append(report.Findings, infoFinding(model.SeverityCritical, "High alert volume", fmt.Sprintf("%d alerts", alertCount)))
	case alertCount > 3:
		report.Findings = append(report.Findings, infoFinding(model.SeverityWarning, "Elevated alert volume", fmt.Sprintf("%d alerts", alertCount)))
	}

	portActivity := counts["port_bind"] + counts["port_release"]
	if portActivity > 0 {
		report.Findings = append(report.Findings, infoFinding(model.SeverityInfo, "Port activity",
			fmt.Sprintf("%d bind/release events", portActivity)))
	}

	history, err := src.QuerySystemHistory(sinceMs)
	if err != nil {
		report.Findings = append(report.Findings, infoFinding(model.SeverityInfo, "store unavailable", err.Error()))
		return report, nil
	}
	if len(history) >= 2 {
		first, last := history[0], history[len(history)-1]
		cpuDelta := last.CPUGlobal - first.CPUGlobal
		if cpuDelta > 20 || cpuDelta < -20 {
			report.Findings = append(report.Findings, infoFinding(model.SeverityWarning, "CPU trend",
				fmt.Sprintf("CPU moved %+.1fpp over the window", cpuDelta)))
		}
		firstMemPct := percentOf(first.MemUsed, first.MemTotal)
		lastMemPct := percentOf(last.MemUsed, last.MemTotal)
		memDelta := lastMemPct - firstMemPct
		if memDelta > 10 || memDelta < -10 {
			report.Findings = append(report.Findings, infoFinding(model.SeverityWarning, "Memory trend",
				fmt.Sprintf("memory moved %+.1fpp over the window", memDelta)))
		}
	}
	if len(history) >= 5 {
		peak := history[0].CPUGlobal
		for _, h := range history {
			if h.CPUGlobal > peak {
				peak = h.CPUGlobal
			}
		}
		if peak > 90 {
			report.Findings = append(report.Findings, infoFinding(model.SeverityWarning, "Peak CPU", fmt.Sprintf("peaked at %.1f%%", peak)))
		}
	}

	if len(report.Findings) == 0 {
		report.Findings = append(report.Findings, infoFinding(model.SeverityInfo, "Quiet period", "no notable activity in the window"))
	}
	return report, nil
}

func percentOf(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total) * 100
}
