package diagnostics

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ftahirops/sentinel/internal/model"
	"github.com/ftahirops/sentinel/internal/store"
)

// ProcessHistorySource is the subset of *store.Store the process
// diagnostic needs, so tests can substitute a fake.
type ProcessHistorySource interface {
	QueryProcessHistory(pid uint32, sinceMs int64) ([]store.ProcessSnapshotRow, error)
}

// ProcessDiagnosis is §4.5.4: current state (if still alive), a memory
// leak check over the trailing hour, and historical CPU average/peak.
// Grounded on the teacher's rca.go single-process root-cause routine.
func ProcessDiagnosis(src ProcessHistorySource, now time.Time, pid uint32, live *model.ProcessInfo) (model.Report, error) {
	report := model.Report{Title: fmt.Sprintf("Process %d", pid)}

	if live != nil {
		report.Findings = append(report.Findings, infoFinding(model.SeverityInfo, "Current state",
			fmt.Sprintf("%s: %s, %.1f%% CPU, %s", live.Name, live.Status, live.CPUUsage, humanize.Bytes(live.MemoryBytes))))

		if live.CPUUsage > 80 {
			report.Findings = append(report.Findings, model.Finding{
				Severity: model.SeverityWarning,
				Title:    fmt.Sprintf("%s (pid %d) sustained high CPU", live.Name, pid),
				Detail:   fmt.Sprintf("%.1f%% CPU", live.CPUUsage),
				Action:   renicePID(pid, live.Name),
			})
		}
	} else {
		report.Findings = append(report.Findings, infoFinding(model.SeverityInfo, "Process not running", "no live sample for this pid"))
	}

	sinceMs := now.Add(-time.Hour).UnixMilli()
	history, err := src.QueryProcessHistory(pid, sinceMs)
	if err != nil {
		report.Findings = append(report.Findings, infoFinding(model.SeverityInfo, "store unavailable", err.Error()))
		return report, nil
	}

	if len(history) >= 2 {
		first, last := history[0], history[len(history)-1]
		if first.MemBytes > 0 {
			ratio := float64(last.MemBytes) / float64(first.MemBytes)
			switch {
			case ratio > 1.5 && last.MemBytes > 100*1024*1024:
				report.Findings = append(report.Findings, model.Finding{
					Severity: model.SeverityCritical,
					Title:    "Memory leak suspected",
					Detail:   fmt.Sprintf("memory grew %.1fx over the last hour (%s -> %s)", ratio, humanize.Bytes(first.MemBytes), humanize.Bytes(last.MemBytes)),
				})
			case ratio > 1.2:
				report.Findings = append(report.Findings, infoFinding(model.SeverityWarning, "Memory growing",
					fmt.Sprintf("memory grew %.1fx over the last hour", ratio)))
			}
		}

		var cpuSum, cpuPeak float64
		for _, h := range history {
			cpuSum += h.CPU
			if h.CPU > cpuPeak {
				cpuPeak = h.CPU
			}
		}
		avgCPU := cpuSum / float64(len(history))
		report.Findings = append(report.Findings, infoFinding(model.SeverityInfo, "Historical CPU",
			fmt.Sprintf("avg %.1f%%, peak %.1f%% over the last hour", avgCPU, cpuPeak)))
	}

	return report, nil
}
