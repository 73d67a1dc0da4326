// Package diagnostics implements the Diagnostic Engine (C5): stateless
// functions that turn a live snapshot, process list, and/or the Event
// Store's history into a Report of Findings, some carrying an
// executable SuggestedAction. Grounded on the teacher's
// collector/diag.go evidence-gathering idiom and engine/rca.go's
// Finding/Action shape, narrowed from cgroup-aware RCA to spec.md
// §4.5's simpler live-state + event-store diagnostics.
package diagnostics

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/ftahirops/sentinel/internal/model"
)

const (
	giB = 1024 * 1024 * 1024
)

// ResourceContention is §4.5.1: global CPU/memory thresholds, top-5 by
// CPU and by memory, and a zombie census.
func ResourceContention(snap *model.SystemSnapshot, procs []model.ProcessInfo) model.Report {
	report := model.Report{Title: "Resource Contention"}

	switch {
	case snap.GlobalCPUUsage >= 90:
		report.Findings = append(report.Findings, infoFinding(model.SeverityCritical, "Global CPU critical",
			fmt.Sprintf("system CPU at %.1f%%", snap.GlobalCPUUsage)))
	case snap.GlobalCPUUsage >= 70:
		report.Findings = append(report.Findings, infoFinding(model.SeverityWarning, "Global CPU elevated",
			fmt.Sprintf("system CPU at %.1f%%", snap.GlobalCPUUsage)))
	}

	memPct := snap.MemoryPercent()
	switch {
	case memPct >= 90:
		report.Findings = append(report.Findings, infoFinding(model.SeverityCritical, "Global memory critical",
			fmt.Sprintf("system memory at %.1f%%", memPct)))
	case memPct >= 75:
		report.Findings = append(report.Findings, infoFinding(model.SeverityWarning, "Global memory elevated",
			fmt.Sprintf("system memory at %.1f%%", memPct)))
	}

	report.Findings = append(report.Findings, topCPUFindings(procs)...)
	report.Findings = append(report.Findings, topMemFindings(procs)...)

	if zombies := zombieCensus(procs); len(zombies) > 0 {
		report.Findings = append(report.Findings, model.Finding{
			Severity: model.SeverityWarning,
			Title:    "Zombie processes",
			Detail:   fmt.Sprintf("%d zombie process(es): %s", len(zombies), zombies),
		})
	}

	if len(report.Findings) == 0 {
		report.Findings = append(report.Findings, infoFinding(model.SeverityInfo, "System is healthy", "no contention detected"))
	}
	return report
}

func topCPUFindings(procs []model.ProcessInfo) []model.Finding {
	top := topNBy(procs, 5, func(p model.ProcessInfo) float64 { return p.CPUUsage })
	var heavy []model.ProcessInfo
	for _, p := range top {
		if p.CPUUsage > 50 {
			heavy = append(heavy, p)
		}
	}
	if len(heavy) == 0 {
		if len(top) == 0 {
			return nil
		}
		n := len(top)
		if n > 3 {
			n = 3
		}
		return []model.Finding{infoFinding(model.SeverityInfo, "Top CPU consumers", summarizeProcs(top[:n], "cpu"))}
	}

	var findings []model.Finding
	for _, p := range heavy {
		sev := model.SeverityWarning
		if p.CPUUsage >= 90 {
			sev = model.SeverityCritical
		}
		findings = append(findings, model.Finding{
			Severity: sev,
			Title:    fmt.Sprintf("%s (pid %d) high CPU", p.Name, p.PID),
			Detail:   fmt.Sprintf("%.1f%% CPU", p.CPUUsage),
		})
	}
	return findings
}

func topMemFindings(procs []model.ProcessInfo) []model.Finding {
	top := topNBy(procs, 5, func(p model.ProcessInfo) float64 { return float64(p.MemoryBytes) })
	var findings []model.Finding
	for _, p := range top {
		if p.MemoryBytes <= giB {
			continue
		}
		sev := model.SeverityInfo
		if p.MemoryBytes > 4*giB {
			sev = model.SeverityWarning
		}
		findings = append(findings, model.Finding{
			Severity: sev,
			Title:    fmt.Sprintf("%s (pid %d) high memory", p.Name, p.PID),
			Detail:   fmt.Sprintf("using %s", humanize.Bytes(p.MemoryBytes)),
		})
	}
	return findings
}

func zombieCensus(procs []model.ProcessInfo) []string {
	var names []string
	for _, p := range procs {
		if p.Status == model.StatusZombie {
			names = append(names, fmt.Sprintf("%s(%d)", p.Name, p.PID))
		}
	}
	return names
}

func topNBy(procs []model.ProcessInfo, n int, key func(model.ProcessInfo) float64) []model.ProcessInfo {
	sorted := append([]model.ProcessInfo(nil), procs...)
	sort.Slice(sorted, func(i, j int) bool { return key(sorted[i]) > key(sorted[j]) })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func summarizeProcs(procs []model.ProcessInfo, metric string) string {
	s := "top consumers: "
	for i, p := range procs {
		if i > 0 {
			s += ", "
		}
		if metric == "cpu" {
			s += fmt.Sprintf("%s(%d)=%.1f%%", p.Name, p.PID, p.CPUUsage)
		} else {
			s += fmt.Sprintf("%s(%d)=%s", p.Name, p.PID, humanize.Bytes(p.MemoryBytes))
		}
	}
	return s
}

func infoFinding(sev model.Severity, title, detail string) model.Finding {
	return model.Finding{Severity: sev, Title: title, Detail: detail}
}

// storeUnavailableReport is the degraded-to-Info shape every diagnostic
// returns instead of propagating a store query error (spec.md §7:
// "Database query failure | schema mismatch | Diagnostic returns Info
// 'store unavailable'").
func storeUnavailableReport(title string, err error) model.Report {
	return model.Report{
		Title:    title,
		Findings: []model.Finding{infoFinding(model.SeverityInfo, "store unavailable", err.Error())},
	}
}

func renicePID(pid uint32, name string) *model.SuggestedAction {
	return &model.SuggestedAction{Kind: model.ActionReniceProcess, PID: int(pid), Name: name, Nice: 10}
}
