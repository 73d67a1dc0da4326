package diagnostics

import (
	"fmt"
	"time"

	"github.com/ftahirops/sentinel/internal/model"
)

// PortHistorySource is the subset of *store.Store the port diagnostic
// needs, so tests can substitute a fake.
type PortHistorySource interface {
	QueryCurrentListeners() ([]model.SocketRecord, error)
	QueryPortHistory(port int, sinceMs int64) ([]model.SocketRecord, error)
}

// PortDiagnosis is §4.5.3: current listeners on port, plus a 24h
// respawn/contention check. Grounded on the teacher's
// identity/probe_ports.go well-known-port listener model.
func PortDiagnosis(src PortHistorySource, now time.Time, port int) (model.Report, error) {
	report := model.Report{Title: fmt.Sprintf("Port %d", port)}

	listeners, err := src.QueryCurrentListeners()
	if err != nil {
		report.Findings = append(report.Findings, infoFinding(model.SeverityInfo, "store unavailable", err.Error()))
		return report, nil
	}
	for _, l := range listeners {
		if l.LocalPort != port {
			continue
		}
		name := "unknown"
		if l.Name != nil {
			name = *l.Name
		}
		var action *model.SuggestedAction
		if l.PID != nil {
			action = &model.SuggestedAction{Kind: model.ActionFreePort, Port: port, PID: int(*l.PID), Name: name, Signal: "SIGTERM"}
		}
		report.Findings = append(report.Findings, model.Finding{
			Severity: model.SeverityInfo,
			Title:    fmt.Sprintf("Port %d is listening", port),
			Detail:   fmt.Sprintf("owned by %s", name),
			Action:   action,
		})
	}

	sinceMs := now.Add(-24 * time.Hour).UnixMilli()
	history, err := src.QueryPortHistory(port, sinceMs)
	if err != nil {
		report.Findings = append(report.Findings, infoFinding(model.SeverityInfo, "store unavailable", err.Error()))
		return report, nil
	}
	distinctPIDs := make(map[uint32]bool)
	for _, h := range history {
		if h.PID != nil {
			distinctPIDs[*h.PID] = true
		}
	}
	if len(distinctPIDs) > 1 {
		report.Findings = append(report.Findings, infoFinding(model.SeverityWarning, "Port contention",
			fmt.Sprintf("used by %d different processes in the last 24h", len(distinctPIDs))))
	}

	if len(report.Findings) == 0 {
		report.Findings = append(report.Findings, infoFinding(model.SeverityInfo, "No activity", fmt.Sprintf("port %d has no recent activity", port)))
	}
	return report, nil
}
