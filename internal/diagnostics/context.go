package diagnostics

import (
	"fmt"
	"strings"
	"time"

	"github.com/ftahirops/sentinel/internal/model"
)

// ContextSource is the union of store-backed lookups the full LLM
// context report needs.
type ContextSource interface {
	historySource
	AnomalySource
	QueryCurrentListeners() ([]model.SocketRecord, error)
}

// FullContext is §4.5.7: the composed report handed to the LLM client
// as conversation grounding, combining resource contention, a 15-minute
// timeline, a 30-minute anomaly scan, and the current listener set.
// Grounded on the teacher's engine/rca.go top-level "explain" entrypoint
// that stitches multiple collectors' evidence into one narrative.
func FullContext(src ContextSource, now time.Time, snap *model.SystemSnapshot, procs []model.ProcessInfo) (string, error) {
	var sections []string

	resource := ResourceContention(snap, procs)
	sections = append(sections, renderReport(resource))

	timeline, err := Timeline(src, now, 15)
	if err != nil {
		sections = append(sections, renderReport(storeUnavailableReport("Timeline (last 15 min)", err)))
	} else {
		sections = append(sections, renderReport(timeline))
	}

	anomalies, err := AnomalyScan(src, now, 30)
	if err != nil {
		sections = append(sections, renderReport(storeUnavailableReport("Anomaly scan (last 30 min)", err)))
	} else {
		sections = append(sections, renderReport(anomalies))
	}

	listeners, err := src.QueryCurrentListeners()
	if err != nil {
		sections = append(sections, renderReport(storeUnavailableReport("Current listeners", err)))
	} else {
		sections = append(sections, renderListeners(listeners))
	}

	text := strings.Join(sections, "\n\n")
	if strings.TrimSpace(text) == "" {
		return "No diagnostic findings.", nil
	}
	return text, nil
}

func renderReport(r model.Report) string {
	if len(r.Findings) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n", r.Title)
	for _, f := range r.Findings {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", f.Severity, f.Title, f.Detail)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderListeners(socks []model.SocketRecord) string {
	if len(socks) == 0 {
		return ""
	}
	const maxListed = 20
	if len(socks) > maxListed {
		socks = socks[:maxListed]
	}
	var b strings.Builder
	b.WriteString("## Current listeners\n")
	for _, s := range socks {
		name := "unknown"
		if s.Name != nil {
			name = *s.Name
		}
		fmt.Fprintf(&b, "- %s/%d owned by %s\n", s.Protocol, s.LocalPort, name)
	}
	return strings.TrimRight(b.String(), "\n")
}
