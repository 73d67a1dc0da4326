// Package alerts implements the Alert Detector (C3): a pure rule engine
// over a SystemSnapshot and its ProcessInfo list, with two pieces of
// retained state it exclusively owns: a per-pid memory ring for leak
// detection and a cooldown map for dedup (spec.md §3/§4.3).
package alerts

import (
	"fmt"
	"strings"
	"time"

	"github.com/ftahirops/sentinel/internal/model"
)

// Detector holds the thresholds and the two pieces of state owned
// exclusively by C3.
type Detector struct {
	thresholds Thresholds
	memHistory *MemoryHistory
	cooldowns  *CooldownMap
}

func NewDetector(thresholds Thresholds) *Detector {
	return &Detector{
		thresholds: thresholds,
		memHistory: NewMemoryHistory(thresholds.LeakMinSamples),
		cooldowns:  NewCooldownMap(thresholds.CooldownSeconds),
	}
}

// Analyze applies the per-tick rule table (spec.md §4.3) to one
// SystemSnapshot and its process list, returning the cooldown-deduped
// alert set. now is passed explicitly so tests can drive the cooldown
// window deterministically.
func (d *Detector) Analyze(snap *model.SystemSnapshot, procs []model.ProcessInfo, now time.Time) []model.Alert {
	var raw []model.Alert

	raw = append(raw, d.systemRules(snap, now)...)

	live := make(map[uint32]bool, len(procs))
	for i := range procs {
		p := &procs[i]
		live[p.PID] = true
		raw = append(raw, d.processRules(p, now)...)

		d.memHistory.record(p.PID, p.MemoryBytes)
		if growthPct, ok := d.memHistory.leakGrowth(p.PID, d.thresholds.LeakMinSamples, d.thresholds.LeakGrowthFactor, d.thresholds.LeakMinMemoryBytes); ok {
			raw = append(raw, model.Alert{
				Severity:    model.SeverityWarning,
				Category:    model.CategoryMemoryLeak,
				ProcessName: p.Name,
				PID:         p.PID,
				Message:     fmt.Sprintf("%s (pid %d) memory grew ~%.0f%% over its recent history", p.Name, p.PID, growthPct),
				Value:       growthPct,
				Threshold:   (d.thresholds.LeakGrowthFactor - 1) * 100,
				Timestamp:   now,
			})
		}
	}

	d.memHistory.purge(live)

	return d.dedupe(raw, now)
}

// CheckThermal applies the thermal tiering rule (spec.md §4.3): each
// sensor reading is compared emergency, then critical, then warning;
// only the highest matching tier emits, and the cooldown key uses a
// pseudo-pid derived from the sensor name.
func (d *Detector) CheckThermal(thermal *model.ThermalSnapshot, now time.Time) []model.Alert {
	var raw []model.Alert
	for sensor, tempC := range thermal.BySensor {
		pid := thermalPseudoPID(sensor)
		var sev model.Severity
		var cat model.Category
		var threshold float64
		switch {
		case tempC >= d.thresholds.ThermalEmergencyC:
			sev, cat, threshold = model.SeverityDanger, model.CategoryThermalEmergency, d.thresholds.ThermalEmergencyC
		case tempC >= d.thresholds.ThermalCriticalC:
			sev, cat, threshold = model.SeverityCritical, model.CategoryThermalCritical, d.thresholds.ThermalCriticalC
		case tempC >= d.thresholds.ThermalWarningC:
			sev, cat, threshold = model.SeverityWarning, model.CategoryThermalWarning, d.thresholds.ThermalWarningC
		default:
			continue
		}
		raw = append(raw, model.Alert{
			Severity:  sev,
			Category:  cat,
			PID:       pid,
			Message:   fmt.Sprintf("sensor %s at %.1f°C", sensor, tempC),
			Value:     tempC,
			Threshold: threshold,
			Timestamp: now,
		})
	}
	return d.dedupe(raw, now)
}

func (d *Detector) systemRules(snap *model.SystemSnapshot, now time.Time) []model.Alert {
	var out []model.Alert

	if snap.GlobalCPUUsage >= d.thresholds.CPUCriticalPercent {
		out = append(out, model.Alert{
			Severity: model.SeverityCritical, Category: model.CategorySystemOverload,
			Message:   fmt.Sprintf("system CPU at %.1f%%", snap.GlobalCPUUsage),
			Value:     snap.GlobalCPUUsage, Threshold: d.thresholds.CPUCriticalPercent, Timestamp: now,
		})
	}

	memPct := snap.MemoryPercent()
	switch {
	case memPct >= d.thresholds.SysMemCriticalPercent:
		out = append(out, model.Alert{
			Severity: model.SeverityDanger, Category: model.CategorySystemOverload,
			Message:   fmt.Sprintf("system memory at %.1f%%", memPct),
			Value:     memPct, Threshold: d.thresholds.SysMemCriticalPercent, Timestamp: now,
		})
	case memPct >= d.thresholds.SysMemWarningPercent:
		out = append(out, model.Alert{
			Severity: model.SeverityWarning, Category: model.CategorySystemOverload,
			Message:   fmt.Sprintf("system memory at %.1f%%", memPct),
			Value:     memPct, Threshold: d.thresholds.SysMemWarningPercent, Timestamp: now,
		})
	}

	return out
}

func (d *Detector) processRules(p *model.ProcessInfo, now time.Time) []model.Alert {
	var out []model.Alert

	switch {
	case p.CPUUsage >= d.thresholds.CPUCriticalPercent:
		out = append(out, procAlert(model.SeverityCritical, model.CategoryHighCPU, p,
			fmt.Sprintf("%s (pid %d) using %.1f%% CPU", p.Name, p.PID, p.CPUUsage), p.CPUUsage, d.thresholds.CPUCriticalPercent, now))
	case p.CPUUsage >= d.thresholds.CPUWarningPercent:
		out = append(out, procAlert(model.SeverityWarning, model.CategoryHighCPU, p,
			fmt.Sprintf("%s (pid %d) using %.1f%% CPU", p.Name, p.PID, p.CPUUsage), p.CPUUsage, d.thresholds.CPUWarningPercent, now))
	}

	switch {
	case p.MemoryBytes >= d.thresholds.MemCriticalBytes:
		out = append(out, procAlert(model.SeverityCritical, model.CategoryHighMemory, p,
			fmt.Sprintf("%s (pid %d) using %d bytes of memory", p.Name, p.PID, p.MemoryBytes), float64(p.MemoryBytes), float64(d.thresholds.MemCriticalBytes), now))
	case p.MemoryBytes >= d.thresholds.MemWarningBytes:
		out = append(out, procAlert(model.SeverityWarning, model.CategoryHighMemory, p,
			fmt.Sprintf("%s (pid %d) using %d bytes of memory", p.Name, p.PID, p.MemoryBytes), float64(p.MemoryBytes), float64(d.thresholds.MemWarningBytes), now))
	}

	if p.Status == model.StatusZombie {
		out = append(out, procAlert(model.SeverityWarning, model.CategoryZombie, p,
			fmt.Sprintf("%s (pid %d) is a zombie", p.Name, p.PID), 0, 0, now))
	}

	lower := strings.ToLower(p.Name + " " + p.CmdLine)
	if pattern, ok := matchAny(lower, d.thresholds.SecurityThreatPatterns); ok {
		out = append(out, procAlert(model.SeverityDanger, model.CategorySecurityThreat, p,
			fmt.Sprintf("%s (pid %d) matches security threat pattern %q", p.Name, p.PID, pattern), 0, 0, now))
	} else if pattern, ok := matchAny(lower, d.thresholds.SuspiciousPatterns); ok {
		out = append(out, procAlert(model.SeverityWarning, model.CategorySuspicious, p,
			fmt.Sprintf("%s (pid %d) matches suspicious pattern %q", p.Name, p.PID, pattern), 0, 0, now))
	}

	if io := p.DiskReadBytes + p.DiskWriteBytes; io > d.thresholds.HighDiskIOBytes {
		out = append(out, procAlert(model.SeverityInfo, model.CategoryHighDiskIO, p,
			fmt.Sprintf("%s (pid %d) disk I/O %d bytes", p.Name, p.PID, io), float64(io), float64(d.thresholds.HighDiskIOBytes), now))
	}

	return out
}

func procAlert(sev model.Severity, cat model.Category, p *model.ProcessInfo, msg string, value, threshold float64, now time.Time) model.Alert {
	return model.Alert{
		Severity: sev, Category: cat, ProcessName: p.Name, PID: p.PID,
		Message: msg, Value: value, Threshold: threshold, Timestamp: now,
	}
}

func matchAny(haystack string, patterns []string) (string, bool) {
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(pattern)) {
			return pattern, true
		}
	}
	return "", false
}

// dedupe applies cooldown suppression to a raw alert batch (spec.md
// §4.3). The order of raw is preserved for surviving alerts.
func (d *Detector) dedupe(raw []model.Alert, now time.Time) []model.Alert {
	var out []model.Alert
	for _, a := range raw {
		key := model.CooldownKey{PID: a.PID, Category: a.Category}
		if d.cooldowns.allow(key, now) {
			out = append(out, a)
		}
	}
	return out
}

// PurgeCooldowns retains only cooldown entries whose pid is present in
// the current snapshot (plus pid 0 and thermal pseudo-pids), per
// spec.md §4.3 State hygiene. Call once per tick after Analyze.
func (d *Detector) PurgeCooldowns(procs []model.ProcessInfo) {
	live := make(map[uint32]bool, len(procs))
	for i := range procs {
		live[procs[i].PID] = true
	}
	d.cooldowns.purge(live)
}
