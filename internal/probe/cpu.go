package probe

import (
	"fmt"
	"strings"
	"time"

	"github.com/ftahirops/sentinel/internal/model"
)

// cpuTimes mirrors the ten jiffy counters in one /proc/stat line.
type cpuTimes struct {
	User, Nice, System, Idle, IOWait, IRQ, SoftIRQ, Steal, Guest, GuestNice uint64
}

func (c cpuTimes) total() uint64 {
	return c.User + c.Nice + c.System + c.Idle + c.IOWait +
		c.IRQ + c.SoftIRQ + c.Steal + c.Guest + c.GuestNice
}

func (c cpuTimes) active() uint64 {
	return c.total() - c.Idle - c.IOWait
}

func parseCPULine(line string) cpuTimes {
	fields := strings.Fields(line)
	get := func(i int) uint64 {
		if i < len(fields) {
			return parseUint64(fields[i])
		}
		return 0
	}
	return cpuTimes{
		User: get(1), Nice: get(2), System: get(3), Idle: get(4),
		IOWait: get(5), IRQ: get(6), SoftIRQ: get(7), Steal: get(8),
		Guest: get(9), GuestNice: get(10),
	}
}

// cpuPct computes the busy percentage between two jiffy samples.
func cpuPct(prev, curr cpuTimes) float64 {
	dTotal := curr.total() - prev.total()
	if dTotal == 0 {
		return 0
	}
	dActive := curr.active() - prev.active()
	pct := float64(dActive) / float64(dTotal) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func (p *Prober) collectCPU(snap *model.SystemSnapshot, dt time.Duration) error {
	lines, err := readFileLines("/proc/stat")
	if err != nil {
		return fmt.Errorf("read /proc/stat: %w", err)
	}

	var total cpuTimes
	var perCPU []cpuTimes
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "cpu "):
			total = parseCPULine(line)
		case strings.HasPrefix(line, "cpu"):
			perCPU = append(perCPU, parseCPULine(line))
		}
	}

	snap.CPUCount = len(perCPU)
	snap.CPUUsages = make([]float64, len(perCPU))

	if p.primed && len(p.prevCPUPerCPU) == len(perCPU) {
		snap.GlobalCPUUsage = cpuPct(p.prevCPUTotal, total)
		for i := range perCPU {
			snap.CPUUsages[i] = cpuPct(p.prevCPUPerCPU[i], perCPU[i])
		}
	}

	p.prevCPUTotal = total
	p.prevCPUPerCPU = perCPU

	return p.collectLoadAvg(snap)
}

func (p *Prober) collectLoadAvg(snap *model.SystemSnapshot) error {
	content, err := readFileString("/proc/loadavg")
	if err != nil {
		return fmt.Errorf("read /proc/loadavg: %w", err)
	}
	fields := strings.Fields(content)
	if len(fields) < 3 {
		return fmt.Errorf("unexpected /proc/loadavg format")
	}
	snap.Load.Load1 = parseFloat64(fields[0])
	snap.Load.Load5 = parseFloat64(fields[1])
	snap.Load.Load15 = parseFloat64(fields[2])
	return nil
}
