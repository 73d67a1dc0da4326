// Package probe implements the Platform Probe (C1): one pure-ish function
// returning a fresh SystemSnapshot plus the current process list, by
// reading /proc and /sys. The only retained state is the set of
// cumulative counters needed to derive rates (disk I/O, network I/O,
// per-core and per-process CPU usage) between consecutive calls.
package probe

import (
	"fmt"
	"time"

	"github.com/ftahirops/sentinel/internal/model"
)

// MinDiskSizeBytes is the minimum filesystem size reported (spec.md
// §4.1's MIN_DISK_SIZE_BYTES).
const MinDiskSizeBytes = 1 << 20 // 1 MiB

// InitialSettleDelay is how long Settle sleeps before discarding the
// first probe result, so that CPU% and disk/network rates have a valid
// delta for the first user-visible value (spec.md §4.1/§4.2 "Settle").
const InitialSettleDelay = 300 * time.Millisecond

// clockTicksPerSec is USER_HZ, the jiffies-per-second rate used to
// convert /proc/[pid]/stat utime+stime into wall-clock seconds. 100 is
// the kernel default on every mainstream Linux distribution.
const clockTicksPerSec = 100.0

// Prober is a stateful wrapper around the platform probe. It is not
// safe for concurrent use; the Coordinator (C7) calls Probe from a
// single goroutine per spec.md §5.
type Prober struct {
	primed bool // true once a first call has populated the delta state

	prevTime time.Time

	prevCPUTotal  cpuTimes
	prevCPUPerCPU []cpuTimes

	prevDisk map[string]diskCounters
	prevNet  map[string]netCounters

	prevProc map[uint32]procCounters
}

// NewProber creates a Prober with no prior state.
func NewProber() *Prober {
	return &Prober{
		prevDisk: make(map[string]diskCounters),
		prevNet:  make(map[string]netCounters),
		prevProc: make(map[uint32]procCounters),
	}
}

// Settle performs the startup settle: sleep InitialSettleDelay, probe
// once, and discard the result, so that the first user-visible tick has
// valid rate-derived fields (spec.md §4.1).
func (p *Prober) Settle() {
	time.Sleep(InitialSettleDelay)
	_, _, _ = p.Probe()
}

// Probe returns one fresh SystemSnapshot and the current process list.
// Rate-derived fields (CPU%, disk/network I/O) are zero on the very
// first call after construction, since there is no prior sample to
// diff against; callers should call Settle() once at startup before
// relying on those fields (spec.md §4.1).
func (p *Prober) Probe() (model.SystemSnapshot, []model.ProcessInfo, error) {
	now := time.Now()
	dt := time.Duration(0)
	if p.primed {
		dt = now.Sub(p.prevTime)
	}

	snap := model.SystemSnapshot{Timestamp: now}

	if err := p.collectCPU(&snap, dt); err != nil {
		return snap, nil, fmt.Errorf("probe cpu: %w", err)
	}
	if err := p.collectMemory(&snap); err != nil {
		return snap, nil, fmt.Errorf("probe memory: %w", err)
	}
	if err := p.collectDisks(&snap, dt); err != nil {
		return snap, nil, fmt.Errorf("probe disks: %w", err)
	}
	if err := p.collectNetwork(&snap, dt); err != nil {
		return snap, nil, fmt.Errorf("probe network: %w", err)
	}
	p.collectSysInfo(&snap)
	p.collectTemperature(&snap)
	p.collectGPU(&snap)
	p.collectBattery(&snap)

	procs, err := p.collectProcesses(&snap, dt)
	if err != nil {
		return snap, nil, fmt.Errorf("probe processes: %w", err)
	}
	snap.TotalProcesses = len(procs)

	p.prevTime = now
	p.primed = true
	return snap, procs, nil
}
