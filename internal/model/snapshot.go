package model

import "time"

// NetworkInterface holds per-tick derived rates for one interface.
type NetworkInterface struct {
	Name        string
	RxBytesDelta uint64
	TxBytesDelta uint64
	TotalRx     uint64
	TotalTx     uint64
}

// DiskUsage holds space and derived I/O rates for one mounted filesystem.
type DiskUsage struct {
	MountPoint      string
	FSType          string
	TotalSpace      uint64
	AvailableSpace  uint64
	DiskKind        string // "SSD", "HDD", "Unknown"
	ReadBytesPerSec  float64
	WriteBytesPerSec float64
}

// CPUTemperature holds package and per-core Celsius readings.
type CPUTemperature struct {
	PackageCelsius float64
	PerCoreCelsius []float64
}

// GPU holds optional GPU telemetry.
type GPU struct {
	Name            string
	UtilizationPct  float64
	MemoryUsedBytes uint64
	MemoryTotalBytes uint64
	TemperatureC    float64
	PowerWatts      float64
	FanPercent      *float64 // optional
}

// Battery holds optional battery telemetry.
type Battery struct {
	Percent       float64
	Status        string // "Charging", "Discharging", "Full", "Unknown"
	TimeRemaining *time.Duration // optional
}

// LoadAverage holds the three standard load-average windows.
type LoadAverage struct {
	Load1  float64
	Load5  float64
	Load15 float64
}

// SystemSnapshot is an immutable, atomic per-tick view of system state.
//
// Invariants (spec.md §3 / §8):
//   - UsedMemory <= TotalMemory
//   - UsedSwap <= TotalSwap
//   - 0 <= CPUUsages[i] <= 100 for all i
//   - len(CPUUsages) == CPUCount
type SystemSnapshot struct {
	Timestamp time.Time

	TotalMemory uint64
	UsedMemory  uint64
	TotalSwap   uint64
	UsedSwap    uint64

	CPUCount         int
	CPUUsages        []float64 // index = core id
	GlobalCPUUsage   float64

	Uptime  time.Duration
	Hostname string
	OSName   string

	Load LoadAverage

	TotalProcesses int

	Network []NetworkInterface
	Disks   []DiskUsage

	CPUTemperature *CPUTemperature // optional
	GPU            *GPU            // optional
	Battery        *Battery        // optional
}

// MemoryPercent returns the fraction of total memory in use, 0 if
// TotalMemory is 0 (spec.md §8 boundary behavior).
func (s *SystemSnapshot) MemoryPercent() float64 {
	if s.TotalMemory == 0 {
		return 0
	}
	return float64(s.UsedMemory) / float64(s.TotalMemory) * 100
}

// SwapPercent returns the fraction of total swap in use, 0 if TotalSwap is 0.
func (s *SystemSnapshot) SwapPercent() float64 {
	if s.TotalSwap == 0 {
		return 0
	}
	return float64(s.UsedSwap) / float64(s.TotalSwap) * 100
}

// ThermalSnapshot is the subset of sensor readings the thermal controller
// (C6) evaluates each tick.
type ThermalSnapshot struct {
	Timestamp time.Time
	MaxTempC  float64
	BySensor  map[string]float64 // sensor name -> Celsius
}
