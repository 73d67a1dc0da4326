package alerts

// Thresholds holds the configurable rule parameters (spec.md §6). It is
// populated from internal/config at startup; the detector treats it as
// read-only input to analyze/checkThermal.
type Thresholds struct {
	CPUWarningPercent  float64
	CPUCriticalPercent float64

	MemWarningBytes  uint64
	MemCriticalBytes uint64

	SysMemWarningPercent  float64
	SysMemCriticalPercent float64

	SuspiciousPatterns      []string
	SecurityThreatPatterns  []string

	HighDiskIOBytes uint64

	ThermalWarningC   float64
	ThermalCriticalC  float64
	ThermalEmergencyC float64

	CooldownSeconds int64

	LeakMinSamples     int
	LeakGrowthFactor   float64
	LeakMinMemoryBytes uint64
}

// DefaultThresholds mirrors the preset defaults in spec.md §6.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CPUWarningPercent:      50.0,
		CPUCriticalPercent:     90.0,
		MemWarningBytes:        1024 * 1024 * 1024,
		MemCriticalBytes:       2 * 1024 * 1024 * 1024,
		SysMemWarningPercent:   75.0,
		SysMemCriticalPercent:  90.0,
		SuspiciousPatterns:     []string{"nc -l", "netcat", "/tmp/", "xmrig", "kinsing"},
		SecurityThreatPatterns: []string{"cryptominer", "reverse_shell", "meterpreter", "mimikatz"},
		HighDiskIOBytes:        50 * 1024 * 1024,
		ThermalWarningC:        85.0,
		ThermalCriticalC:       95.0,
		ThermalEmergencyC:      100.0,
		CooldownSeconds:        60,
		LeakMinSamples:         10,
		LeakGrowthFactor:       1.5,
		LeakMinMemoryBytes:     100 * 1024 * 1024,
	}
}
