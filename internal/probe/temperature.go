package probe

import (
	"path/filepath"
	"strings"

	"github.com/ftahirops/sentinel/internal/model"
)

// cpuHwmonNames is the allowlist of hwmon driver names known to expose a
// CPU package/core temperature, in probe preference order (spec.md §4.1).
var cpuHwmonNames = []string{"coretemp", "k10temp", "zenpower", "it8688", "acpitz"}

// cpuThermalZoneTypes matches /sys/class/thermal/thermal_zone*/type against
// these substrings when no hwmon CPU sensor is found.
var cpuThermalZoneTypes = []string{"cpu", "x86_pkg", "acpitz", "soc"}

// collectTemperature populates snap.CPUTemperature by probing hwmon first,
// falling back to the ACPI thermal-zone tree, and leaves it nil if neither
// exposes a CPU reading (spec.md §4.1: temperature is best-effort).
func (p *Prober) collectTemperature(snap *model.SystemSnapshot) {
	if t := probeHwmonCPU(); t != nil {
		snap.CPUTemperature = t
		return
	}
	if t := probeThermalZoneCPU(); t != nil {
		snap.CPUTemperature = t
	}
}

func probeHwmonCPU() *model.CPUTemperature {
	matches, _ := filepath.Glob("/sys/class/hwmon/hwmon*")
	for _, want := range cpuHwmonNames {
		for _, dir := range matches {
			name := strings.TrimSpace(readSysFile(filepath.Join(dir, "name")))
			if name != want {
				continue
			}
			return readHwmonTemps(dir)
		}
	}
	return nil
}

// readHwmonTemps reads all temp*_input files under a hwmon directory.
// By hwmon convention, temp1 is usually the package/die sensor and the
// rest are per-core; we take temp1 as the package reading and report the
// remainder as per-core.
func readHwmonTemps(dir string) *model.CPUTemperature {
	inputs, _ := filepath.Glob(filepath.Join(dir, "temp*_input"))
	if len(inputs) == 0 {
		return nil
	}
	for i, f := range inputs {
		if filepath.Base(f) == "temp1_input" {
			inputs[0], inputs[i] = inputs[i], inputs[0]
			break
		}
	}
	var pkg float64
	var cores []float64
	for i, f := range inputs {
		milliC := parseFloat64(strings.TrimSpace(readSysFile(f)))
		celsius := milliC / 1000.0
		if i == 0 {
			pkg = celsius
		} else {
			cores = append(cores, celsius)
		}
	}
	return &model.CPUTemperature{PackageCelsius: pkg, PerCoreCelsius: cores}
}

func probeThermalZoneCPU() *model.CPUTemperature {
	zones, _ := filepath.Glob("/sys/class/thermal/thermal_zone*")
	for _, zone := range zones {
		zoneType := strings.ToLower(strings.TrimSpace(readSysFile(filepath.Join(zone, "type"))))
		for _, want := range cpuThermalZoneTypes {
			if strings.Contains(zoneType, want) {
				milliC := parseFloat64(strings.TrimSpace(readSysFile(filepath.Join(zone, "temp"))))
				return &model.CPUTemperature{PackageCelsius: milliC / 1000.0}
			}
		}
	}
	return nil
}
