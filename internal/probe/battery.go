package probe

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/ftahirops/sentinel/internal/model"
)

// collectBattery populates snap.Battery from the first power_supply node
// of type "Battery" (spec.md §4.1); desktops and servers have none, so
// snap.Battery stays nil in the common case, not an error.
func (p *Prober) collectBattery(snap *model.SystemSnapshot) {
	supplies, _ := filepath.Glob("/sys/class/power_supply/*")
	for _, dir := range supplies {
		if strings.TrimSpace(readSysFile(filepath.Join(dir, "type"))) != "Battery" {
			continue
		}

		capacity := strings.TrimSpace(readSysFile(filepath.Join(dir, "capacity")))
		if capacity == "" {
			continue
		}

		b := &model.Battery{
			Percent: parseFloat64(capacity),
			Status:  batteryStatus(dir),
		}

		if d := estimateTimeRemaining(dir, b.Status); d != 0 {
			b.TimeRemaining = &d
		}

		snap.Battery = b
		return
	}
}

func batteryStatus(dir string) string {
	switch strings.TrimSpace(readSysFile(filepath.Join(dir, "status"))) {
	case "Charging":
		return "Charging"
	case "Discharging":
		return "Discharging"
	case "Full":
		return "Full"
	}
	return "Unknown"
}

// estimateTimeRemaining derives a rough remaining duration from the
// instantaneous energy/power (or charge/current) sysfs pair, when the
// kernel exposes both. Returns 0 when the rate is unavailable or zero.
func estimateTimeRemaining(dir, status string) time.Duration {
	energyNow := parseFloat64(strings.TrimSpace(readSysFile(filepath.Join(dir, "energy_now"))))
	powerNow := parseFloat64(strings.TrimSpace(readSysFile(filepath.Join(dir, "power_now"))))
	energyFull := parseFloat64(strings.TrimSpace(readSysFile(filepath.Join(dir, "energy_full"))))

	if powerNow <= 0 {
		return 0
	}

	switch status {
	case "Discharging":
		if energyNow <= 0 {
			return 0
		}
		hours := energyNow / powerNow
		return time.Duration(hours * float64(time.Hour))
	case "Charging":
		if energyFull <= 0 || energyFull <= energyNow {
			return 0
		}
		hours := (energyFull - energyNow) / powerNow
		return time.Duration(hours * float64(time.Hour))
	}
	return 0
}
