package probe

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ftahirops/sentinel/internal/model"
)

// collectGPU populates snap.GPU with a best-effort reading from the AMD
// GPU sysfs interface (/sys/class/drm/card*/device/*); there is no vendor
// SDK in scope (spec.md Non-goals exclude vendor-specific GPU libraries),
// so anything the kernel doesn't expose through sysfs is left unset.
// snap.GPU stays nil on any machine without a discrete/integrated AMD GPU
// node, which is the common case and not an error.
func (p *Prober) collectGPU(snap *model.SystemSnapshot) {
	cards, _ := filepath.Glob("/sys/class/drm/card[0-9]/device")
	for _, dev := range cards {
		if !isDir(dev) {
			continue
		}
		busyFile := filepath.Join(dev, "gpu_busy_percent")
		busy := strings.TrimSpace(readSysFile(busyFile))
		if busy == "" {
			continue // not an AMD GPU node, or driver doesn't expose utilization
		}

		g := &model.GPU{
			Name:           gpuProductName(dev),
			UtilizationPct: parseFloat64(busy),
		}

		if v := strings.TrimSpace(readSysFile(filepath.Join(dev, "mem_info_vram_used"))); v != "" {
			g.MemoryUsedBytes = parseUint64(v)
		}
		if v := strings.TrimSpace(readSysFile(filepath.Join(dev, "mem_info_vram_total"))); v != "" {
			g.MemoryTotalBytes = parseUint64(v)
		}
		if v := strings.TrimSpace(readSysFile(filepath.Join(dev, "hwmon", "hwmon0", "temp1_input"))); v != "" {
			g.TemperatureC = parseFloat64(v) / 1000.0
		}
		if v := strings.TrimSpace(readSysFile(filepath.Join(dev, "hwmon", "hwmon0", "power1_average"))); v != "" {
			g.PowerWatts = parseFloat64(v) / 1_000_000.0
		}
		if v := strings.TrimSpace(readSysFile(filepath.Join(dev, "hwmon", "hwmon0", "pwm1"))); v != "" {
			if pwm, err := strconv.Atoi(v); err == nil {
				pct := float64(pwm) / 255.0 * 100
				g.FanPercent = &pct
			}
		}

		snap.GPU = g
		return
	}
}

func gpuProductName(dev string) string {
	if name := strings.TrimSpace(readSysFile(filepath.Join(dev, "product_name"))); name != "" {
		return name
	}
	return "GPU"
}
