package probe

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ftahirops/sentinel/internal/model"
)

func (p *Prober) collectMemory(snap *model.SystemSnapshot) error {
	kv, err := parseKeyValueFile("/proc/meminfo")
	if err != nil {
		return fmt.Errorf("read /proc/meminfo: %w", err)
	}

	total := parseKB(kv["MemTotal"])
	available := parseKB(kv["MemAvailable"])
	free := parseKB(kv["MemFree"])
	if available == 0 {
		// Older kernels lack MemAvailable; approximate from Free+Cached+Buffers.
		available = free + parseKB(kv["Cached"]) + parseKB(kv["Buffers"])
	}

	snap.TotalMemory = total
	if total > available {
		snap.UsedMemory = total - available
	}

	swapTotal := parseKB(kv["SwapTotal"])
	swapFree := parseKB(kv["SwapFree"])
	snap.TotalSwap = swapTotal
	if swapTotal > swapFree {
		snap.UsedSwap = swapTotal - swapFree
	}

	return nil
}

func (p *Prober) collectSysInfo(snap *model.SystemSnapshot) {
	snap.Hostname, _ = os.Hostname()
	snap.OSName = readOSName()
	snap.Uptime = readUptime()
}

func readOSName() string {
	content, err := readFileString("/etc/os-release")
	if err != nil {
		return "Linux"
	}
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "PRETTY_NAME=") {
			v := strings.TrimPrefix(line, "PRETTY_NAME=")
			return strings.Trim(v, `"`)
		}
	}
	return "Linux"
}

func readUptime() time.Duration {
	content, err := readFileString("/proc/uptime")
	if err != nil {
		return 0
	}
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return 0
	}
	secs := parseFloat64(fields[0])
	return time.Duration(secs * float64(time.Second))
}
