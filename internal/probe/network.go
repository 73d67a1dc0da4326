package probe

import (
	"fmt"
	"strings"
	"time"

	"github.com/ftahirops/sentinel/internal/model"
)

type netCounters struct {
	rxBytes uint64
	txBytes uint64
}

func parseNetDevLine(line string) (name string, c netCounters, ok bool) {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return "", netCounters{}, false
	}
	name = strings.TrimSpace(parts[0])
	fields := strings.Fields(parts[1])
	if len(fields) < 16 {
		return "", netCounters{}, false
	}
	return name, netCounters{
		rxBytes: parseUint64(fields[0]),
		txBytes: parseUint64(fields[8]),
	}, true
}

func (p *Prober) collectNetwork(snap *model.SystemSnapshot, dt time.Duration) error {
	lines, err := readFileLines("/proc/net/dev")
	if err != nil {
		return fmt.Errorf("read /proc/net/dev: %w", err)
	}

	curNet := make(map[string]netCounters, len(lines))
	var ifaces []model.NetworkInterface
	for _, line := range lines {
		if strings.Contains(line, "|") {
			continue // header lines
		}
		name, c, ok := parseNetDevLine(line)
		if !ok || name == "lo" {
			continue
		}
		curNet[name] = c

		ni := model.NetworkInterface{
			Name:    name,
			TotalRx: c.rxBytes,
			TotalTx: c.txBytes,
		}
		if p.primed && dt > 0 {
			if prev, ok := p.prevNet[name]; ok {
				ni.RxBytesDelta = deltaUint64(prev.rxBytes, c.rxBytes)
				ni.TxBytesDelta = deltaUint64(prev.txBytes, c.txBytes)
			}
		}
		ifaces = append(ifaces, ni)
	}
	p.prevNet = curNet
	snap.Network = ifaces
	return nil
}

// deltaUint64 returns curr-prev, or 0 on counter wrap/reset.
func deltaUint64(prev, curr uint64) uint64 {
	if curr < prev {
		return 0
	}
	return curr - prev
}
