package probe

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ftahirops/sentinel/internal/model"
)

type procCounters struct {
	utime uint64
	stime uint64
}

var userCache = map[uint32]string{}

func lookupUser(uid uint32) string {
	if name, ok := userCache[uid]; ok {
		return name
	}
	name := strconv.FormatUint(uint64(uid), 10)
	if u, err := user.LookupId(name); err == nil {
		name = u.Username
	}
	userCache[uid] = name
	return name
}

// parseStatus maps the single-character process state from field 3 of
// /proc/[pid]/stat to a ProcessStatus.
func parseStatus(status byte) model.ProcessStatus {
	switch status {
	case 'R':
		return model.StatusRunning
	case 'S', 'D':
		return model.StatusSleeping
	case 'T', 't':
		return model.StatusStopped
	case 'Z':
		return model.StatusZombie
	case 'X':
		return model.StatusDead
	}
	return model.StatusUnknown
}

func (p *Prober) collectProcesses(snap *model.SystemSnapshot, dt time.Duration) ([]model.ProcessInfo, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("read /proc: %w", err)
	}

	curProc := make(map[uint32]procCounters, len(entries))
	var procs []model.ProcessInfo

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pidN := parseInt(e.Name())
		if pidN <= 0 {
			continue
		}
		pid := uint32(pidN)

		pi, ticks, ok := p.readProcess(pid, snap.TotalMemory)
		if !ok {
			continue // process exited mid-scan; skip, not an error
		}
		curProc[pid] = ticks

		if p.primed && dt > 0 {
			if prev, ok := p.prevProc[pid]; ok {
				dUTime := deltaUint64(prev.utime, ticks.utime)
				dSTime := deltaUint64(prev.stime, ticks.stime)
				busy := float64(dUTime+dSTime) / clockTicksPerSec
				pi.CPUUsage = busy / dt.Seconds() * 100
			}
		}

		procs = append(procs, pi)
	}

	p.prevProc = curProc
	return procs, nil
}

// readProcess reads one process's /proc/[pid] tree. ok is false if the
// process exited between the readdir and now (ESRCH/ENOENT), which is a
// normal race, not a probe error.
func (p *Prober) readProcess(pid uint32, totalMem uint64) (model.ProcessInfo, procCounters, bool) {
	pidDir := fmt.Sprintf("/proc/%d", pid)

	statContent, err := readFileString(filepath.Join(pidDir, "stat"))
	if err != nil {
		return model.ProcessInfo{}, procCounters{}, false
	}

	pi := model.ProcessInfo{PID: pid}
	ticks, ok := parseStat(statContent, &pi)
	if !ok {
		return model.ProcessInfo{}, procCounters{}, false
	}

	if kv, err := parseKeyValueFile(filepath.Join(pidDir, "status")); err == nil {
		pi.MemoryBytes = parseKB(firstField(kv["VmRSS"]))
		if uidField := kv["Uid"]; uidField != "" {
			if fields := strings.Fields(uidField); len(fields) > 0 {
				uid := parseUint64(fields[0])
				pi.User = lookupUser(uint32(uid))
			}
		}
		pi.ThreadCount = parseInt(kv["Threads"])
	}
	if totalMem > 0 {
		pi.MemoryPercent = float64(pi.MemoryBytes) / float64(totalMem) * 100
	}

	if kv, err := parseKeyValueFile(filepath.Join(pidDir, "io")); err == nil {
		pi.DiskReadBytes = parseUint64(kv["read_bytes"])
		pi.DiskWriteBytes = parseUint64(kv["write_bytes"])
	}

	if cmdline, err := readFileString(filepath.Join(pidDir, "cmdline")); err == nil {
		pi.CmdLine = strings.ReplaceAll(strings.TrimRight(cmdline, "\x00"), "\x00", " ")
	}

	return pi, ticks, true
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "0"
	}
	return fields[0]
}

// parseStat parses /proc/[pid]/stat, filling in Name, ParentPID, Status,
// StartTime, and returning the raw CPU tick counters (utime, stime).
// comm can contain spaces and parens, so the split uses the last ')'.
func parseStat(content string, pi *model.ProcessInfo) (procCounters, bool) {
	openIdx := strings.IndexByte(content, '(')
	closeIdx := strings.LastIndexByte(content, ')')
	if openIdx < 0 || closeIdx < 0 || closeIdx <= openIdx {
		return procCounters{}, false
	}
	pi.Name = content[openIdx+1 : closeIdx]

	rest := strings.Fields(content[closeIdx+2:])
	if len(rest) < 20 {
		return procCounters{}, false
	}

	pi.Status = parseStatus(rest[0][0])
	pi.ParentPID = uint32(parseInt(rest[1]))

	var ticks procCounters
	ticks.utime = parseUint64(rest[11])
	ticks.stime = parseUint64(rest[12])

	startTicks := parseUint64(rest[19])
	pi.StartTime = bootTimeUnix() + int64(startTicks/clockTicksPerSec)

	return ticks, true
}

var cachedBootTime int64
var bootTimeLoaded bool

// bootTimeUnix returns the system boot time as a Unix epoch second,
// parsed once from /proc/stat's "btime" line.
func bootTimeUnix() int64 {
	if bootTimeLoaded {
		return cachedBootTime
	}
	bootTimeLoaded = true
	lines, err := readFileLines("/proc/stat")
	if err != nil {
		return 0
	}
	for _, line := range lines {
		if strings.HasPrefix(line, "btime ") {
			fields := strings.Fields(line)
			if len(fields) == 2 {
				cachedBootTime = int64(parseUint64(fields[1]))
			}
			break
		}
	}
	return cachedBootTime
}
