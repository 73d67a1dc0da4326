package probe

import (
	"fmt"
	"strings"
	"time"

	"github.com/ftahirops/sentinel/internal/model"
	"golang.org/x/sys/unix"
)

// diskCounters holds the raw sector counters from /proc/diskstats needed
// to derive read/write byte rates (sectors are always 512 bytes,
// regardless of the device's physical block size).
type diskCounters struct {
	sectorsRead    uint64
	sectorsWritten uint64
}

const sectorSize = 512

func parseDiskstatsLine(line string) (name string, c diskCounters, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 14 {
		return "", diskCounters{}, false
	}
	return fields[2], diskCounters{
		sectorsRead:    parseUint64(fields[5]),
		sectorsWritten: parseUint64(fields[9]),
	}, true
}

// isExcludedDevice filters devices whose name starts with ram, loop, or
// dm- (spec.md §4.1).
func isExcludedDevice(name string) bool {
	return strings.HasPrefix(name, "ram") ||
		strings.HasPrefix(name, "loop") ||
		strings.HasPrefix(name, "dm-")
}

// deviceForMountSource maps a /proc/mounts source device (e.g. "/dev/sda1",
// "/dev/nvme0n1p1") to its whole-disk diskstats name ("sda", "nvme0n1"),
// so that per-mountpoint I/O rates can be looked up against the
// whole-device counters recorded in /proc/diskstats.
func deviceForMountSource(source string) string {
	name := strings.TrimPrefix(source, "/dev/")
	if name == source {
		return "" // not a block device (tmpfs, overlay, proc, ...)
	}
	if strings.HasPrefix(name, "nvme") {
		if idx := strings.Index(name, "p"); idx > 0 {
			return name[:idx]
		}
		return name
	}
	// sdXN, vdXN, xvdXN, hdXN -> strip trailing digits
	end := len(name)
	for end > 0 && name[end-1] >= '0' && name[end-1] <= '9' {
		end--
	}
	return name[:end]
}

func diskKindFor(name string) string {
	rotational := readSysFile(fmt.Sprintf("/sys/block/%s/queue/rotational", name))
	switch rotational {
	case "0":
		return "SSD"
	case "1":
		return "HDD"
	}
	return "Unknown"
}

func (p *Prober) collectDisks(snap *model.SystemSnapshot, dt time.Duration) error {
	statLines, err := readFileLines("/proc/diskstats")
	if err != nil {
		return fmt.Errorf("read /proc/diskstats: %w", err)
	}

	curDisk := make(map[string]diskCounters, len(statLines))
	rates := make(map[string][2]float64) // device -> [readBps, writeBps]
	for _, line := range statLines {
		name, c, ok := parseDiskstatsLine(line)
		if !ok || isExcludedDevice(name) {
			continue
		}
		curDisk[name] = c
		if p.primed && dt > 0 {
			if prev, ok := p.prevDisk[name]; ok {
				readBps := float64(c.sectorsRead-prev.sectorsRead) * sectorSize / dt.Seconds()
				writeBps := float64(c.sectorsWritten-prev.sectorsWritten) * sectorSize / dt.Seconds()
				rates[name] = [2]float64{readBps, writeBps}
			}
		}
	}
	p.prevDisk = curDisk

	mountLines, err := readFileLines("/proc/mounts")
	if err != nil {
		return fmt.Errorf("read /proc/mounts: %w", err)
	}

	seen := make(map[string]bool)
	var disks []model.DiskUsage
	for _, line := range mountLines {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		source, mountPoint, fsType := fields[0], fields[1], fields[2]
		if seen[mountPoint] {
			continue
		}

		var st unix.Statfs_t
		if err := unix.Statfs(mountPoint, &st); err != nil {
			continue
		}
		total := uint64(st.Blocks) * uint64(st.Bsize)
		if total < MinDiskSizeBytes {
			continue
		}
		seen[mountPoint] = true

		du := model.DiskUsage{
			MountPoint:     mountPoint,
			FSType:         fsType,
			TotalSpace:     total,
			AvailableSpace: uint64(st.Bavail) * uint64(st.Bsize),
		}

		if dev := deviceForMountSource(source); dev != "" {
			du.DiskKind = diskKindFor(dev)
			if r, ok := rates[dev]; ok {
				du.ReadBytesPerSec = r[0]
				du.WriteBytesPerSec = r[1]
			}
		} else {
			du.DiskKind = "Unknown"
		}

		disks = append(disks, du)
	}
	snap.Disks = disks
	return nil
}
