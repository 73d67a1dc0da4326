package diagnostics

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/ftahirops/sentinel/internal/model"
)

const (
	cleanupScanDepth    = 2
	cleanupScanBudget   = 2000
	cleanupMinDirSize   = giB
	cleanupMaxCandidates = 5
)

// cleanupScanRoots mirrors the teacher's scanDirs list, narrowed to
// directories that are safe to suggest clearing wholesale. cleanupCandidates
// scans the user's ~/.cache, ~/.local/share/Trash and ~/Downloads ahead of
// these system-wide roots.
var cleanupScanRoots = []string{
	"/tmp",
	"/var/log",
	"/var/cache",
	"/var/tmp",
}

// DiskDiagnosis is §4.5.6: per-mount usage thresholds, I/O rate checks,
// and a bounded directory scan for cleanup candidates. Grounded on the
// teacher's collector/bigfiles.go depth+budget-bounded walk, repointed
// from "largest files" to "largest directories worth clearing".
func DiskDiagnosis(snap *model.SystemSnapshot) model.Report {
	report := model.Report{Title: "Disk"}

	for _, d := range snap.Disks {
		if d.TotalSpace == 0 {
			continue
		}
		usedPct := float64(d.TotalSpace-d.AvailableSpace) / float64(d.TotalSpace) * 100
		switch {
		case usedPct >= 95:
			report.Findings = append(report.Findings, infoFinding(model.SeverityCritical, fmt.Sprintf("%s nearly full", d.MountPoint),
				fmt.Sprintf("%.1f%% used, %s free", usedPct, humanize.Bytes(d.AvailableSpace))))
		case usedPct >= 85:
			report.Findings = append(report.Findings, infoFinding(model.SeverityWarning, fmt.Sprintf("%s filling up", d.MountPoint),
				fmt.Sprintf("%.1f%% used, %s free", usedPct, humanize.Bytes(d.AvailableSpace))))
		}

		const highRate = 100 * 1024 * 1024
		if d.ReadBytesPerSec > highRate || d.WriteBytesPerSec > highRate {
			report.Findings = append(report.Findings, infoFinding(model.SeverityWarning, fmt.Sprintf("%s high I/O", d.MountPoint),
				fmt.Sprintf("read %s/s, write %s/s", humanize.Bytes(uint64(d.ReadBytesPerSec)), humanize.Bytes(uint64(d.WriteBytesPerSec)))))
		}
	}

	for _, cand := range cleanupCandidates() {
		report.Findings = append(report.Findings, model.Finding{
			Severity: model.SeverityInfo,
			Title:    fmt.Sprintf("Cleanup candidate: %s", cand.path),
			Detail:   fmt.Sprintf("%s reclaimable", humanize.Bytes(cand.size)),
			Action:   &model.SuggestedAction{Kind: model.ActionCleanDirectory, Path: cand.path, SizeBytes: cand.size},
		})
	}

	if len(report.Findings) == 0 {
		report.Findings = append(report.Findings, infoFinding(model.SeverityInfo, "Disks healthy", "no space or I/O pressure detected"))
	}
	return report
}

type dirSize struct {
	path string
	size uint64
}

func cleanupCandidates() []dirSize {
	var sizes []dirSize
	budget := cleanupScanBudget
	var roots []string
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots,
			filepath.Join(home, ".cache"),
			filepath.Join(home, ".local", "share", "Trash"),
			filepath.Join(home, "Downloads"))
	}
	roots = append(roots, cleanupScanRoots...)
	for _, root := range roots {
		if budget <= 0 {
			break
		}
		var size uint64
		size, budget = scanDirSize(root, budget, 0)
		if size >= cleanupMinDirSize {
			sizes = append(sizes, dirSize{path: root, size: size})
		}
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i].size > sizes[j].size })
	if len(sizes) > cleanupMaxCandidates {
		sizes = sizes[:cleanupMaxCandidates]
	}
	return sizes
}

// scanDirSize sums file sizes under dir up to cleanupScanDepth, bounded
// by a stat() budget shared across the whole cleanup scan.
func scanDirSize(dir string, budget, depth int) (uint64, int) {
	if budget <= 0 || depth > cleanupScanDepth {
		return 0, budget
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, budget
	}

	var total uint64
	for _, e := range entries {
		if budget <= 0 {
			break
		}
		full := filepath.Join(dir, e.Name())
		if e.IsDir() {
			var sub uint64
			sub, budget = scanDirSize(full, budget, depth+1)
			total += sub
			continue
		}
		budget--
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += uint64(info.Size())
	}
	return total, budget
}
