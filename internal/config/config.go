// Package config loads and clamps Sentinel's TOML configuration file
// (spec.md §6) and the companion .env credential file (env.go).
// Grounded on the teacher's own lack of a config file (xtop reads
// flags only): the load/save/clamp shape instead follows
// pelletier/go-toml/v2's documented marshal/unmarshal idiom, since that
// library is the pack's TOML dependency with no teacher precedent to
// imitate more closely.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ftahirops/sentinel/internal/alerts"
	"github.com/ftahirops/sentinel/internal/thermal"
)

// Thermal holds the [thermal] TOML block.
type Thermal struct {
	WarningThreshold      float64 `toml:"warning_threshold"`
	CriticalThreshold     float64 `toml:"critical_threshold"`
	EmergencyThreshold    float64 `toml:"emergency_threshold"`
	SustainedSeconds      int     `toml:"sustained_seconds"`
	AutoShutdownEnabled   bool    `toml:"auto_shutdown_enabled"`
	ShutdownScheduleStart int     `toml:"shutdown_schedule_start"`
	ShutdownScheduleEnd   int     `toml:"shutdown_schedule_end"`
	PollIntervalSecs      int     `toml:"poll_interval_secs"`
	LHMURL                string  `toml:"lhm_url"`
}

// Config is the full, clamped contents of config.toml (spec.md §6).
type Config struct {
	RefreshIntervalMs        int      `toml:"refresh_interval_ms"`
	CPUWarningThreshold      float64  `toml:"cpu_warning_threshold"`
	CPUCriticalThreshold     float64  `toml:"cpu_critical_threshold"`
	MemWarningThresholdMiB   int      `toml:"mem_warning_threshold_mib"`
	MemCriticalThresholdMiB  int      `toml:"mem_critical_threshold_mib"`
	SysMemWarningPercent     float64  `toml:"sys_mem_warning_percent"`
	SysMemCriticalPercent    float64  `toml:"sys_mem_critical_percent"`
	MaxAlerts                int      `toml:"max_alerts"`
	SuspiciousPatterns       []string `toml:"suspicious_patterns"`
	SecurityThreatPatterns   []string `toml:"security_threat_patterns"`
	AutoAnalysisIntervalSecs int      `toml:"auto_analysis_interval_secs"`
	Theme                    string   `toml:"theme"`
	Lang                     string   `toml:"lang"`
	Thermal                  Thermal  `toml:"thermal"`
}

// Default returns the preset defaults from spec.md §6.
func Default() Config {
	return Config{
		RefreshIntervalMs:        1000,
		CPUWarningThreshold:      50.0,
		CPUCriticalThreshold:     90.0,
		MemWarningThresholdMiB:   1024,
		MemCriticalThresholdMiB:  2048,
		SysMemWarningPercent:     75.0,
		SysMemCriticalPercent:    90.0,
		MaxAlerts:                200,
		SuspiciousPatterns:       []string{"nc -l", "netcat", "/tmp/", "xmrig", "kinsing"},
		SecurityThreatPatterns:   []string{"cryptominer", "reverse_shell", "meterpreter", "mimikatz"},
		AutoAnalysisIntervalSecs: 300,
		Theme:                    "default",
		Lang:                     "en",
		Thermal: Thermal{
			WarningThreshold:   85.0,
			CriticalThreshold:  95.0,
			EmergencyThreshold: 100.0,
			SustainedSeconds:   180,
			PollIntervalSecs:   5,
		},
	}
}

// Dir returns ${XDG_CONFIG_HOME}/sentinel, falling back to
// ~/.config/sentinel.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sentinel"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", "sentinel"), nil
}

// DataDir returns ${XDG_DATA_HOME}/sentinel, falling back to
// ~/.local/share/sentinel (spec.md §6 "Database file").
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "sentinel"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", "sentinel"), nil
}

// DBPath returns the full sentinel.db path under DataDir.
func DBPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sentinel.db"), nil
}

// Path returns the full config.toml path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config.toml, merges it over the defaults (unknown fields
// ignored by go-toml/v2's default decode behavior), clamps every bounded
// field, and returns the result. A missing file is not an error: Load
// returns Default().
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.clamp()
	return cfg, nil
}

// Save writes cfg to config.toml, creating the config directory if
// needed.
func Save(cfg Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) clamp() {
	if c.RefreshIntervalMs < 100 {
		c.RefreshIntervalMs = 100
	}
	c.CPUWarningThreshold = clampFloat(c.CPUWarningThreshold, 1, 100)
	c.CPUCriticalThreshold = clampFloat(c.CPUCriticalThreshold, 1, 100)
	c.SysMemWarningPercent = clampFloat(c.SysMemWarningPercent, 1, 100)
	c.SysMemCriticalPercent = clampFloat(c.SysMemCriticalPercent, 1, 100)
	if c.MaxAlerts < 10 {
		c.MaxAlerts = 10
	}
	if len(c.SuspiciousPatterns) == 0 {
		c.SuspiciousPatterns = Default().SuspiciousPatterns
	}
	if len(c.SecurityThreatPatterns) == 0 {
		c.SecurityThreatPatterns = Default().SecurityThreatPatterns
	}
	if c.AutoAnalysisIntervalSecs < 0 {
		c.AutoAnalysisIntervalSecs = 0
	}
}

// ToThresholds converts the loaded config into the detector's rule
// parameters, carrying over the leak/cooldown presets that spec.md §6
// does not expose as config fields.
func (c Config) ToThresholds() alerts.Thresholds {
	t := alerts.DefaultThresholds()
	t.CPUWarningPercent = c.CPUWarningThreshold
	t.CPUCriticalPercent = c.CPUCriticalThreshold
	t.MemWarningBytes = uint64(c.MemWarningThresholdMiB) * 1024 * 1024
	t.MemCriticalBytes = uint64(c.MemCriticalThresholdMiB) * 1024 * 1024
	t.SysMemWarningPercent = c.SysMemWarningPercent
	t.SysMemCriticalPercent = c.SysMemCriticalPercent
	t.SuspiciousPatterns = c.SuspiciousPatterns
	t.SecurityThreatPatterns = c.SecurityThreatPatterns
	return t
}

// ToThermalConfig converts the [thermal] block into the controller's
// config, arming it only once credentialPresent (from .env) is known.
func (c Config) ToThermalConfig(credentialPresent bool) thermal.Config {
	hasSchedule := c.Thermal.ShutdownScheduleStart != 0 || c.Thermal.ShutdownScheduleEnd != 0
	return thermal.Config{
		WarningC:            c.Thermal.WarningThreshold,
		CriticalC:           c.Thermal.CriticalThreshold,
		EmergencyC:          c.Thermal.EmergencyThreshold,
		SustainedSeconds:    time.Duration(c.Thermal.SustainedSeconds) * time.Second,
		GracePeriod:         5 * time.Minute,
		AutoShutdownEnabled: c.Thermal.AutoShutdownEnabled,
		CredentialPresent:   credentialPresent,
		HasSchedule:         hasSchedule,
		ScheduleStartHr:     c.Thermal.ShutdownScheduleStart,
		ScheduleEndHr:       c.Thermal.ShutdownScheduleEnd,
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
