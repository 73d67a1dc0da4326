package alerts

import (
	"time"

	"github.com/ftahirops/sentinel/internal/model"
)

// CooldownMap deduplicates alerts per (pid, category) key, owned
// exclusively by the Detector (spec.md §3). Grounded on the teacher's
// AlertState candidate-tracking idiom, adapted from a sustained-ticks
// debounce to a wall-clock cooldown window per spec.md §4.3.
type CooldownMap struct {
	seconds int64
	last    map[model.CooldownKey]time.Time
}

func NewCooldownMap(seconds int64) *CooldownMap {
	return &CooldownMap{seconds: seconds, last: make(map[model.CooldownKey]time.Time)}
}

// allow reports whether an alert for key should fire now, recording the
// firing time if so. Suppressed alerts do not update last.
func (c *CooldownMap) allow(key model.CooldownKey, now time.Time) bool {
	if prev, ok := c.last[key]; ok {
		if now.Sub(prev) < time.Duration(c.seconds)*time.Second {
			return false
		}
	}
	c.last[key] = now
	return true
}

// purge retains only keys whose pid is present in live, plus pid 0 and
// thermal categories, whose pseudo-pid is not drawn from the process
// pid space and so is never "present" in a process snapshot (spec.md
// §4.3 State hygiene: "plus pid 0 for system-wide keys").
func (c *CooldownMap) purge(live map[uint32]bool) {
	for key := range c.last {
		if key.PID == 0 || isThermalCategory(key.Category) || live[key.PID] {
			continue
		}
		delete(c.last, key)
	}
}

func isThermalCategory(cat model.Category) bool {
	switch cat {
	case model.CategoryThermalWarning, model.CategoryThermalCritical, model.CategoryThermalEmergency:
		return true
	}
	return false
}

// thermalPseudoPID derives a stable deterministic pid surrogate from a
// sensor name, so distinct sensors get distinct cooldown keys without
// colliding with real process pids being a concern (spec.md glossary
// "Pseudo-pid"). Wrapping byte-sum, per spec.md §4.3.
func thermalPseudoPID(sensorName string) uint32 {
	var sum uint32
	for i := 0; i < len(sensorName); i++ {
		sum += uint32(sensorName[i])
	}
	return sum
}
