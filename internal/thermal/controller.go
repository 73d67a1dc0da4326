// Package thermal implements the Thermal Controller (C6): a sum-type
// state machine over the rolling max temperature seen in each
// ThermalSnapshot, escalating through a sustained-emergency counter and
// a grace period before invoking an OS shutdown. Grounded on the
// teacher's AlertState sustained-threshold idiom (engine/alertstate.go),
// restructured into one time-bearing variant per spec.md §4.6 rather
// than a single debounce counter, since Idle/Counting/Grace each need
// their own started-at timestamp.
package thermal

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// State identifies which variant of the thermal state machine is active.
type State int

const (
	StateIdle State = iota
	StateCounting
	StateGrace
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateCounting:
		return "Counting"
	case StateGrace:
		return "Grace"
	case StateShutdown:
		return "Shutdown"
	}
	return "Unknown"
}

// EventKind identifies which per-tick event the controller emitted.
type EventKind int

const (
	EventNone EventKind = iota
	EventEmergencyStarted
	EventCounting
	EventGracePeriodStarted
	EventGracePeriodCountdown
	EventShutdownNow
	EventRecovered
)

func (k EventKind) String() string {
	switch k {
	case EventNone:
		return "None"
	case EventEmergencyStarted:
		return "EmergencyStarted"
	case EventCounting:
		return "Counting"
	case EventGracePeriodStarted:
		return "GracePeriodStarted"
	case EventGracePeriodCountdown:
		return "GracePeriodCountdown"
	case EventShutdownNow:
		return "ShutdownNow"
	case EventRecovered:
		return "Recovered"
	}
	return "Unknown"
}

// Event is the per-tick outcome of the controller; Elapsed/Required are
// populated for EventCounting, Remaining for EventGracePeriodCountdown.
type Event struct {
	Kind     EventKind
	Elapsed  time.Duration
	Required time.Duration
	Remaining time.Duration
}

// Config holds the thermal thresholds and schedule (spec.md §6 [thermal]
// block).
type Config struct {
	WarningC         float64
	CriticalC        float64
	EmergencyC       float64
	SustainedSeconds time.Duration
	GracePeriod      time.Duration

	// AutoShutdownEnabled and CredentialPresent together determine Armed
	// (spec.md §4.6/§6): either alone does not arm the controller.
	AutoShutdownEnabled bool
	CredentialPresent   bool

	// ScheduleStartHr/ScheduleEndHr, both in [0,23], suppress the
	// Counting -> Grace transition outside the window when HasSchedule is
	// true (spec.md §4.6 "active hours").
	HasSchedule     bool
	ScheduleStartHr int
	ScheduleEndHr   int
}

func (c Config) armed() bool {
	return c.AutoShutdownEnabled && c.CredentialPresent
}

func (c Config) inActiveHours(now time.Time) bool {
	if !c.HasSchedule {
		return true
	}
	h := now.Hour()
	if c.ScheduleStartHr <= c.ScheduleEndHr {
		return h >= c.ScheduleStartHr && h < c.ScheduleEndHr
	}
	// Wraps past midnight, e.g. 22 -> 6.
	return h >= c.ScheduleStartHr || h < c.ScheduleEndHr
}

// Controller is the thermal state machine. tick is pure with respect to
// wall-clock except for reading now; abort is a direct variant
// assignment (spec.md §9).
type Controller struct {
	cfg   Config
	state State

	startedAt time.Time // Counting entry time
	enteredAt time.Time // Grace entry time

	aborted bool // silences further emissions until process restart
}

func NewController(cfg Config) *Controller {
	return &Controller{cfg: cfg, state: StateIdle}
}

func (c *Controller) State() State { return c.state }

// ShutdownCommand is the OS shutdown invocation; overridable in tests.
var ShutdownCommand = func(ctx context.Context) error {
	return exec.CommandContext(ctx, "shutdown", "-h", "now").Run()
}

// Tick advances the state machine by one reading (spec.md §4.6). err is
// non-nil only for EventShutdownNow when the OS shutdown invocation
// itself failed; the controller still remains in Shutdown and does not
// retry (spec.md §4.6 Failure semantics) — the caller surfaces err.
func (c *Controller) Tick(maxTempC float64, now time.Time) (Event, error) {
	if c.aborted {
		return Event{Kind: EventNone}, nil
	}

	switch c.state {
	case StateIdle:
		if c.cfg.armed() && maxTempC >= c.cfg.EmergencyC {
			c.state = StateCounting
			c.startedAt = now
			return Event{Kind: EventEmergencyStarted}, nil
		}
		return Event{Kind: EventNone}, nil

	case StateCounting:
		if maxTempC < c.cfg.CriticalC {
			c.state = StateIdle
			return Event{Kind: EventRecovered}, nil
		}
		elapsed := now.Sub(c.startedAt)
		if elapsed >= c.cfg.SustainedSeconds {
			if !c.cfg.inActiveHours(now) {
				// Suppressed: stay in Counting so the operator still
				// sees the sustained warning, per spec.md §4.6.
				return Event{Kind: EventCounting, Elapsed: elapsed, Required: c.cfg.SustainedSeconds}, nil
			}
			c.state = StateGrace
			c.enteredAt = now
			return Event{Kind: EventGracePeriodStarted}, nil
		}
		return Event{Kind: EventCounting, Elapsed: elapsed, Required: c.cfg.SustainedSeconds}, nil

	case StateGrace:
		if maxTempC < c.cfg.CriticalC {
			c.state = StateIdle
			return Event{Kind: EventRecovered}, nil
		}
		elapsed := now.Sub(c.enteredAt)
		if elapsed >= c.cfg.GracePeriod {
			c.state = StateShutdown
			err := ShutdownCommand(context.Background())
			return Event{Kind: EventShutdownNow}, err
		}
		return Event{Kind: EventGracePeriodCountdown, Remaining: c.cfg.GracePeriod - elapsed}, nil

	case StateShutdown:
		return Event{Kind: EventNone}, nil // terminal

	default:
		return Event{Kind: EventNone}, nil
	}
}

// Abort transitions any active state back to Idle and silences further
// emissions until the next cold start (spec.md §4.6).
func (c *Controller) Abort() {
	c.state = StateIdle
	c.aborted = true
}

// FormatEvent renders an Event for logging/notification bodies.
func FormatEvent(e Event) string {
	switch e.Kind {
	case EventCounting:
		return fmt.Sprintf("Counting: %s/%s sustained", e.Elapsed.Round(time.Second), e.Required.Round(time.Second))
	case EventGracePeriodCountdown:
		return fmt.Sprintf("GracePeriodCountdown: %s remaining", e.Remaining.Round(time.Second))
	default:
		return e.Kind.String()
	}
}
