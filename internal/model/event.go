package model

// EventKind identifies the kind of lifecycle/alert row stored in the
// event store (C4). String<->kind round-trips exactly (spec.md §8).
type EventKind int

const (
	EventProcessStart EventKind = iota
	EventProcessExit
	EventPortBind
	EventPortRelease
	EventAlert
	EventCPUSpike
	EventMemorySpike
	EventOOMKill
)

func (k EventKind) String() string {
	switch k {
	case EventProcessStart:
		return "process_start"
	case EventProcessExit:
		return "process_exit"
	case EventPortBind:
		return "port_bind"
	case EventPortRelease:
		return "port_release"
	case EventAlert:
		return "alert"
	case EventCPUSpike:
		return "cpu_spike"
	case EventMemorySpike:
		return "memory_spike"
	case EventOOMKill:
		return "oom_kill"
	}
	return "unknown"
}

// ParseEventKind parses the string produced by EventKind.String, the
// inverse of it; ok is false for any string not produced by String().
func ParseEventKind(s string) (kind EventKind, ok bool) {
	switch s {
	case "process_start":
		return EventProcessStart, true
	case "process_exit":
		return EventProcessExit, true
	case "port_bind":
		return EventPortBind, true
	case "port_release":
		return EventPortRelease, true
	case "alert":
		return EventAlert, true
	case "cpu_spike":
		return EventCPUSpike, true
	case "memory_spike":
		return EventMemorySpike, true
	case "oom_kill":
		return EventOOMKill, true
	}
	return 0, false
}

// EventRecord is one row persisted to the event store's `events` table.
// Timestamps are Unix-epoch milliseconds throughout the store.
type EventRecord struct {
	ID        int64
	TimestampMs int64
	Kind      EventKind
	PID       *uint32
	Name      *string
	Detail    *string
	Severity  *Severity
}

// SocketRecord is one row persisted to the event store's
// `network_sockets` table.
type SocketRecord struct {
	TimestampMs int64
	PID         *uint32
	Name        *string
	Protocol    string // "tcp", "tcp6", "udp" or "udp6"
	LocalAddr   string
	LocalPort   int
	RemoteAddr  *string
	RemotePort  *int
	State       string // "ESTABLISHED", "LISTEN", ...
}
