package store

import (
	"strconv"
	"time"

	"github.com/ftahirops/sentinel/internal/model"
)

// DiffProcessLifecycle compares the current tick's pid set against the
// previous tick's, emitting ProcessStart/ProcessExit events (spec.md
// §4.4 Lifecycle diffing). On the very first call nothing is emitted,
// matching "no prior state" at cold start. Grounded on the teacher's
// single "previous tick" ring-buffer idiom (engine/history.go), adapted
// to an explicit owned prev_pids/prev_pid_names pair instead of a
// buffer, since the diff needs exactly one predecessor, not a window.
func (s *Store) DiffProcessLifecycle(ts time.Time, procs []model.ProcessInfo) []model.EventRecord {
	curPIDs := make(map[uint32]bool, len(procs))
	curNames := make(map[uint32]string, len(procs))
	for _, p := range procs {
		curPIDs[p.PID] = true
		curNames[p.PID] = p.Name
	}

	var events []model.EventRecord
	tsMs := ts.UnixMilli()

	if s.seenFirstTick {
		for pid := range curPIDs {
			if !s.prevPIDs[pid] {
				name := curNames[pid]
				p := pid
				events = append(events, model.EventRecord{TimestampMs: tsMs, Kind: model.EventProcessStart, PID: &p, Name: &name})
			}
		}
		for pid := range s.prevPIDs {
			if !curPIDs[pid] {
				name := s.prevPIDNames[pid]
				p := pid
				events = append(events, model.EventRecord{TimestampMs: tsMs, Kind: model.EventProcessExit, PID: &p, Name: &name})
			}
		}
	}

	s.prevPIDs = curPIDs
	s.prevPIDNames = curNames
	s.seenFirstTick = true
	return events
}

// DiffListeners compares the current tick's (protocol, local_port, pid)
// listener triples against the previous tick's, emitting
// PortBind/PortRelease events. Listeners whose pid could not be resolved
// are excluded from diff tracking entirely (spec.md §9 open question:
// preserves the source's behavior to avoid spurious bind/release
// storms from unresolved sockets). On the very first call nothing is
// emitted, matching "no prior state" at cold start (spec.md §4.4) — a
// dedicated seenFirstListenerTick flag is used rather than
// seenFirstTick because DiffProcessLifecycle already flips that one
// true earlier in the same tick (see coordinator.Tick's call order),
// which would otherwise defeat the guard on the real first tick.
func (s *Store) DiffListeners(ts time.Time, socks []model.SocketRecord) []model.EventRecord {
	curListeners := make(map[listenerKey]bool)
	names := make(map[listenerKey]string)
	for _, sock := range socks {
		if sock.State != "LISTEN" || sock.PID == nil {
			continue
		}
		key := listenerKey{protocol: sock.Protocol, port: sock.LocalPort, pid: *sock.PID}
		curListeners[key] = true
		if sock.Name != nil {
			names[key] = *sock.Name
		}
	}

	var events []model.EventRecord
	tsMs := ts.UnixMilli()

	if s.seenFirstListenerTick {
		for key := range curListeners {
			if !s.prevListeners[key] {
				events = append(events, portEvent(model.EventPortBind, tsMs, key, names[key]))
			}
		}
		for key := range s.prevListeners {
			if !curListeners[key] {
				events = append(events, portEvent(model.EventPortRelease, tsMs, key, names[key]))
			}
		}
	}

	s.prevListeners = curListeners
	s.seenFirstListenerTick = true
	return events
}

func portEvent(kind model.EventKind, tsMs int64, key listenerKey, name string) model.EventRecord {
	pid := key.pid
	rec := model.EventRecord{TimestampMs: tsMs, Kind: kind, PID: &pid}
	if name != "" {
		rec.Name = &name
	}
	port := key.port
	detail := protoPortDetail(key.protocol, port)
	rec.Detail = &detail
	return rec
}

func protoPortDetail(protocol string, port int) string {
	return protocol + "/" + strconv.Itoa(port)
}
