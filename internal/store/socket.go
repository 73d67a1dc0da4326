package store

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ftahirops/sentinel/internal/model"
)

// tcpStates maps the hex connection-state byte in /proc/net/tcp[6] to its
// canonical name.
var tcpStates = map[byte]string{
	0x01: "ESTABLISHED",
	0x02: "SYN_SENT",
	0x03: "SYN_RECV",
	0x04: "FIN_WAIT1",
	0x05: "FIN_WAIT2",
	0x06: "TIME_WAIT",
	0x07: "CLOSE",
	0x08: "CLOSE_WAIT",
	0x09: "LAST_ACK",
	0x0A: "LISTEN",
	0x0B: "CLOSING",
}

const udpUnconnState = 0x07 // listening/bound, no peer

type rawSocket struct {
	protocol   string
	localAddr  string
	localPort  int
	remoteAddr string
	remotePort int
	state      string
	inode      uint64
}

// parseHexAddrPort decodes one "hexaddr:hexport" field from /proc/net/tcp
// or /proc/net/udp (IPv4 or IPv6), returning a canonical net.IP string and
// the decimal port. IPv4 and the all-zero/IPv4-mapped IPv6 special cases
// are handled explicitly (spec.md §4.4 Socket inode resolution).
func parseHexAddrPort(field string) (addr string, port int, ok bool) {
	parts := strings.SplitN(field, ":", 2)
	if len(parts) != 2 {
		return "", 0, false
	}
	addrHex, portHex := parts[0], parts[1]

	portBytes, err := hex.DecodeString(portHex)
	if err != nil || len(portBytes) != 2 {
		return "", 0, false
	}
	port = int(portBytes[0])<<8 | int(portBytes[1])

	raw, err := hex.DecodeString(addrHex)
	if err != nil {
		return "", 0, false
	}

	switch len(raw) {
	case 4:
		// Little-endian 32-bit word.
		ip := net.IPv4(raw[3], raw[2], raw[1], raw[0])
		return ip.String(), port, true
	case 16:
		ip := decodeIPv6LittleEndian(raw)
		return ip.String(), port, true
	default:
		return "", 0, false
	}
}

// decodeIPv6LittleEndian undoes the kernel's four little-endian 32-bit
// words encoding of an IPv6 address, explicitly handling the all-zero
// and IPv4-mapped (::ffff:a.b.c.d) special cases.
func decodeIPv6LittleEndian(raw []byte) net.IP {
	out := make([]byte, 16)
	for word := 0; word < 4; word++ {
		o := word * 4
		out[o+0] = raw[o+3]
		out[o+1] = raw[o+2]
		out[o+2] = raw[o+1]
		out[o+3] = raw[o+0]
	}
	ip := net.IP(out)
	if ip.Equal(net.IPv6unspecified) {
		return net.IPv6unspecified
	}
	if v4 := ip.To4(); v4 != nil {
		return v4
	}
	return ip
}

// parseSocketTable reads one /proc/net/{tcp,tcp6,udp,udp6} file, returning
// only rows whose connection state is "interesting" (LISTEN for TCP, the
// UNCONN bound state for UDP) via wantState, or all rows if wantState is
// nil.
func parseSocketTable(path, protocol string, wantState func(stateByte byte) bool) ([]rawSocket, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // e.g. no IPv6 support; not an error
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var out []rawSocket
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue // header
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 10 {
			continue
		}
		stateBytes, err := hex.DecodeString(fields[3])
		if err != nil || len(stateBytes) == 0 {
			continue
		}
		if wantState != nil && !wantState(stateBytes[0]) {
			continue
		}

		localAddr, localPort, ok := parseHexAddrPort(fields[1])
		if !ok {
			continue
		}
		remoteAddr, remotePort, ok := parseHexAddrPort(fields[2])
		if !ok {
			continue
		}

		state := tcpStates[stateBytes[0]]
		if state == "" {
			state = "UNKNOWN"
		}
		if protocol == "udp" || protocol == "udp6" {
			state = "UNCONN"
		}

		out = append(out, rawSocket{
			protocol:   protocol,
			localAddr:  localAddr,
			localPort:  localPort,
			remoteAddr: remoteAddr,
			remotePort: remotePort,
			state:      state,
			inode:      parseDecimalOrZero(fields[9]),
		})
	}
	return out, scanner.Err()
}

func parseDecimalOrZero(s string) uint64 {
	v, _ := strconv.ParseUint(s, 10, 64)
	return v
}

// resolveInodesToPIDs maps socket inodes to owning pids by scanning
// /proc/*/fd symlinks of the form "socket:[<inode>]", grounded directly
// on the teacher's identity.resolveInodesToPIDs.
func resolveInodesToPIDs(inodes map[uint64]bool) map[uint64]uint32 {
	result := make(map[uint64]uint32)
	if len(inodes) == 0 {
		return result
	}

	targets := make(map[string]uint64, len(inodes))
	for inode := range inodes {
		targets[fmt.Sprintf("socket:[%d]", inode)] = inode
	}

	entries, err := os.ReadDir("/proc")
	if err != nil {
		return result
	}

	remaining := len(targets)
	for _, e := range entries {
		if remaining == 0 {
			break
		}
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid < 1 {
			continue
		}
		fdDir := filepath.Join("/proc", e.Name(), "fd")
		fdEntries, err := os.ReadDir(fdDir)
		if err != nil {
			continue
		}
		for _, fe := range fdEntries {
			target, err := os.Readlink(filepath.Join(fdDir, fe.Name()))
			if err != nil {
				continue
			}
			if inode, ok := targets[target]; ok {
				result[inode] = uint32(pid)
				remaining--
			}
		}
	}
	return result
}

func readComm(pid uint32) string {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// CollectSockets reads the TCP and UDP tables (both address families)
// and resolves each socket's owning pid and process name (spec.md §4.4).
// Only LISTEN (TCP) and UNCONN/bound (UDP) rows are collected, matching
// what the Event Store persists into network_sockets.
func CollectSockets(now time.Time) ([]model.SocketRecord, error) {
	var raws []rawSocket

	tcpWant := func(b byte) bool { return b == 0x0A } // LISTEN
	udpWant := func(b byte) bool { return b == udpUnconnState }

	for _, spec := range []struct {
		path, protocol string
		want           func(byte) bool
	}{
		{"/proc/net/tcp", "tcp", tcpWant},
		{"/proc/net/tcp6", "tcp6", tcpWant},
		{"/proc/net/udp", "udp", udpWant},
		{"/proc/net/udp6", "udp6", udpWant},
	} {
		rows, err := parseSocketTable(spec.path, spec.protocol, spec.want)
		if err != nil {
			return nil, err
		}
		raws = append(raws, rows...)
	}

	inodes := make(map[uint64]bool, len(raws))
	for _, r := range raws {
		if r.inode > 0 {
			inodes[r.inode] = true
		}
	}
	inodeToPID := resolveInodesToPIDs(inodes)

	commCache := make(map[uint32]string)
	records := make([]model.SocketRecord, 0, len(raws))
	tsMs := now.UnixMilli()
	for _, r := range raws {
		rec := model.SocketRecord{
			TimestampMs: tsMs,
			Protocol:    r.protocol,
			LocalAddr:   r.localAddr,
			LocalPort:   r.localPort,
			State:       r.state,
		}
		if r.remotePort != 0 || r.remoteAddr != "0.0.0.0" && r.remoteAddr != "::" {
			remoteAddr := r.remoteAddr
			remotePort := r.remotePort
			rec.RemoteAddr = &remoteAddr
			rec.RemotePort = &remotePort
		}
		if pid, ok := inodeToPID[r.inode]; ok && pid > 0 {
			p := pid
			rec.PID = &p
			name, cached := commCache[pid]
			if !cached {
				name = readComm(pid)
				commCache[pid] = name
			}
			if name != "" {
				n := name
				rec.Name = &n
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
