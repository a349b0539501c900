package probe

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"
	"unicode/utf16"
)

// NetworkState classifies the result of an application-level liveness check.
type NetworkState int

const (
	NetworkResponsive NetworkState = iota
	NetworkTimeout
	NetworkRefused
)

func (s NetworkState) String() string {
	switch s {
	case NetworkResponsive:
		return "responsive"
	case NetworkTimeout:
		return "timeout"
	case NetworkRefused:
		return "refused"
	default:
		return "unknown"
	}
}

// NetworkReport is the outcome of one handshake attempt.
type NetworkReport struct {
	State NetworkState
	RTT   time.Duration
	Err   error
}

// NetworkProbe performs the legacy server list ping: send 0xFE 0x01,
// expect a 0xFF kick packet carrying a UTF-16BE string that starts with
// the section-sign marker. A completed handshake proves the server's
// main loop is servicing requests, which a bare TCP accept does not.
//
// Timeout is the decisive signal: combined with a live process probe it
// is the deadlock signature. Refused means nothing is listening, which
// usually accompanies a dead or still-starting process. The probe
// enforces its own deadline on every read and write so a wedged network
// stack can never block the caller past the configured timeout.
type NetworkProbe struct {
	addr    string
	timeout time.Duration
}

func NewNetworkProbe(host string, port int, timeout time.Duration) *NetworkProbe {
	return &NetworkProbe{
		addr:    net.JoinHostPort(host, strconv.Itoa(port)),
		timeout: timeout,
	}
}

// Ping dials the endpoint and runs the handshake within the probe timeout.
func (p *NetworkProbe) Ping(ctx context.Context) NetworkReport {
	start := time.Now()
	deadline := start.Add(p.timeout)

	d := net.Dialer{Deadline: deadline}
	conn, err := d.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return NetworkReport{State: NetworkRefused, Err: err}
		}
		return NetworkReport{State: NetworkTimeout, Err: err}
	}
	defer func() { _ = conn.Close() }()
	_ = conn.SetDeadline(deadline)

	if _, err := conn.Write([]byte{0xfe, 0x01}); err != nil {
		return NetworkReport{State: NetworkTimeout, Err: err}
	}

	// Kick packet: 0xFF, then a big-endian UTF-16 code unit count.
	var head [3]byte
	if _, err := io.ReadFull(conn, head[:]); err != nil {
		return NetworkReport{State: NetworkTimeout, Err: err}
	}
	if head[0] != 0xff {
		return NetworkReport{State: NetworkTimeout, Err: fmt.Errorf("unexpected packet id 0x%02x", head[0])}
	}
	n := binary.BigEndian.Uint16(head[1:3])
	if n == 0 || n > 512 {
		return NetworkReport{State: NetworkTimeout, Err: fmt.Errorf("implausible kick payload length %d", n)}
	}
	payload := make([]byte, int(n)*2)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return NetworkReport{State: NetworkTimeout, Err: err}
	}
	units := make([]uint16, n)
	for i := range units {
		units[i] = binary.BigEndian.Uint16(payload[2*i:])
	}
	s := string(utf16.Decode(units))
	// The reply begins "§1\x00" followed by protocol/version/motd fields.
	const marker = "§1\x00"
	if !strings.HasPrefix(s, marker) {
		return NetworkReport{State: NetworkTimeout, Err: fmt.Errorf("malformed kick payload %q", s)}
	}
	return NetworkReport{State: NetworkResponsive, RTT: time.Since(start)}
}
