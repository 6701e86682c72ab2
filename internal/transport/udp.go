// Package transport owns the UDP sockets under the Broadlink protocol
// engine: unicast request/response with timeout and retry, and broadcast
// probe fan-out with response draining. It moves opaque datagrams only;
// framing and parsing live in internal/protocol.
package transport

import (
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/broadctl/internal/logging"
)

// Defaults for unicast requests.
const (
	DefaultTimeout = 10 * time.Second
	DefaultRetries = 2

	// probeInterval is how long a broadcast collector waits for responses
	// before re-sending the probe.
	probeInterval = time.Second
)

// ErrTimeout is returned when no response arrived within the configured
// timeout after all retries.
var ErrTimeout = errors.New("network timeout")

// MaxDatagram is the receive buffer size for a single response.
const MaxDatagram = 2048

// Requester sends one datagram and returns one response. The root package
// talks to devices through this interface so tests can substitute an
// in-memory device.
type Requester interface {
	Request(packet []byte) ([]byte, error)
}

// Conn is a synchronous unicast UDP requester for a single device address.
// Each request opens a transient socket; the device matches responses to
// requests positionally, so callers must serialize requests per device.
type Conn struct {
	Addr    *net.UDPAddr
	Timeout time.Duration
	Retries int
}

// NewConn returns a Conn for the device address with default timeout and
// retry settings.
func NewConn(addr *net.UDPAddr) *Conn {
	return &Conn{
		Addr:    addr,
		Timeout: DefaultTimeout,
		Retries: DefaultRetries,
	}
}

// Request sends packet and waits for a single response datagram, retrying
// on timeout. Wraps ErrTimeout after the last attempt.
func (c *Conn) Request(packet []byte) ([]byte, error) {
	conn, err := net.DialUDP("udp4", nil, c.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.Addr, err)
	}
	defer conn.Close()

	attempts := c.Retries + 1
	buf := make([]byte, MaxDatagram)

	for attempt := 1; attempt <= attempts; attempt++ {
		if _, err := conn.Write(packet); err != nil {
			return nil, fmt.Errorf("send to %s: %w", c.Addr, err)
		}
		logging.LogDatagram("send", c.Addr.String(), packet)

		if err := conn.SetReadDeadline(time.Now().Add(c.Timeout)); err != nil {
			return nil, fmt.Errorf("set deadline: %w", err)
		}

		n, err := conn.Read(buf)
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				logging.Warn("request timed out",
					zap.String("remote_addr", c.Addr.String()),
					zap.Int("attempt", attempt),
					zap.Int("attempts", attempts),
				)
				continue
			}
			return nil, fmt.Errorf("recv from %s: %w", c.Addr, err)
		}

		resp := make([]byte, n)
		copy(resp, buf[:n])
		logging.LogDatagram("recv", c.Addr.String(), resp)
		return resp, nil
	}

	return nil, fmt.Errorf("no response from %s after %d attempts: %w", c.Addr, attempts, ErrTimeout)
}

// Send transmits packet without waiting for a response (fire and forget,
// used by AP-mode provisioning).
func (c *Conn) Send(packet []byte) error {
	conn, err := net.DialUDP("udp4", nil, c.Addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.Addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write(packet); err != nil {
		return fmt.Errorf("send to %s: %w", c.Addr, err)
	}
	logging.LogDatagram("send", c.Addr.String(), packet)
	return nil
}

// Collector is a bound UDP socket used for discovery: it broadcasts a
// probe and drains responses until a deadline.
type Collector struct {
	conn *net.UDPConn
}

// Listen opens a collector socket bound to localIP (which may be nil for
// the unspecified address) and an ephemeral port. Go enables SO_BROADCAST
// on UDP sockets by default, so the socket may send to 255.255.255.255.
func Listen(localIP net.IP) (*Collector, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: localIP})
	if err != nil {
		return nil, fmt.Errorf("bind %v: %w", localIP, err)
	}
	return &Collector{conn: conn}, nil
}

// LocalAddr returns the bound source address; discovery probes embed it.
func (c *Collector) LocalAddr() *net.UDPAddr {
	return c.conn.LocalAddr().(*net.UDPAddr)
}

// Collect sends probe to dst, then drains response datagrams until timeout
// elapses, re-sending the probe roughly once per second. fn is invoked for
// every datagram received; returning false stops collection early. The
// deadline expiring is not an error.
func (c *Collector) Collect(probe []byte, dst *net.UDPAddr, timeout time.Duration, fn func(data []byte, src *net.UDPAddr) bool) error {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, MaxDatagram)

	for {
		left := time.Until(deadline)
		if left <= 0 {
			return nil
		}

		if _, err := c.conn.WriteToUDP(probe, dst); err != nil {
			return fmt.Errorf("broadcast to %s: %w", dst, err)
		}
		logging.LogDatagram("send", dst.String(), probe)

		wait := probeInterval
		if left < wait {
			wait = left
		}
		if err := c.conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
			return fmt.Errorf("set deadline: %w", err)
		}

		for {
			n, src, err := c.conn.ReadFromUDP(buf)
			if err != nil {
				var nerr net.Error
				if errors.As(err, &nerr) && nerr.Timeout() {
					break // re-send the probe
				}
				return fmt.Errorf("recv: %w", err)
			}

			data := make([]byte, n)
			copy(data, buf[:n])
			logging.LogDatagram("recv", src.String(), data)
			if !fn(data, src) {
				return nil
			}
		}
	}
}

// Close releases the collector socket.
func (c *Collector) Close() error {
	return c.conn.Close()
}

// LocalIP returns the IPv4 address the host would use to reach dst. It
// never sends anything: a connected UDP socket only selects a route.
func LocalIP(dst *net.UDPAddr) (net.IP, error) {
	conn, err := net.DialUDP("udp4", nil, dst)
	if err != nil {
		return nil, fmt.Errorf("route probe to %s: %w", dst, err)
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP, nil
}
