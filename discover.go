package broadctl

import (
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/broadctl/internal/logging"
	"github.com/muurk/broadctl/internal/protocol"
	"github.com/muurk/broadctl/internal/transport"
)

const defaultDiscoverTimeout = 10 * time.Second

// DiscoverOptions tune the broadcast probe. The zero value broadcasts to
// 255.255.255.255:80 from an OS-chosen source address for 10 seconds.
type DiscoverOptions struct {
	Timeout     time.Duration
	LocalIP     net.IP
	BroadcastIP net.IP
}

func (o *DiscoverOptions) fill() {
	if o.Timeout <= 0 {
		o.Timeout = defaultDiscoverTimeout
	}
	if o.BroadcastIP == nil {
		o.BroadcastIP = net.IPv4bcast
	}
}

// Discover broadcasts the probe and collects every device that answers
// before the timeout. A timeout with partial results is not an error.
func Discover(opts DiscoverOptions) ([]*Device, error) {
	var devices []*Device
	err := discover(opts, func(d *Device) bool {
		devices = append(devices, d)
		return true
	})
	return devices, err
}

// XDiscover is the incremental variant: it yields each device on the
// returned channel as soon as its response arrives, and closes the
// channel when the timeout elapses.
func XDiscover(opts DiscoverOptions) (<-chan *Device, error) {
	opts.fill()
	// Open the socket synchronously so bind errors surface to the caller.
	coll, probe, dst, err := openProbe(opts)
	if err != nil {
		return nil, err
	}

	ch := make(chan *Device)
	go func() {
		defer close(ch)
		defer coll.Close()
		seen := make(map[string]bool)
		err := coll.Collect(probe, dst, opts.Timeout, func(data []byte, src *net.UDPAddr) bool {
			if d := parseDiscovered(data, src, seen); d != nil {
				ch <- d
			}
			return true
		})
		if err != nil {
			logging.Warn("discovery aborted", zap.Error(err))
		}
	}()
	return ch, nil
}

// Hello probes one address directly and builds a handle from the single
// response. Useful for devices in locked mode, which do not answer the
// broadcast probe.
func Hello(ip string, timeout time.Duration) (*Device, error) {
	addr := net.ParseIP(ip)
	if addr == nil || addr.To4() == nil {
		return nil, fmt.Errorf("%w: %q is not an IPv4 address", ErrInvalidArgument, ip)
	}

	opts := DiscoverOptions{Timeout: timeout, BroadcastIP: addr.To4()}
	var found *Device
	err := discover(opts, func(d *Device) bool {
		found = d
		return false
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("no response from %s within %v: %w", ip, opts.Timeout, ErrNetworkTimeout)
	}
	return found, nil
}

// discover runs one collection pass, invoking fn per unique device; fn
// returning false stops early.
func discover(opts DiscoverOptions, fn func(*Device) bool) error {
	opts.fill()
	coll, probe, dst, err := openProbe(opts)
	if err != nil {
		return err
	}
	defer coll.Close()

	seen := make(map[string]bool)
	return coll.Collect(probe, dst, opts.Timeout, func(data []byte, src *net.UDPAddr) bool {
		if d := parseDiscovered(data, src, seen); d != nil {
			return fn(d)
		}
		return true
	})
}

func openProbe(opts DiscoverOptions) (*transport.Collector, []byte, *net.UDPAddr, error) {
	coll, err := transport.Listen(opts.LocalIP)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("discovery socket: %w", err)
	}

	src := coll.LocalAddr()
	if src.IP.IsUnspecified() {
		// The probe carries the source address; fill in the route the OS
		// would pick when the caller did not bind one.
		if ip, err := transport.LocalIP(&net.UDPAddr{IP: opts.BroadcastIP, Port: DevicePort}); err == nil {
			src = &net.UDPAddr{IP: ip, Port: src.Port}
		}
	}

	probe := protocol.BuildDiscovery(time.Now(), src)
	dst := &net.UDPAddr{IP: opts.BroadcastIP, Port: DevicePort}
	return coll, probe, dst, nil
}

// parseDiscovered converts one probe response into a handle, deduplicating
// by source, MAC, and device type. Malformed responses are dropped.
func parseDiscovered(data []byte, src *net.UDPAddr, seen map[string]bool) *Device {
	resp, err := protocol.ParseDiscoveryResponse(data)
	if err != nil {
		logging.Debug("ignoring malformed discovery response",
			zap.String("remote_addr", src.String()),
			zap.Error(err),
		)
		return nil
	}

	key := fmt.Sprintf("%s|%x|%04x", src.String(), resp.MAC, resp.DevType)
	if seen[key] {
		return nil
	}
	seen[key] = true

	d := NewDevice(&net.UDPAddr{IP: src.IP, Port: DevicePort}, resp.MAC, resp.DevType)
	d.Name = resp.Name
	d.IsLocked = resp.IsLocked

	logging.Info("discovered device",
		zap.String("remote_addr", src.String()),
		zap.String("family", d.Family.String()),
		zap.String("model", d.Model),
		zap.String("mac", d.CanonicalMAC()),
		zap.Bool("locked", d.IsLocked),
	)
	return d
}

// Setup provisions a factory-reset device in AP mode with the network
// credentials. The frame is broadcast; the device sends no response.
// Security modes: 0 none, 1 WEP, 2 WPA1, 3 WPA2, 4 WPA1/2.
func Setup(ssid, password string, securityMode uint8) error {
	frame, err := protocol.BuildProvisioning(ssid, password, securityMode)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	conn := transport.NewConn(&net.UDPAddr{IP: net.IPv4bcast, Port: DevicePort})
	if err := conn.Send(frame); err != nil {
		return fmt.Errorf("provisioning broadcast: %w", err)
	}
	return nil
}
