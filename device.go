package broadctl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/broadctl/internal/logging"
	"github.com/muurk/broadctl/internal/protocol"
	"github.com/muurk/broadctl/internal/transport"
)

// DevicePort is the UDP port every Broadlink device listens on.
const DevicePort = 80

// Device is a handle to one physical device. Family operations are
// methods on the handle; calling an operation the device's family does
// not speak fails with ErrUnsupportedDevice.
//
// A handle serializes its own requests: at most one frame is in flight
// per device, because the firmware matches responses to requests
// positionally. Distinct handles are independent.
type Device struct {
	Host         *net.UDPAddr
	MAC          [6]byte // wire order; see CanonicalMAC
	DevType      uint16
	Family       Family
	Name         string
	Model        string
	Manufacturer string
	IsLocked     bool

	// LocalMAC is the MAC written into outbound frames. Any stable value
	// works; it need not match the host NIC.
	LocalMAC [6]byte

	mu      sync.Mutex
	conn    transport.Requester
	session Session
}

// NewDevice builds a handle for a device at host with the given wire-order
// MAC and device type. The family is resolved from the dispatch table and
// immutable afterwards.
func NewDevice(host *net.UDPAddr, mac [6]byte, devType uint16) *Device {
	model := lookupModel(devType)
	d := &Device{
		Host:         host,
		MAC:          mac,
		DevType:      devType,
		Family:       model.family,
		Model:        model.model,
		Manufacturer: model.manufacturer,
		LocalMAC:     defaultLocalMAC(),
		conn:         transport.NewConn(host),
		session:      newSession(),
	}
	return d
}

// defaultLocalMAC is a stable locally-administered address; the device
// only echoes it back, it is never used for L2 delivery.
func defaultLocalMAC() [6]byte {
	return [6]byte{0x02, 0x27, 0xEA, 0x4C, 0x05, 0x19}
}

// CanonicalMAC renders the device MAC in display order (reversed relative
// to the wire).
func (d *Device) CanonicalMAC() string {
	m := d.MAC
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[5], m[4], m[3], m[2], m[1], m[0])
}

func (d *Device) String() string {
	name := d.Name
	if name == "" {
		name = "Unknown"
	}
	return fmt.Sprintf("%s (%s 0x%04x / %s / %s)", name, d.Family, d.DevType, d.CanonicalMAC(), d.Host)
}

// Session returns a copy of the current session state.
func (d *Device) Session() Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.session
	s.key = append([]byte(nil), d.session.key...)
	s.iv = append([]byte(nil), d.session.iv...)
	return s
}

// Auth layout constants.
const (
	authPayloadSize = 0x50
	authUniqueIDOff = 0x04
	authUniqueIDLen = 15
	authNameOff     = 0x30
)

// Auth performs the key exchange: it sends the fixed 80-byte hello
// payload under the bootstrap key and installs the device ID and session
// key from the response. Re-auth is idempotent and rotates the session;
// any in-flight learning session is invalidated by the rotation.
func (d *Device) Auth() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.session.reset()

	payload := make([]byte, authPayloadSize)
	copy(payload[authUniqueIDOff:], d.uniqueID())
	payload[0x13] = 0x01
	payload[0x2D] = 0x01
	name := clientName()
	copy(payload[authNameOff:], name)

	resp, err := d.request(protocol.CmdAuth, payload)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	if len(resp.Payload) < 0x14 {
		return fmt.Errorf("auth: %w: response payload too short (%d bytes)", ErrAuth, len(resp.Payload))
	}

	var id [4]byte
	copy(id[:], resp.Payload[0x00:0x04])
	key := resp.Payload[0x04:0x14]

	if id == ([4]byte{}) {
		return fmt.Errorf("auth: %w: device id is zero", ErrAuth)
	}
	if bytes.Equal(key, make([]byte, 16)) {
		return fmt.Errorf("auth: %w: session key is zero", ErrAuth)
	}

	d.session.establish(id, key)
	logging.Info("authenticated",
		zap.String("device", d.Host.String()),
		zap.String("conn_id", fmt.Sprintf("%02x%02x%02x%02x", id[0], id[1], id[2], id[3])),
	)
	return nil
}

// uniqueID derives the 15-digit client identifier carried in the auth
// payload. It only has to be stable per handle, so it is spun out of the
// local MAC.
func (d *Device) uniqueID() []byte {
	id := make([]byte, authUniqueIDLen)
	for i := range id {
		id[i] = '0' + (d.LocalMAC[i%6]+byte(i))%10
	}
	return id
}

// clientName is the NUL-terminated name sent during auth. The payload
// leaves 0x50-0x30 bytes for it; the terminator must fit.
func clientName() []byte {
	name, err := os.Hostname()
	if err != nil || name == "" {
		name = "broadctl"
	}
	const max = authPayloadSize - authNameOff - 1
	if len(name) > max {
		name = name[:max]
	}
	return []byte(name)
}

// Command sends a generic 0x006A command payload and returns the
// decrypted response payload (padding included).
func (d *Device) Command(payload []byte) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	resp, err := d.request(protocol.CmdCommand, payload)
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// sendCode sends a payload under an arbitrary command code (SP1 power
// uses 0x0066).
func (d *Device) sendCode(code uint16, payload []byte) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	resp, err := d.request(code, payload)
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// request builds, sends, and parses one command frame. Callers hold d.mu.
func (d *Device) request(code uint16, payload []byte) (*protocol.Response, error) {
	frame, err := protocol.BuildCommand(protocol.Command{
		DevType:  d.DevType,
		Code:     code,
		Count:    d.session.next(),
		MAC:      d.LocalMAC,
		DeviceID: d.session.id,
		Key:      d.session.key,
		IV:       d.session.iv,
		Payload:  payload,
	})
	if err != nil {
		return nil, fmt.Errorf("build frame: %w", err)
	}

	data, err := d.conn.Request(frame)
	if err != nil {
		return nil, err
	}

	return protocol.ParseResponse(data, d.session.key, d.session.iv)
}

// Hello re-probes the device address with a unicast discovery frame and
// refreshes the name and lock state. Works on locked devices that ignore
// the broadcast probe.
func (d *Device) Hello() error {
	fresh, err := Hello(d.Host.IP.String(), defaultDiscoverTimeout)
	if err != nil {
		return err
	}
	d.Name = fresh.Name
	d.IsLocked = fresh.IsLocked
	return nil
}

// GetFirmwareVersion reads the firmware version word.
func (d *Device) GetFirmwareVersion() (int, error) {
	payload := make([]byte, 0x10)
	payload[0x00] = 0x68
	resp, err := d.Command(payload)
	if err != nil {
		return 0, err
	}
	if len(resp) < 0x06 {
		return 0, &BadFrameError{Reason: "firmware version payload too short"}
	}
	return int(binary.LittleEndian.Uint16(resp[0x04:])), nil
}

// SetName renames the device. The lock state is carried along unchanged,
// since the firmware writes both fields together.
func (d *Device) SetName(name string) error {
	if len(name) > 0x3F {
		return fmt.Errorf("%w: name longer than 63 bytes", ErrInvalidArgument)
	}
	return d.setDevInfo(name, d.IsLocked)
}

// SetLock locks or unlocks the device. Locked devices ignore the
// broadcast probe; reach them with Hello afterwards.
func (d *Device) SetLock(locked bool) error {
	return d.setDevInfo(d.Name, locked)
}

func (d *Device) setDevInfo(name string, locked bool) error {
	payload := make([]byte, 0x50)
	copy(payload[0x04:], name)
	if locked {
		payload[0x43] = 0x01
	}
	if _, err := d.Command(payload); err != nil {
		return err
	}
	d.Name = name
	d.IsLocked = locked
	return nil
}

// notReady converts the soft 0xFFF6 firmware code into ErrNotReady;
// every other error passes through.
func notReady(err error) error {
	var de *DeviceError
	if errors.As(err, &de) && de.NotReady() {
		return ErrNotReady
	}
	return err
}

// requireFamily guards a family operation.
func (d *Device) requireFamily(families ...Family) error {
	for _, f := range families {
		if d.Family == f {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is %s", ErrUnsupportedDevice, d.CanonicalMAC(), d.Family)
}
