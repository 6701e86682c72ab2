package broadctl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"net"
	"testing"

	"github.com/muurk/broadctl/internal/codec"
	"github.com/muurk/broadctl/internal/protocol"
)

// fakeDevice implements transport.Requester with device-side protocol
// behavior: it decrypts request payloads with the session key it holds,
// dispatches on command code, and answers with fully sealed frames. It
// rotates its key on auth exactly like the firmware.
type fakeDevice struct {
	t       *testing.T
	devType uint16
	key     []byte

	// authKey is installed by the auth exchange.
	authKey []byte
	authID  [4]byte

	// handle answers non-auth commands: it gets the command code and the
	// decrypted request payload, and returns a firmware error code and a
	// response payload.
	handle func(code uint16, payload []byte) (uint16, []byte)

	// counts records the packet counter of every request seen.
	counts []uint16

	// lastAuthPayload keeps the raw auth payload for layout assertions.
	lastAuthPayload []byte
}

func newFakeDevice(t *testing.T, devType uint16) *fakeDevice {
	return &fakeDevice{
		t:       t,
		devType: devType,
		key:     append([]byte(nil), codec.InitialKey...),
		authKey: bytes.Repeat([]byte{0x7E}, 16),
		authID:  [4]byte{0xDE, 0xAD, 0xBE, 0xEF},
	}
}

func (f *fakeDevice) Request(frame []byte) ([]byte, error) {
	f.t.Helper()

	if !bytes.Equal(frame[:8], protocol.Magic) {
		f.t.Fatalf("request without magic: % x", frame[:8])
	}
	code := binary.LittleEndian.Uint16(frame[0x26:])
	f.counts = append(f.counts, binary.LittleEndian.Uint16(frame[0x28:]))

	// The key exchange always runs under the bootstrap key, like the
	// firmware; everything else uses the rotated session key.
	key := f.key
	if code == protocol.CmdAuth {
		key = codec.InitialKey
	}

	var payload []byte
	if len(frame) > 0x38 {
		var err error
		payload, err = codec.Decrypt(key, codec.InitialVector, frame[0x38:])
		if err != nil {
			f.t.Fatalf("decrypt request: %v", err)
		}
	}

	var errCode uint16
	var respPayload []byte
	switch code {
	case protocol.CmdAuth:
		f.lastAuthPayload = payload
		respPayload = make([]byte, 0x14)
		copy(respPayload[0x00:], f.authID[:])
		copy(respPayload[0x04:], f.authKey)
	default:
		if f.handle == nil {
			f.t.Fatalf("unexpected command 0x%04x", code)
		}
		errCode, respPayload = f.handle(code, payload)
	}

	resp := f.seal(frame, key, errCode, respPayload)
	if code == protocol.CmdAuth {
		f.key = append([]byte(nil), f.authKey...)
	}
	return resp, nil
}

// seal builds a response frame echoing the request's header fields.
func (f *fakeDevice) seal(req, key []byte, errCode uint16, payload []byte) []byte {
	var mac [6]byte
	var id [4]byte
	copy(mac[:], req[0x2A:])
	copy(id[:], req[0x30:])

	frame, err := protocol.BuildCommand(protocol.Command{
		DevType:  f.devType,
		Code:     binary.LittleEndian.Uint16(req[0x26:]),
		Count:    binary.LittleEndian.Uint16(req[0x28:]),
		MAC:      mac,
		DeviceID: id,
		Key:      key,
		IV:       codec.InitialVector,
		Payload:  payload,
	})
	if err != nil {
		f.t.Fatalf("seal response: %v", err)
	}
	binary.LittleEndian.PutUint16(frame[0x22:], errCode)
	frame[0x20], frame[0x21] = 0, 0
	binary.LittleEndian.PutUint16(frame[0x20:], codec.Checksum(codec.ChecksumSeed, frame))
	return frame
}

// testDevice wires a handle to a fake device of the given type.
func testDevice(t *testing.T, devType uint16) (*Device, *fakeDevice) {
	fake := newFakeDevice(t, devType)
	d := NewDevice(&net.UDPAddr{IP: net.IPv4(192, 168, 0, 99), Port: DevicePort}, [6]byte{1, 2, 3, 4, 5, 6}, devType)
	d.conn = fake
	return d, fake
}

// authed returns an authenticated handle.
func authed(t *testing.T, devType uint16) (*Device, *fakeDevice) {
	t.Helper()
	d, fake := testDevice(t, devType)
	if err := d.Auth(); err != nil {
		t.Fatalf("Auth() error = %v", err)
	}
	return d, fake
}

func TestAuthRotatesSession(t *testing.T) {
	d, fake := testDevice(t, 0x2712)

	if d.Session().Authenticated() {
		t.Fatal("fresh handle must not be authenticated")
	}

	if err := d.Auth(); err != nil {
		t.Fatalf("Auth() error = %v", err)
	}

	s := d.Session()
	if !s.Authenticated() {
		t.Error("session not marked authenticated")
	}
	if s.ID() != fake.authID {
		t.Errorf("session id = % x, want % x", s.ID(), fake.authID)
	}
	if !bytes.Equal(d.session.key, fake.authKey) {
		t.Errorf("session key = % x, want % x", d.session.key, fake.authKey)
	}

	// Re-auth is idempotent and rotates again.
	fake.authKey = bytes.Repeat([]byte{0x11}, 16)
	if err := d.Auth(); err != nil {
		t.Fatalf("second Auth() error = %v", err)
	}
	if !bytes.Equal(d.session.key, fake.authKey) {
		t.Errorf("session key after re-auth = % x, want % x", d.session.key, fake.authKey)
	}
}

func TestAuthPayloadLayout(t *testing.T) {
	d, fake := testDevice(t, 0x2712)
	if err := d.Auth(); err != nil {
		t.Fatalf("Auth() error = %v", err)
	}

	p := fake.lastAuthPayload
	if len(p) < 0x50 {
		t.Fatalf("auth payload length = %d, want at least 0x50", len(p))
	}

	if p[0x13] != 0x01 {
		t.Errorf("byte 0x13 = 0x%02x, want 0x01", p[0x13])
	}
	if p[0x2D] != 0x01 {
		t.Errorf("byte 0x2D = 0x%02x, want 0x01", p[0x2D])
	}

	// 15 ASCII digits at 0x04-0x12.
	for i := 0x04; i <= 0x12; i++ {
		if p[i] < '0' || p[i] > '9' {
			t.Errorf("byte 0x%02x = 0x%02x, want an ascii digit", i, p[i])
		}
	}

	// Everything else before the name must be zero.
	for i := 0x00; i < 0x30; i++ {
		if i >= 0x04 && i <= 0x13 || i == 0x2D {
			continue
		}
		if p[i] != 0 {
			t.Errorf("byte 0x%02x = 0x%02x, want 0x00", i, p[i])
		}
	}

	// NUL-terminated name from 0x30.
	name := p[0x30:0x50]
	if name[0] == 0 {
		t.Error("device name is empty")
	}
	if !bytes.ContainsRune(name, 0) {
		t.Error("device name is not NUL terminated")
	}
}

func TestAuthErrors(t *testing.T) {
	t.Run("zero device id", func(t *testing.T) {
		d, fake := testDevice(t, 0x2712)
		fake.authID = [4]byte{}
		if err := d.Auth(); !errors.Is(err, ErrAuth) {
			t.Errorf("Auth() error = %v, want ErrAuth", err)
		}
		if d.Session().Authenticated() {
			t.Error("failed auth must not mark the session authenticated")
		}
	})

	t.Run("zero key", func(t *testing.T) {
		d, fake := testDevice(t, 0x2712)
		fake.authKey = make([]byte, 16)
		if err := d.Auth(); !errors.Is(err, ErrAuth) {
			t.Errorf("Auth() error = %v, want ErrAuth", err)
		}
	})
}

func TestCounterMonotonicity(t *testing.T) {
	d, fake := authed(t, 0x2712)
	fake.handle = func(code uint16, payload []byte) (uint16, []byte) {
		return 0, []byte{0x04, 0x00, 0x00, 0x00}
	}

	const n = 32
	for i := 0; i < n; i++ {
		if _, err := d.Command([]byte{0x01}); err != nil {
			t.Fatalf("Command() error = %v", err)
		}
	}

	counts := fake.counts
	for i := 1; i < len(counts); i++ {
		if counts[i] != counts[i-1]+1 { // uint16 arithmetic wraps naturally
			t.Fatalf("count[%d] = 0x%04x after 0x%04x, want +1", i, counts[i], counts[i-1])
		}
	}
}

func TestCounterWrapsAt16Bits(t *testing.T) {
	d, fake := authed(t, 0x2712)
	fake.handle = func(code uint16, payload []byte) (uint16, []byte) {
		return 0, []byte{0x00, 0x00, 0x00, 0x00}
	}

	d.session.count = 0xFFFF
	if _, err := d.Command([]byte{0x01}); err != nil {
		t.Fatalf("Command() error = %v", err)
	}
	last := fake.counts[len(fake.counts)-1]
	if last != 0x0000 {
		t.Errorf("count after 0xFFFF = 0x%04x, want 0x0000", last)
	}
}

func TestDeviceErrorPassthrough(t *testing.T) {
	d, fake := authed(t, 0x2712)
	fake.handle = func(code uint16, payload []byte) (uint16, []byte) {
		return 0xFFFD, nil
	}

	_, err := d.Command([]byte{0x01})
	var de *DeviceError
	if !errors.As(err, &de) {
		t.Fatalf("error = %v, want DeviceError", err)
	}
	if de.Code != 0xFFFD {
		t.Errorf("code = 0x%04x, want 0xFFFD", de.Code)
	}
}

func TestGetFirmwareVersion(t *testing.T) {
	d, fake := authed(t, 0x2712)
	fake.handle = func(code uint16, payload []byte) (uint16, []byte) {
		if payload[0] != 0x68 {
			t.Errorf("request byte = 0x%02x, want 0x68", payload[0])
		}
		return 0, []byte{0x68, 0x00, 0x00, 0x00, 0x5E, 0x01}
	}

	v, err := d.GetFirmwareVersion()
	if err != nil {
		t.Fatalf("GetFirmwareVersion() error = %v", err)
	}
	if v != 0x015E {
		t.Errorf("version = 0x%04x, want 0x015E", v)
	}
}
