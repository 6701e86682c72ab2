package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/muurk/broadctl/internal/codec"
)

// Command frame layout (56-byte header + encrypted payload):
//
//	[0x00-0x07]  Magic 5A A5 AA 55 5A A5 AA 55
//	[0x08-0x1F]  Zero
//	[0x20-0x21]  Whole-frame checksum (LE, computed with the field zeroed)
//	[0x22-0x23]  Error code on responses, zero on requests (LE)
//	[0x24-0x25]  Device type (LE)
//	[0x26-0x27]  Command code (LE)
//	[0x28-0x29]  Packet count (LE)
//	[0x2A-0x2F]  Local MAC
//	[0x30-0x33]  Device ID
//	[0x34-0x35]  Plaintext payload checksum (LE)
//	[0x36-0x37]  Zero
//	[0x38-....]  AES-128-CBC(payload, zero padded)

// Command describes one outbound encrypted command frame.
type Command struct {
	DevType  uint16
	Code     uint16
	Count    uint16
	MAC      [6]byte
	DeviceID [4]byte
	Key      []byte
	IV       []byte
	Payload  []byte
}

// BuildCommand serializes a command frame. The payload checksum is taken
// over the zero-padded plaintext, then the payload is encrypted and the
// whole-frame checksum computed with its own field held at zero.
func BuildCommand(c Command) ([]byte, error) {
	padded := codec.ZeroPad(c.Payload)

	encrypted, err := codec.Encrypt(c.Key, c.IV, padded)
	if err != nil {
		return nil, fmt.Errorf("encrypt payload: %w", err)
	}

	frame := make([]byte, HeaderSize, HeaderSize+len(encrypted))
	copy(frame, Magic)
	binary.LittleEndian.PutUint16(frame[offDevType:], c.DevType)
	binary.LittleEndian.PutUint16(frame[offCommand:], c.Code)
	binary.LittleEndian.PutUint16(frame[offCount:], c.Count)
	copy(frame[offMAC:], c.MAC[:])
	copy(frame[offDeviceID:], c.DeviceID[:])
	binary.LittleEndian.PutUint16(frame[offPayloadCsum:], codec.Checksum(codec.ChecksumSeed, padded))

	frame = append(frame, encrypted...)
	binary.LittleEndian.PutUint16(frame[offChecksum:], codec.Checksum(codec.ChecksumSeed, frame))
	return frame, nil
}

// Response is a parsed and decrypted command response.
type Response struct {
	DevType uint16
	Code    uint16
	Count   uint16

	// Payload is the decrypted payload including its zero padding; family
	// decoders interpret the trailing zeros.
	Payload []byte
}

// ParseResponse validates and decrypts a command response.
//
// Parse order: magic, whole-frame checksum, firmware error code, payload
// decryption, plaintext payload checksum. A non-zero error code fails with
// *DeviceError before the payload is touched.
func ParseResponse(data, key, iv []byte) (*Response, error) {
	if len(data) < HeaderSize {
		return nil, badFrame("truncated response: %d bytes, need at least %d", len(data), HeaderSize)
	}
	if !bytes.Equal(data[:len(Magic)], Magic) {
		return nil, badFrame("magic mismatch: % x", data[:len(Magic)])
	}

	nominal := binary.LittleEndian.Uint16(data[offChecksum:])
	actual := codec.Checksum(codec.ChecksumSeed, data) -
		uint16(data[offChecksum]) - uint16(data[offChecksum+1])
	if nominal != actual {
		return nil, badFrame("frame checksum mismatch: frame says 0x%04x, computed 0x%04x", nominal, actual)
	}

	if code := binary.LittleEndian.Uint16(data[offError:]); code != 0 {
		return nil, &DeviceError{Code: code}
	}

	resp := &Response{
		DevType: binary.LittleEndian.Uint16(data[offDevType:]),
		Code:    binary.LittleEndian.Uint16(data[offCommand:]),
		Count:   binary.LittleEndian.Uint16(data[offCount:]),
	}

	if len(data) == HeaderSize {
		return resp, nil
	}

	payload, err := codec.Decrypt(key, iv, data[HeaderSize:])
	if err != nil {
		return nil, badFrame("decrypt payload: %v", err)
	}

	nominal = binary.LittleEndian.Uint16(data[offPayloadCsum:])
	if actual := codec.Checksum(codec.ChecksumSeed, payload); nominal != actual {
		return nil, badFrame("payload checksum mismatch: frame says 0x%04x, computed 0x%04x", nominal, actual)
	}

	resp.Payload = payload
	return resp, nil
}
