package broadctl

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/muurk/broadctl/internal/codec"
)

// JSON state envelope shared by the newer device generations (SP4, BG1,
// LB bulbs, S3 hub). The JSON document rides behind a 12-byte binary
// header:
//
//	[0x00-0x03]  A5 A5 5A 5A
//	[0x04-0x05]  Checksum (LE, seed 0xBEAF, computed with the field zeroed)
//	[0x06]       Flag: 1 read, 2 write
//	[0x07]       0x0B
//	[0x08-0x0B]  JSON length (LE)
//	[0x0C-....]  JSON document

const (
	stateFlagRead  = 0x01
	stateFlagWrite = 0x02

	stateHeaderSize = 0x0C
)

// packState wraps a JSON-serializable value in the state envelope.
func packState(flag byte, v any) ([]byte, error) {
	doc, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}

	packet := make([]byte, stateHeaderSize, stateHeaderSize+len(doc))
	packet[0x00], packet[0x01] = 0xA5, 0xA5
	packet[0x02], packet[0x03] = 0x5A, 0x5A
	packet[0x06] = flag
	packet[0x07] = 0x0B
	binary.LittleEndian.PutUint32(packet[0x08:], uint32(len(doc)))
	packet = append(packet, doc...)

	binary.LittleEndian.PutUint16(packet[0x04:], codec.Checksum(codec.ChecksumSeed, packet))
	return packet, nil
}

// unpackState extracts the JSON document from a decrypted response
// payload and unmarshals it into v.
func unpackState(payload []byte, v any) error {
	if len(payload) < stateHeaderSize {
		return &BadFrameError{Reason: fmt.Sprintf("state envelope too short: %d bytes", len(payload))}
	}

	docLen := int(binary.LittleEndian.Uint32(payload[0x08:]))
	if stateHeaderSize+docLen > len(payload) {
		return &BadFrameError{Reason: fmt.Sprintf("state document truncated: header says %d bytes, %d available", docLen, len(payload)-stateHeaderSize)}
	}

	doc := payload[stateHeaderSize : stateHeaderSize+docLen]
	if err := json.Unmarshal(doc, v); err != nil {
		return &BadFrameError{Reason: fmt.Sprintf("state document: %v", err)}
	}
	return nil
}

// readState runs a read round-trip for the handle.
func (d *Device) readState(v any) error {
	packet, err := packState(stateFlagRead, struct{}{})
	if err != nil {
		return err
	}
	resp, err := d.Command(packet)
	if err != nil {
		return err
	}
	return unpackState(resp, v)
}

// writeState runs a write round-trip, returning the device's echo of the
// resulting state in out when out is non-nil.
func (d *Device) writeState(state, out any) error {
	packet, err := packState(stateFlagWrite, state)
	if err != nil {
		return err
	}
	resp, err := d.Command(packet)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return unpackState(resp, out)
}
