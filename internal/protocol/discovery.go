package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/muurk/broadctl/internal/codec"
)

// Discovery probe layout (48 bytes, broadcast to port 80):
//
//	[0x08-0x0B]  GMT offset in hours (LE, signed)
//	[0x0C-0x0D]  Year (LE)
//	[0x0E]       Minute
//	[0x0F]       Hour
//	[0x10]       Two-digit year
//	[0x11]       ISO weekday
//	[0x12]       Day
//	[0x13]       Month
//	[0x18-0x1B]  Local IPv4, octets reversed
//	[0x1C-0x1D]  Source port (LE)
//	[0x20-0x21]  Checksum (LE)
//	[0x26]       0x06

// BuildDiscovery builds the discovery probe for the given local time and
// source address. src may be nil when the local socket is unbound; the
// address and port fields are then left zero, which devices accept.
func BuildDiscovery(now time.Time, src *net.UDPAddr) []byte {
	packet := make([]byte, DiscoverySize)
	packDatetime(packet[0x08:], now)
	packSource(packet[0x18:], src)
	packet[0x26] = byte(CmdHello)

	binary.LittleEndian.PutUint16(packet[offChecksum:], codec.Checksum(codec.ChecksumSeed, packet))
	return packet
}

func packDatetime(dst []byte, now time.Time) {
	_, secOffset := now.Zone()
	binary.LittleEndian.PutUint32(dst[0x00:], uint32(int32(secOffset/3600)))
	binary.LittleEndian.PutUint16(dst[0x04:], uint16(now.Year()))
	dst[0x06] = byte(now.Minute())
	dst[0x07] = byte(now.Hour())
	dst[0x08] = byte(now.Year() % 100)
	dst[0x09] = byte(isoWeekday(now.Weekday()))
	dst[0x0A] = byte(now.Day())
	dst[0x0B] = byte(now.Month())
}

func packSource(dst []byte, src *net.UDPAddr) {
	if src == nil {
		return
	}
	if ip := src.IP.To4(); ip != nil {
		dst[0x00] = ip[3]
		dst[0x01] = ip[2]
		dst[0x02] = ip[1]
		dst[0x03] = ip[0]
	}
	binary.LittleEndian.PutUint16(dst[0x04:], uint16(src.Port))
}

// isoWeekday maps Go's Sunday-based weekday to ISO-8601 (Monday=1).
func isoWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

// DiscoveryResponse is one parsed answer to the discovery probe.
type DiscoveryResponse struct {
	DevType uint16

	// MAC in wire order; reverse for the canonical display form.
	MAC [6]byte

	Name     string
	IsLocked bool
}

// ParseDiscoveryResponse parses a device's answer to the probe. The
// device type sits at 0x34-0x35, the MAC at 0x3A-0x3F, the NUL-terminated
// name from 0x40, and the lock flag in the final byte (0x7F on a
// full-length response).
func ParseDiscoveryResponse(data []byte) (*DiscoveryResponse, error) {
	if len(data) <= offRespName {
		return nil, badFrame("truncated discovery response: %d bytes", len(data))
	}

	resp := &DiscoveryResponse{
		DevType:  binary.LittleEndian.Uint16(data[offRespDevType:]),
		IsLocked: data[len(data)-1] != 0,
	}
	copy(resp.MAC[:], data[offRespMAC:])

	name := data[offRespName:]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	resp.Name = string(name)
	return resp, nil
}

// Provisioning frame layout (136 bytes, broadcast; no response expected):
//
//	[0x20-0x21]  Checksum (LE)
//	[0x26]       0x14
//	[0x44-....]  SSID
//	[0x64-....]  Password
//	[0x84]       SSID length
//	[0x85]       Password length
//	[0x86]       Security mode (0 none, 1 WEP, 2 WPA1, 3 WPA2, 4 WPA1/2)

// SSID and password capacity in the provisioning frame.
const (
	maxSSIDLen     = 0x20
	maxPasswordLen = 0x20
)

// BuildProvisioning builds the AP-mode provisioning frame.
func BuildProvisioning(ssid, password string, securityMode uint8) ([]byte, error) {
	if len(ssid) == 0 || len(ssid) > maxSSIDLen {
		return nil, fmt.Errorf("ssid must be 1-%d bytes, got %d", maxSSIDLen, len(ssid))
	}
	if len(password) > maxPasswordLen {
		return nil, fmt.Errorf("password must be at most %d bytes, got %d", maxPasswordLen, len(password))
	}
	if securityMode > 4 {
		return nil, fmt.Errorf("security mode must be 0-4, got %d", securityMode)
	}

	packet := make([]byte, ProvisioningSize)
	packet[0x26] = byte(CmdProvision)
	copy(packet[0x44:], ssid)
	copy(packet[0x64:], password)
	packet[0x84] = byte(len(ssid))
	packet[0x85] = byte(len(password))
	packet[0x86] = securityMode

	binary.LittleEndian.PutUint16(packet[offChecksum:], codec.Checksum(codec.ChecksumSeed, packet))
	return packet, nil
}
