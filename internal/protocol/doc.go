// Package protocol implements the Broadlink LAN wire format.
//
// Every exchange with a device is a single UDP datagram in one of three
// shapes, all sharing the 0xBEAF byte-sum checksum at offset 0x20:
//
//   - Command frames: a 56-byte header carrying the magic prefix, device
//     type, command code, packet counter, local MAC and device ID, followed
//     by the AES-128-CBC encrypted payload. The plaintext payload checksum
//     at 0x34 and the whole-frame checksum at 0x20 interlock: the payload
//     checksum is computed before encryption and the frame checksum after,
//     with its own field held at zero.
//   - Discovery probes: 48 bytes of local wall-clock time and source
//     address, broadcast to port 80. Responses carry the device type, MAC
//     (wire order, reversed for display), name and lock flag.
//   - Provisioning frames: 136 bytes of SSID/password/security mode,
//     broadcast while the device is in AP mode. No response is sent.
//
// Responses report firmware failures in the error-code field at 0x22;
// ParseResponse surfaces them as *DeviceError before decrypting anything.
// Code 0xFFF6 ("read error") is the soft not-ready answer that learning
// mode returns to premature polls.
//
// The package is purely serialization: it owns no sockets and keeps no
// state. Session state (key rotation, packet counter) lives in the root
// package; I/O lives in internal/transport.
package protocol
