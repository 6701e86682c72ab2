package broadctl

import (
	"math/rand"

	"github.com/muurk/broadctl/internal/codec"
)

// Session is the per-handle authenticated context: the AES key rotated by
// Auth, the fixed IV, the device-assigned connection ID, and the outbound
// packet counter.
//
// The IV is reused for every frame of a session. That is a cryptographic
// weakness inherited from the device firmware; the protocol defines it
// this way and rotating it would break interoperability.
type Session struct {
	key   []byte
	iv    []byte
	id    [4]byte
	count uint16

	authenticated bool
}

// newSession returns a bootstrap session: well-known key and IV, zero
// device ID, randomly seeded packet counter.
func newSession() Session {
	return Session{
		key:   append([]byte(nil), codec.InitialKey...),
		iv:    append([]byte(nil), codec.InitialVector...),
		count: uint16(rand.Intn(0x10000)),
	}
}

// reset drops back to the bootstrap credentials before a key exchange.
// The packet counter keeps running; the sequence must stay unique for the
// lifetime of the handle.
func (s *Session) reset() {
	copy(s.key, codec.InitialKey)
	s.id = [4]byte{}
	s.authenticated = false
}

// establish installs the credentials from a successful key exchange.
func (s *Session) establish(id [4]byte, key []byte) {
	copy(s.key, key)
	s.id = id
	s.authenticated = true
}

// next increments and returns the packet counter, wrapping at 0xFFFF.
func (s *Session) next() uint16 {
	s.count++
	return s.count
}

// Authenticated reports whether Auth has completed on this session.
func (s Session) Authenticated() bool {
	return s.authenticated
}

// ID returns the device-assigned connection ID (zero before Auth).
func (s *Session) ID() [4]byte {
	return s.id
}

// Count returns the current packet counter value.
func (s *Session) Count() uint16 {
	return s.count
}
