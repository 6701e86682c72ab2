package config

import "time"

// Registry represents the entire user configuration file.
// This stores user-defined metadata for devices and front-end preferences;
// the protocol engine itself persists nothing.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by canonical MAC
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device represents user-defined metadata for a single Broadlink device.
// This is keyed by the device's canonical MAC in the Registry.
type Device struct {
	Nickname string           `yaml:"nickname,omitempty"`  // User-friendly name
	LastIP   string           `yaml:"last_ip,omitempty"`   // Last known IP address
	DevType  uint16           `yaml:"devtype,omitempty"`   // Device-type code from discovery
	Family   string           `yaml:"family,omitempty"`    // Family tag for display
	LastSeen time.Time        `yaml:"last_seen,omitempty"` // Last discovery/connection time
	Codes    map[string]*Code `yaml:"codes,omitempty"`     // Learned codes, keyed by label
}

// Code is one learned IR/RF code. The data is the device-native blob,
// hex-encoded so the file stays diffable.
type Code struct {
	Modality  string    `yaml:"modality"` // Learn mode that captured it: "ir" or "rf"
	Data      string    `yaml:"data"`     // Hex-encoded code blob
	LearnedAt time.Time `yaml:"learned_at,omitempty"`
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DiscoverTimeout int    `yaml:"discover_timeout"`   // Discovery timeout in seconds
	LocalIP         string `yaml:"local_ip,omitempty"` // Source address for discovery probes
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version: 1,
		Devices: make(map[string]*Device),
		Preferences: &Preferences{
			DiscoverTimeout: 10,
		},
	}
}

// GetDevice retrieves device metadata by canonical MAC.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(mac string) *Device {
	return r.Devices[mac]
}

// FindByNickname resolves a nickname to the device entry and its MAC.
// Returns empty MAC when no device carries the nickname.
func (r *Registry) FindByNickname(nickname string) (string, *Device) {
	for mac, device := range r.Devices {
		if device.Nickname == nickname {
			return mac, device
		}
	}
	return "", nil
}

// EnsureDevice ensures a device entry exists in the registry.
// If the device doesn't exist, creates a new entry with default values.
// Returns the device entry (existing or newly created).
func (r *Registry) EnsureDevice(mac string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	if device, exists := r.Devices[mac]; exists {
		return device
	}

	device := &Device{
		Codes: make(map[string]*Code),
	}
	r.Devices[mac] = device
	return device
}

// UpdateDeviceLastSeen updates the last seen timestamp and network
// details for a device.
func (r *Registry) UpdateDeviceLastSeen(mac, ip string, devType uint16, family string) {
	device := r.EnsureDevice(mac)
	device.LastSeen = time.Now()
	device.LastIP = ip
	device.DevType = devType
	device.Family = family
}

// SetDeviceNickname sets a user-friendly nickname for a device.
func (r *Registry) SetDeviceNickname(mac, nickname string) {
	device := r.EnsureDevice(mac)
	device.Nickname = nickname
}

// SaveCode stores a learned code under a label for a device.
func (r *Registry) SaveCode(mac, label, modality, hexData string) {
	device := r.EnsureDevice(mac)
	if device.Codes == nil {
		device.Codes = make(map[string]*Code)
	}
	device.Codes[label] = &Code{
		Modality:  modality,
		Data:      hexData,
		LearnedAt: time.Now(),
	}
}

// GetCode retrieves a learned code by device MAC and label.
// Returns nil if either is unknown.
func (r *Registry) GetCode(mac, label string) *Code {
	device := r.Devices[mac]
	if device == nil {
		return nil
	}
	return device.Codes[label]
}
