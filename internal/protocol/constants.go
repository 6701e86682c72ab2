package protocol

// Magic is the constant eight-byte prefix marking a valid command frame.
var Magic = []byte{0x5A, 0xA5, 0xAA, 0x55, 0x5A, 0xA5, 0xAA, 0x55}

// Frame geometry.
const (
	// HeaderSize is the size of the command frame header; the encrypted
	// payload begins immediately after it.
	HeaderSize = 0x38

	// DiscoverySize is the size of the discovery probe.
	DiscoverySize = 0x30

	// ProvisioningSize is the size of the AP-mode provisioning frame.
	ProvisioningSize = 0x88

	// MaxDatagram is the receive buffer size. Devices never send more
	// than a couple of hundred bytes, but hub sub-device listings can get
	// close to 1 KiB.
	MaxDatagram = 2048
)

// Command codes carried at offset 0x26.
const (
	CmdHello     = 0x0006
	CmdProvision = 0x0014
	CmdAuth      = 0x0065
	CmdSP1Power  = 0x0066
	CmdCommand   = 0x006A
)

// Command frame field offsets.
const (
	offChecksum    = 0x20
	offError       = 0x22
	offDevType     = 0x24
	offCommand     = 0x26
	offCount       = 0x28
	offMAC         = 0x2A
	offDeviceID    = 0x30
	offPayloadCsum = 0x34
)

// Discovery response field offsets.
const (
	offRespDevType = 0x34
	offRespMAC     = 0x3A
	offRespName    = 0x40
)
