// Package broadctl controls Broadlink smart-home devices over the local
// network: universal IR/RF remotes, smart plugs and power strips,
// environment sensors, light bulbs, hubs, thermostats, and curtain
// motors.
//
// Devices speak a custom UDP protocol on port 80: AES-encrypted command
// frames with interlocking checksums, a key-rotating authentication
// handshake, and a broadcast discovery probe. This package is the
// protocol engine; the wire format lives in internal/protocol and the
// sockets in internal/transport.
//
// # Getting a handle
//
//	devices, err := broadctl.Discover(broadctl.DiscoverOptions{})
//	if err != nil { ... }
//	dev := devices[0]
//	if err := dev.Auth(); err != nil { ... }
//
// Every handle must authenticate before family commands work. Locked
// devices ignore the broadcast probe; reach them directly:
//
//	dev, err := broadctl.Hello("192.168.0.42", 5*time.Second)
//
// # Families
//
// The 16-bit device-type code reported during discovery selects the
// device's command dialect. Family operations are methods on the handle;
// calling one the device does not speak fails with ErrUnsupportedDevice.
// Unknown device types still authenticate but support nothing else.
//
// # Learning codes
//
// IR capture is one-shot; RF capture sweeps for the carrier first. The
// Learner wraps both polling flows:
//
//	learner, _ := broadctl.NewLearner(dev)
//	code, err := learner.LearnIR()
//	...
//	err = dev.SendData(code)
//
// # Concurrency
//
// A handle serializes its own requests; the firmware matches responses to
// requests positionally, so only one frame per device may be in flight.
// Distinct handles are independent. The only background goroutine is the
// collector XDiscover starts, which closes its channel at the timeout;
// every other call blocks on a bounded UDP exchange.
package broadctl
