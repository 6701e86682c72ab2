package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	broadctl "github.com/muurk/broadctl"
	"github.com/muurk/broadctl/internal/config"
	"github.com/muurk/broadctl/internal/server"
)

// Device command flags
var (
	deviceHost  string
	scanTimeout int
	socketNum   int
	saveLabel   string
	codeHex     string
	savedLabel  string
	servePort   int
	serveHost   string
	setupSSID   string
	setupPass   string
	setupMode   int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&deviceHost, "host", "", "Device IP address or roster nickname")

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(learnCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(powerCmd)
	rootCmd.AddCommand(energyCmd)
	rootCmd.AddCommand(sensorsCmd)
	rootCmd.AddCommand(bulbCmd)
	rootCmd.AddCommand(hubCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(serveCmd)
}

// resolveHost maps a roster nickname to its last known IP; literal IPs
// pass through.
func resolveHost(host string) (string, error) {
	if host == "" {
		return "", fmt.Errorf("--host is required (IP address or roster nickname)")
	}
	if net.ParseIP(host) != nil {
		return host, nil
	}

	registry, err := config.LoadRegistry()
	if err != nil {
		return "", err
	}
	if _, d := registry.FindByNickname(host); d != nil && d.LastIP != "" {
		return d.LastIP, nil
	}
	return "", fmt.Errorf("%q is neither an IP address nor a known nickname", host)
}

// connect probes and authenticates the target device.
func connect() (*broadctl.Device, error) {
	host, err := resolveHost(deviceHost)
	if err != nil {
		return nil, err
	}

	d, err := broadctl.Hello(host, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", host, err)
	}
	if err := d.Auth(); err != nil {
		return nil, err
	}
	return d, nil
}

// rememberDevice refreshes the roster entry for a discovered device.
func rememberDevice(registry *config.Registry, d *broadctl.Device) {
	registry.UpdateDeviceLastSeen(d.CanonicalMAC(), d.Host.IP.String(), d.DevType, d.Family.String())
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover Broadlink devices on the network",
	Long: `Broadcast the discovery probe and list every device that answers.

Discovered devices are remembered in the roster so later commands can
address them by nickname.`,
	Example: `  # Scan for 10 seconds (default)
  broadctl discover

  # Quick 3-second scan
  broadctl discover --timeout 3`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().IntVar(&scanTimeout, "timeout", 10, "Scan timeout in seconds")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for Broadlink devices (timeout: %ds)...\n\n", scanTimeout)

	ch, err := broadctl.XDiscover(broadctl.DiscoverOptions{
		Timeout: time.Duration(scanTimeout) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	registry, regErr := config.LoadRegistry()

	count := 0
	for d := range ch {
		count++
		locked := ""
		if d.IsLocked {
			locked = detailStyle.Render("  [locked]")
		}
		fmt.Printf("%d. %s%s\n", count, deviceNameStyle.Render(d.Name), locked)
		fmt.Printf("   %s\n", detailStyle.Render(fmt.Sprintf("%s %s (0x%04X)", d.Manufacturer, d.Model, d.DevType)))
		fmt.Printf("   Family:  %s\n", d.Family)
		fmt.Printf("   IP:      %s\n", d.Host.IP)
		fmt.Printf("   MAC:     %s\n", d.CanonicalMAC())
		fmt.Println()

		if regErr == nil {
			rememberDevice(registry, d)
		}
	}

	if count == 0 {
		fmt.Println("No devices found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure devices are powered and on this network segment")
		fmt.Println("  - Locked devices ignore the broadcast; use --host to probe directly")
		fmt.Println("  - Try increasing --timeout on busy networks")
		return nil
	}

	if regErr == nil {
		if err := registry.Save(); err != nil {
			fmt.Printf("Warning: could not update roster: %v\n", err)
		}
	}

	fmt.Printf("Found %d device(s).\n", count)
	return nil
}

var learnCmd = &cobra.Command{
	Use:   "learn (ir|rf)",
	Short: "Capture an IR or RF code from a remote",
	Long: `Put an RM unit into learning mode and capture a code.

IR capture is one-shot: press the remote button once when prompted.
RF capture sweeps for the carrier first: hold the button down until the
frequency locks, then tap it once.`,
	Example: `  # Learn an IR code and save it as "tv-power"
  broadctl learn ir --host 192.168.0.42 --save tv-power

  # Learn an RF code from a 433 MHz remote
  broadctl learn rf --host bedroom-rm`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"ir", "rf"},
	RunE:      runLearn,
}

func init() {
	learnCmd.Flags().StringVar(&saveLabel, "save", "", "Store the captured code in the roster under this label")
}

func runLearn(cmd *cobra.Command, args []string) error {
	d, err := connect()
	if err != nil {
		return err
	}

	learner, err := broadctl.NewLearner(d)
	if err != nil {
		return err
	}
	learner.Prompt = func(msg string) {
		fmt.Println(promptStyle.Render(">> " + msg))
	}

	var code []byte
	switch args[0] {
	case "ir":
		code, err = learner.LearnIR()
	case "rf":
		code, err = learner.LearnRF()
	default:
		return fmt.Errorf("mode must be ir or rf, got %q", args[0])
	}
	if err != nil {
		return err
	}

	encoded := hex.EncodeToString(code)
	fmt.Printf("\nCaptured %d bytes:\n%s\n", len(code), encoded)

	if saveLabel != "" {
		registry, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		rememberDevice(registry, d)
		registry.SaveCode(d.CanonicalMAC(), saveLabel, args[0], encoded)
		if err := registry.Save(); err != nil {
			return fmt.Errorf("save code: %w", err)
		}
		fmt.Printf("Saved as %q.\n", saveLabel)
	}
	return nil
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a learned code",
	Example: `  # Send a raw hex code
  broadctl send --host 192.168.0.42 --code 2600180012341234...

  # Send a code saved during learning
  broadctl send --host bedroom-rm --saved tv-power`,
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVar(&codeHex, "code", "", "Hex-encoded code blob")
	sendCmd.Flags().StringVar(&savedLabel, "saved", "", "Label of a code saved in the roster")
	sendCmd.MarkFlagsMutuallyExclusive("code", "saved")
	sendCmd.MarkFlagsOneRequired("code", "saved")
}

func runSend(cmd *cobra.Command, args []string) error {
	d, err := connect()
	if err != nil {
		return err
	}

	raw := codeHex
	if savedLabel != "" {
		registry, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		code := registry.GetCode(d.CanonicalMAC(), savedLabel)
		if code == nil {
			return fmt.Errorf("no saved code %q for %s", savedLabel, d.CanonicalMAC())
		}
		raw = code.Data
	}

	code, err := hex.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("code is not valid hex: %w", err)
	}

	if err := d.SendData(code); err != nil {
		return err
	}
	fmt.Println("Code sent.")
	return nil
}

var powerCmd = &cobra.Command{
	Use:   "power (on|off|status)",
	Short: "Switch or query a plug, strip socket, or outlet",
	Example: `  # Switch a plug on
  broadctl power on --host 192.168.0.50

  # Switch socket 2 of a power strip off
  broadctl power off --host 192.168.0.51 --socket 2

  # Query the power state
  broadctl power status --host kitchen-plug`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off", "status"},
	RunE:      runPower,
}

func init() {
	powerCmd.Flags().IntVar(&socketNum, "socket", 0, "Power-strip socket number (1-4)")
}

func runPower(cmd *cobra.Command, args []string) error {
	d, err := connect()
	if err != nil {
		return err
	}

	switch args[0] {
	case "status":
		if d.Family == broadctl.FamilyMP1 {
			states, err := d.CheckSocketPower()
			if err != nil {
				return err
			}
			for i, on := range states {
				fmt.Printf("Socket %d: %s\n", i+1, onOff(on))
			}
			return nil
		}
		on, err := d.CheckPower()
		if err != nil {
			return err
		}
		fmt.Printf("Power: %s\n", onOff(on))
		return nil

	case "on", "off":
		on := args[0] == "on"
		if socketNum != 0 {
			err = d.SetSocketPower(socketNum, on)
		} else {
			err = d.SetPower(on)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Power: %s\n", onOff(on))
		return nil
	}
	return fmt.Errorf("state must be on, off, or status, got %q", args[0])
}

var energyCmd = &cobra.Command{
	Use:   "energy",
	Short: "Read the consumption meter of an energy-capable plug",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := connect()
		if err != nil {
			return err
		}
		kwh, err := d.GetEnergy()
		if err != nil {
			return err
		}
		fmt.Printf("Energy: %.2f kWh\n", kwh)
		return nil
	},
}

var sensorsCmd = &cobra.Command{
	Use:   "sensors",
	Short: "Read device sensors (RM, A1, thermostat)",
	RunE:  runSensors,
}

func runSensors(cmd *cobra.Command, args []string) error {
	d, err := connect()
	if err != nil {
		return err
	}

	switch d.Family {
	case broadctl.FamilyA1:
		env, err := d.CheckEnvironment()
		if err != nil {
			return err
		}
		fmt.Printf("Temperature: %.1f C\n", env.Temperature)
		fmt.Printf("Humidity:    %.1f %%\n", env.Humidity)
		fmt.Printf("Light:       %s\n", env.Light)
		fmt.Printf("Air quality: %s\n", env.AirQuality)
		fmt.Printf("Noise:       %s\n", env.Noise)
	case broadctl.FamilyHysen:
		status, err := d.GetFullStatus()
		if err != nil {
			return err
		}
		fmt.Printf("Room temperature:     %.1f C\n", status.RoomTemp)
		fmt.Printf("Target temperature:   %.1f C\n", status.ThermostatTemp)
		fmt.Printf("External temperature: %.1f C\n", status.ExternalTemp)
		fmt.Printf("Power: %s\n", onOff(status.Power))
	default:
		sensors, err := d.CheckSensors()
		if err != nil {
			return err
		}
		fmt.Printf("Temperature: %.1f C\n", sensors.Temperature)
		if sensors.Humidity > 0 {
			fmt.Printf("Humidity:    %.1f %%\n", sensors.Humidity)
		}
	}
	return nil
}

var bulbCmd = &cobra.Command{
	Use:   "bulb [key=value ...]",
	Short: "Read or set the state of an LB bulb",
	Long: `Without arguments, print the bulb's current state. With key=value
arguments, write those options and print the resulting state.

Recognized keys: pwr, brightness, bulb_colormode, red, green, blue, hue,
saturation, colortemp, transitionduration, maxworktime.`,
	Example: `  # Read the bulb state
  broadctl bulb --host 192.168.0.60

  # Warm white at half brightness
  broadctl bulb --host 192.168.0.60 pwr=1 bulb_colormode=1 brightness=50 colortemp=2700

  # Red at full brightness
  broadctl bulb --host living-bulb pwr=1 bulb_colormode=0 red=255 green=0 blue=0`,
	RunE: runBulb,
}

func runBulb(cmd *cobra.Command, args []string) error {
	d, err := connect()
	if err != nil {
		return err
	}

	var state broadctl.LightState
	if len(args) == 0 {
		state, err = d.GetLightState()
	} else {
		opts := make(map[string]int, len(args))
		for _, arg := range args {
			key, value, ok := strings.Cut(arg, "=")
			if !ok {
				return fmt.Errorf("argument %q is not key=value", arg)
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("value of %q must be an integer: %w", key, err)
			}
			opts[key] = n
		}

		light, err := broadctl.LightStateFromOptions(opts)
		if err != nil {
			return err
		}
		state, err = d.SetLightState(light)
		if err != nil {
			return err
		}
	}
	if err != nil {
		return err
	}

	printBulbState(state)
	return nil
}

func printBulbState(state broadctl.LightState) {
	show := func(name string, v *int) {
		if v != nil {
			fmt.Printf("%-20s %d\n", name, *v)
		}
	}
	if state.Pwr != nil {
		fmt.Printf("%-20s %s\n", "power", onOff(*state.Pwr != 0))
	}
	show("brightness", state.Brightness)
	show("colormode", state.ColorMode)
	show("red", state.Red)
	show("green", state.Green)
	show("blue", state.Blue)
	show("hue", state.Hue)
	show("saturation", state.Saturation)
	show("colortemp", state.ColorTemp)
}

var hubCmd = &cobra.Command{
	Use:   "hub [did [key=value ...]]",
	Short: "List or control sub-devices of an S3 hub",
	Long: `Without arguments, list the sub-devices paired to the hub. With a DID,
print that sub-device's state; with key=value arguments, write it.

Recognized keys: pwr, pwr1, pwr2.`,
	Example: `  # List paired sub-devices
  broadctl hub --host 192.168.0.70

  # Read one sub-device
  broadctl hub --host 192.168.0.70 00000000000000000000a043b0d0783a

  # Switch gang 1 on
  broadctl hub --host 192.168.0.70 00000000000000000000a043b0d0783a pwr1=1`,
	RunE: runHub,
}

func runHub(cmd *cobra.Command, args []string) error {
	d, err := connect()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		subs, err := d.GetSubDevices()
		if err != nil {
			return err
		}
		if len(subs) == 0 {
			fmt.Println("No sub-devices paired.")
			return nil
		}
		for i, sub := range subs {
			name := sub.Name
			if name == "" {
				name = "(unnamed)"
			}
			fmt.Printf("%d. %s\n   %s\n", i+1, deviceNameStyle.Render(name), detailStyle.Render(sub.DID))
		}
		return nil
	}

	did := args[0]
	var state broadctl.SubDeviceState
	if len(args) == 1 {
		state, err = d.GetSubDeviceState(did)
	} else {
		var write broadctl.SubDeviceState
		for _, arg := range args[1:] {
			key, value, ok := strings.Cut(arg, "=")
			if !ok {
				return fmt.Errorf("argument %q is not key=value", arg)
			}
			n, convErr := strconv.Atoi(value)
			if convErr != nil {
				return fmt.Errorf("value of %q must be an integer: %w", key, convErr)
			}
			v := n
			switch key {
			case "pwr":
				write.Pwr = &v
			case "pwr1":
				write.Pwr1 = &v
			case "pwr2":
				write.Pwr2 = &v
			default:
				return fmt.Errorf("unknown option %q (recognized: pwr, pwr1, pwr2)", key)
			}
		}
		state, err = d.SetSubDeviceState(did, write)
	}
	if err != nil {
		return err
	}

	show := func(name string, v *int) {
		if v != nil {
			fmt.Printf("%-6s %s\n", name, onOff(*v != 0))
		}
	}
	show("pwr", state.Pwr)
	show("pwr1", state.Pwr1)
	show("pwr2", state.Pwr2)
	return nil
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Provision a device in AP mode with WiFi credentials",
	Long: `Broadcast WiFi credentials to a device in AP mode.

Hold the device's reset button until the LED blinks fast, join the
"BroadlinkProv" network it opens, then run this command. The device sends
no response; watch its LED to confirm it joined your network.

Security modes: 0 none, 1 WEP, 2 WPA1, 3 WPA2, 4 WPA1/2.`,
	Example: `  broadctl setup --ssid HomeNet --password hunter22 --mode 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := broadctl.Setup(setupSSID, setupPass, uint8(setupMode)); err != nil {
			return err
		}
		fmt.Println("Provisioning frame sent. Watch the device LED.")
		return nil
	},
}

func init() {
	setupCmd.Flags().StringVar(&setupSSID, "ssid", "", "Network SSID")
	setupCmd.Flags().StringVar(&setupPass, "password", "", "Network password")
	setupCmd.Flags().IntVar(&setupMode, "mode", 3, "Security mode (0-4)")
	_ = setupCmd.MarkFlagRequired("ssid")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API server",
	Long: `Expose the control surface over a REST API.

See the internal/server package documentation for the route list. The
server caches authenticated sessions per device and serializes requests
per handle.`,
	Example: `  broadctl serve --port 5050`,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := server.New(&server.Config{
			Host:     serveHost,
			Port:     servePort,
			LogLevel: "info",
		})
		if err != nil {
			return err
		}
		fmt.Printf("Listening on %s\n", net.JoinHostPort(serveHost, strconv.Itoa(servePort)))
		return srv.Start(context.Background())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "listen", "0.0.0.0", "Listen address")
	serveCmd.Flags().IntVar(&servePort, "port", 5050, "Listen port")
}
