package broadctl

import (
	"fmt"

	"github.com/muurk/broadctl/internal/protocol"
)

// Plug command bytes (first byte of the 16-byte request payload).
const (
	spCmdStatus = 0x01
	spCmdPower  = 0x02
)

// spFamilies are the single-socket plugs that speak the classic dialect.
var spFamilies = []Family{FamilySP2, FamilySP2S, FamilySP3, FamilySP3S}

// SetPower switches a plug on or off. Every plug family is covered: SP1
// uses its own command code, SP3 carries the nightlight bit along, SP4
// goes through the JSON state envelope.
func (d *Device) SetPower(on bool) error {
	switch d.Family {
	case FamilySP1:
		return d.sp1SetPower(on)
	case FamilySP2, FamilySP2S, FamilySP3S:
		return d.spSetState(boolByte(on))
	case FamilySP3:
		// Power is bit 0, nightlight bit 1; read-modify-write to keep
		// the light as it is.
		night, err := d.CheckNightlight()
		if err != nil {
			return err
		}
		state := boolByte(on)
		if night {
			state |= 0x02
		}
		return d.spSetState(state)
	case FamilySP4:
		pwr := boolInt(on)
		return d.writeState(&PlugState{Pwr: &pwr}, nil)
	default:
		return d.requireFamily(FamilySP1, FamilySP2, FamilySP2S, FamilySP3, FamilySP3S, FamilySP4)
	}
}

// sp1SetPower is the SP1 dialect: a single state byte under command 0x66.
func (d *Device) sp1SetPower(on bool) error {
	_, err := d.sendCode(protocol.CmdSP1Power, []byte{boolByte(on)})
	return err
}

// spSetState writes the raw state byte of an SP2-line plug.
func (d *Device) spSetState(state byte) error {
	_, err := d.Command([]byte{spCmdPower, 0x00, 0x00, 0x00, state})
	return err
}

// spStatus reads the raw state byte of an SP2-line plug.
func (d *Device) spStatus() (byte, error) {
	if err := d.requireFamily(spFamilies...); err != nil {
		return 0, err
	}
	payload := make([]byte, 16)
	payload[0] = spCmdStatus
	resp, err := d.Command(payload)
	if err != nil {
		return 0, err
	}
	if len(resp) < 5 {
		return 0, &BadFrameError{Reason: fmt.Sprintf("plug status payload too short: %d bytes", len(resp))}
	}
	return resp[0x04], nil
}

// CheckPower reads the power state of a plug.
func (d *Device) CheckPower() (bool, error) {
	if d.Family == FamilySP4 {
		var state PlugState
		if err := d.readState(&state); err != nil {
			return false, err
		}
		return state.Pwr != nil && *state.Pwr != 0, nil
	}
	state, err := d.spStatus()
	if err != nil {
		return false, err
	}
	return state&0x01 != 0, nil
}

// SetNightlight switches the nightlight of an SP3 or SP4.
func (d *Device) SetNightlight(on bool) error {
	switch d.Family {
	case FamilySP3:
		power, err := d.CheckPower()
		if err != nil {
			return err
		}
		state := boolByte(power)
		if on {
			state |= 0x02
		}
		return d.spSetState(state)
	case FamilySP4:
		nt := boolInt(on)
		return d.writeState(&PlugState{Nightlight: &nt}, nil)
	default:
		return d.requireFamily(FamilySP3, FamilySP4)
	}
}

// CheckNightlight reads the nightlight state of an SP3 or SP4.
func (d *Device) CheckNightlight() (bool, error) {
	switch d.Family {
	case FamilySP3:
		state, err := d.spStatus()
		if err != nil {
			return false, err
		}
		return state&0x02 != 0, nil
	case FamilySP4:
		var state PlugState
		if err := d.readState(&state); err != nil {
			return false, err
		}
		return state.Nightlight != nil && *state.Nightlight != 0, nil
	default:
		return false, d.requireFamily(FamilySP3, FamilySP4)
	}
}

// energyRequest is the metering read understood by the energy-capable
// plugs (SP2S, SP3S).
var energyRequest = []byte{0x08, 0x00, 0xFE, 0x01, 0x05, 0x01, 0x00, 0x00, 0x00, 0x2D}

// GetEnergy reads the consumption meter of an energy-capable plug. Three
// BCD bytes at payload 0x07-0x09 read back-to-front give the value times
// one hundred.
func (d *Device) GetEnergy() (float64, error) {
	if err := d.requireFamily(FamilySP2S, FamilySP3S); err != nil {
		return 0, err
	}

	resp, err := d.Command(energyRequest)
	if err != nil {
		return 0, err
	}
	if len(resp) < 0x0A {
		return 0, &BadFrameError{Reason: fmt.Sprintf("energy payload too short: %d bytes", len(resp))}
	}

	value := 0
	for i := 0x09; i >= 0x07; i-- {
		b := resp[i]
		if b>>4 > 9 || b&0x0F > 9 {
			return 0, &BadFrameError{Reason: fmt.Sprintf("energy byte 0x%02x is not bcd", b)}
		}
		value = value*100 + int(b>>4)*10 + int(b&0x0F)
	}
	return float64(value) / 100, nil
}

// PlugState is the recognized JSON option record of the SP4 generation.
// Nil fields are omitted from writes.
type PlugState struct {
	Pwr          *int `json:"pwr,omitempty"`
	Nightlight   *int `json:"ntlight,omitempty"`
	Indicator    *int `json:"indicator,omitempty"`
	NtBrightness *int `json:"ntlbrightness,omitempty"`
	MaxWorkTime  *int `json:"maxworktime,omitempty"`
	ChildLock    *int `json:"childlock,omitempty"`
}

// GetPlugState reads the full JSON state of an SP4 plug.
func (d *Device) GetPlugState() (PlugState, error) {
	var state PlugState
	if err := d.requireFamily(FamilySP4); err != nil {
		return state, err
	}
	err := d.readState(&state)
	return state, err
}

// SetPlugState writes the non-nil fields of state and returns the
// device's echo.
func (d *Device) SetPlugState(state PlugState) (PlugState, error) {
	var out PlugState
	if err := d.requireFamily(FamilySP4); err != nil {
		return out, err
	}
	err := d.writeState(&state, &out)
	return out, err
}

// MP1 payload dialect.
var (
	mp1SetPrefix   = []byte{0x0D, 0x00, 0xA5, 0xA5, 0x5A, 0x5A, 0xB2, 0xC0, 0x02, 0x03}
	mp1CheckPrefix = []byte{0x0A, 0x00, 0xA5, 0xA5, 0x5A, 0x5A, 0xAE, 0xC0, 0x01}
)

// MP1Sockets is the number of switched sockets on a power strip.
const MP1Sockets = 4

// SetSocketPower switches one socket (1-4) of an MP1 strip.
func (d *Device) SetSocketPower(socket int, on bool) error {
	if err := d.requireFamily(FamilyMP1); err != nil {
		return err
	}
	if socket < 1 || socket > MP1Sockets {
		return fmt.Errorf("%w: socket must be 1-%d, got %d", ErrInvalidArgument, MP1Sockets, socket)
	}

	mask := byte(1) << (socket - 1)
	state := byte(0)
	if on {
		state = mask
	}

	payload := append(append([]byte(nil), mp1SetPrefix...), mask, state)
	_, err := d.Command(payload)
	return err
}

// CheckSocketPower reads the power bitmap of all four strip sockets.
func (d *Device) CheckSocketPower() ([MP1Sockets]bool, error) {
	var states [MP1Sockets]bool
	if err := d.requireFamily(FamilyMP1); err != nil {
		return states, err
	}

	resp, err := d.Command(mp1CheckPrefix)
	if err != nil {
		return states, err
	}
	if len(resp) < 0x0F {
		return states, &BadFrameError{Reason: fmt.Sprintf("strip status payload too short: %d bytes", len(resp))}
	}

	bitmap := resp[0x0E]
	for i := range states {
		states[i] = bitmap&(1<<i) != 0
	}
	return states, nil
}

// OutletState is the recognized JSON option record of the BG1 dual
// outlet: the master switch, the two sockets, their work-time limits, and
// the indicator brightness.
type OutletState struct {
	Pwr           *int `json:"pwr,omitempty"`
	Pwr1          *int `json:"pwr1,omitempty"`
	Pwr2          *int `json:"pwr2,omitempty"`
	MaxWorkTime   *int `json:"maxworktime,omitempty"`
	MaxWorkTime1  *int `json:"maxworktime1,omitempty"`
	MaxWorkTime2  *int `json:"maxworktime2,omitempty"`
	IDCBrightness *int `json:"idcbrightness,omitempty"`
}

// GetOutletState reads the full JSON state of a BG1 outlet.
func (d *Device) GetOutletState() (OutletState, error) {
	var state OutletState
	if err := d.requireFamily(FamilyBG1); err != nil {
		return state, err
	}
	err := d.readState(&state)
	return state, err
}

// SetOutletState writes the non-nil fields of state and returns the
// device's echo.
func (d *Device) SetOutletState(state OutletState) (OutletState, error) {
	var out OutletState
	if err := d.requireFamily(FamilyBG1); err != nil {
		return out, err
	}
	err := d.writeState(&state, &out)
	return out, err
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
