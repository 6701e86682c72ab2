package broadctl

import (
	"fmt"
	"regexp"
)

// didPattern matches a hub sub-device identifier: 32 hex characters.
var didPattern = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

// SubDevice is one device paired to an S3 hub.
type SubDevice struct {
	DID  string `json:"did"`
	PID  string `json:"pid,omitempty"`
	Name string `json:"name,omitempty"`
}

// subDeviceQuery is the paged enumeration request.
type subDeviceQuery struct {
	Count int `json:"count"`
	Index int `json:"index"`
}

// subDeviceList is one enumeration page.
type subDeviceList struct {
	Total int         `json:"total"`
	Index int         `json:"index"`
	List  []SubDevice `json:"list"`
}

// subDevicePageSize is how many entries each enumeration page asks for.
const subDevicePageSize = 5

// GetSubDevices enumerates every sub-device paired to the hub, paging
// through the firmware's five-entry windows.
func (d *Device) GetSubDevices() ([]SubDevice, error) {
	if err := d.requireFamily(FamilyHub); err != nil {
		return nil, err
	}

	var all []SubDevice
	total := subDevicePageSize
	for index := 0; index < total; index += subDevicePageSize {
		packet, err := packState(stateFlagRead, subDeviceQuery{Count: subDevicePageSize, Index: index})
		if err != nil {
			return nil, err
		}
		resp, err := d.Command(packet)
		if err != nil {
			return nil, err
		}

		var page subDeviceList
		if err := unpackState(resp, &page); err != nil {
			return nil, err
		}

		total = page.Total
		all = append(all, page.List...)
		if len(page.List) == 0 {
			break
		}
	}
	return all, nil
}

// subDeviceAddress targets one sub-device in a read.
type subDeviceAddress struct {
	DID string `json:"did"`
}

// SubDeviceState is the recognized option record for an addressed hub
// sub-device: the master switch and the per-gang switches.
type SubDeviceState struct {
	DID  string `json:"did,omitempty"`
	Pwr  *int   `json:"pwr,omitempty"`
	Pwr1 *int   `json:"pwr1,omitempty"`
	Pwr2 *int   `json:"pwr2,omitempty"`
}

// GetSubDeviceState reads the state of one sub-device by DID.
func (d *Device) GetSubDeviceState(did string) (SubDeviceState, error) {
	var state SubDeviceState
	if err := d.requireFamily(FamilyHub); err != nil {
		return state, err
	}
	if !didPattern.MatchString(did) {
		return state, fmt.Errorf("%w: did must be 32 hex characters", ErrInvalidArgument)
	}

	packet, err := packState(stateFlagRead, subDeviceAddress{DID: did})
	if err != nil {
		return state, err
	}
	resp, err := d.Command(packet)
	if err != nil {
		return state, err
	}
	err = unpackState(resp, &state)
	return state, err
}

// SetSubDeviceState writes the non-nil switches of state to the
// sub-device and returns the echo.
func (d *Device) SetSubDeviceState(did string, state SubDeviceState) (SubDeviceState, error) {
	var out SubDeviceState
	if err := d.requireFamily(FamilyHub); err != nil {
		return out, err
	}
	if !didPattern.MatchString(did) {
		return out, fmt.Errorf("%w: did must be 32 hex characters", ErrInvalidArgument)
	}

	state.DID = did
	err := d.writeState(&state, &out)
	return out, err
}
