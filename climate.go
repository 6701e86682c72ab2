package broadctl

import (
	"encoding/binary"
	"fmt"

	"github.com/muurk/broadctl/internal/codec"
)

// The Hysen thermostat tunnels a serial dialect through the generic
// command: every request is length-framed and CRC-16 sealed, and the
// response comes back in the same envelope.

// hysenRequest frames req, sends it, validates the response frame, and
// returns the inner response bytes.
func (d *Device) hysenRequest(req []byte) ([]byte, error) {
	if err := d.requireFamily(FamilyHysen); err != nil {
		return nil, err
	}

	packet := make([]byte, 0, 2+len(req)+2)
	packet = binary.LittleEndian.AppendUint16(packet, uint16(len(req)+2))
	packet = append(packet, req...)
	packet = binary.LittleEndian.AppendUint16(packet, codec.CRC16(req))

	resp, err := d.Command(packet)
	if err != nil {
		return nil, err
	}

	if len(resp) < 2 {
		return nil, &BadFrameError{Reason: "thermostat response missing length"}
	}
	pLen := int(binary.LittleEndian.Uint16(resp))
	if pLen+2 > len(resp) {
		return nil, &BadFrameError{Reason: fmt.Sprintf("thermostat response truncated: frame says %d bytes, %d available", pLen, len(resp)-2)}
	}

	nominal := binary.LittleEndian.Uint16(resp[pLen:])
	if actual := codec.CRC16(resp[0x02:pLen]); nominal != actual {
		return nil, &BadFrameError{Reason: fmt.Sprintf("thermostat crc mismatch: frame says 0x%04x, computed 0x%04x", nominal, actual)}
	}
	return resp[0x02:pLen], nil
}

// GetTemperature returns the room temperature in degrees Celsius.
func (d *Device) GetTemperature() (float64, error) {
	payload, err := d.hysenRequest([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x08})
	if err != nil {
		return 0, err
	}
	if len(payload) < 6 {
		return 0, &BadFrameError{Reason: "thermostat status too short"}
	}
	return float64(payload[0x05]) / 2, nil
}

// GetExternalTemperature returns the floor-sensor temperature.
func (d *Device) GetExternalTemperature() (float64, error) {
	payload, err := d.hysenRequest([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x08})
	if err != nil {
		return 0, err
	}
	if len(payload) < 19 {
		return 0, &BadFrameError{Reason: "thermostat status too short"}
	}
	return float64(payload[18]) / 2, nil
}

// SchedulePoint is one timer entry: the switch time and the temperature
// that becomes effective then.
type SchedulePoint struct {
	StartHour   int
	StartMinute int
	Temperature float64
}

// ThermostatStatus is the full state block of a Hysen unit, timer
// schedule included.
type ThermostatStatus struct {
	RemoteLock     bool
	Power          bool
	Active         bool
	TempManual     bool
	RoomTemp       float64
	ThermostatTemp float64
	AutoMode       int
	LoopMode       int
	Sensor         int
	ExternalTemp   float64
	Hour, Min, Sec int
	DayOfWeek      int
	Weekday        []SchedulePoint
	Weekend        []SchedulePoint
}

// GetFullStatus reads the thermostat's full state block.
func (d *Device) GetFullStatus() (*ThermostatStatus, error) {
	payload, err := d.hysenRequest([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x16})
	if err != nil {
		return nil, err
	}
	if len(payload) < 47 {
		return nil, &BadFrameError{Reason: fmt.Sprintf("thermostat status too short: %d bytes", len(payload))}
	}

	st := &ThermostatStatus{
		RemoteLock:     payload[3]&1 != 0,
		Power:          payload[4]&1 != 0,
		Active:         payload[4]>>4&1 != 0,
		TempManual:     payload[4]>>6&1 != 0,
		RoomTemp:       float64(payload[5]) / 2,
		ThermostatTemp: float64(payload[6]) / 2,
		AutoMode:       int(payload[7] & 0x0F),
		LoopMode:       int(payload[7] >> 4),
		Sensor:         int(payload[8]),
		ExternalTemp:   float64(payload[18]) / 2,
		Hour:           int(payload[19]),
		Min:            int(payload[20]),
		Sec:            int(payload[21]),
		DayOfWeek:      int(payload[22]),
	}

	for i := 0; i < 6; i++ {
		st.Weekday = append(st.Weekday, SchedulePoint{
			StartHour:   int(payload[2*i+23]),
			StartMinute: int(payload[2*i+24]),
			Temperature: float64(payload[i+39]) / 2,
		})
	}
	for i := 6; i < 8; i++ {
		st.Weekend = append(st.Weekend, SchedulePoint{
			StartHour:   int(payload[2*i+23]),
			StartMinute: int(payload[2*i+24]),
			Temperature: float64(payload[i+39]) / 2,
		})
	}
	return st, nil
}

// SetTemperature sets the manual target temperature, activating manual
// mode if the unit is on a schedule. Half-degree resolution.
func (d *Device) SetTemperature(temp float64) error {
	_, err := d.hysenRequest([]byte{0x01, 0x06, 0x00, 0x01, 0x00, byte(temp * 2)})
	return err
}

// SetThermostatPower switches the unit on or off; remoteLock disables the
// local buttons.
func (d *Device) SetThermostatPower(power, remoteLock bool) error {
	_, err := d.hysenRequest([]byte{0x01, 0x06, 0x00, 0x00, boolByte(remoteLock), boolByte(power)})
	return err
}

// SetThermostatMode selects auto (scheduled) or manual mode. loopMode
// indexes the schedule layouts ["12345,67", "123456,7", "1234567"].
func (d *Device) SetThermostatMode(autoMode, loopMode, sensor int) error {
	modeByte := byte((loopMode+1)<<4 + autoMode)
	_, err := d.hysenRequest([]byte{0x01, 0x06, 0x00, 0x02, modeByte, byte(sensor)})
	return err
}

// SetThermostatTime sets the unit's clock; day is ISO (Monday=1).
func (d *Device) SetThermostatTime(hour, minute, second, day int) error {
	_, err := d.hysenRequest([]byte{
		0x01, 0x10, 0x00, 0x08, 0x00, 0x02, 0x04,
		byte(hour), byte(minute), byte(second), byte(day),
	})
	return err
}

// SetSchedule writes the timer schedule: six weekday points and two
// weekend points, in the same shape GetFullStatus returns.
func (d *Device) SetSchedule(weekday, weekend []SchedulePoint) error {
	if len(weekday) != 6 || len(weekend) != 2 {
		return fmt.Errorf("%w: schedule needs 6 weekday and 2 weekend points", ErrInvalidArgument)
	}

	req := []byte{0x01, 0x10, 0x00, 0x0A, 0x00, 0x0C, 0x18}
	for _, p := range weekday {
		req = append(req, byte(p.StartHour), byte(p.StartMinute))
	}
	for _, p := range weekend {
		req = append(req, byte(p.StartHour), byte(p.StartMinute))
	}
	for _, p := range weekday {
		req = append(req, byte(p.Temperature*2))
	}
	for _, p := range weekend {
		req = append(req, byte(p.Temperature*2))
	}

	_, err := d.hysenRequest(req)
	return err
}
