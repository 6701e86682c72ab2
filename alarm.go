package broadctl

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// alarmSensorTypes maps S1C sensor type codes to their kind.
var alarmSensorTypes = map[byte]string{
	0x31: "Door Sensor",
	0x91: "Key Fob",
	0x21: "Motion Sensor",
}

// AlarmSensor is one sensor paired to an S1C alarm kit.
type AlarmSensor struct {
	Status byte
	Order  byte
	Type   string
	Name   string
	Serial string
}

// alarmRecordSize is the per-sensor record width in the status payload.
const alarmRecordSize = 83

// GetAlarmSensors reads the paired-sensor roster of an S1C kit.
func (d *Device) GetAlarmSensors() ([]AlarmSensor, error) {
	if err := d.requireFamily(FamilyS1C); err != nil {
		return nil, err
	}

	payload := make([]byte, 16)
	payload[0] = 0x06
	resp, err := d.Command(payload)
	if err != nil {
		return nil, err
	}
	if len(resp) < 0x06 {
		return nil, &BadFrameError{Reason: fmt.Sprintf("alarm status too short: %d bytes", len(resp))}
	}

	var sensors []AlarmSensor
	records := resp[0x06:]
	for i := 0; i+alarmRecordSize <= len(records); i += alarmRecordSize {
		rec := records[i : i+alarmRecordSize]

		// Unpaired slots have an all-zero serial.
		serial := rec[26:30]
		if serial[0] == 0 && serial[1] == 0 && serial[2] == 0 && serial[3] == 0 {
			continue
		}

		kind, ok := alarmSensorTypes[rec[3]]
		if !ok {
			kind = "Unknown"
		}
		sensors = append(sensors, AlarmSensor{
			Status: rec[0],
			Order:  rec[1],
			Type:   kind,
			Name:   strings.TrimRight(string(rec[4:26]), "\x00"),
			Serial: hex.EncodeToString(serial),
		})
	}
	return sensors, nil
}
