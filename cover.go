package broadctl

import "fmt"

// dooyaCommand sends one curtain-motor opcode pair and returns the status
// byte from the response.
func (d *Device) dooyaCommand(magic1, magic2 byte) (byte, error) {
	if err := d.requireFamily(FamilyDooya); err != nil {
		return 0, err
	}

	payload := make([]byte, 16)
	payload[0x00] = 0x09
	payload[0x02] = 0xBB
	payload[0x03] = magic1
	payload[0x04] = magic2
	payload[0x09] = 0xFA
	payload[0x0A] = 0x44

	resp, err := d.Command(payload)
	if err != nil {
		return 0, err
	}
	if len(resp) < 5 {
		return 0, &BadFrameError{Reason: fmt.Sprintf("curtain response too short: %d bytes", len(resp))}
	}
	return resp[0x04], nil
}

// OpenCurtain starts opening the curtain.
func (d *Device) OpenCurtain() error {
	_, err := d.dooyaCommand(0x01, 0x00)
	return err
}

// CloseCurtain starts closing the curtain.
func (d *Device) CloseCurtain() error {
	_, err := d.dooyaCommand(0x02, 0x00)
	return err
}

// StopCurtain halts the motor.
func (d *Device) StopCurtain() error {
	_, err := d.dooyaCommand(0x03, 0x00)
	return err
}

// GetCurtainPosition returns the curtain position in percent open.
func (d *Device) GetCurtainPosition() (int, error) {
	pos, err := d.dooyaCommand(0x06, 0x5D)
	return int(pos), err
}
