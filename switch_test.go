package broadctl

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/muurk/broadctl/internal/protocol"
)

func TestSP1SetPower(t *testing.T) {
	d, fake := authed(t, 0x0000)
	fake.handle = func(code uint16, payload []byte) (uint16, []byte) {
		if code != protocol.CmdSP1Power {
			t.Errorf("command code = 0x%04x, want 0x0066", code)
		}
		if payload[0] != 0x01 {
			t.Errorf("state byte = 0x%02x, want 0x01", payload[0])
		}
		return 0, nil
	}
	if err := d.SetPower(true); err != nil {
		t.Fatalf("SetPower() error = %v", err)
	}
}

func TestSP2PowerRoundTrip(t *testing.T) {
	d, fake := authed(t, 0x753E)

	var state byte
	fake.handle = func(_ uint16, payload []byte) (uint16, []byte) {
		switch payload[0] {
		case spCmdPower:
			if !bytes.Equal(payload[:5], []byte{0x02, 0x00, 0x00, 0x00, payload[4]}) {
				t.Errorf("set payload = % x", payload[:5])
			}
			state = payload[4]
			return 0, nil
		case spCmdStatus:
			return 0, []byte{0x01, 0x00, 0x00, 0x00, state}
		}
		t.Errorf("unexpected plug command 0x%02x", payload[0])
		return 0xFFFC, nil
	}

	if err := d.SetPower(true); err != nil {
		t.Fatalf("SetPower(true) error = %v", err)
	}
	on, err := d.CheckPower()
	if err != nil {
		t.Fatalf("CheckPower() error = %v", err)
	}
	if !on {
		t.Error("power should be on")
	}

	if err := d.SetPower(false); err != nil {
		t.Fatalf("SetPower(false) error = %v", err)
	}
	on, err = d.CheckPower()
	if err != nil {
		t.Fatalf("CheckPower() error = %v", err)
	}
	if on {
		t.Error("power should be off")
	}
}

func TestSP3NightlightPreserved(t *testing.T) {
	d, fake := authed(t, 0x2733)

	state := byte(0x02) // nightlight on, power off
	fake.handle = func(_ uint16, payload []byte) (uint16, []byte) {
		switch payload[0] {
		case spCmdPower:
			state = payload[4]
			return 0, nil
		case spCmdStatus:
			return 0, []byte{0x01, 0x00, 0x00, 0x00, state}
		}
		return 0xFFFC, nil
	}

	if err := d.SetPower(true); err != nil {
		t.Fatalf("SetPower() error = %v", err)
	}
	if state != 0x03 {
		t.Errorf("state byte = 0x%02x, want 0x03 (power on, nightlight kept)", state)
	}

	if err := d.SetNightlight(false); err != nil {
		t.Fatalf("SetNightlight() error = %v", err)
	}
	if state != 0x01 {
		t.Errorf("state byte = 0x%02x, want 0x01 (nightlight off, power kept)", state)
	}
}

func TestGetEnergyBCD(t *testing.T) {
	d, fake := authed(t, 0x947A) // SP3S
	fake.handle = func(_ uint16, payload []byte) (uint16, []byte) {
		if !bytes.Equal(payload[:len(energyRequest)], energyRequest) {
			t.Errorf("request = % x", payload[:len(energyRequest)])
		}
		// BCD 00 12 34 back to front reads 001234, i.e. 12.34.
		return 0, []byte{0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x34, 0x12, 0x00}
	}

	kwh, err := d.GetEnergy()
	if err != nil {
		t.Fatalf("GetEnergy() error = %v", err)
	}
	if kwh != 12.34 {
		t.Errorf("energy = %v, want 12.34", kwh)
	}
}

func TestGetEnergyRejectsNonBCD(t *testing.T) {
	d, fake := authed(t, 0x2711) // SP2S
	fake.handle = func(uint16, []byte) (uint16, []byte) {
		return 0, []byte{0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xAB, 0x12, 0x00}
	}
	_, err := d.GetEnergy()
	var bf *BadFrameError
	if !errors.As(err, &bf) {
		t.Errorf("error = %v, want BadFrameError", err)
	}
}

func TestMP1SocketMask(t *testing.T) {
	tests := []struct {
		socket    int
		on        bool
		wantMask  byte
		wantState byte
	}{
		{1, true, 0x01, 0x01},
		{2, true, 0x02, 0x02},
		{3, true, 0x04, 0x04},
		{4, true, 0x08, 0x08},
		{2, false, 0x02, 0x00},
	}

	d, fake := authed(t, 0x4EB5)
	var gotMask, gotState byte
	fake.handle = func(_ uint16, payload []byte) (uint16, []byte) {
		if !bytes.Equal(payload[:10], mp1SetPrefix) {
			t.Errorf("prefix = % x", payload[:10])
		}
		gotMask, gotState = payload[10], payload[11]
		return 0, nil
	}

	for _, tt := range tests {
		if err := d.SetSocketPower(tt.socket, tt.on); err != nil {
			t.Fatalf("SetSocketPower(%d, %v) error = %v", tt.socket, tt.on, err)
		}
		if gotMask != tt.wantMask || gotState != tt.wantState {
			t.Errorf("socket %d on=%v: mask/state = 0x%02x/0x%02x, want 0x%02x/0x%02x",
				tt.socket, tt.on, gotMask, gotState, tt.wantMask, tt.wantState)
		}
	}
}

func TestMP1SocketRange(t *testing.T) {
	d, _ := authed(t, 0x4EB5)
	for _, socket := range []int{0, 5, -1} {
		if err := d.SetSocketPower(socket, true); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("socket %d: error = %v, want ErrInvalidArgument", socket, err)
		}
	}
}

func TestMP1CheckPowerBitmap(t *testing.T) {
	d, fake := authed(t, 0x4EB5)
	fake.handle = func(_ uint16, payload []byte) (uint16, []byte) {
		if !bytes.Equal(payload[:len(mp1CheckPrefix)], mp1CheckPrefix) {
			t.Errorf("request = % x", payload[:len(mp1CheckPrefix)])
		}
		resp := make([]byte, 0x10)
		resp[0x0E] = 0b0101 // sockets 1 and 3 on
		return 0, resp
	}

	states, err := d.CheckSocketPower()
	if err != nil {
		t.Fatalf("CheckSocketPower() error = %v", err)
	}
	want := [MP1Sockets]bool{true, false, true, false}
	if states != want {
		t.Errorf("states = %v, want %v", states, want)
	}
}

func TestSP4StateEnvelope(t *testing.T) {
	d, fake := authed(t, 0x7579)

	device := map[string]int{"pwr": 0, "ntlight": 1}
	fake.handle = func(_ uint16, payload []byte) (uint16, []byte) {
		flag, doc := decodeStateEnvelope(t, payload)
		if flag == stateFlagWrite {
			var set map[string]int
			if err := json.Unmarshal(doc, &set); err != nil {
				t.Fatalf("unmarshal write: %v", err)
			}
			for k, v := range set {
				device[k] = v
			}
		}
		resp, err := packState(0, device)
		if err != nil {
			t.Fatalf("pack echo: %v", err)
		}
		return 0, resp
	}

	if err := d.SetPower(true); err != nil {
		t.Fatalf("SetPower() error = %v", err)
	}
	if device["pwr"] != 1 {
		t.Errorf("device pwr = %d, want 1", device["pwr"])
	}

	on, err := d.CheckPower()
	if err != nil {
		t.Fatalf("CheckPower() error = %v", err)
	}
	if !on {
		t.Error("power should be on")
	}

	night, err := d.CheckNightlight()
	if err != nil {
		t.Fatalf("CheckNightlight() error = %v", err)
	}
	if !night {
		t.Error("nightlight should be on")
	}
}

// decodeStateEnvelope validates the A5A5/5A5A header and returns the flag
// and JSON document of a state packet.
func decodeStateEnvelope(t *testing.T, payload []byte) (byte, []byte) {
	t.Helper()
	if !bytes.Equal(payload[:4], []byte{0xA5, 0xA5, 0x5A, 0x5A}) {
		t.Fatalf("envelope header = % x", payload[:4])
	}
	if payload[0x07] != 0x0B {
		t.Fatalf("envelope marker = 0x%02x, want 0x0B", payload[0x07])
	}
	docLen := int(payload[0x08]) | int(payload[0x09])<<8 | int(payload[0x0A])<<16 | int(payload[0x0B])<<24
	return payload[0x06], payload[0x0C : 0x0C+docLen]
}
