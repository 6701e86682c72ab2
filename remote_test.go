package broadctl

import (
	"bytes"
	"errors"
	"testing"
)

func TestEnterLearningPayload(t *testing.T) {
	d, fake := authed(t, 0x2712)
	fake.handle = func(code uint16, payload []byte) (uint16, []byte) {
		want := make([]byte, 16)
		want[0] = 0x03
		if !bytes.Equal(payload, want) {
			t.Errorf("payload = % x, want % x", payload, want)
		}
		return 0, []byte{0x03, 0x00, 0x00, 0x00}
	}
	if err := d.EnterLearning(); err != nil {
		t.Fatalf("EnterLearning() error = %v", err)
	}
}

func TestRM4RequestHeader(t *testing.T) {
	d, fake := authed(t, 0x51DA) // RM4 mini
	fake.handle = func(code uint16, payload []byte) (uint16, []byte) {
		if payload[0] != 0x04 || payload[1] != 0x00 {
			t.Errorf("missing rm4 header: % x", payload[:2])
		}
		if payload[2] != 0x03 {
			t.Errorf("command byte = 0x%02x, want 0x03", payload[2])
		}
		if len(payload) < 18 {
			t.Errorf("payload length = %d, want >= 18", len(payload))
		}
		return 0, []byte{0x04, 0x00, 0x03, 0x00, 0x00, 0x00}
	}
	if err := d.EnterLearning(); err != nil {
		t.Fatalf("EnterLearning() error = %v", err)
	}
}

func TestCheckData(t *testing.T) {
	code := []byte{0x26, 0x00, 0x04, 0x00, 0x11, 0x22, 0x33, 0x44, 0x0D, 0x05}

	t.Run("returns captured bytes", func(t *testing.T) {
		d, fake := authed(t, 0x2712)
		fake.handle = func(_ uint16, payload []byte) (uint16, []byte) {
			if payload[0] != 0x04 {
				t.Errorf("command byte = 0x%02x, want 0x04", payload[0])
			}
			return 0, append([]byte{0x04, 0x00, 0x00, 0x00}, code...)
		}

		got, err := d.CheckData()
		if err != nil {
			t.Fatalf("CheckData() error = %v", err)
		}
		// Bytes 0x04.. of the payload, padding included.
		if !bytes.Equal(got[:len(code)], code) {
			t.Errorf("code = % x, want % x", got[:len(code)], code)
		}
	})

	t.Run("not ready", func(t *testing.T) {
		d, fake := authed(t, 0x2712)
		fake.handle = func(uint16, []byte) (uint16, []byte) {
			return 0xFFF6, nil
		}
		_, err := d.CheckData()
		if !errors.Is(err, ErrNotReady) {
			t.Errorf("error = %v, want ErrNotReady", err)
		}
	})

	t.Run("hard error stays a device error", func(t *testing.T) {
		d, fake := authed(t, 0x2712)
		fake.handle = func(uint16, []byte) (uint16, []byte) {
			return 0xFFFC, nil
		}
		_, err := d.CheckData()
		if errors.Is(err, ErrNotReady) {
			t.Error("0xFFFC must not map to ErrNotReady")
		}
		var de *DeviceError
		if !errors.As(err, &de) || de.Code != 0xFFFC {
			t.Errorf("error = %v, want DeviceError 0xFFFC", err)
		}
	})
}

func TestSendDataPayload(t *testing.T) {
	code := []byte{0x26, 0x00, 0x02, 0x00, 0x10, 0x20}

	t.Run("rm", func(t *testing.T) {
		d, fake := authed(t, 0x2712)
		fake.handle = func(_ uint16, payload []byte) (uint16, []byte) {
			want := append([]byte{0x02, 0x00, 0x00, 0x00}, code...)
			if !bytes.Equal(payload[:len(want)], want) {
				t.Errorf("payload = % x, want % x", payload[:len(want)], want)
			}
			return 0, nil
		}
		if err := d.SendData(code); err != nil {
			t.Fatalf("SendData() error = %v", err)
		}
	})

	t.Run("rm4 code-sending header", func(t *testing.T) {
		d, fake := authed(t, 0x6026) // RM4 pro
		fake.handle = func(_ uint16, payload []byte) (uint16, []byte) {
			want := append([]byte{0xDA, 0x00, 0x02, 0x00, 0x00, 0x00}, code...)
			if !bytes.Equal(payload[:len(want)], want) {
				t.Errorf("payload = % x, want % x", payload[:len(want)], want)
			}
			return 0, nil
		}
		if err := d.SendData(code); err != nil {
			t.Fatalf("SendData() error = %v", err)
		}
	})

	t.Run("empty code rejected", func(t *testing.T) {
		d, _ := authed(t, 0x2712)
		if err := d.SendData(nil); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("error = %v, want ErrInvalidArgument", err)
		}
	})
}

func TestCheckSensorsDecode(t *testing.T) {
	// Decrypted payload 04 00 00 00 17 03 32 00 reads as 23.3 degrees
	// and 50.0 percent humidity.
	d, fake := authed(t, 0x2712)
	fake.handle = func(_ uint16, payload []byte) (uint16, []byte) {
		if payload[0] != 0x01 {
			t.Errorf("command byte = 0x%02x, want 0x01", payload[0])
		}
		return 0, []byte{0x04, 0x00, 0x00, 0x00, 0x17, 0x03, 0x32, 0x00}
	}

	s, err := d.CheckSensors()
	if err != nil {
		t.Fatalf("CheckSensors() error = %v", err)
	}
	if s.Temperature != 23.3 {
		t.Errorf("temperature = %v, want 23.3", s.Temperature)
	}
	if s.Humidity != 50.0 {
		t.Errorf("humidity = %v, want 50.0", s.Humidity)
	}
}

func TestRM4SensorScaling(t *testing.T) {
	d, fake := authed(t, 0x51DA)
	fake.handle = func(_ uint16, payload []byte) (uint16, []byte) {
		if payload[2] != 0x24 {
			t.Errorf("command byte = 0x%02x, want 0x24", payload[2])
		}
		// RM4 header echoed, then 4-byte echo, then hundredths.
		return 0, []byte{0x04, 0x00, 0x24, 0x00, 0x00, 0x00, 0x17, 0x2D, 0x32, 0x05}
	}

	temp, err := d.CheckTemperature()
	if err != nil {
		t.Fatalf("CheckTemperature() error = %v", err)
	}
	if temp != 23.45 {
		t.Errorf("temperature = %v, want 23.45", temp)
	}

	hum, err := d.CheckHumidity()
	if err != nil {
		t.Fatalf("CheckHumidity() error = %v", err)
	}
	if hum != 50.05 {
		t.Errorf("humidity = %v, want 50.05", hum)
	}
}

func TestEncodePulses(t *testing.T) {
	// 8920 us scales to 292 ticks (0x124, multi-byte); 4450 us scales to
	// 146 ticks (0x92, single byte).
	got := EncodePulses([]int{8920, 4450})
	want := []byte{0x00, 0x01, 0x24, 0x92}
	if !bytes.Equal(got, want) {
		t.Errorf("EncodePulses() = % x, want % x", got, want)
	}
}

func TestDecodePulses(t *testing.T) {
	pulses, err := DecodePulses([]byte{0x00, 0x01, 0x24, 0x92})
	if err != nil {
		t.Fatalf("DecodePulses() error = %v", err)
	}
	if len(pulses) != 2 {
		t.Fatalf("pulse count = %d, want 2", len(pulses))
	}
	// 292 ticks and 146 ticks back to microseconds (truncated).
	if pulses[0] != 292*8192/269 {
		t.Errorf("pulse[0] = %d, want %d", pulses[0], 292*8192/269)
	}
	if pulses[1] != 146*8192/269 {
		t.Errorf("pulse[1] = %d, want %d", pulses[1], 146*8192/269)
	}

	if _, err := DecodePulses([]byte{0x00, 0x01}); err == nil {
		t.Error("truncated multi-byte pulse must fail")
	}
}

func TestIRCode(t *testing.T) {
	code := IRCode(0, []int{8920, 4450})

	if code[0] != ModalityIR {
		t.Errorf("modality = 0x%02x, want 0x26", code[0])
	}
	if code[1] != 0 {
		t.Errorf("repeat = %d, want 0", code[1])
	}
	// Length covers pulses plus the 0D 05 sentinel.
	wantLen := 4 + 2
	if got := int(code[2]) | int(code[3])<<8; got != wantLen {
		t.Errorf("length = %d, want %d", got, wantLen)
	}
	if !bytes.HasSuffix(code, []byte{0x0D, 0x05}) {
		t.Errorf("code = % x, missing IR sentinel", code)
	}
}

func TestRFCode(t *testing.T) {
	code, err := RFCode(ModalityRF433, 1, []int{500, 1000})
	if err != nil {
		t.Fatalf("RFCode() error = %v", err)
	}
	if code[0] != ModalityRF433 || code[1] != 1 {
		t.Errorf("header = % x", code[:2])
	}
	if bytes.HasSuffix(code, []byte{0x0D, 0x05}) {
		t.Error("rf codes must not carry the IR sentinel")
	}

	if _, err := RFCode(ModalityIR, 0, []int{500}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("error = %v, want ErrInvalidArgument", err)
	}
}

func TestLivoloCode(t *testing.T) {
	code, err := LivoloCode(6400, "btn1")
	if err != nil {
		t.Fatalf("LivoloCode() error = %v", err)
	}

	if !bytes.HasPrefix(code, []byte{0xB2, 0x80, 0x26, 0x00, 0x13}) {
		t.Errorf("code prefix = % x", code[:5])
	}
	// The pulse section pads to a 16-byte boundary past the preamble.
	if (len(code)-12)%16 != 0 {
		t.Errorf("code length %d is not padded to a block boundary", len(code))
	}

	if _, err := LivoloCode(6400, "btn99"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("error = %v, want ErrInvalidArgument", err)
	}
}
