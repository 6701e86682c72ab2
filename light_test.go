package broadctl

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestLightStateValidation(t *testing.T) {
	intp := func(v int) *int { return &v }

	tests := []struct {
		name    string
		state   LightState
		wantErr bool
	}{
		{"valid full", LightState{Pwr: intp(1), Brightness: intp(75), ColorMode: intp(ColorModeRGB), Red: intp(255), Green: intp(128), Blue: intp(0)}, false},
		{"empty", LightState{}, false},
		{"pwr out of range", LightState{Pwr: intp(2)}, true},
		{"brightness too high", LightState{Brightness: intp(101)}, true},
		{"brightness negative", LightState{Brightness: intp(-1)}, true},
		{"colormode out of range", LightState{ColorMode: intp(3)}, true},
		{"red too high", LightState{Red: intp(256)}, true},
		{"hue too high", LightState{Hue: intp(361)}, true},
		{"saturation too high", LightState{Saturation: intp(101)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestLightStateFromOptions(t *testing.T) {
	state, err := LightStateFromOptions(map[string]int{
		"pwr":        1,
		"brightness": 50,
		"colortemp":  2700,
	})
	if err != nil {
		t.Fatalf("LightStateFromOptions() error = %v", err)
	}
	if state.Pwr == nil || *state.Pwr != 1 {
		t.Error("pwr not applied")
	}
	if state.Brightness == nil || *state.Brightness != 50 {
		t.Error("brightness not applied")
	}
	if state.ColorTemp == nil || *state.ColorTemp != 2700 {
		t.Error("colortemp not applied")
	}

	if _, err := LightStateFromOptions(map[string]int{"warmth": 5}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("unknown key error = %v, want ErrInvalidArgument", err)
	}
	if _, err := LightStateFromOptions(map[string]int{"red": 300}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("out-of-range error = %v, want ErrInvalidArgument", err)
	}
}

func TestBulbStateRoundTrip(t *testing.T) {
	d, fake := authed(t, 0x504E)

	device := map[string]int{
		"pwr": 1, "brightness": 100, "bulb_colormode": ColorModeWhite,
		"red": 0, "green": 0, "blue": 0, "colortemp": 2700,
	}
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

	brightness := 40
	mode := ColorModeRGB
	red := 200
	echo, err := d.SetLightState(LightState{Brightness: &brightness, ColorMode: &mode, Red: &red})
	if err != nil {
		t.Fatalf("SetLightState() error = %v", err)
	}
	if echo.Brightness == nil || *echo.Brightness != 40 {
		t.Error("echo does not carry the written brightness")
	}

	state, err := d.GetLightState()
	if err != nil {
		t.Fatalf("GetLightState() error = %v", err)
	}
	if state.ColorMode == nil || *state.ColorMode != ColorModeRGB {
		t.Error("colormode not persisted")
	}
	if state.Red == nil || *state.Red != 200 {
		t.Error("red not persisted")
	}
	if state.Pwr == nil || *state.Pwr != 1 {
		t.Error("pwr lost")
	}
}

func TestSetLightStateValidatesBeforeSending(t *testing.T) {
	d, fake := authed(t, 0x504E)
	fake.handle = func(uint16, []byte) (uint16, []byte) {
		t.Error("invalid state must not reach the device")
		return 0xFFFC, nil
	}

	bad := 300
	if _, err := d.SetLightState(LightState{Red: &bad}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("error = %v, want ErrInvalidArgument", err)
	}
}
