package broadctl

import "fmt"

// Bulb color modes.
const (
	ColorModeRGB   = 0
	ColorModeWhite = 1
)

// LightState is the recognized JSON option record of the LB bulbs. Nil
// fields are omitted from writes; SetLightState validates the rest.
type LightState struct {
	Pwr                *int `json:"pwr,omitempty"`
	Brightness         *int `json:"brightness,omitempty"`
	ColorMode          *int `json:"bulb_colormode,omitempty"`
	Red                *int `json:"red,omitempty"`
	Green              *int `json:"green,omitempty"`
	Blue               *int `json:"blue,omitempty"`
	Hue                *int `json:"hue,omitempty"`
	Saturation         *int `json:"saturation,omitempty"`
	ColorTemp          *int `json:"colortemp,omitempty"`
	TransitionDuration *int `json:"transitionduration,omitempty"`
	MaxWorkTime        *int `json:"maxworktime,omitempty"`
}

// validate enforces the documented ranges.
func (s *LightState) validate() error {
	checks := []struct {
		name     string
		val      *int
		min, max int
	}{
		{"pwr", s.Pwr, 0, 1},
		{"brightness", s.Brightness, 0, 100},
		{"bulb_colormode", s.ColorMode, 0, 1},
		{"red", s.Red, 0, 255},
		{"green", s.Green, 0, 255},
		{"blue", s.Blue, 0, 255},
		{"hue", s.Hue, 0, 360},
		{"saturation", s.Saturation, 0, 100},
	}
	for _, c := range checks {
		if c.val != nil && (*c.val < c.min || *c.val > c.max) {
			return fmt.Errorf("%w: %s must be %d-%d, got %d", ErrInvalidArgument, c.name, c.min, c.max, *c.val)
		}
	}
	return nil
}

// GetLightState reads the full bulb state.
func (d *Device) GetLightState() (LightState, error) {
	var state LightState
	if err := d.requireFamily(FamilyLB); err != nil {
		return state, err
	}
	err := d.readState(&state)
	return state, err
}

// SetLightState validates and writes the non-nil fields of state, and
// returns the device's echo of the resulting state.
func (d *Device) SetLightState(state LightState) (LightState, error) {
	var out LightState
	if err := d.requireFamily(FamilyLB); err != nil {
		return out, err
	}
	if err := state.validate(); err != nil {
		return out, err
	}
	err := d.writeState(&state, &out)
	return out, err
}

// lightOptions sets one named field on a LightState; the option table is
// what front-ends use to translate free-form keys, so unknown keys fail
// with ErrInvalidArgument there instead of silently vanishing.
var lightOptions = map[string]func(*LightState, int){
	"pwr":                func(s *LightState, v int) { s.Pwr = &v },
	"brightness":         func(s *LightState, v int) { s.Brightness = &v },
	"bulb_colormode":     func(s *LightState, v int) { s.ColorMode = &v },
	"red":                func(s *LightState, v int) { s.Red = &v },
	"green":              func(s *LightState, v int) { s.Green = &v },
	"blue":               func(s *LightState, v int) { s.Blue = &v },
	"hue":                func(s *LightState, v int) { s.Hue = &v },
	"saturation":         func(s *LightState, v int) { s.Saturation = &v },
	"colortemp":          func(s *LightState, v int) { s.ColorTemp = &v },
	"transitionduration": func(s *LightState, v int) { s.TransitionDuration = &v },
	"maxworktime":        func(s *LightState, v int) { s.MaxWorkTime = &v },
}

// LightStateFromOptions builds a LightState from free-form key/value
// options. Unknown keys and out-of-range values are ErrInvalidArgument.
func LightStateFromOptions(opts map[string]int) (LightState, error) {
	var state LightState
	for key, val := range opts {
		set, ok := lightOptions[key]
		if !ok {
			return LightState{}, fmt.Errorf("%w: unknown option %q", ErrInvalidArgument, key)
		}
		set(&state, val)
	}
	if err := state.validate(); err != nil {
		return LightState{}, err
	}
	return state, nil
}
