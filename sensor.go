package broadctl

import "fmt"

// EnvironmentData is an A1 e-Sensor reading. The raw fields carry the
// firmware's categorical codes; the string fields carry their meaning.
type EnvironmentData struct {
	Temperature float64
	Humidity    float64

	LightRaw      byte
	AirQualityRaw byte
	NoiseRaw      byte

	Light      string
	AirQuality string
	Noise      string
}

var (
	a1LightLevels      = []string{"dark", "dim", "normal", "bright"}
	a1AirQualityLevels = []string{"excellent", "good", "normal", "bad"}
	a1NoiseLevels      = []string{"quiet", "normal", "noisy"}
)

// CheckEnvironment reads the A1 sensor block: temperature and humidity in
// tenths at payload 0x04-0x07, then the categorical light, air quality,
// and noise codes at 0x08, 0x0A, and 0x0C.
func (d *Device) CheckEnvironment() (EnvironmentData, error) {
	var env EnvironmentData
	if err := d.requireFamily(FamilyA1); err != nil {
		return env, err
	}

	payload := make([]byte, 16)
	payload[0] = 0x01
	resp, err := d.Command(payload)
	if err != nil {
		return env, err
	}
	if len(resp) < 0x0D {
		return env, &BadFrameError{Reason: fmt.Sprintf("sensor payload too short: %d bytes", len(resp))}
	}

	env.Temperature = float64(resp[0x04]) + float64(resp[0x05])/10
	env.Humidity = float64(resp[0x06]) + float64(resp[0x07])/10
	env.LightRaw = resp[0x08]
	env.AirQualityRaw = resp[0x0A]
	env.NoiseRaw = resp[0x0C]

	env.Light = levelName(a1LightLevels, env.LightRaw)
	env.AirQuality = levelName(a1AirQualityLevels, env.AirQualityRaw)
	env.Noise = levelName(a1NoiseLevels, env.NoiseRaw)
	return env, nil
}

func levelName(levels []string, code byte) string {
	if int(code) < len(levels) {
		return levels[code]
	}
	return "unknown"
}
