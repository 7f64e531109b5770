// Package camera captures frames from USB cameras through OpenCV and holds the
// runtime-adjustable sensor controls.
package camera

// Controls are the sensor settings that can change while the camera runs.
// Values are in the device's own units as exposed by V4L2.
type Controls struct {
	// AutoExposure lets the camera pick the shutter time. Tag detection works best
	// with a short manual exposure, which keeps motion blur off the tag edges.
	AutoExposure bool `json:"auto_exposure"`

	// Exposure is the manual exposure time in 100 µs steps (1 to 10000).
	// Ignored while AutoExposure is on.
	Exposure int `json:"exposure"`

	// Brightness (0 to 255). -1 leaves the device default.
	Brightness int `json:"brightness"`

	// Gain is the sensor analogue gain (0 to 255). -1 leaves the device default.
	Gain int `json:"gain"`
}

// Device control limits
const (
	MaxExposure   = 10000
	MaxBrightness = 255
	MaxGain       = 255
)

// DefaultControls leaves everything to the camera.
func DefaultControls() Controls {
	return Controls{
		AutoExposure: true,
		Exposure:     0,
		Brightness:   -1,
		Gain:         -1,
	}
}

// Validate checks the control values are within device ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Controls) Validate() []string {
	var errors []string

	if !c.AutoExposure && (c.Exposure < 1 || c.Exposure > MaxExposure) {
		errors = append(errors, "exposure must be between 1 and 10000 when auto_exposure is off")
	}
	if c.Brightness < -1 || c.Brightness > MaxBrightness {
		errors = append(errors, "brightness must be -1 (default) or between 0 and 255")
	}
	if c.Gain < -1 || c.Gain > MaxGain {
		errors = append(errors, "gain must be -1 (default) or between 0 and 255")
	}

	return errors
}

// Capabilities describes the adjustable controls for API clients.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"max_exposure":   MaxExposure,
		"max_brightness": MaxBrightness,
		"max_gain":       MaxGain,
		"presets":        PresetNames(),
	}
}
