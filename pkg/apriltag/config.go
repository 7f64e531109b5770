package apriltag

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// CameraConfig describes the capture device. It is copied into the worker at
// construction and never changes afterwards.
type CameraConfig struct {
	DeviceID int    `json:"device_id"` // e.g. 0 for the first USB camera
	Width    int    `json:"width"`     // Frame width in pixels (4:3 recommended)
	Height   int    `json:"height"`    // Frame height in pixels
	FPS      int    `json:"fps"`       // Target frame rate
	Family   string `json:"family"`    // Tag family, e.g. "tag36h11"
}

// Families lists the AprilTag families a worker accepts. A detector may
// support fewer; Start reports that as ErrUnsupportedFamily.
var Families = []string{
	"tag16h5",
	"tag25h9",
	"tag36h10",
	"tag36h11",
	"tagCircle21h7",
	"tagCircle49h12",
	"tagCustom48h12",
	"tagStandard41h12",
	"tagStandard52h13",
}

// IsKnownFamily reports whether name is one of Families.
func IsKnownFamily(name string) bool {
	for _, f := range Families {
		if f == name {
			return true
		}
	}
	return false
}

// DefaultCameraConfig returns 640x480 at 30 FPS looking for tag36h11.
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		DeviceID: 0,
		Width:    640,
		Height:   480,
		FPS:      30,
		Family:   "tag36h11",
	}
}

// HighResCameraConfig trades frame rate for range: 1280x960 at 15 FPS.
func HighResCameraConfig() CameraConfig {
	cfg := DefaultCameraConfig()
	cfg.Width = 1280
	cfg.Height = 960
	cfg.FPS = 15
	return cfg
}

// Validate checks the camera values are within usable ranges.
// Returns a list of validation errors, or nil if valid.
func (c *CameraConfig) Validate() []string {
	var errs []string

	if c.DeviceID < 0 {
		errs = append(errs, "device_id must not be negative")
	}
	if c.Width < 160 || c.Width > 4096 {
		errs = append(errs, "width must be between 160 and 4096")
	}
	if c.Height < 120 || c.Height > 3072 {
		errs = append(errs, "height must be between 120 and 3072")
	}
	if c.FPS < 1 || c.FPS > 120 {
		errs = append(errs, "fps must be between 1 and 120")
	}

	return errs
}

// DetectorTuning holds the quad-detection thresholds applied once at detector setup.
type DetectorTuning struct {
	// QuadSigma is the Gaussian blur applied before quad detection.
	// Higher smooths edges for low-contrast scenes, lower keeps sharp corners.
	QuadSigma float32 `json:"quad_sigma"`

	// MinClusterPixels rejects candidate quads with fewer edge pixels.
	MinClusterPixels int `json:"min_cluster_pixels"`

	// CriticalAngleScale multiplies the detector's default critical angle (10°).
	CriticalAngleScale float64 `json:"critical_angle_scale"`

	// MaxLineFitMSEScale multiplies the detector's default max line-fit error (10.0).
	MaxLineFitMSEScale float64 `json:"max_line_fit_mse_scale"`
}

// DefaultTuning returns the thresholds tuned for competition lighting.
func DefaultTuning() DetectorTuning {
	return DetectorTuning{
		QuadSigma:          0.8,
		MinClusterPixels:   400,
		CriticalAngleScale: 5,
		MaxLineFitMSEScale: 1.5,
	}
}

// Config holds everything a Worker needs besides its collaborators.
type Config struct {
	Camera CameraConfig
	Tuning DetectorTuning
	Style  Style

	// Verbose logs every unique tag id per frame and the per-second rate.
	Verbose bool

	// RateWindow is how long detections accumulate before DetectionsPerSecond
	// is published. One second unless overridden.
	RateWindow time.Duration

	// ErrorBackoff is the pause after a failed grab, so a dead camera does not spin.
	ErrorBackoff time.Duration

	// OpenRetryInterval is the pause between attempts to open the camera.
	OpenRetryInterval time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Camera:            DefaultCameraConfig(),
		Tuning:            DefaultTuning(),
		Style:             DefaultStyle(),
		RateWindow:        time.Second,
		ErrorBackoff:      10 * time.Millisecond,
		OpenRetryInterval: time.Second,
	}
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	var errs []string
	errs = append(errs, c.Camera.Validate()...)

	if c.Tuning.QuadSigma < 0 {
		errs = append(errs, "quad_sigma must not be negative")
	}
	if c.Tuning.MinClusterPixels < 0 {
		errs = append(errs, "min_cluster_pixels must not be negative")
	}
	if c.Tuning.CriticalAngleScale <= 0 || c.Tuning.MaxLineFitMSEScale <= 0 {
		errs = append(errs, "tuning scales must be positive")
	}
	if c.RateWindow <= 0 {
		errs = append(errs, "rate window must be positive")
	}
	if c.ErrorBackoff < 0 || c.OpenRetryInterval < 0 {
		errs = append(errs, "backoff intervals must not be negative")
	}

	var err error
	if len(errs) > 0 {
		err = fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	if !IsKnownFamily(c.Camera.Family) {
		err = errors.Join(err, fmt.Errorf("%w: %q", ErrUnsupportedFamily, c.Camera.Family))
	}
	return err
}
