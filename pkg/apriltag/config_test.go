package apriltag

import (
	"errors"
	"testing"
)

func TestCameraConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*CameraConfig)
		wantErrs int
	}{
		{"default", func(*CameraConfig) {}, 0},
		{"negative device", func(c *CameraConfig) { c.DeviceID = -1 }, 1},
		{"tiny frame", func(c *CameraConfig) { c.Width, c.Height = 10, 10 }, 2},
		{"fps out of range", func(c *CameraConfig) { c.FPS = 0 }, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultCameraConfig()
			tt.mutate(&cfg)
			if errs := cfg.Validate(); len(errs) != tt.wantErrs {
				t.Errorf("Validate() = %v, want %d errors", errs, tt.wantErrs)
			}
		})
	}
}

func TestHighResCameraConfig(t *testing.T) {
	cfg := HighResCameraConfig()
	if cfg.Width != 1280 || cfg.Height != 960 || cfg.FPS != 15 {
		t.Errorf("HighResCameraConfig() = %+v", cfg)
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Validate() = %v, want none", errs)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr []error
	}{
		{"default", func(*Config) {}, nil},
		{"every family", func(c *Config) { c.Camera.Family = "tagStandard52h13" }, nil},
		{"unknown family", func(c *Config) { c.Camera.Family = "aruco4x4" }, []error{ErrUnsupportedFamily}},
		{"negative sigma", func(c *Config) { c.Tuning.QuadSigma = -1 }, []error{ErrInvalidConfig}},
		{"zero scale", func(c *Config) { c.Tuning.CriticalAngleScale = 0 }, []error{ErrInvalidConfig}},
		{"negative backoff", func(c *Config) { c.ErrorBackoff = -1 }, []error{ErrInvalidConfig}},
		{"both", func(c *Config) { c.Camera.FPS = 500; c.Camera.Family = "" }, []error{ErrInvalidConfig, ErrUnsupportedFamily}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			for _, want := range tt.wantErr {
				if !errors.Is(err, want) {
					t.Errorf("Validate() = %v, want %v", err, want)
				}
			}
		})
	}
}

func TestDefaultTuning(t *testing.T) {
	got := DefaultTuning()
	want := DetectorTuning{QuadSigma: 0.8, MinClusterPixels: 400, CriticalAngleScale: 5, MaxLineFitMSEScale: 1.5}
	if got != want {
		t.Errorf("DefaultTuning() = %+v, want %+v", got, want)
	}
}
