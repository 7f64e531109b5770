package apriltag

import (
	"image"
	"time"

	"github.com/teslashibe/go-hyperlib/pkg/geom"
)

// FrameSource delivers camera frames.
type FrameSource interface {
	// Open starts capture. It is called once, from the worker goroutine.
	Open(cfg CameraConfig) error

	// GrabFrame blocks until the next frame and writes it into dst, returning the
	// buffer that holds the frame. A nil dst, or one of the wrong size, is replaced
	// by a newly allocated buffer. On error the frame is skipped by the caller.
	GrabFrame(dst *image.RGBA) (*image.RGBA, error)

	// Close stops capture.
	Close() error
}

// FrameSink receives annotated frames and capture errors.
type FrameSink interface {
	// PublishFrame is called once per processed frame. The frame buffer is reused
	// by the worker, so implementations must not keep it after returning.
	PublishFrame(frame *image.RGBA)

	// ReportError forwards a transient error description.
	ReportError(msg string)
}

// Detector finds tags in grayscale images. Configure is called exactly once before
// any Detect call and Release exactly once when the worker stops.
type Detector interface {
	Configure(tuning DetectorTuning, family string) error
	Detect(gray *image.Gray) ([]Observation, error)
	Release() error
}

// PoseEstimator turns an observation into the tag's transform relative to the camera.
type PoseEstimator interface {
	Estimate(obs Observation) (geom.Transform3d, error)
}

// Clock provides the current time. Tests substitute a manual clock.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the standard time package.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
