package apriltag

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrAlreadyStarted is returned by Start on a worker that has been started before.
	ErrAlreadyStarted = errors.New("apriltag: worker already started")

	// ErrUnsupportedFamily is returned for a tag family the detector cannot decode.
	ErrUnsupportedFamily = errors.New("apriltag: unsupported tag family")

	// ErrInvalidConfig is returned when a configuration value is out of range.
	ErrInvalidConfig = errors.New("apriltag: invalid configuration")

	// ErrNoDetector is returned when a worker is built without a detector.
	ErrNoDetector = errors.New("apriltag: detector required")

	// ErrNoSource is returned when a worker is built without a frame source.
	ErrNoSource = errors.New("apriltag: frame source required")

	// ErrNoSink is returned when a worker is built without a frame sink.
	ErrNoSink = errors.New("apriltag: frame sink required")

	// ErrDegenerateCorners is returned when an observation's corners cannot define a pose.
	ErrDegenerateCorners = errors.New("apriltag: degenerate tag corners")
)
