// Package config provides configuration helpers for go-hyperlib commands.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Default coprocessor configuration.
const (
	DefaultCameraID     = 0
	DefaultTagFamily    = "tag36h11"
	DefaultStreamPort   = "1181"
	DefaultNTServer     = "10.0.0.2"
	DefaultNTPort       = 5810
	DefaultIMUPort      = "/dev/ttyACM0"
	DefaultTelemetryDB  = ""
	DefaultLimelightTab = "limelight"
)

// CameraID returns the camera device from HYPERLIB_CAMERA_ID.
// Falls back to DefaultCameraID if unset or not a number.
func CameraID() int {
	return envInt("HYPERLIB_CAMERA_ID", DefaultCameraID)
}

// TagFamily returns the AprilTag family from HYPERLIB_TAG_FAMILY or the default.
func TagFamily() string {
	return envString("HYPERLIB_TAG_FAMILY", DefaultTagFamily)
}

// StreamPort returns the annotated-stream HTTP port from HYPERLIB_STREAM_PORT or the default.
func StreamPort() string {
	return envString("HYPERLIB_STREAM_PORT", DefaultStreamPort)
}

// NTServer returns the NetworkTables server host from HYPERLIB_NT_SERVER.
// Falls back to the provided default if not set.
func NTServer(defaultHost string) string {
	return envString("HYPERLIB_NT_SERVER", defaultHost)
}

// NTServerURL returns the NetworkTables 4 websocket URL for a client name.
func NTServerURL(host, clientName string) string {
	return fmt.Sprintf("ws://%s:%d/nt/%s", host, DefaultNTPort, clientName)
}

// IMUPort returns the serial device of the IMU bridge from HYPERLIB_IMU_PORT or the default.
func IMUPort() string {
	return envString("HYPERLIB_IMU_PORT", DefaultIMUPort)
}

// TelemetryDB returns the SQLite path for detection telemetry from HYPERLIB_TELEMETRY_DB.
// Empty means telemetry is disabled.
func TelemetryDB() string {
	return envString("HYPERLIB_TELEMETRY_DB", DefaultTelemetryDB)
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s=%q is not a number, using %d\n", key, v, def)
		return def
	}
	return n
}
