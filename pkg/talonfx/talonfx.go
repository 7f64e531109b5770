// Package talonfx converts the integrated sensor readings of a TalonFX motor
// controller into rotations and drives a motor to an encoder target.
//
// The interfaces are kept small so callers depend only on what they use.
package talonfx

import "math"

// UnitsPerRevolution is the integrated encoder resolution.
const UnitsPerRevolution = 2048

// SensorReader reads the selected feedback sensor.
type SensorReader interface {
	// SelectedSensorPosition is the position in encoder units.
	SelectedSensorPosition() float64
	// SelectedSensorVelocity is the velocity in encoder units per 100 ms.
	SelectedSensorVelocity() float64
}

// SensorWriter overwrites the reported sensor position without moving the motor.
type SensorWriter interface {
	SetSelectedSensorPosition(units float64) error
}

// Driver commands motor output.
type Driver interface {
	// SetPercentOutput drives the motor at a fraction of full output, -1 to 1.
	SetPercentOutput(fraction float64) error
	StopMotor() error
}

// Motor is a TalonFX with its integrated sensor selected.
type Motor interface {
	SensorReader
	SensorWriter
	Driver
}

// Position returns the sensor position in encoder units.
func Position(m SensorReader) float64 {
	return m.SelectedSensorPosition()
}

// SetPosition overwrites the sensor position. The motor does not move.
func SetPosition(m SensorWriter, units float64) error {
	return m.SetSelectedSensorPosition(units)
}

// ResetPosition sets the sensor position to zero.
func ResetPosition(m SensorWriter) error {
	return m.SetSelectedSensorPosition(0)
}

// Rotations returns the number of shaft rotations since the last reset.
func Rotations(m SensorReader) float64 {
	return m.SelectedSensorPosition() / UnitsPerRevolution
}

// RotationsPerSecond converts the per-100 ms sensor velocity.
func RotationsPerSecond(m SensorReader) float64 {
	return m.SelectedSensorVelocity() / UnitsPerRevolution * 10
}

// RotationsPerMinute converts the per-100 ms sensor velocity.
func RotationsPerMinute(m SensorReader) float64 {
	return RotationsPerSecond(m) * 60
}

// DriveToDistance moves the motor toward an encoder target and reports whether
// it has arrived. Call it from a periodic loop. Positive targets drive forward
// until the position reaches them; negative targets drive backward. On arrival
// the motor is stopped.
func DriveToDistance(m Motor, target, speed float64) (bool, error) {
	pos := math.Floor(m.SelectedSensorPosition())

	switch {
	case pos < target:
		return false, m.SetPercentOutput(speed)
	case target < 0 && pos > target:
		return false, m.SetPercentOutput(-speed)
	default:
		if err := m.StopMotor(); err != nil {
			return false, err
		}
		return true, nil
	}
}
