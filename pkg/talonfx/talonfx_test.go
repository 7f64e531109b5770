package talonfx

import (
	"errors"
	"math"
	"testing"
)

// fakeMotor records the last command.
type fakeMotor struct {
	position, velocity float64

	output  float64
	stopped bool
	stopErr error
}

func (m *fakeMotor) SelectedSensorPosition() float64 { return m.position }
func (m *fakeMotor) SelectedSensorVelocity() float64 { return m.velocity }

func (m *fakeMotor) SetSelectedSensorPosition(units float64) error {
	m.position = units
	return nil
}

func (m *fakeMotor) SetPercentOutput(fraction float64) error {
	m.output = fraction
	m.stopped = false
	return nil
}

func (m *fakeMotor) StopMotor() error {
	if m.stopErr != nil {
		return m.stopErr
	}
	m.output = 0
	m.stopped = true
	return nil
}

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestConversions(t *testing.T) {
	tests := []struct {
		name               string
		position, velocity float64
		rotations, rps     float64
		rpm                float64
	}{
		{"at rest", 0, 0, 0, 0, 0},
		{"one turn", 2048, 204.8, 1, 1, 60},
		{"reverse", -1024, -2048, -0.5, -10, -600},
		{"fast", 20480, 20480, 10, 100, 6000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMotor{position: tt.position, velocity: tt.velocity}
			if got := Position(m); got != tt.position {
				t.Errorf("Position() = %v, want %v", got, tt.position)
			}
			if got := Rotations(m); !floatEquals(got, tt.rotations) {
				t.Errorf("Rotations() = %v, want %v", got, tt.rotations)
			}
			if got := RotationsPerSecond(m); !floatEquals(got, tt.rps) {
				t.Errorf("RotationsPerSecond() = %v, want %v", got, tt.rps)
			}
			if got := RotationsPerMinute(m); !floatEquals(got, tt.rpm) {
				t.Errorf("RotationsPerMinute() = %v, want %v", got, tt.rpm)
			}
		})
	}
}

func TestSetAndResetPosition(t *testing.T) {
	m := &fakeMotor{position: 5000}
	if err := SetPosition(m, 4096); err != nil {
		t.Fatal(err)
	}
	if got := Rotations(m); got != 2 {
		t.Errorf("Rotations() after SetPosition = %v, want 2", got)
	}
	if err := ResetPosition(m); err != nil {
		t.Fatal(err)
	}
	if got := Position(m); got != 0 {
		t.Errorf("Position() after reset = %v, want 0", got)
	}
}

func TestDriveToDistance(t *testing.T) {
	tests := []struct {
		name        string
		position    float64
		target      float64
		wantOutput  float64
		wantArrived bool
	}{
		{"forward", 100, 1000, 0.3, false},
		{"fractional position floors", 999.9, 1000, 0.3, false},
		{"reached", 1000, 1000, 0, true},
		{"overshot positive", 1200, 1000, 0, true},
		{"backward", 0, -500, -0.3, false},
		{"reached negative", -500, -500, 0, true},
		{"past negative target", -600, -500, 0.3, false},
		{"zero target", 0, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMotor{position: tt.position}
			arrived, err := DriveToDistance(m, tt.target, 0.3)
			if err != nil {
				t.Fatal(err)
			}
			if arrived != tt.wantArrived {
				t.Errorf("arrived = %v, want %v", arrived, tt.wantArrived)
			}
			if m.output != tt.wantOutput {
				t.Errorf("output = %v, want %v", m.output, tt.wantOutput)
			}
			if arrived != m.stopped {
				t.Errorf("stopped = %v, want %v", m.stopped, arrived)
			}
		})
	}
}

func TestDriveToDistance_StopError(t *testing.T) {
	boom := errors.New("can bus down")
	m := &fakeMotor{position: 10, stopErr: boom}
	arrived, err := DriveToDistance(m, 0, 0.5)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if arrived {
		t.Error("arrived should be false when the motor could not be stopped")
	}
}
