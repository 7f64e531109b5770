// Package navx reads motion data from a NavX inertial measurement unit and
// derives collision events and field position from it.
package navx

import (
	"math"
	"sync"

	"github.com/teslashibe/go-hyperlib/pkg/geom"
)

// Sensor is the subset of NavX readings this package uses.
type Sensor interface {
	// WorldLinearAccelX is the field-relative X acceleration in G, gravity removed.
	WorldLinearAccelX() float32
	// WorldLinearAccelY is the field-relative Y acceleration in G, gravity removed.
	WorldLinearAccelY() float32
	// DisplacementX is the integrated X displacement in meters.
	DisplacementX() float32
	// DisplacementY is the integrated Y displacement in meters.
	DisplacementY() float32
}

// DefaultCollisionThreshold is a jerk of half a G between two readings.
const DefaultCollisionThreshold = 0.5

// CollisionDetector flags a collision when the change in world acceleration
// between consecutive readings exceeds Threshold on either axis.
//
// The first reading is compared against zero acceleration.
type CollisionDetector struct {
	Threshold float64

	mu           sync.Mutex
	lastX, lastY float64
}

// NewCollisionDetector returns a detector with the given threshold in G.
func NewCollisionDetector(threshold float64) *CollisionDetector {
	return &CollisionDetector{Threshold: threshold}
}

// Detect samples s and reports whether the jerk since the previous call
// crossed the threshold.
func (d *CollisionDetector) Detect(s Sensor) bool {
	x := float64(s.WorldLinearAccelX())
	y := float64(s.WorldLinearAccelY())

	d.mu.Lock()
	jerkX := x - d.lastX
	jerkY := y - d.lastY
	d.lastX, d.lastY = x, y
	d.mu.Unlock()

	return math.Abs(jerkX) > d.Threshold || math.Abs(jerkY) > d.Threshold
}

// Reset forgets the previous reading.
func (d *CollisionDetector) Reset() {
	d.mu.Lock()
	d.lastX, d.lastY = 0, 0
	d.mu.Unlock()
}

// RobotPosition returns the integrated displacement as a plane vector.
func RobotPosition(s Sensor) geom.Vector2 {
	return geom.Vector2{X: float64(s.DisplacementX()), Y: float64(s.DisplacementY())}
}
