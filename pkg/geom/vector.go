// Package geom provides the small amount of 2D/3D geometry the robot code needs:
// vectors, rotations, and rigid transforms. It is backed by gonum's spatial packages.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Vector2 is an immutable point or direction in the plane.
type Vector2 struct {
	X, Y float64
}

// Vector3 is an immutable point or direction in space.
type Vector3 struct {
	X, Y, Z float64
}

// Common vectors.
var (
	Origin2 = Vector2{0, 0}
	Up2     = Vector2{0, 1}
	Down2   = Vector2{0, -1}
	Left2   = Vector2{-1, 0}
	Right2  = Vector2{1, 0}

	Origin3 = Vector3{0, 0, 0}
	Up3     = Vector3{0, 1, 0}
	Down3   = Vector3{0, -1, 0}
	Left3   = Vector3{-1, 0, 0}
	Right3  = Vector3{1, 0, 0}
)

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

func (v Vector2) r2() r2.Vec { return r2.Vec(v) }

// Add returns v + o.
func (v Vector2) Add(o Vector2) Vector2 {
	return Vector2(r2.Add(v.r2(), o.r2()))
}

// Sub returns v - o.
func (v Vector2) Sub(o Vector2) Vector2 {
	return Vector2(r2.Sub(v.r2(), o.r2()))
}

// Equal reports exact component equality.
func (v Vector2) Equal(o Vector2) bool {
	return v.X == o.X && v.Y == o.Y
}

// Flip returns -v.
func (v Vector2) Flip() Vector2 {
	return v.Scale(-1)
}

// Rotate rotates v counter-clockwise about the origin by deg degrees.
func (v Vector2) Rotate(deg float64) Vector2 {
	return Vector2(r2.Rotate(v.r2(), Radians(deg), r2.Vec{}))
}

// Scale multiplies both components by s.
func (v Vector2) Scale(s float64) Vector2 {
	return Vector2(r2.Scale(s, v.r2()))
}

// ScaleEach multiplies X by sx and Y by sy.
func (v Vector2) ScaleEach(sx, sy float64) Vector2 {
	return Vector2{v.X * sx, v.Y * sy}
}

// Midpoint returns the point halfway between v and o.
func (v Vector2) Midpoint(o Vector2) Vector2 {
	return v.Add(o).Scale(0.5)
}

// Norm returns the Euclidean length of v.
func (v Vector2) Norm() float64 {
	return r2.Norm(v.r2())
}

func (v Vector3) r3() r3.Vec { return r3.Vec(v) }

// Add returns v + o.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3(r3.Add(v.r3(), o.r3()))
}

// AddXY adds only the X and Y components of o, keeping v's Z.
func (v Vector3) AddXY(o Vector3) Vector3 {
	return Vector3{v.X + o.X, v.Y + o.Y, v.Z}
}

// Sub returns v - o.
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3(r3.Sub(v.r3(), o.r3()))
}

// Equal reports exact component equality.
func (v Vector3) Equal(o Vector3) bool {
	return v.X == o.X && v.Y == o.Y && v.Z == o.Z
}

// Flip returns -v.
func (v Vector3) Flip() Vector3 {
	return v.Scale(-1)
}

// FlipXY negates X and Y, keeping Z.
func (v Vector3) FlipXY() Vector3 {
	return Vector3{-v.X, -v.Y, v.Z}
}

// Rotate2D rotates v about the Z axis by deg degrees. Z is unchanged.
func (v Vector3) Rotate2D(deg float64) Vector3 {
	return Vector3(r3.Rotate(v.r3(), Radians(deg), r3.Vec{Z: 1}))
}

// Scale multiplies all components by s.
func (v Vector3) Scale(s float64) Vector3 {
	return Vector3(r3.Scale(s, v.r3()))
}

// ScaleXY multiplies X and Y by s, keeping Z.
func (v Vector3) ScaleXY(s float64) Vector3 {
	return Vector3{v.X * s, v.Y * s, v.Z}
}

// ScaleEach multiplies each component by its own factor.
func (v Vector3) ScaleEach(sx, sy, sz float64) Vector3 {
	return Vector3{v.X * sx, v.Y * sy, v.Z * sz}
}

// Midpoint returns the point halfway between v and o.
func (v Vector3) Midpoint(o Vector3) Vector3 {
	return v.Add(o).Scale(0.5)
}

// Midpoint2D returns the XY midpoint of v and o with v's Z.
func (v Vector3) Midpoint2D(o Vector3) Vector3 {
	return Vector3{(v.X + o.X) / 2, (v.Y + o.Y) / 2, v.Z}
}

// Norm returns the Euclidean length of v.
func (v Vector3) Norm() float64 {
	return r3.Norm(v.r3())
}

// Cross returns v × o.
func (v Vector3) Cross(o Vector3) Vector3 {
	return Vector3(r3.Cross(v.r3(), o.r3()))
}

// Dot returns v · o.
func (v Vector3) Dot(o Vector3) float64 {
	return r3.Dot(v.r3(), o.r3())
}
