package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Rotation3d is a 3D rotation stored as a unit quaternion.
// The zero value is the identity rotation.
type Rotation3d struct {
	q quat.Number
}

// IdentityRotation returns the rotation that leaves every vector unchanged.
func IdentityRotation() Rotation3d {
	return Rotation3d{q: quat.Number{Real: 1}}
}

// NewRotation3d builds a rotation from extrinsic roll (X), pitch (Y) and yaw (Z) in radians,
// applied in that order.
func NewRotation3d(roll, pitch, yaw float64) Rotation3d {
	qx := quat.Number(r3.NewRotation(roll, r3.Vec{X: 1}))
	qy := quat.Number(r3.NewRotation(pitch, r3.Vec{Y: 1}))
	qz := quat.Number(r3.NewRotation(yaw, r3.Vec{Z: 1}))
	return Rotation3d{q: quat.Mul(qz, quat.Mul(qy, qx))}
}

// RotationFromMatrix converts a proper rotation matrix (row-major) into a Rotation3d.
func RotationFromMatrix(m [3][3]float64) Rotation3d {
	var q quat.Number
	trace := m[0][0] + m[1][1] + m[2][2]
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1)
		q = quat.Number{
			Real: 0.25 / s,
			Imag: (m[2][1] - m[1][2]) * s,
			Jmag: (m[0][2] - m[2][0]) * s,
			Kmag: (m[1][0] - m[0][1]) * s,
		}
	case m[0][0] > m[1][1] && m[0][0] > m[2][2]:
		s := 2 * math.Sqrt(1+m[0][0]-m[1][1]-m[2][2])
		q = quat.Number{
			Real: (m[2][1] - m[1][2]) / s,
			Imag: 0.25 * s,
			Jmag: (m[0][1] + m[1][0]) / s,
			Kmag: (m[0][2] + m[2][0]) / s,
		}
	case m[1][1] > m[2][2]:
		s := 2 * math.Sqrt(1+m[1][1]-m[0][0]-m[2][2])
		q = quat.Number{
			Real: (m[0][2] - m[2][0]) / s,
			Imag: (m[0][1] + m[1][0]) / s,
			Jmag: 0.25 * s,
			Kmag: (m[1][2] + m[2][1]) / s,
		}
	default:
		s := 2 * math.Sqrt(1+m[2][2]-m[0][0]-m[1][1])
		q = quat.Number{
			Real: (m[1][0] - m[0][1]) / s,
			Imag: (m[0][2] + m[2][0]) / s,
			Jmag: (m[1][2] + m[2][1]) / s,
			Kmag: 0.25 * s,
		}
	}

	if n := quat.Abs(q); n > 0 {
		q = quat.Scale(1/n, q)
	}
	return Rotation3d{q: q}
}

func (r Rotation3d) quaternion() quat.Number {
	if r.q == (quat.Number{}) {
		return quat.Number{Real: 1}
	}
	return r.q
}

// Quaternion returns the (w, x, y, z) components of the rotation.
func (r Rotation3d) Quaternion() (w, x, y, z float64) {
	q := r.quaternion()
	return q.Real, q.Imag, q.Jmag, q.Kmag
}

// Rotate applies the rotation to v.
func (r Rotation3d) Rotate(v Vector3) Vector3 {
	return Vector3(r3.Rotation(r.quaternion()).Rotate(r3.Vec(v)))
}

// Roll returns the rotation about X in radians.
func (r Rotation3d) Roll() float64 {
	w, x, y, z := r.Quaternion()
	return math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
}

// Pitch returns the rotation about Y in radians.
func (r Rotation3d) Pitch() float64 {
	w, x, y, z := r.Quaternion()
	s := 2 * (w*y - z*x)
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return math.Asin(s)
}

// Yaw returns the rotation about Z in radians.
func (r Rotation3d) Yaw() float64 {
	w, x, y, z := r.Quaternion()
	return math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
}

// Transform3d is a rigid transform: a rotation followed by a translation.
// For tag poses it describes the tag relative to the camera
// (X right, Y down, Z out of the lens).
type Transform3d struct {
	Translation Vector3
	Rotation    Rotation3d
}

// Distance returns the Euclidean distance between the translations of a and b.
func Distance(a, b Transform3d) float64 {
	return a.Translation.Sub(b.Translation).Norm()
}

// Norm returns the distance of the transform's origin from the reference frame's origin.
func (t Transform3d) Norm() float64 {
	return t.Translation.Norm()
}
