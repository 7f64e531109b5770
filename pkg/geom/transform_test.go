package geom

import (
	"math"
	"math/rand"
	"testing"
)

func TestDistance_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	randomPose := func() Transform3d {
		return Transform3d{
			Translation: Vector3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()},
			Rotation:    NewRotation3d(rng.Float64(), rng.Float64(), rng.Float64()),
		}
	}

	for i := 0; i < 200; i++ {
		a, b, c := randomPose(), randomPose(), randomPose()

		if d := Distance(a, a); d != 0 {
			t.Fatalf("Distance(a, a): got %v, want 0", d)
		}
		if ab, ba := Distance(a, b), Distance(b, a); ab != ba {
			t.Fatalf("symmetry: Distance(a, b)=%v, Distance(b, a)=%v", ab, ba)
		}
		if Distance(a, c) > Distance(a, b)+Distance(b, c)+floatTolerance {
			t.Fatalf("triangle inequality violated for %+v %+v %+v", a, b, c)
		}
	}
}

func TestDistance_IgnoresRotation(t *testing.T) {
	a := Transform3d{Translation: Vector3{1, 2, 2}}
	b := Transform3d{Translation: Vector3{1, 2, 2}, Rotation: NewRotation3d(0.3, 0.2, 0.1)}
	if d := Distance(a, b); d != 0 {
		t.Errorf("Distance: got %v, want 0", d)
	}

	if n := a.Norm(); !floatEquals(n, 3) {
		t.Errorf("Norm: got %v, want 3", n)
	}
}

func TestRotation3d_ZeroValueIsIdentity(t *testing.T) {
	var r Rotation3d
	v := Vector3{1, 2, 3}
	if got := r.Rotate(v); !vec3Equals(got, v) {
		t.Errorf("zero rotation changed vector: got %+v", got)
	}
	if r.Roll() != 0 || r.Pitch() != 0 || r.Yaw() != 0 {
		t.Errorf("zero rotation angles: %v %v %v", r.Roll(), r.Pitch(), r.Yaw())
	}
}

func TestRotation3d_EulerRoundTrip(t *testing.T) {
	tests := []struct {
		name             string
		roll, pitch, yaw float64
	}{
		{"roll only", 0.4, 0, 0},
		{"pitch only", 0, -0.7, 0},
		{"yaw only", 0, 0, 2.5},
		{"combined", 0.3, 0.2, -1.1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRotation3d(tc.roll, tc.pitch, tc.yaw)
			if !floatEquals(r.Roll(), tc.roll) || !floatEquals(r.Pitch(), tc.pitch) || !floatEquals(r.Yaw(), tc.yaw) {
				t.Errorf("got (%v, %v, %v), want (%v, %v, %v)",
					r.Roll(), r.Pitch(), r.Yaw(), tc.roll, tc.pitch, tc.yaw)
			}
		})
	}
}

func TestRotationFromMatrix(t *testing.T) {
	want := NewRotation3d(0.5, -0.25, 1.75)

	// Columns of the matrix are the images of the basis vectors.
	ex := want.Rotate(Vector3{1, 0, 0})
	ey := want.Rotate(Vector3{0, 1, 0})
	ez := want.Rotate(Vector3{0, 0, 1})
	m := [3][3]float64{
		{ex.X, ey.X, ez.X},
		{ex.Y, ey.Y, ez.Y},
		{ex.Z, ey.Z, ez.Z},
	}

	got := RotationFromMatrix(m)
	v := Vector3{0.3, -1.2, 2}
	if !vec3Equals(got.Rotate(v), want.Rotate(v)) {
		t.Errorf("Rotate mismatch: got %+v, want %+v", got.Rotate(v), want.Rotate(v))
	}
}

func TestRotationFromMatrix_HalfTurn(t *testing.T) {
	// Trace of -1 exercises the non-positive-trace branches.
	m := [3][3]float64{
		{1, 0, 0},
		{0, -1, 0},
		{0, 0, -1},
	}
	r := RotationFromMatrix(m)
	if got := r.Rotate(Vector3{0, 1, 0}); !vec3Equals(got, Vector3{0, -1, 0}) {
		t.Errorf("half turn about X: got %+v", got)
	}
	if !floatEquals(math.Abs(r.Roll()), math.Pi) {
		t.Errorf("Roll: got %v, want ±π", r.Roll())
	}
}
