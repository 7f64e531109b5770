package apriltag

import (
	"errors"
	"math"
	"testing"

	"github.com/teslashibe/go-hyperlib/pkg/geom"
)

// project renders the tag corners of pose through a pinhole camera.
func project(e HomographyEstimator, pose geom.Transform3d) Observation {
	var o Observation
	for i, c := range tagCorners {
		p := geom.Vector3{X: c.X * e.TagSize / 2, Y: c.Y * e.TagSize / 2}
		cam := pose.Rotation.Rotate(p).Add(pose.Translation)
		o.Corners[i] = Point{X: e.Fx*cam.X/cam.Z + e.Cx, Y: e.Fy*cam.Y/cam.Z + e.Cy}
	}
	cam := pose.Translation
	o.Center = Point{X: e.Fx*cam.X/cam.Z + e.Cx, Y: e.Fy*cam.Y/cam.Z + e.Cy}
	return o
}

func TestHomographyEstimator_RecoversPose(t *testing.T) {
	est := HomographyEstimator{TagSize: 0.1651, Fx: 600, Fy: 600, Cx: 320, Cy: 240}

	tests := []struct {
		name string
		pose geom.Transform3d
	}{
		{"head on", geom.Transform3d{Translation: geom.Vector3{Z: 2}}},
		{"offset", geom.Transform3d{Translation: geom.Vector3{X: 0.3, Y: -0.1, Z: 1.5}}},
		{"tilted", geom.Transform3d{
			Translation: geom.Vector3{X: -0.2, Y: 0.05, Z: 1.2},
			Rotation:    geom.NewRotation3d(0.2, -0.35, 0.1),
		}},
		{"steep", geom.Transform3d{
			Translation: geom.Vector3{X: 0.1, Y: 0.1, Z: 3},
			Rotation:    geom.NewRotation3d(-0.6, 0.5, -1.2),
		}},
	}

	const tol = 1e-6
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := est.Estimate(project(est, tt.pose))
			if err != nil {
				t.Fatalf("Estimate() error = %v", err)
			}

			if d := geom.Distance(got, tt.pose); d > tol {
				t.Errorf("translation = %+v, want %+v", got.Translation, tt.pose.Translation)
			}
			for _, axis := range []geom.Vector3{{X: 1}, {Y: 1}, {Z: 1}} {
				g := got.Rotation.Rotate(axis)
				w := tt.pose.Rotation.Rotate(axis)
				if g.Sub(w).Norm() > tol {
					t.Errorf("rotated %+v = %+v, want %+v", axis, g, w)
				}
			}
			if got.Translation.Z <= 0 {
				t.Errorf("tag behind camera: z = %v", got.Translation.Z)
			}
		})
	}
}

func TestHomographyEstimator_Degenerate(t *testing.T) {
	est := HomographyEstimator{TagSize: 0.15, Fx: 600, Fy: 600, Cx: 320, Cy: 240}

	collapsed := Observation{Corners: [4]Point{{100, 100}, {100, 100}, {100, 100}, {100, 100}}}
	if _, err := est.Estimate(collapsed); !errors.Is(err, ErrDegenerateCorners) {
		t.Errorf("collapsed corners: error = %v, want ErrDegenerateCorners", err)
	}

	line := Observation{Corners: [4]Point{{0, 0}, {10, 0}, {20, 0}, {30, 0}}}
	if _, err := est.Estimate(line); !errors.Is(err, ErrDegenerateCorners) {
		t.Errorf("collinear corners: error = %v, want ErrDegenerateCorners", err)
	}

	bad := est
	bad.Fx = 0
	if _, err := bad.Estimate(square(1, 0, 0, 50)); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("zero focal length: error = %v, want ErrInvalidConfig", err)
	}
}

func TestHomographyEstimator_SquareFacingCamera(t *testing.T) {
	est := HomographyEstimator{TagSize: 0.2, Fx: 500, Fy: 500, Cx: 100, Cy: 100}

	// A 100 px square centred on the principal point is 1 m away for a 0.2 m tag.
	got, err := est.Estimate(square(0, 50, 50, 100))
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if math.Abs(got.Translation.Z-1) > 1e-9 || math.Abs(got.Translation.X) > 1e-9 || math.Abs(got.Translation.Y) > 1e-9 {
		t.Errorf("translation = %+v, want (0, 0, 1)", got.Translation)
	}
	if math.Abs(got.Rotation.Roll())+math.Abs(got.Rotation.Pitch())+math.Abs(got.Rotation.Yaw()) > 1e-9 {
		t.Errorf("rotation not identity: roll %v pitch %v yaw %v",
			got.Rotation.Roll(), got.Rotation.Pitch(), got.Rotation.Yaw())
	}
}
