package apriltag

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/teslashibe/go-hyperlib/pkg/geom"
)

// tagCorners are the tag corners in tag units (half the tag edge), matching the
// detector corner order with Y pointing down the image.
var tagCorners = [4]Point{
	{X: -1, Y: -1},
	{X: 1, Y: -1},
	{X: 1, Y: 1},
	{X: -1, Y: 1},
}

// HomographyEstimator recovers a tag's pose from its four corners using the
// planar homography between the tag square and the image.
type HomographyEstimator struct {
	TagSize float64 // Edge length of the black square in meters
	Fx, Fy  float64 // Focal lengths in pixels
	Cx, Cy  float64 // Principal point in pixels
}

// Estimate returns the tag pose relative to the camera. X points right, Y down
// and Z out of the lens, so a visible tag always has positive Z.
func (e HomographyEstimator) Estimate(obs Observation) (geom.Transform3d, error) {
	if e.TagSize <= 0 || e.Fx <= 0 || e.Fy <= 0 {
		return geom.Transform3d{}, fmt.Errorf("%w: tag size and focal lengths must be positive", ErrInvalidConfig)
	}
	if obs.Area() < 1 {
		return geom.Transform3d{}, ErrDegenerateCorners
	}

	// Work in normalized image coordinates so the homography is already K⁻¹H.
	var img [4]Point
	for i, c := range obs.Corners {
		img[i] = Point{X: (c.X - e.Cx) / e.Fx, Y: (c.Y - e.Cy) / e.Fy}
	}

	h, err := homography(tagCorners, img)
	if err != nil {
		return geom.Transform3d{}, err
	}

	h1 := geom.Vector3{X: h.At(0, 0), Y: h.At(1, 0), Z: h.At(2, 0)}
	h2 := geom.Vector3{X: h.At(0, 1), Y: h.At(1, 1), Z: h.At(2, 1)}
	h3 := geom.Vector3{X: h.At(0, 2), Y: h.At(1, 2), Z: h.At(2, 2)}

	n := math.Sqrt(h1.Norm() * h2.Norm())
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return geom.Transform3d{}, ErrDegenerateCorners
	}
	scale := 1 / n
	if h3.Z < 0 {
		scale = -scale
	}

	r1 := h1.Scale(scale)
	r2 := h2.Scale(scale)
	r3 := r1.Cross(r2)
	t := h3.Scale(scale)

	rot, err := orthonormalize(r1, r2, r3)
	if err != nil {
		return geom.Transform3d{}, err
	}

	return geom.Transform3d{
		Translation: t.Scale(e.TagSize / 2),
		Rotation:    rot,
	}, nil
}

// homography solves the 3x3 projective map from src to dst with H[2][2] = 1.
func homography(src, dst [4]Point) (*mat.Dense, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)

	for i := range src {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y

		r := 2 * i
		a.SetRow(r, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y})
		a.SetRow(r+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y})
		b.SetVec(r, u)
		b.SetVec(r+1, v)
	}

	var sol mat.VecDense
	if err := sol.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateCorners, err)
	}

	h := mat.NewDense(3, 3, nil)
	for i := 0; i < 8; i++ {
		h.Set(i/3, i%3, sol.AtVec(i))
	}
	h.Set(2, 2, 1)
	return h, nil
}

// orthonormalize projects the columns r1, r2, r3 onto the nearest proper rotation.
func orthonormalize(r1, r2, r3 geom.Vector3) (geom.Rotation3d, error) {
	m := mat.NewDense(3, 3, []float64{
		r1.X, r2.X, r3.X,
		r1.Y, r2.Y, r3.Y,
		r1.Z, r2.Z, r3.Z,
	})

	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDFull) {
		return geom.Rotation3d{}, ErrDegenerateCorners
	}

	var u, v, r mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	r.Mul(&u, v.T())

	if mat.Det(&r) < 0 {
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}
		r.Mul(&u, v.T())
	}

	var rows [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rows[i][j] = r.At(i, j)
		}
	}
	return geom.RotationFromMatrix(rows), nil
}
