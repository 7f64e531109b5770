package apriltag

import (
	"math"
	"time"

	"github.com/teslashibe/go-hyperlib/pkg/geom"
)

// Point is a pixel position in the frame.
type Point struct {
	X, Y float64
}

// Observation is one detected tag in one frame, before pose estimation.
type Observation struct {
	ID int

	// Corners in detector order: top-left, top-right, bottom-right, bottom-left
	// when the tag is upright in the image.
	Corners [4]Point
	Center  Point

	// DecisionMargin is the detector's confidence in the decode, 0 when unknown.
	DecisionMargin float64
}

// Area returns the pixel area of the corner polygon.
func (o Observation) Area() float64 {
	var sum float64
	for i := range o.Corners {
		a := o.Corners[i]
		b := o.Corners[(i+1)%len(o.Corners)]
		sum += a.X*b.Y - b.X*a.Y
	}
	return math.Abs(sum) / 2
}

// PoseSample is the most recently published tag pose.
type PoseSample struct {
	TagID     int
	Transform geom.Transform3d
	Timestamp time.Time
}

// TagPose is the per-frame result for one observation.
type TagPose struct {
	ID           int              `json:"id"`
	Center       Point            `json:"center"`
	Area         float64          `json:"area"`
	Transform    geom.Transform3d `json:"-"`
	HasTransform bool             `json:"has_transform"`
}

// FrameResult lists every tag of the most recent frame that contained tags.
// It is replaced as a whole, never modified after publication.
type FrameResult struct {
	Sequence  uint64
	Timestamp time.Time
	Tags      []TagPose
}

// Stats are loop counters, each read independently.
type Stats struct {
	Frames       uint64 `json:"frames"`
	GrabErrors   uint64 `json:"grab_errors"`
	DetectErrors uint64 `json:"detect_errors"`
	Panics       uint64 `json:"panics"`
}
