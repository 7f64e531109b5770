// Package detection provides AprilTag detectors backed by OpenCV.
package detection

import (
	"fmt"
	"image"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-hyperlib/pkg/apriltag"
	"github.com/teslashibe/go-hyperlib/pkg/debug"
)

// OpenCV's AprilTag defaults, scaled by DetectorTuning.
const (
	defaultCriticalRad   = 10 * math.Pi / 180
	defaultMaxLineFitMSE = 10.0
)

var dictionaries = map[string]gocv.ArucoPredefinedDictionaryType{
	"tag16h5":  gocv.ArucoDictAprilTag_16h5,
	"tag25h9":  gocv.ArucoDictAprilTag_25h9,
	"tag36h10": gocv.ArucoDictAprilTag_36h10,
	"tag36h11": gocv.ArucoDictAprilTag_36h11,
}

// SupportsFamily reports whether OpenCV ships a dictionary for family.
func SupportsFamily(family string) bool {
	_, ok := dictionaries[family]
	return ok
}

// ArucoDetector finds AprilTags with OpenCV's ArUco module. It handles one tag
// family; run several detectors for several families.
type ArucoDetector struct {
	mu         sync.Mutex
	detector   gocv.ArucoDetector
	configured bool
	scratch    []byte
}

// NewAruco returns an unconfigured detector. Configure must be called before Detect.
func NewAruco() *ArucoDetector {
	return &ArucoDetector{}
}

// Configure selects the family dictionary and applies the quad thresholds.
func (d *ArucoDetector) Configure(tuning apriltag.DetectorTuning, family string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.configured {
		return fmt.Errorf("%w: detector already configured", apriltag.ErrInvalidConfig)
	}

	dict, ok := dictionaries[family]
	if !ok {
		return fmt.Errorf("%w: %q", apriltag.ErrUnsupportedFamily, family)
	}

	params := gocv.NewArucoDetectorParameters()
	params.SetAprilTagQuadSigma(tuning.QuadSigma)
	params.SetAprilTagMinClusterPixels(tuning.MinClusterPixels)
	params.SetAprilTagCriticalRad(float32(defaultCriticalRad * tuning.CriticalAngleScale))
	params.SetAprilTagMaxLineFitMse(float32(defaultMaxLineFitMSE * tuning.MaxLineFitMSEScale))

	d.detector = gocv.NewArucoDetectorWithParams(gocv.GetPredefinedDictionary(dict), params)
	d.configured = true

	debug.VisionLog("aruco detector ready: family=%s sigma=%.2f minCluster=%d\n",
		family, tuning.QuadSigma, tuning.MinClusterPixels)
	return nil
}

// Detect returns the tags found in gray.
func (d *ArucoDetector) Detect(gray *image.Gray) ([]apriltag.Observation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.configured {
		return nil, apriltag.ErrNoDetector
	}

	b := gray.Bounds()
	mat, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC1, d.packed(gray))
	if err != nil {
		return nil, fmt.Errorf("wrap frame: %w", err)
	}
	defer mat.Close()

	corners, ids, _ := d.detector.DetectMarkers(mat)
	obs := toObservations(corners, ids)

	if len(obs) > 0 {
		debug.VisionLog("aruco found %d tag(s)\n", len(obs))
	}
	return obs, nil
}

// packed returns gray's pixels without row padding.
func (d *ArucoDetector) packed(gray *image.Gray) []byte {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if gray.Stride == w {
		return gray.Pix[:w*h]
	}

	if cap(d.scratch) < w*h {
		d.scratch = make([]byte, w*h)
	}
	buf := d.scratch[:w*h]
	for y := 0; y < h; y++ {
		copy(buf[y*w:(y+1)*w], gray.Pix[y*gray.Stride:y*gray.Stride+w])
	}
	return buf
}

// Release frees the OpenCV detector. Safe to call more than once.
func (d *ArucoDetector) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.configured {
		return nil
	}
	d.configured = false
	d.detector.Close()
	return nil
}

// toObservations converts OpenCV marker output into observations. Markers
// without exactly four corners are dropped.
func toObservations(corners [][]gocv.Point2f, ids []int) []apriltag.Observation {
	n := min(len(corners), len(ids))
	obs := make([]apriltag.Observation, 0, n)

	for i := 0; i < n; i++ {
		if len(corners[i]) != 4 {
			continue
		}

		o := apriltag.Observation{ID: ids[i]}
		for j, p := range corners[i] {
			o.Corners[j] = apriltag.Point{X: float64(p.X), Y: float64(p.Y)}
			o.Center.X += float64(p.X) / 4
			o.Center.Y += float64(p.Y) / 4
		}
		obs = append(obs, o)
	}

	return obs
}
