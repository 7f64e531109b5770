package camera

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-hyperlib/pkg/apriltag"
	"github.com/teslashibe/go-hyperlib/pkg/debug"
)

var (
	// ErrNotOpen is returned when frames are requested before Open.
	ErrNotOpen = errors.New("camera: not open")

	// ErrReadFailed is returned when the device produced no frame.
	ErrReadFailed = errors.New("camera: read failed")
)

// V4L2 auto-exposure modes as passed through OpenCV.
const (
	v4l2ExposureManual = 1
	v4l2ExposureAuto   = 3
)

// Source captures frames from a USB camera. It implements apriltag.FrameSource.
type Source struct {
	mu       sync.Mutex
	capture  *gocv.VideoCapture
	bgr      gocv.Mat
	rgba     gocv.Mat
	controls Controls
}

// NewSource returns a closed source that applies controls when opened.
func NewSource(controls Controls) *Source {
	return &Source{controls: controls}
}

// Open starts capture on the configured device.
func (s *Source) Open(cfg apriltag.CameraConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture != nil {
		return nil
	}

	capture, err := gocv.VideoCaptureDevice(cfg.DeviceID)
	if err != nil {
		return fmt.Errorf("open device %d: %w", cfg.DeviceID, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open device %d: %w", cfg.DeviceID, ErrReadFailed)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))

	s.capture = capture
	s.bgr = gocv.NewMat()
	s.rgba = gocv.NewMat()
	s.apply(s.controls)

	debug.VisionLog("camera %d opened: %vx%v @ %v fps\n", cfg.DeviceID,
		capture.Get(gocv.VideoCaptureFrameWidth),
		capture.Get(gocv.VideoCaptureFrameHeight),
		capture.Get(gocv.VideoCaptureFPS))
	return nil
}

// ApplyControls changes the sensor controls. Before Open the controls are kept
// and applied once the device opens.
func (s *Source) ApplyControls(c Controls) error {
	if errs := c.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid controls: %v", errs)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.controls = c
	if s.capture != nil {
		s.apply(c)
	}
	return nil
}

func (s *Source) apply(c Controls) {
	if c.AutoExposure {
		s.capture.Set(gocv.VideoCaptureAutoExposure, v4l2ExposureAuto)
	} else {
		s.capture.Set(gocv.VideoCaptureAutoExposure, v4l2ExposureManual)
		s.capture.Set(gocv.VideoCaptureExposure, float64(c.Exposure))
	}
	if c.Brightness >= 0 {
		s.capture.Set(gocv.VideoCaptureBrightness, float64(c.Brightness))
	}
	if c.Gain >= 0 {
		s.capture.Set(gocv.VideoCaptureGain, float64(c.Gain))
	}
}

// GrabFrame reads the next frame into dst, reallocating it when the frame size changes.
func (s *Source) GrabFrame(dst *image.RGBA) (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return dst, ErrNotOpen
	}
	if ok := s.capture.Read(&s.bgr); !ok || s.bgr.Empty() {
		return dst, ErrReadFailed
	}

	gocv.CvtColor(s.bgr, &s.rgba, gocv.ColorBGRToRGBA)
	data, err := s.rgba.DataPtrUint8()
	if err != nil {
		return dst, fmt.Errorf("frame data: %w", err)
	}

	return copyFrame(dst, data, s.rgba.Cols(), s.rgba.Rows()), nil
}

// copyFrame copies tightly packed RGBA pixels into dst.
func copyFrame(dst *image.RGBA, data []byte, w, h int) *image.RGBA {
	r := image.Rect(0, 0, w, h)
	if dst == nil || dst.Rect != r {
		dst = image.NewRGBA(r)
	}

	row := w * 4
	for y := 0; y < h; y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+row], data[y*row:(y+1)*row])
	}
	return dst
}

// Close stops capture and frees the OpenCV buffers.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return nil
	}

	err := s.capture.Close()
	s.bgr.Close()
	s.rgba.Close()
	s.capture = nil
	return err
}
