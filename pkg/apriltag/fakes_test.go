package apriltag

import (
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"
)

var errGrab = errors.New("grab failed")

// fakeSource produces blank frames. failEvery > 0 makes every n-th grab fail;
// alwaysFail makes every grab fail. openFailures makes the first n opens fail;
// openPanics makes the first n opens panic.
type fakeSource struct {
	width, height int
	failEvery     int
	alwaysFail    bool
	openFailures  int
	openPanics    int

	opens  atomic.Int32
	grabs  atomic.Int32
	closes atomic.Int32
}

func (s *fakeSource) Open(CameraConfig) error {
	n := s.opens.Add(1)
	if int(n) <= s.openPanics {
		panic("driver fault in open")
	}
	if int(n) <= s.openFailures {
		return errors.New("no such device")
	}
	return nil
}

func (s *fakeSource) GrabFrame(dst *image.RGBA) (*image.RGBA, error) {
	n := int(s.grabs.Add(1))
	if s.alwaysFail || (s.failEvery > 0 && n%s.failEvery == 0) {
		return dst, errGrab
	}
	r := image.Rect(0, 0, s.width, s.height)
	if dst == nil || dst.Rect != r {
		dst = image.NewRGBA(r)
	}
	return dst, nil
}

func (s *fakeSource) Close() error {
	s.closes.Add(1)
	return nil
}

type fakeSink struct {
	mu        sync.Mutex
	published int
	errors    []string
}

func (s *fakeSink) PublishFrame(*image.RGBA) {
	s.mu.Lock()
	s.published++
	s.mu.Unlock()
}

func (s *fakeSink) ReportError(msg string) {
	s.mu.Lock()
	s.errors = append(s.errors, msg)
	s.mu.Unlock()
}

func (s *fakeSink) counts() (published, errs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published, len(s.errors)
}

// fakeDetector returns the observations produced by detect, or none.
type fakeDetector struct {
	configureErr error
	detect       func(n int) ([]Observation, error)

	family     string
	configures atomic.Int32
	detects    atomic.Int32
	releases   atomic.Int32
}

func (d *fakeDetector) Configure(_ DetectorTuning, family string) error {
	d.configures.Add(1)
	d.family = family
	return d.configureErr
}

func (d *fakeDetector) Detect(*image.Gray) ([]Observation, error) {
	n := int(d.detects.Add(1))
	if d.detect == nil {
		return nil, nil
	}
	return d.detect(n)
}

func (d *fakeDetector) Release() error {
	d.releases.Add(1)
	return nil
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// square returns an upright observation with the given top-left corner and edge.
func square(id int, x, y, edge float64) Observation {
	return Observation{
		ID: id,
		Corners: [4]Point{
			{X: x, Y: y},
			{X: x + edge, Y: y},
			{X: x + edge, Y: y + edge},
			{X: x, Y: y + edge},
		},
		Center: Point{X: x + edge/2, Y: y + edge/2},
	}
}
