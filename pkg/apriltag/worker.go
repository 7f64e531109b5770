package apriltag

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-hyperlib/internal/log"
	"github.com/teslashibe/go-hyperlib/pkg/debug"
	"github.com/teslashibe/go-hyperlib/pkg/geom"
)

// Dependencies are the worker's collaborators. Source, Sink and Detector are
// required. A nil Estimator disables pose estimation; a nil Clock uses SystemClock.
type Dependencies struct {
	Source    FrameSource
	Sink      FrameSink
	Detector  Detector
	Estimator PoseEstimator
	Clock     Clock
}

// Worker runs tag detection on a dedicated goroutine and publishes the latest
// results through accessors that never block.
type Worker struct {
	cfg   Config
	src   FrameSource
	sink  FrameSink
	det   Detector
	est   PoseEstimator
	clock Clock
	ann   *annotator

	// Lifecycle
	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	release sync.Once

	// Published state, one writer (the worker goroutine)
	lastTagID atomic.Int64
	lastPose  atomic.Pointer[PoseSample]
	rate      atomic.Int64
	lastFrame atomic.Pointer[FrameResult]

	frames       atomic.Uint64
	grabErrors   atomic.Uint64
	detectErrors atomic.Uint64
	panics       atomic.Uint64

	// Owned by the worker goroutine
	buf      *image.RGBA
	gray     *image.Gray
	counter  *rateCounter
	sequence uint64
}

// New validates the configuration and builds a worker. No device is touched
// until Start.
func New(cfg Config, deps Dependencies) (*Worker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Source == nil {
		return nil, ErrNoSource
	}
	if deps.Sink == nil {
		return nil, ErrNoSink
	}
	if deps.Detector == nil {
		return nil, ErrNoDetector
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}

	ann, err := newAnnotator(cfg.Style)
	if err != nil {
		return nil, fmt.Errorf("overlay style: %w", err)
	}

	return &Worker{
		cfg:   cfg,
		src:   deps.Source,
		sink:  deps.Sink,
		det:   deps.Detector,
		est:   deps.Estimator,
		clock: deps.Clock,
		ann:   ann,
		done:  make(chan struct{}),
	}, nil
}

// Start configures the detector and launches the processing goroutine. It
// returns without waiting for the camera. A worker can be started only once;
// later calls return ErrAlreadyStarted.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}
	w.started = true

	if err := w.det.Configure(w.cfg.Tuning, w.cfg.Camera.Family); err != nil {
		w.releaseDetector()
		close(w.done)
		return fmt.Errorf("configure detector: %w", err)
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.counter = newRateCounter(w.clock, w.cfg.RateWindow)

	go w.run(ctx)
	return nil
}

// Stop cancels the worker and waits for it to exit. Safe to call more than
// once, and before Start.
func (w *Worker) Stop() {
	w.mu.Lock()
	started, cancel := w.started, w.cancel
	w.mu.Unlock()

	if !started {
		return
	}
	if cancel != nil {
		cancel()
	}
	<-w.done
}

// Done is closed once the worker goroutine has exited and the detector is released.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	defer w.releaseDetector()

	if !w.open(ctx) {
		return
	}
	defer func() {
		if err := w.src.Close(); err != nil {
			log.Warn("close frame source", "error", err)
		}
	}()

	log.Info("tag worker started",
		"device", w.cfg.Camera.DeviceID,
		"size", fmt.Sprintf("%dx%d", w.cfg.Camera.Width, w.cfg.Camera.Height),
		"family", w.cfg.Camera.Family)

	for ctx.Err() == nil {
		w.step(ctx)
	}

	log.Info("tag worker stopped", "frames", w.frames.Load())
}

// open retries the frame source until it opens or ctx is cancelled.
func (w *Worker) open(ctx context.Context) bool {
	for {
		err := w.tryOpen()
		if err == nil {
			return true
		}
		log.Warn("open camera", "device", w.cfg.Camera.DeviceID, "error", err)
		w.sink.ReportError(fmt.Sprintf("open camera %d: %v", w.cfg.Camera.DeviceID, err))

		if !sleep(ctx, w.cfg.OpenRetryInterval) {
			return false
		}
	}
}

// tryOpen makes one open attempt. A panic in the source counts as a failed attempt.
func (w *Worker) tryOpen() (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.panics.Add(1)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.src.Open(w.cfg.Camera)
}

// step processes one frame. A panic inside is counted and reported, and the
// loop carries on with the next frame.
func (w *Worker) step(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.panics.Add(1)
			msg := fmt.Sprintf("frame processing panic: %v", r)
			log.Error(msg)
			w.sink.ReportError(msg)
			sleep(ctx, w.cfg.ErrorBackoff)
		}
	}()

	frame, err := w.src.GrabFrame(w.buf)
	if err != nil {
		w.grabErrors.Add(1)
		w.sink.ReportError(err.Error())
		sleep(ctx, w.cfg.ErrorBackoff)
		return
	}
	w.buf = frame
	w.gray = toGray(w.gray, frame)

	obs, err := w.det.Detect(w.gray)
	if err != nil {
		w.detectErrors.Add(1)
		w.sink.ReportError(fmt.Sprintf("detect: %v", err))
		obs = nil
	}

	w.process(frame, obs)
	w.frames.Add(1)
	w.sink.PublishFrame(frame)
}

// process estimates poses, draws overlays and publishes the selected observation.
func (w *Worker) process(frame *image.RGBA, obs []Observation) {
	now := w.clock.Now()

	if len(obs) > 0 {
		tags := make([]TagPose, len(obs))
		for i, o := range obs {
			tags[i] = TagPose{ID: o.ID, Center: o.Center, Area: o.Area()}
			if w.est != nil {
				tr, err := w.est.Estimate(o)
				if err != nil {
					debug.VisionLog("pose estimate failed for tag %d: %v\n", o.ID, err)
				} else {
					tags[i].Transform = tr
					tags[i].HasTransform = true
				}
			}
			w.ann.Draw(frame, o)
		}

		best := SelectBest(obs)
		w.lastTagID.Store(int64(obs[best].ID))
		if tags[best].HasTransform {
			w.lastPose.Store(&PoseSample{
				TagID:     obs[best].ID,
				Transform: tags[best].Transform,
				Timestamp: now,
			})
		}

		w.sequence++
		w.lastFrame.Store(&FrameResult{Sequence: w.sequence, Timestamp: now, Tags: tags})

		if w.cfg.Verbose {
			logUnique(obs)
		}
	}

	w.counter.Add(len(obs))
	span := w.counter.Elapsed()
	if n, ok := w.counter.ResetIfElapsed(); ok {
		w.rate.Store(int64(n))
		if w.cfg.Verbose {
			log.Info("detections per second", "count", n, "window", span)
		}
	}
}

func logUnique(obs []Observation) {
	seen := make(map[int]struct{}, len(obs))
	for _, o := range obs {
		if _, ok := seen[o.ID]; ok {
			continue
		}
		seen[o.ID] = struct{}{}
		log.Info("tag seen", "id", o.ID)
	}
}

func (w *Worker) releaseDetector() {
	w.release.Do(func() {
		if err := w.det.Release(); err != nil {
			log.Warn("release detector", "error", err)
		}
	})
}

// sleep waits for d or until ctx is cancelled. Returns false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// LastTagID returns the id of the most recently selected tag, or 0 before any detection.
func (w *Worker) LastTagID() int {
	return int(w.lastTagID.Load())
}

// DetectionsPerSecond returns the observation count of the last completed rate window.
func (w *Worker) DetectionsPerSecond() int {
	return int(w.rate.Load())
}

// LastPose returns the most recent pose. The boolean is false until a pose has
// been estimated.
func (w *Worker) LastPose() (PoseSample, bool) {
	p := w.lastPose.Load()
	if p == nil {
		return PoseSample{}, false
	}
	return *p, true
}

// LastFrame returns every tag of the most recent frame that contained tags.
// The returned Tags slice is shared and must not be modified.
func (w *Worker) LastFrame() (FrameResult, bool) {
	f := w.lastFrame.Load()
	if f == nil {
		return FrameResult{}, false
	}
	return *f, true
}

// Stats returns the loop counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Frames:       w.frames.Load(),
		GrabErrors:   w.grabErrors.Load(),
		DetectErrors: w.detectErrors.Load(),
		Panics:       w.panics.Load(),
	}
}

// Distance returns the Euclidean distance between the translations of two poses.
func Distance(a, b geom.Transform3d) float64 {
	return geom.Distance(a, b)
}
