// Package stream serves the annotated camera feed and the latest detection
// state to dashboards over HTTP and WebSocket.
package stream

import (
	"bytes"
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-hyperlib/internal/log"
	"github.com/teslashibe/go-hyperlib/pkg/apriltag"
	"github.com/teslashibe/go-hyperlib/pkg/hub"
	"github.com/teslashibe/go-hyperlib/pkg/protocol"
)

// maxErrors is how many recent errors /api/errors returns.
const maxErrors = 100

// StatusProvider exposes the detection state. *apriltag.Worker implements it.
type StatusProvider interface {
	LastTagID() int
	DetectionsPerSecond() int
	LastPose() (apriltag.PoseSample, bool)
	LastFrame() (apriltag.FrameResult, bool)
	Stats() apriltag.Stats
}

// CameraControls reads and updates runtime camera settings. *camera.Manager
// implements it.
type CameraControls interface {
	ControlsJSON() map[string]interface{}
	Capabilities() map[string]interface{}
	Update(params map[string]interface{}) error
}

// Config holds the stream server settings.
type Config struct {
	Port string `json:"port"`

	// MaxWidth downscales wider frames before encoding. 0 keeps the camera size.
	MaxWidth int `json:"max_width"`

	// Quality is the JPEG quality, 1 to 100.
	Quality int `json:"quality"`

	// FrameInterval is the minimum time between encoded frames. Frames arriving
	// faster are skipped so encoding never dominates the detection loop.
	FrameInterval time.Duration `json:"frame_interval"`

	// StatusInterval is how often status is pushed to /ws/status clients.
	StatusInterval time.Duration `json:"status_interval"`
}

// DefaultConfig returns a 640-pixel-wide stream at 15 FPS.
func DefaultConfig() Config {
	return Config{
		Port:           "1181",
		MaxWidth:       640,
		Quality:        75,
		FrameInterval:  time.Second / 15,
		StatusInterval: 100 * time.Millisecond,
	}
}

// Server is the stream server. It implements apriltag.FrameSink.
type Server struct {
	cfg Config
	app *fiber.App

	providerMu sync.RWMutex
	provider   StatusProvider
	cameras    CameraControls

	// Latest encoded frame
	latest     atomic.Pointer[[]byte]
	lastEncode atomic.Int64 // Unix nanoseconds
	frameCount atomic.Uint64

	// Recent errors
	errs     []protocol.ErrorEntry
	errsMu   sync.RWMutex
	errCount atomic.Uint64

	// Hubs for websocket broadcast
	statusHub *hub.Hub
	cameraHub *hub.Hub
}

// NewServer creates a new stream server
func NewServer(cfg Config) *Server {
	if cfg.Quality < 1 || cfg.Quality > 100 {
		cfg.Quality = DefaultConfig().Quality
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = DefaultConfig().StatusInterval
	}

	s := &Server{
		cfg:       cfg,
		errs:      make([]protocol.ErrorEntry, 0, maxErrors),
		statusHub: hub.New("status", hub.DropSlow),
		cameraHub: hub.New("camera", hub.LatestOnly),
	}

	app := fiber.New(fiber.Config{
		AppName:               "hyperlib stream",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/frame.jpg", s.handleFrame)
	api.Get("/errors", s.handleErrors)
	api.Get("/camera", s.handleGetCamera)
	api.Post("/camera", s.handleUpdateCamera)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/camera", websocket.New(s.handleCameraWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// SetStatusProvider sets the source of /api/status data.
func (s *Server) SetStatusProvider(p StatusProvider) {
	s.providerMu.Lock()
	s.provider = p
	s.providerMu.Unlock()
}

// SetCameraControls enables the /api/camera endpoints.
func (s *Server) SetCameraControls(m CameraControls) {
	s.providerMu.Lock()
	s.cameras = m
	s.providerMu.Unlock()
}

func (s *Server) statusProvider() StatusProvider {
	s.providerMu.RLock()
	defer s.providerMu.RUnlock()
	return s.provider
}

func (s *Server) cameraControls() CameraControls {
	s.providerMu.RLock()
	defer s.providerMu.RUnlock()
	return s.cameras
}

// Start runs the hubs and the HTTP server until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	log.Info("stream server listening", "url", "http://localhost:"+s.cfg.Port)

	go s.statusHub.Run(ctx)
	go s.cameraHub.Run(ctx)
	go s.statusLoop(ctx)

	go func() {
		<-ctx.Done()
		if err := s.app.Shutdown(); err != nil {
			log.Warn("stream server shutdown", "error", err)
		}
	}()

	return s.app.Listen(":" + s.cfg.Port)
}

// StartAsync starts the server in a goroutine
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			log.Error("stream server error", "error", err)
		}
	}()
}

func (s *Server) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() == 0 {
				continue
			}
			msg, err := protocol.NewStatusMessage(s.status())
			if err != nil {
				log.Warn("encode status", "error", err)
				continue
			}
			s.broadcast(s.statusHub, msg)
		}
	}
}

// PublishFrame encodes the frame as JPEG and fans it out to camera viewers.
// The frame is not retained.
func (s *Server) PublishFrame(frame *image.RGBA) {
	now := time.Now().UnixNano()
	if last := s.lastEncode.Load(); last != 0 && time.Duration(now-last) < s.cfg.FrameInterval {
		return
	}
	s.lastEncode.Store(now)

	data, err := s.encode(frame)
	if err != nil {
		log.Warn("encode frame", "error", err)
		return
	}

	s.latest.Store(&data)
	s.frameCount.Add(1)

	if s.cameraHub.ClientCount() > 0 {
		s.cameraHub.Broadcast(hub.Frame(data))
	}
}

func (s *Server) encode(frame *image.RGBA) ([]byte, error) {
	var img image.Image = frame
	if s.cfg.MaxWidth > 0 && frame.Bounds().Dx() > s.cfg.MaxWidth {
		img = imaging.Resize(frame, s.cfg.MaxWidth, 0, imaging.Linear)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(s.cfg.Quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReportError logs a capture error, keeps it for /api/errors and pushes it to
// status viewers.
func (s *Server) ReportError(msg string) {
	n := s.errCount.Add(1)
	if n == 1 || n%100 == 0 {
		log.Warn("capture error", "error", msg, "count", n)
	} else {
		log.Debug("capture error", "error", msg, "count", n)
	}

	entry := protocol.ErrorEntry{
		Time:    time.Now().Format("15:04:05"),
		Message: msg,
	}
	s.errsMu.Lock()
	s.errs = append(s.errs, entry)
	if len(s.errs) > maxErrors {
		s.errs = s.errs[1:]
	}
	s.errsMu.Unlock()

	if s.statusHub.ClientCount() == 0 {
		return
	}
	m, err := protocol.NewErrorMessage(msg, n)
	if err != nil {
		return
	}
	s.broadcast(s.statusHub, m)
}

func (s *Server) broadcast(h *hub.Hub, msg *protocol.Message) {
	data, err := msg.Bytes()
	if err != nil {
		log.Warn("encode message", "type", msg.Type, "error", err)
		return
	}
	h.Broadcast(hub.Text(data))
}

// LatestFrame returns the most recent JPEG, or nil before the first frame.
func (s *Server) LatestFrame() []byte {
	if p := s.latest.Load(); p != nil {
		return *p
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
