// tagfinder - AprilTag detection on a USB camera
//
// Detects tags, estimates their pose, and serves the annotated stream on
// http://<host>:<port>/. Optionally records detections to SQLite and
// publishes the selected tag to NetworkTables.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-hyperlib/internal/config"
	"github.com/teslashibe/go-hyperlib/internal/log"
	"github.com/teslashibe/go-hyperlib/pkg/apriltag"
	"github.com/teslashibe/go-hyperlib/pkg/apriltag/detection"
	"github.com/teslashibe/go-hyperlib/pkg/camera"
	"github.com/teslashibe/go-hyperlib/pkg/debug"
	"github.com/teslashibe/go-hyperlib/pkg/nt"
	"github.com/teslashibe/go-hyperlib/pkg/stream"
	"github.com/teslashibe/go-hyperlib/pkg/telemetry"
)

type options struct {
	worker   apriltag.Config
	pose     apriltag.HomographyEstimator
	stream   stream.Config
	preset   string
	dbPath   string
	ntHost   string
	ntTable  string
	logLevel string
}

func main() {
	opts := parseFlags()
	log.Init(opts.logLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		log.Error("tagfinder stopped", "error", err)
	}
}

func run(ctx context.Context, opts options) error {
	controls := camera.DefaultControls()
	if p := camera.GetPreset(opts.preset); p != nil {
		controls = *p
	} else {
		log.Warn("unknown camera preset, using default", "preset", opts.preset, "presets", camera.PresetNames())
	}

	source := camera.NewSource(controls)
	manager := camera.NewManager()
	if err := manager.SetControls(controls); err != nil {
		return err
	}
	manager.OnChange = source.ApplyControls

	server := stream.NewServer(opts.stream)
	server.SetCameraControls(manager)

	worker, err := apriltag.New(opts.worker, apriltag.Dependencies{
		Source:    source,
		Sink:      server,
		Detector:  detection.NewAruco(),
		Estimator: opts.pose,
	})
	if err != nil {
		return err
	}
	server.SetStatusProvider(worker)

	if err := worker.Start(ctx); err != nil {
		return err
	}
	defer worker.Stop()

	server.StartAsync(ctx)
	defer server.Shutdown()
	log.Info("stream ready", "url", "http://localhost:"+opts.stream.Port+"/")

	if opts.dbPath != "" {
		rec, err := telemetry.Open(opts.dbPath, worker, telemetry.Config{Interval: 100 * time.Millisecond, Notes: opts.worker.Camera.Family})
		if err != nil {
			return err
		}
		rec.Start(ctx)
		defer func() {
			if err := rec.Close(); err != nil {
				log.Warn("close telemetry", "error", err)
			}
		}()
	}

	if opts.ntHost != "" {
		client := nt.NewClient(nt.DefaultConfig(config.NTServerURL(opts.ntHost, nt.ClientName("tagfinder"))))
		client.Start(ctx)
		defer client.Close()
		go publishLoop(ctx, worker, client.Table(opts.ntTable))
	}

	select {
	case <-ctx.Done():
	case <-worker.Done():
	}
	return nil
}

// publishLoop mirrors the selected tag into a NetworkTables table.
func publishLoop(ctx context.Context, w *apriltag.Worker, table nt.Table) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		table.SetNumber("tid", float64(w.LastTagID()))
		table.SetNumber("dps", float64(w.DetectionsPerSecond()))
		if p, ok := w.LastPose(); ok {
			t := p.Transform.Translation
			table.SetNumber("x", t.X)
			table.SetNumber("y", t.Y)
			table.SetNumber("z", t.Z)
			table.SetNumber("yaw", p.Transform.Rotation.Yaw())
		}
	}
}

// parseFlags parses command line flags, with environment variables as defaults.
func parseFlags() options {
	cfg := apriltag.DefaultConfig()
	cfg.Camera.DeviceID = config.CameraID()
	cfg.Camera.Family = config.TagFamily()
	streamCfg := stream.DefaultConfig()
	streamCfg.Port = config.StreamPort()

	flag.IntVar(&cfg.Camera.DeviceID, "device", cfg.Camera.DeviceID, "Camera device id (HYPERLIB_CAMERA_ID)")
	flag.IntVar(&cfg.Camera.Width, "width", cfg.Camera.Width, "Frame width")
	flag.IntVar(&cfg.Camera.Height, "height", cfg.Camera.Height, "Frame height")
	flag.IntVar(&cfg.Camera.FPS, "fps", cfg.Camera.FPS, "Capture frame rate")
	flag.StringVar(&cfg.Camera.Family, "family", cfg.Camera.Family, "Tag family (HYPERLIB_TAG_FAMILY)")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Log every tag seen and the detection rate")

	tagSize := flag.Float64("tag-size", 0.1651, "Tag edge length in meters")
	fx := flag.Float64("fx", 0, "Focal length x in pixels (0 = estimate from width)")
	fy := flag.Float64("fy", 0, "Focal length y in pixels (0 = same as fx)")

	flag.StringVar(&streamCfg.Port, "port", streamCfg.Port, "Stream HTTP port (HYPERLIB_STREAM_PORT)")
	flag.IntVar(&streamCfg.Quality, "quality", streamCfg.Quality, "JPEG quality 1-100")
	flag.IntVar(&streamCfg.MaxWidth, "max-width", streamCfg.MaxWidth, "Downscale streamed frames wider than this")

	preset := flag.String("preset", "default", "Camera preset: default, competition, dim, bright")
	dbPath := flag.String("telemetry", config.TelemetryDB(), "SQLite file for detection telemetry (HYPERLIB_TELEMETRY_DB)")
	ntHost := flag.String("nt", "", "NetworkTables server to publish results to (empty = off)")
	ntTable := flag.String("nt-table", "tagfinder", "NetworkTables table for published results")
	logLevel := flag.String("log", "info", "Log level: debug, info, warn, error")
	flag.BoolVar(&debug.Enabled, "debug", false, "Enable verbose debug output")
	flag.BoolVar(&debug.Vision, "debug-vision", false, "Enable per-frame detector output")
	flag.Parse()

	// Without calibration, assume a 60 degree horizontal field of view.
	if *fx <= 0 {
		*fx = float64(cfg.Camera.Width) / 2 / 0.5774
	}
	if *fy <= 0 {
		*fy = *fx
	}

	return options{
		worker: cfg,
		pose: apriltag.HomographyEstimator{
			TagSize: *tagSize,
			Fx:      *fx,
			Fy:      *fy,
			Cx:      float64(cfg.Camera.Width) / 2,
			Cy:      float64(cfg.Camera.Height) / 2,
		},
		stream:   streamCfg,
		preset:   *preset,
		dbPath:   *dbPath,
		ntHost:   *ntHost,
		ntTable:  *ntTable,
		logLevel: *logLevel,
	}
}
