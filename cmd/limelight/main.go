// limelight - prints Limelight targeting data from NetworkTables
//
// Optionally reads a NavX through its serial bridge and reports position and
// collisions alongside the target.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-hyperlib/internal/config"
	"github.com/teslashibe/go-hyperlib/internal/log"
	"github.com/teslashibe/go-hyperlib/pkg/limelight"
	"github.com/teslashibe/go-hyperlib/pkg/navx"
	"github.com/teslashibe/go-hyperlib/pkg/nt"
)

func main() {
	server := flag.String("server", config.NTServer(config.DefaultNTServer), "NetworkTables server host (HYPERLIB_NT_SERVER)")
	name := flag.String("name", config.DefaultLimelightTab, "Limelight table name")
	pipeline := flag.Int("pipeline", -1, "Pipeline to select on start (-1 = leave as is)")
	mountAngle := flag.Float64("mount-angle", 25, "Camera tilt back from horizontal, degrees")
	lensHeight := flag.Float64("lens-height", 20, "Lens height above the floor")
	goalHeight := flag.Float64("goal-height", 60, "Target height above the floor")
	interval := flag.Duration("interval", 500*time.Millisecond, "Print interval")
	imuPort := flag.String("imu", "", "NavX serial bridge device, e.g. "+config.IMUPort()+" (empty = off)")
	threshold := flag.Float64("collision", navx.DefaultCollisionThreshold, "Collision jerk threshold in G")
	logLevel := flag.String("log", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*logLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := nt.NewClient(nt.DefaultConfig(config.NTServerURL(*server, nt.ClientName("limelight"))))
	client.Start(ctx)
	defer client.Close()

	ll := limelight.New(client, *name)

	var imu *navx.SerialSensor
	if *imuPort != "" {
		var err error
		imu, err = navx.OpenSerial(*imuPort, navx.PortOptions{})
		if err != nil {
			log.Error("imu unavailable", "port", *imuPort, "error", err)
			return
		}
		defer imu.Close()
		go func() {
			if err := imu.Run(ctx); err != nil && ctx.Err() == nil {
				log.Warn("imu stream ended", "error", err)
			}
		}()
	}
	collisions := navx.NewCollisionDetector(*threshold)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	pipelineSet := *pipeline < 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !client.Connected() {
			fmt.Println("waiting for", *server)
			continue
		}
		if !pipelineSet {
			if err := ll.SetPipeline(*pipeline); err == nil {
				pipelineSet = true
				log.Info("pipeline selected", "pipeline", *pipeline)
			}
		}

		if t := ll.Snapshot(); t.Found {
			fmt.Printf("target tx=%6.2f ty=%6.2f ta=%5.1f%% distance=%.1f\n",
				t.Horizontal, t.Vertical, t.Area,
				ll.EstimateDistance(*mountAngle, *lensHeight, *goalHeight))
		} else {
			fmt.Println("no target")
		}

		if imu != nil {
			pos := navx.RobotPosition(imu)
			fmt.Printf("imu x=%.2f y=%.2f\n", pos.X, pos.Y)
			if collisions.Detect(imu) {
				log.Warn("collision detected", "ax", imu.WorldLinearAccelX(), "ay", imu.WorldLinearAccelY())
			}
		}
	}
}
