package stream

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-hyperlib/internal/log"
	"github.com/teslashibe/go-hyperlib/pkg/apriltag"
	"github.com/teslashibe/go-hyperlib/pkg/geom"
	"github.com/teslashibe/go-hyperlib/pkg/hub"
	"github.com/teslashibe/go-hyperlib/pkg/protocol"
)

// status builds the current status from the provider.
func (s *Server) status() protocol.StatusData {
	hs := s.cameraHub.Stats()
	st := protocol.StatusData{
		Viewers: s.cameraHub.ClientCount(),
		Stream: protocol.StreamData{
			Running:  s.cameraHub.IsRunning(),
			Frames:   s.frameCount.Load(),
			Dropped:  hs.Dropped,
			Replaced: hs.Replaced,
		},
	}

	p := s.statusProvider()
	if p == nil {
		return st
	}

	st.LastTagID = p.LastTagID()
	st.DetectionsPerSecond = p.DetectionsPerSecond()

	if pose, ok := p.LastPose(); ok {
		pd := poseData(pose.TagID, pose.Transform)
		pd.Time = pose.Timestamp.UnixMilli()
		st.Pose = &pd
	}

	if frame, ok := p.LastFrame(); ok {
		ft := &protocol.FrameTags{
			Sequence: frame.Sequence,
			Time:     frame.Timestamp.UnixMilli(),
			Tags:     make([]protocol.TagData, len(frame.Tags)),
		}
		for i, tag := range frame.Tags {
			ft.Tags[i] = protocol.TagData{
				ID:      tag.ID,
				CenterX: tag.Center.X,
				CenterY: tag.Center.Y,
				Area:    tag.Area,
			}
			if tag.HasTransform {
				pd := poseData(tag.ID, tag.Transform)
				pd.Time = ft.Time
				ft.Tags[i].Pose = &pd
			}
		}
		st.Frame = ft
	}

	st.Stats = statsData(p.Stats())
	return st
}

func poseData(id int, t geom.Transform3d) protocol.PoseData {
	return protocol.PoseData{
		TagID:    id,
		X:        t.Translation.X,
		Y:        t.Translation.Y,
		Z:        t.Translation.Z,
		Roll:     t.Rotation.Roll(),
		Pitch:    t.Rotation.Pitch(),
		Yaw:      t.Rotation.Yaw(),
		Distance: t.Norm(),
	}
}

func statsData(st apriltag.Stats) protocol.StatsData {
	return protocol.StatsData{
		Frames:       st.Frames,
		GrabErrors:   st.GrabErrors,
		DetectErrors: st.DetectErrors,
		Panics:       st.Panics,
	}
}

// handleStatus returns the latest detection state
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status())
}

// handleFrame returns the latest annotated frame as JPEG
func (s *Server) handleFrame(c *fiber.Ctx) error {
	data := s.LatestFrame()
	if data == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no frame yet",
		})
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(data)
}

// handleErrors returns recent capture errors
func (s *Server) handleErrors(c *fiber.Ctx) error {
	s.errsMu.RLock()
	defer s.errsMu.RUnlock()
	return c.JSON(s.errs)
}

// handleGetCamera returns the current camera controls
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	m := s.cameraControls()
	if m == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "camera controls not available",
		})
	}
	return c.JSON(fiber.Map{
		"controls":     m.ControlsJSON(),
		"capabilities": m.Capabilities(),
	})
}

// handleUpdateCamera applies a partial controls update or a preset
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	m := s.cameraControls()
	if m == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "camera controls not available",
		})
	}

	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid body: " + err.Error(),
		})
	}

	if err := m.Update(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	controls := m.ControlsJSON()
	if msg, err := protocol.NewControlsMessage(controls); err == nil {
		s.broadcast(s.statusHub, msg)
	}
	log.Info("camera controls updated", "controls", controls)

	return c.JSON(fiber.Map{"controls": controls})
}

// handleCameraWS streams binary JPEG frames, starting with the latest one
func (s *Server) handleCameraWS(c *websocket.Conn) {
	if data := s.LatestFrame(); data != nil {
		if err := c.WriteMessage(websocket.BinaryMessage, data); err != nil {
			return
		}
	}

	client := hub.NewClient(s.cameraHub, c)
	if client == nil {
		return
	}
	client.Run()
}

// handleStatusWS streams status and error messages, starting with a snapshot
func (s *Server) handleStatusWS(c *websocket.Conn) {
	msg, err := protocol.NewStatusMessage(s.status())
	if err == nil {
		if data, err := msg.Bytes(); err == nil {
			if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}

	client := hub.NewClient(s.statusHub, c)
	if client == nil {
		return
	}
	client.Run()
}
