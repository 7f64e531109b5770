// Package apriltag runs AprilTag detection on a dedicated goroutine and publishes
// the latest result for control loops that run on their own schedule.
//
// A Worker pulls frames from a FrameSource, converts them to grayscale, hands them
// to a Detector, estimates a pose for every observation with an optional
// PoseEstimator, draws the detections onto the frame and republishes it through a
// FrameSink. Readers poll LastTagID, LastPose and DetectionsPerSecond; each is an
// independent atomic slot, so reads never block the capture loop. Values read from
// different accessors may come from different frames.
//
// Basic usage:
//
//	w, err := apriltag.New(apriltag.DefaultConfig(), apriltag.Dependencies{
//		Source:    cam,
//		Sink:      server,
//		Detector:  det,
//		Estimator: apriltag.HomographyEstimator{TagSize: 0.1651, Fx: 699.4, Fy: 677.7, Cx: 345.6, Cy: 207.1},
//	})
//	if err != nil {
//		return err
//	}
//	if err := w.Start(ctx); err != nil {
//		return err
//	}
//	defer w.Stop()
//
//	if pose, ok := w.LastPose(); ok {
//		fmt.Printf("tag %d at %.2f m\n", pose.TagID, pose.Transform.Norm())
//	}
//
// The detector is owned by the worker once Start is called and is released exactly
// once when the loop exits, whatever the reason.
package apriltag
