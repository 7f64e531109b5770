// Package protocol defines the JSON messages the stream server sends to
// dashboard clients over WebSocket and HTTP.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	TypeStatus   MessageType = "status"   // Latest detection state
	TypeError    MessageType = "error"    // Capture or processing error
	TypeControls MessageType = "controls" // Camera controls changed
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// StatusData is the detection state published to dashboards.
type StatusData struct {
	LastTagID           int        `json:"last_tag_id"`
	DetectionsPerSecond int        `json:"detections_per_second"`
	Pose                *PoseData  `json:"pose,omitempty"` // nil until a pose is known
	Frame               *FrameTags `json:"frame,omitempty"`
	Stats               StatsData  `json:"stats"`
	Stream              StreamData `json:"stream"`
	Viewers             int        `json:"viewers"`
}

// PoseData is a tag pose relative to the camera. Distances in meters, angles in radians.
type PoseData struct {
	TagID    int     `json:"tag_id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Roll     float64 `json:"roll"`
	Pitch    float64 `json:"pitch"`
	Yaw      float64 `json:"yaw"`
	Distance float64 `json:"distance"`
	Time     int64   `json:"ts"` // Unix milliseconds
}

// FrameTags lists every tag of the latest frame that contained tags.
type FrameTags struct {
	Sequence uint64    `json:"sequence"`
	Time     int64     `json:"ts"`
	Tags     []TagData `json:"tags"`
}

// TagData is one tag in a frame.
type TagData struct {
	ID      int       `json:"id"`
	CenterX float64   `json:"center_x"`
	CenterY float64   `json:"center_y"`
	Area    float64   `json:"area"`
	Pose    *PoseData `json:"pose,omitempty"`
}

// StatsData are the worker loop counters.
type StatsData struct {
	Frames       uint64 `json:"frames"`
	GrabErrors   uint64 `json:"grab_errors"`
	DetectErrors uint64 `json:"detect_errors"`
	Panics       uint64 `json:"panics"`
}

// StreamData describes the video stream's delivery.
type StreamData struct {
	Running  bool   `json:"running"`  // Camera hub is delivering frames
	Frames   uint64 `json:"frames"`   // Frames encoded
	Dropped  uint64 `json:"dropped"`  // Lost to a full broadcast queue
	Replaced uint64 `json:"replaced"` // Overwritten before a slow viewer read them
}

// ErrorData reports a transient error.
type ErrorData struct {
	Message string `json:"message"`
	Count   uint64 `json:"count"` // Errors reported since start
}

// ErrorEntry is a timestamped error kept in the server's recent-error buffer.
type ErrorEntry struct {
	Time    string `json:"time"`
	Message string `json:"message"`
}
