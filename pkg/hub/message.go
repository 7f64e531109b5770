// Package hub fans messages out to WebSocket viewers from a single goroutine.
package hub

// Message is one WebSocket message. Binary messages carry JPEG frames, text
// messages carry JSON.
type Message struct {
	Binary bool
	Data   []byte
}

// Frame wraps an encoded frame.
func Frame(jpeg []byte) Message {
	return Message{Binary: true, Data: jpeg}
}

// Text wraps encoded JSON.
func Text(data []byte) Message {
	return Message{Data: data}
}

// Policy decides what happens when a viewer falls behind.
type Policy int

const (
	// DropSlow disconnects a viewer whose queue is full. Used for status
	// updates, where every message matters.
	DropSlow Policy = iota

	// LatestOnly keeps only the newest pending message per viewer. Used for
	// video, where a stale frame is worthless.
	LatestOnly
)

func (p Policy) String() string {
	switch p {
	case DropSlow:
		return "drop-slow"
	case LatestOnly:
		return "latest-only"
	}
	return "unknown"
}

// queueSize is the per-viewer queue length for each policy.
func (p Policy) queueSize() int {
	if p == LatestOnly {
		return 1
	}
	return 16
}
