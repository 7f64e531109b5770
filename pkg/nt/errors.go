package nt

import "errors"

var (
	// ErrNotConnected is returned when a value cannot be sent because the
	// server connection is down. The value is still cached locally.
	ErrNotConnected = errors.New("nt: not connected")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("nt: client closed")
)
