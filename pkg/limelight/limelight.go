// Package limelight reads targeting data published by a Limelight vision
// coprocessor over NetworkTables.
package limelight

import (
	"math"
	"sync"

	"github.com/teslashibe/go-hyperlib/pkg/geom"
	"github.com/teslashibe/go-hyperlib/pkg/nt"
)

// DefaultName is the table a Limelight publishes to out of the box.
const DefaultName = "limelight"

// Entry keys.
const (
	KeyValidTarget = "tv" // 0 or 1
	KeyHorizontal  = "tx" // degrees, -27 to 27
	KeyVertical    = "ty" // degrees, -20.5 to 20.5
	KeyArea        = "ta" // percent of the image, 0 to 100
	KeyPipeline    = "pipeline"
)

// LimeLight is a view over one coprocessor's table. Safe for concurrent use.
type LimeLight struct {
	tables nt.Tables

	mu    sync.RWMutex
	name  string
	table nt.Table
}

// New returns a LimeLight reading the named table.
func New(tables nt.Tables, name string) *LimeLight {
	if name == "" {
		name = DefaultName
	}
	return &LimeLight{tables: tables, name: name, table: tables.Table(name)}
}

// Name returns the current table name.
func (l *LimeLight) Name() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.name
}

// SetName switches to another table. Later reads and writes use it.
func (l *LimeLight) SetName(name string) {
	t := l.tables.Table(name)
	l.mu.Lock()
	l.name = name
	l.table = t
	l.mu.Unlock()
}

func (l *LimeLight) current() nt.Table {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.table
}

// IsTargetFound reports whether the coprocessor sees a valid target.
func (l *LimeLight) IsTargetFound() bool {
	return l.current().GetDouble(KeyValidTarget, 0) != 0
}

// HorizontalOffset is the crosshair-to-target angle in degrees.
func (l *LimeLight) HorizontalOffset() float64 {
	return l.current().GetDouble(KeyHorizontal, 0)
}

// VerticalOffset is the crosshair-to-target angle in degrees.
func (l *LimeLight) VerticalOffset() float64 {
	return l.current().GetDouble(KeyVertical, 0)
}

// TargetArea is the share of the image covered by the target, 0 to 100.
func (l *LimeLight) TargetArea() float64 {
	return l.current().GetDouble(KeyArea, 0)
}

// SetPipeline selects the active vision pipeline.
func (l *LimeLight) SetPipeline(pipeline int) error {
	return l.current().SetNumber(KeyPipeline, float64(pipeline))
}

// EstimateDistance returns the horizontal distance to a goal of known height,
// in the units of the heights. mountAngleDeg is how far the camera is tilted
// back from horizontal.
//
// The result is infinite when the camera looks level at the goal and negative
// when the geometry puts the goal behind it.
func (l *LimeLight) EstimateDistance(mountAngleDeg, lensHeight, goalHeight float64) float64 {
	angle := geom.Radians(mountAngleDeg + l.VerticalOffset())
	return (goalHeight - lensHeight) / math.Tan(angle)
}

// Target is a snapshot of the targeting entries.
type Target struct {
	Found      bool    `json:"found"`
	Horizontal float64 `json:"tx"`
	Vertical   float64 `json:"ty"`
	Area       float64 `json:"ta"`
}

// Snapshot reads all targeting entries from the same table.
func (l *LimeLight) Snapshot() Target {
	t := l.current()
	return Target{
		Found:      t.GetDouble(KeyValidTarget, 0) != 0,
		Horizontal: t.GetDouble(KeyHorizontal, 0),
		Vertical:   t.GetDouble(KeyVertical, 0),
		Area:       t.GetDouble(KeyArea, 0),
	}
}
