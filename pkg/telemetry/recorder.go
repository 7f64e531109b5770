// Package telemetry records tag detection results to a SQLite database for
// later review.
package telemetry

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/teslashibe/go-hyperlib/internal/log"
	"github.com/teslashibe/go-hyperlib/pkg/apriltag"
)

//go:embed schema.sql
var schemaSQL string

// Snapshotter is the read side of a tag worker.
type Snapshotter interface {
	LastTagID() int
	DetectionsPerSecond() int
	LastPose() (apriltag.PoseSample, bool)
}

// Sample is one recorded row.
type Sample struct {
	Session             string
	Timestamp           time.Time
	TagID               int
	HasPose             bool
	X, Y, Z             float64
	Yaw                 float64 // radians
	DetectionsPerSecond int
}

// Config holds recorder settings.
type Config struct {
	// Interval between polls of the snapshotter.
	Interval time.Duration
	// Notes are stored with the session.
	Notes string
}

// DefaultConfig polls ten times a second.
func DefaultConfig() Config {
	return Config{Interval: 100 * time.Millisecond}
}

// Recorder polls a Snapshotter and writes changed samples.
type Recorder struct {
	db      *sql.DB
	src     Snapshotter
	cfg     Config
	session string
	now     func() time.Time

	mu   sync.Mutex
	last *Sample

	cancel context.CancelFunc
	done   chan struct{}
}

// Open opens or creates the database at path and starts a new session.
func Open(path string, src Snapshotter, cfg Config) (*Recorder, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry db: %w", err)
	}
	// One writer; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create telemetry schema: %w", err)
	}

	r := &Recorder{
		db:      db,
		src:     src,
		cfg:     cfg,
		session: uuid.NewString(),
		now:     time.Now,
	}
	if _, err := db.Exec(`INSERT INTO sessions (id, started_ns, notes) VALUES (?, ?, ?)`,
		r.session, r.now().UnixNano(), cfg.Notes); err != nil {
		db.Close()
		return nil, fmt.Errorf("start telemetry session: %w", err)
	}

	log.Info("telemetry session started", "session", r.session, "path", path)
	return r, nil
}

// Session returns the id of this recorder's session.
func (r *Recorder) Session() string {
	return r.session
}

// Run polls until ctx is cancelled.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Record(ctx); err != nil {
				log.Warn("telemetry write failed", "error", err)
			}
		}
	}
}

// Start runs the poll loop in the background until ctx is cancelled or Close
// is called.
func (r *Recorder) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go func() {
		defer close(r.done)
		if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("telemetry stopped", "error", err)
		}
	}()
}

// Record takes one snapshot and writes it if it differs from the last one
// written. It reports whether a row was added. Nothing is written before the
// first detection.
func (r *Recorder) Record(ctx context.Context) (bool, error) {
	s := r.snapshot()
	if s.TagID == 0 && !s.HasPose && s.DetectionsPerSecond == 0 {
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last != nil && sameReading(*r.last, s) {
		return false, nil
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tag_samples (session_id, ts_ns, tag_id, has_pose, x, y, z, yaw, dps)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Session, s.Timestamp.UnixNano(), s.TagID, s.HasPose, s.X, s.Y, s.Z, s.Yaw, s.DetectionsPerSecond)
	if err != nil {
		return false, fmt.Errorf("insert tag sample: %w", err)
	}
	r.last = &s
	return true, nil
}

func (r *Recorder) snapshot() Sample {
	s := Sample{
		Session:             r.session,
		Timestamp:           r.now(),
		TagID:               r.src.LastTagID(),
		DetectionsPerSecond: r.src.DetectionsPerSecond(),
	}
	if p, ok := r.src.LastPose(); ok {
		t := p.Transform.Translation
		s.HasPose = true
		s.X, s.Y, s.Z = t.X, t.Y, t.Z
		s.Yaw = p.Transform.Rotation.Yaw()
		s.Timestamp = p.Timestamp
	}
	return s
}

// sameReading ignores the timestamp of pose-less samples, which is the poll time.
func sameReading(a, b Sample) bool {
	if a.HasPose != b.HasPose || a.TagID != b.TagID || a.DetectionsPerSecond != b.DetectionsPerSecond {
		return false
	}
	if !a.HasPose {
		return true
	}
	return a.Timestamp.Equal(b.Timestamp)
}

// Recent returns up to n samples of this session, newest first.
func (r *Recorder) Recent(ctx context.Context, n int) ([]Sample, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, ts_ns, tag_id, has_pose, x, y, z, yaw, dps
		FROM tag_samples
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT ?`, r.session, n)
	if err != nil {
		return nil, fmt.Errorf("query tag samples: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var s Sample
		var ts int64
		if err := rows.Scan(&s.Session, &ts, &s.TagID, &s.HasPose, &s.X, &s.Y, &s.Z, &s.Yaw, &s.DetectionsPerSecond); err != nil {
			return nil, fmt.Errorf("scan tag sample: %w", err)
		}
		s.Timestamp = time.Unix(0, ts)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close stops a loop started with Start, waits for it to exit, then closes
// the database.
func (r *Recorder) Close() error {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
	return r.db.Close()
}
