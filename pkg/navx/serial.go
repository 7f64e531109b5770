package navx

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"go.bug.st/serial"

	"github.com/teslashibe/go-hyperlib/internal/log"
	"github.com/teslashibe/go-hyperlib/pkg/debug"
)

// PortOptions are the serial settings for the sensor bridge.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// DefaultBaudRate matches the bridge firmware.
const DefaultBaudRate = 115200

// Normalize validates the options and fills in defaults.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = DefaultBaudRate
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("%w: data bits %d must be between 5 and 8", ErrInvalidPortOptions, opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("%w: stop bits %d must be 1 or 2", ErrInvalidPortOptions, opts.StopBits)
	}

	switch strings.ToUpper(strings.TrimSpace(opts.Parity)) {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("%w: parity %q, expected N, E or O", ErrInvalidPortOptions, opts.Parity)
	}

	return opts, nil
}

// SerialMode converts the options for serial.Open.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}
	return mode, nil
}

// Sample is one bridge reading.
type Sample struct {
	AccelX, AccelY float32 // world linear acceleration, G
	DispX, DispY   float32 // displacement, meters
}

// ParseSample decodes a bridge line of the form "ax,ay,dx,dy".
func ParseSample(line string) (Sample, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 4 {
		return Sample{}, fmt.Errorf("%w: %d fields in %q", ErrMalformedSample, len(fields), line)
	}

	var vals [4]float32
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return Sample{}, fmt.Errorf("%w: field %d: %v", ErrMalformedSample, i, err)
		}
		vals[i] = float32(v)
	}
	return Sample{AccelX: vals[0], AccelY: vals[1], DispX: vals[2], DispY: vals[3]}, nil
}

// SerialSensor is a Sensor fed by a line stream from a microcontroller
// bridged to the NavX. Readers see the latest complete sample.
type SerialSensor struct {
	port io.ReadCloser

	mu     sync.RWMutex
	sample Sample

	samples   atomic.Uint64
	malformed atomic.Uint64
}

// OpenSerial opens the bridge at path.
func OpenSerial(path string, opts PortOptions) (*SerialSensor, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return NewSerialSensor(port), nil
}

// NewSerialSensor reads samples from r.
func NewSerialSensor(r io.ReadCloser) *SerialSensor {
	return &SerialSensor{port: r}
}

// Run reads lines until ctx is cancelled or the stream ends. Malformed lines
// are counted and skipped. A clean end of stream returns nil.
func (s *SerialSensor) Run(ctx context.Context) error {
	scan := bufio.NewScanner(s.port)
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		for scan.Scan() {
			select {
			case lines <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scan.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil && !errors.Is(err, io.EOF) {
						return err
					}
				default:
				}
				return nil
			}
			s.handle(line)
		}
	}
}

func (s *SerialSensor) handle(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	sample, err := ParseSample(line)
	if err != nil {
		if s.malformed.Add(1) == 1 {
			log.Warn("navx bridge sent a malformed line", "error", err)
		}
		debug.Log("navx: %v\n", err)
		return
	}

	s.mu.Lock()
	s.sample = sample
	s.mu.Unlock()
	s.samples.Add(1)
}

// Close closes the port, which also ends Run.
func (s *SerialSensor) Close() error {
	return s.port.Close()
}

// Latest returns the most recent sample.
func (s *SerialSensor) Latest() Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sample
}

// Counts returns how many samples were accepted and rejected.
func (s *SerialSensor) Counts() (samples, malformed uint64) {
	return s.samples.Load(), s.malformed.Load()
}

func (s *SerialSensor) WorldLinearAccelX() float32 { return s.Latest().AccelX }
func (s *SerialSensor) WorldLinearAccelY() float32 { return s.Latest().AccelY }
func (s *SerialSensor) DisplacementX() float32     { return s.Latest().DispX }
func (s *SerialSensor) DisplacementY() float32     { return s.Latest().DispY }
