package camera

import (
	"errors"
	"image"
	"testing"

	"github.com/teslashibe/go-hyperlib/pkg/apriltag"
)

var _ apriltag.FrameSource = (*Source)(nil)

func TestControls_Validate(t *testing.T) {
	tests := []struct {
		name     string
		controls Controls
		wantErrs int
	}{
		{"default", DefaultControls(), 0},
		{"competition", CompetitionControls(), 0},
		{"manual without exposure", Controls{AutoExposure: false, Brightness: -1, Gain: -1}, 1},
		{"auto ignores exposure", Controls{AutoExposure: true, Exposure: -5, Brightness: -1, Gain: -1}, 0},
		{"out of range", Controls{AutoExposure: true, Brightness: 300, Gain: -2}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if errs := tt.controls.Validate(); len(errs) != tt.wantErrs {
				t.Errorf("Validate() = %v, want %d errors", errs, tt.wantErrs)
			}
		})
	}
}

func TestPresets(t *testing.T) {
	presets := Presets()
	for _, name := range PresetNames() {
		c, ok := presets[name]
		if !ok {
			t.Errorf("preset %q missing", name)
			continue
		}
		if errs := c.Validate(); len(errs) > 0 {
			t.Errorf("preset %q invalid: %v", name, errs)
		}
	}
	if GetPreset("sunset") != nil {
		t.Error("GetPreset(unknown) != nil")
	}
}

func TestManager_Update(t *testing.T) {
	m := NewManager()
	var applied []Controls
	m.OnChange = func(c Controls) error {
		applied = append(applied, c)
		return nil
	}

	if err := m.Update(map[string]interface{}{"preset": PresetCompetition, "exposure": float64(25)}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got := m.Controls()
	if got.AutoExposure || got.Exposure != 25 || got.Gain != 32 {
		t.Errorf("Controls() = %+v, want competition preset with exposure 25", got)
	}
	if len(applied) != 1 {
		t.Errorf("OnChange called %d times, want 1", len(applied))
	}

	if err := m.Update(map[string]interface{}{"preset": "nope"}); err == nil {
		t.Error("Update(unknown preset) error = nil")
	}
	if err := m.Update(map[string]interface{}{"gain": 999}); err == nil {
		t.Error("Update(gain 999) error = nil")
	}
	if m.Controls().Gain != 32 {
		t.Error("rejected update changed the controls")
	}
}

func TestManager_CallbackError(t *testing.T) {
	m := NewManager()
	boom := errors.New("device busy")
	m.OnChange = func(Controls) error { return boom }

	if err := m.SetControls(DimControls()); !errors.Is(err, boom) {
		t.Errorf("SetControls() = %v, want wrapped %v", err, boom)
	}
}

func TestManager_ControlsJSON(t *testing.T) {
	m := NewManager()
	got := m.ControlsJSON()
	if got["auto_exposure"] != true {
		t.Errorf("auto_exposure = %v, want true", got["auto_exposure"])
	}
	if got["brightness"] != float64(-1) {
		t.Errorf("brightness = %v, want -1", got["brightness"])
	}
}

func TestCopyFrame(t *testing.T) {
	data := make([]byte, 3*2*4)
	for i := range data {
		data[i] = byte(i)
	}

	dst := copyFrame(nil, data, 3, 2)
	if dst.Rect != image.Rect(0, 0, 3, 2) {
		t.Fatalf("bounds = %v", dst.Rect)
	}
	if got := dst.RGBAAt(2, 1); got.R != 20 || got.A != 23 {
		t.Errorf("pixel (2,1) = %v, want R=20 A=23", got)
	}

	if again := copyFrame(dst, data, 3, 2); again != dst {
		t.Error("copyFrame reallocated a matching buffer")
	}
	if other := copyFrame(dst, make([]byte, 4*4*4), 4, 4); other == dst {
		t.Error("copyFrame reused a buffer of the wrong size")
	}
}

func TestSource_GrabBeforeOpen(t *testing.T) {
	s := NewSource(DefaultControls())
	if _, err := s.GrabFrame(nil); !errors.Is(err, ErrNotOpen) {
		t.Errorf("GrabFrame() = %v, want ErrNotOpen", err)
	}
	if err := s.ApplyControls(DimControls()); err != nil {
		t.Errorf("ApplyControls() before open = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() before open = %v", err)
	}
}
