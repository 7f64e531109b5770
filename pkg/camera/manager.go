package camera

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Manager holds the current camera controls and handles updates.
type Manager struct {
	controls Controls
	mu       sync.RWMutex

	// Callback when controls change (for applying to the camera)
	OnChange func(c Controls) error
}

// NewManager creates a new camera manager with default controls.
func NewManager() *Manager {
	return &Manager{
		controls: DefaultControls(),
	}
}

// Controls returns the current camera controls.
func (m *Manager) Controls() Controls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.controls
}

// SetControls validates and stores c, then applies it through OnChange.
func (m *Manager) SetControls(c Controls) error {
	if errors := c.Validate(); len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	m.mu.Lock()
	m.controls = c
	callback := m.OnChange
	m.mu.Unlock()

	if callback != nil {
		if err := callback(c); err != nil {
			return fmt.Errorf("failed to apply controls: %w", err)
		}
	}

	return nil
}

// Update changes specific controls. params maps JSON field names to values;
// a "preset" entry is applied first and the remaining fields override it.
func (m *Manager) Update(params map[string]interface{}) error {
	c := m.Controls()

	if presetName, ok := params["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("unknown preset: %s", presetName)
		}
		c = *preset
	}

	for key, value := range params {
		switch key {
		case "auto_exposure":
			if v, ok := value.(bool); ok {
				c.AutoExposure = v
			}
		case "exposure":
			if v, ok := toInt(value); ok {
				c.Exposure = v
			}
		case "brightness":
			if v, ok := toInt(value); ok {
				c.Brightness = v
			}
		case "gain":
			if v, ok := toInt(value); ok {
				c.Gain = v
			}
		}
	}

	return m.SetControls(c)
}

// ControlsJSON returns the current controls as a map for JSON responses.
func (m *Manager) ControlsJSON() map[string]interface{} {
	c := m.Controls()

	data, _ := json.Marshal(c)
	var result map[string]interface{}
	_ = json.Unmarshal(data, &result)

	return result
}

// Capabilities describes the adjustable controls.
func (m *Manager) Capabilities() map[string]interface{} {
	return Capabilities()
}

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}
