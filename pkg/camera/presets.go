package camera

// Preset names for common lighting conditions
const (
	PresetDefault     = "default"
	PresetCompetition = "competition"
	PresetDim         = "dim"
	PresetBright      = "bright"
)

// Presets returns all available preset controls.
func Presets() map[string]Controls {
	return map[string]Controls{
		PresetDefault:     DefaultControls(),
		PresetCompetition: CompetitionControls(),
		PresetDim:         DimControls(),
		PresetBright:      BrightControls(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetCompetition,
		PresetDim,
		PresetBright,
	}
}

// GetPreset returns preset controls by name, or nil if not found.
func GetPreset(name string) *Controls {
	presets := Presets()
	if c, ok := presets[name]; ok {
		return &c
	}
	return nil
}

// CompetitionControls uses a short fixed exposure for arena lighting.
// Moving tags stay sharp at the cost of a darker image.
func CompetitionControls() Controls {
	c := DefaultControls()
	c.AutoExposure = false
	c.Exposure = 10
	c.Gain = 32
	return c
}

// DimControls trades motion blur for visibility in poorly lit rooms.
func DimControls() Controls {
	c := DefaultControls()
	c.AutoExposure = false
	c.Exposure = 150
	c.Gain = 128
	return c
}

// BrightControls keeps auto exposure but lowers brightness to avoid washed-out tags.
func BrightControls() Controls {
	c := DefaultControls()
	c.Brightness = 64
	return c
}
