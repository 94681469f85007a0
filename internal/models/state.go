// Package models defines the data structures for the InkyPi device.
// JSON field names match the Python implementation exactly so existing
// device.json files keep working.
package models

// DeviceSettings holds the panel-wide configuration.
type DeviceSettings struct {
	Name        string `json:"name"`
	Orientation string `json:"orientation"` // "horizontal" | "vertical"
	Width       int    `json:"width"`       // panel resolution, native orientation
	Height      int    `json:"height"`
	TimeZone    string `json:"timezone"`
	// RefreshInterval is the scheduled plugin refresh period in seconds.
	// 0 disables scheduled refreshes (button presses still work).
	RefreshInterval int `json:"refresh_interval"`
}

// ImageAdjustments are the per-plugin display tuning options applied by the
// display manager before an image is pushed to the panel.
type ImageAdjustments struct {
	Brightness float64 `json:"brightness"` // 1.0 = unchanged
	Contrast   float64 `json:"contrast"`   // 1.0 = unchanged
	Saturation float64 `json:"saturation"` // 1.0 = unchanged
	Sharpness  float64 `json:"sharpness"`  // 0 = unchanged
	Grayscale  bool    `json:"grayscale"`
}

// PluginInstance is one configured plugin: which plugin it is and the
// settings the user gave it.
type PluginInstance struct {
	ID          string            `json:"id"`
	PluginID    string            `json:"plugin_id"`
	Name        string            `json:"name"`
	Settings    map[string]string `json:"settings,omitempty"`
	Adjustments ImageAdjustments  `json:"image_settings"`
}

// RefreshInfo records what is currently shown on the panel: the plugin
// instance that produced it, a content hash of the delivered image, and when
// it was delivered. Nullable — nil means nothing has been displayed yet.
type RefreshInfo struct {
	PluginID    string `json:"plugin_id"`
	ImageHash   string `json:"image_hash,omitempty"`
	RefreshTime string `json:"refresh_time,omitempty"` // RFC 3339
}

// Info is the read-only daemon information reported by /api/info.
type Info struct {
	Version  string `json:"version"`
	Hostname string `json:"hostname"`
	Display  string `json:"display"` // active display driver name
	Mock     bool   `json:"mock"`
}

// State is the complete persisted device state.
type State struct {
	Device  DeviceSettings   `json:"device"`
	Plugins []PluginInstance `json:"plugins"`
	Refresh *RefreshInfo     `json:"refresh_info"`
	Info    Info             `json:"info"`
}

// DeepCopy returns an independent copy of the state.
func (s State) DeepCopy() State {
	cp := s
	cp.Plugins = make([]PluginInstance, len(s.Plugins))
	for i, p := range s.Plugins {
		pc := p
		if p.Settings != nil {
			pc.Settings = make(map[string]string, len(p.Settings))
			for k, v := range p.Settings {
				pc.Settings[k] = v
			}
		}
		cp.Plugins[i] = pc
	}
	if s.Refresh != nil {
		r := *s.Refresh
		cp.Refresh = &r
	}
	return cp
}

// FindPlugin returns a pointer to the plugin instance with the given ID in
// the state, or nil.
func FindPlugin(state *State, id string) *PluginInstance {
	for i := range state.Plugins {
		if state.Plugins[i].ID == id {
			return &state.Plugins[i]
		}
	}
	return nil
}
