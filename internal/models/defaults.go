package models

// Version is the daemon version reported in Info.
const Version = "0.3.0-go"

// DefaultAdjustments returns neutral image adjustments.
func DefaultAdjustments() ImageAdjustments {
	return ImageAdjustments{
		Brightness: 1.0,
		Contrast:   1.0,
		Saturation: 1.0,
	}
}

// DefaultState returns the factory configuration: a 7.3" Inky Impression
// panel in horizontal orientation with a single clock plugin configured.
func DefaultState() State {
	return State{
		Device: DeviceSettings{
			Name:            "InkyPi",
			Orientation:     "horizontal",
			Width:           800,
			Height:          480,
			TimeZone:        "UTC",
			RefreshInterval: 3600,
		},
		Plugins: []PluginInstance{
			{
				ID:          "default-clock",
				PluginID:    "clock",
				Name:        "Clock",
				Adjustments: DefaultAdjustments(),
			},
		},
		Refresh: nil,
		Info: Info{
			Version: Version,
		},
	}
}
