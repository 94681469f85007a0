// Package plugins defines the plugin contract and the built-in plugins.
// A plugin produces images for the panel; optionally it also reacts to
// front panel button presses.
package plugins

import (
	"context"
	"image"

	"github.com/inky-labs/inkypi-go/internal/models"
)

// Plugin generates panel content for one configured instance.
type Plugin interface {
	// ID returns the plugin type identifier ("clock", "album", ...).
	ID() string

	// GenerateImage produces a new frame sized for the device.
	GenerateImage(ctx context.Context, inst *models.PluginInstance, device models.DeviceSettings) (image.Image, error)
}

// ButtonResult is the outcome of a button delegation: an image to display,
// an informational message, or neither.
type ButtonResult struct {
	Image   image.Image
	Message string
}

// ButtonHandler is the optional capability a Plugin implements to react to
// front panel presses. Callers discover it with a type assertion; plugins
// without it simply ignore the buttons.
type ButtonHandler interface {
	HandleButton(ctx context.Context, label string, inst *models.PluginInstance, device models.DeviceSettings) (ButtonResult, error)
}

// TargetSize returns the frame dimensions a plugin should generate for,
// accounting for the configured orientation.
func TargetSize(device models.DeviceSettings) (int, int) {
	if device.Orientation == "vertical" {
		return device.Height, device.Width
	}
	return device.Width, device.Height
}
