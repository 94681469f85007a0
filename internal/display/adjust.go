package display

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/inky-labs/inkypi-go/internal/models"
)

// Adjust applies the per-plugin image adjustments. Values of 1.0 (or 0 for
// sharpness) leave the image untouched, so a zero-value ImageAdjustments
// from an old config file degrades to a plain copy rather than a black
// frame — hence the guards below.
func Adjust(img image.Image, adj models.ImageAdjustments) image.Image {
	out := img

	if adj.Brightness > 0 && adj.Brightness != 1.0 {
		out = imaging.AdjustBrightness(out, toPercent(adj.Brightness))
	}
	if adj.Contrast > 0 && adj.Contrast != 1.0 {
		out = imaging.AdjustContrast(out, toPercent(adj.Contrast))
	}
	if adj.Saturation > 0 && adj.Saturation != 1.0 {
		out = imaging.AdjustSaturation(out, toPercent(adj.Saturation))
	}
	if adj.Sharpness > 0 {
		out = imaging.Sharpen(out, adj.Sharpness)
	}
	if adj.Grayscale {
		out = imaging.Grayscale(out)
	}
	return out
}

// toPercent maps a 1.0-neutral multiplier to the -100..100 percentage scale
// the imaging package uses.
func toPercent(v float64) float64 {
	p := (v - 1.0) * 100
	if p < -100 {
		p = -100
	}
	if p > 100 {
		p = 100
	}
	return p
}
