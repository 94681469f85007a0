package display

import (
	"image"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// acepPalette is the 7-color ACeP gamut of the Inky Impression panels, in
// the index order the controller firmware expects.
var acepPalette = []color.RGBA{
	{0x00, 0x00, 0x00, 0xFF}, // black
	{0xFF, 0xFF, 0xFF, 0xFF}, // white
	{0x00, 0x80, 0x00, 0xFF}, // green
	{0x00, 0x00, 0xFF, 0xFF}, // blue
	{0xFF, 0x00, 0x00, 0xFF}, // red
	{0xFF, 0xFF, 0x00, 0xFF}, // yellow
	{0xFF, 0x80, 0x00, 0xFF}, // orange
}

// quantize maps every pixel of img to the nearest palette entry using CIE
// Lab distance, which tracks perceived color far better than RGB distance
// on the saturated ACeP primaries. Returns one palette index per pixel in
// row-major order.
func quantize(img image.Image) []uint8 {
	lab := make([]colorful.Color, len(acepPalette))
	for i, c := range acepPalette {
		lab[i], _ = colorful.MakeColor(c)
	}

	b := img.Bounds()
	out := make([]uint8, b.Dx()*b.Dy())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				// Fully transparent pixel: panel rest state is white.
				out[i] = 1
				i++
				continue
			}
			best := 0
			bestDist := px.DistanceLab(lab[0])
			for j := 1; j < len(lab); j++ {
				if d := px.DistanceLab(lab[j]); d < bestDist {
					best, bestDist = j, d
				}
			}
			out[i] = uint8(best)
			i++
		}
	}
	return out
}
