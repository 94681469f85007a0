package plugins

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/inky-labs/inkypi-go/internal/models"
)

// Clock renders the current time and date. It has no button capability:
// pressing a front panel button while a clock is displayed does nothing.
type Clock struct{}

// NewClock creates the clock plugin.
func NewClock() *Clock { return &Clock{} }

func (c *Clock) ID() string { return "clock" }

// GenerateImage draws HH:MM and the date centered on a white background.
// basicfont is tiny, so the text is drawn on a small canvas and upscaled
// with nearest-neighbor for a deliberately chunky look that suits e-paper.
func (c *Clock) GenerateImage(ctx context.Context, inst *models.PluginInstance, device models.DeviceSettings) (image.Image, error) {
	loc, err := time.LoadLocation(device.TimeZone)
	if err != nil {
		slog.Warn("clock: invalid timezone, using UTC", "timezone", device.TimeZone, "err", err)
		loc = time.UTC
	}
	now := time.Now().In(loc)

	timeStr := now.Format("15:04")
	dateStr := now.Format("Mon Jan 2")

	face := basicfont.Face7x13
	// Canvas sized to the wider of the two lines plus a margin.
	wTime := font.MeasureString(face, timeStr).Ceil()
	wDate := font.MeasureString(face, dateStr).Ceil()
	cw := wTime
	if wDate > cw {
		cw = wDate
	}
	cw += 8
	ch := 36

	canvas := image.NewRGBA(image.Rect(0, 0, cw, ch))
	for i := range canvas.Pix {
		canvas.Pix[i] = 0xFF // white
	}
	drawString(canvas, timeStr, (cw-wTime)/2, 14, color.Black)
	drawString(canvas, dateStr, (cw-wDate)/2, 30, color.Black)

	w, h := TargetSize(device)
	scaled := imaging.Resize(canvas, 0, h*2/3, imaging.NearestNeighbor)
	bg := imaging.New(w, h, color.White)
	return imaging.PasteCenter(bg, scaled), nil
}

// drawString renders s at (x, y baseline) with basicfont.
func drawString(dst *image.RGBA, s string, x, y int, col color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
