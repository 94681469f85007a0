// Package display delivers rendered images to the e-paper panel. It applies
// per-plugin image adjustments, fits the image to the panel resolution and
// orientation, and hands the final frame to a Driver.
package display

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/inky-labs/inkypi-go/internal/models"
)

// Driver pushes a finished frame to a specific panel type.
type Driver interface {
	// Name identifies the driver ("epd", "framebuffer", "serial", "mock").
	Name() string

	// Size returns the panel resolution in its native orientation.
	Size() (width, height int)

	// Render pushes a frame to the panel. The frame is already sized to the
	// panel's native resolution.
	Render(img image.Image) error

	// Close releases the panel hardware.
	Close() error
}

// Manager owns the panel driver and the adjustment pipeline, and is where
// plugin-rendered frames get delivered. Safe for concurrent use; renders are
// serialized.
type Manager struct {
	mu          sync.Mutex
	driver      Driver
	orientation func() string // current device orientation
	last        image.Image   // last delivered frame, for /api/display
}

// NewManager creates a display manager on top of the given driver.
// orientation is polled at render time so configuration changes apply to the
// next frame without restart.
func NewManager(driver Driver, orientation func() string) *Manager {
	return &Manager{driver: driver, orientation: orientation}
}

// Resolution returns the panel size in the current orientation: width and
// height swap when the device is configured vertical.
func (m *Manager) Resolution() (int, int) {
	w, h := m.driver.Size()
	if m.orientation() == "vertical" {
		return h, w
	}
	return w, h
}

// Display applies the adjustments to img, fits it to the panel, and renders
// it. This is the only externally observable effect of a button press.
func (m *Manager) Display(img image.Image, adj models.ImageAdjustments) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := Adjust(img, adj)

	w, h := m.driver.Size()
	if m.orientation() == "vertical" {
		// Content is generated in the rotated frame; rotate back to the
		// panel's native orientation for the driver.
		out = imaging.Rotate90(out)
	}
	out = fit(out, w, h)

	if err := m.driver.Render(out); err != nil {
		return fmt.Errorf("display: render failed: %w", err)
	}
	m.last = out
	slog.Debug("display: frame delivered", "driver", m.driver.Name(), "w", w, "h", h)
	return nil
}

// Fingerprint computes the content hash of an image. Method form of the
// package-level Fingerprint so the manager satisfies the display sink
// contract the button handler consumes.
func (m *Manager) Fingerprint(img image.Image) string {
	return Fingerprint(img)
}

// LastFrame returns the most recently delivered frame, or nil.
func (m *Manager) LastFrame() image.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Close releases the underlying driver.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.driver.Close()
}

// fit scales img to fill w x h, padding with white when the aspect ratios
// differ. E-paper panels are white at rest so white padding is invisible.
func fit(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	fitted := imaging.Fit(img, w, h, imaging.Lanczos)
	bg := imaging.New(w, h, color.White)
	return imaging.PasteCenter(bg, fitted)
}

// Fingerprint computes the content hash of an image: SHA-256 over the
// dimensions and raw RGBA pixels. Stable across encodings, so the same
// frame always produces the same refresh-info hash.
func Fingerprint(img image.Image) string {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*b.Dx() {
		tmp := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(tmp, tmp.Bounds(), img, b.Min, draw.Src)
		rgba = tmp
	}
	h := sha256.New()
	var dims [8]byte
	binary.BigEndian.PutUint32(dims[0:4], uint32(b.Dx()))
	binary.BigEndian.PutUint32(dims[4:8], uint32(b.Dy()))
	h.Write(dims[:])
	h.Write(rgba.Pix)
	return hex.EncodeToString(h.Sum(nil))
}
