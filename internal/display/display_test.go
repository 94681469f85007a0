package display_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/inky-labs/inkypi-go/internal/display"
	"github.com/inky-labs/inkypi-go/internal/models"
)

func horizontal() string { return "horizontal" }
func vertical() string   { return "vertical" }

func solid(w, h int, c color.Color) image.Image {
	return imaging.New(w, h, c)
}

func TestDisplayRendersAtPanelSize(t *testing.T) {
	mock := display.NewMock(800, 480)
	m := display.NewManager(mock, horizontal)

	img := solid(400, 300, color.White)
	if err := m.Display(img, models.DefaultAdjustments()); err != nil {
		t.Fatalf("Display: %v", err)
	}

	if mock.FrameCount() != 1 {
		t.Fatalf("frames = %d, want 1", mock.FrameCount())
	}
	b := mock.LastRendered().Bounds()
	if b.Dx() != 800 || b.Dy() != 480 {
		t.Errorf("rendered %dx%d, want 800x480", b.Dx(), b.Dy())
	}
}

func TestDisplayVerticalRotatesToNative(t *testing.T) {
	mock := display.NewMock(800, 480)
	m := display.NewManager(mock, vertical)

	w, h := m.Resolution()
	if w != 480 || h != 800 {
		t.Fatalf("Resolution = %dx%d, want 480x800 in vertical orientation", w, h)
	}

	// Content is generated at the rotated resolution; the driver still
	// receives a native-orientation frame.
	if err := m.Display(solid(480, 800, color.White), models.DefaultAdjustments()); err != nil {
		t.Fatalf("Display: %v", err)
	}
	b := mock.LastRendered().Bounds()
	if b.Dx() != 800 || b.Dy() != 480 {
		t.Errorf("rendered %dx%d, want native 800x480", b.Dx(), b.Dy())
	}
}

func TestDisplayRenderErrorPropagates(t *testing.T) {
	mock := display.NewMock(100, 60)
	m := display.NewManager(mock, horizontal)

	mock.FailNextRender()
	if err := m.Display(solid(10, 10, color.White), models.DefaultAdjustments()); err == nil {
		t.Fatal("expected render error")
	}
	if m.LastFrame() != nil {
		t.Error("failed render must not update the last frame")
	}

	// The next render succeeds and records the frame.
	if err := m.Display(solid(10, 10, color.White), models.DefaultAdjustments()); err != nil {
		t.Fatalf("Display: %v", err)
	}
	if m.LastFrame() == nil {
		t.Error("successful render must record the frame")
	}
}

func TestAdjustNeutralValuesLeaveImageAlone(t *testing.T) {
	img := solid(20, 20, color.RGBA{200, 100, 50, 255})

	out := display.Adjust(img, models.DefaultAdjustments())
	if display.Fingerprint(out) != display.Fingerprint(img) {
		t.Error("neutral adjustments must not change the image")
	}

	// A zero-value adjustments struct from an old config file is also
	// neutral, never a black frame.
	out = display.Adjust(img, models.ImageAdjustments{})
	if display.Fingerprint(out) != display.Fingerprint(img) {
		t.Error("zero-value adjustments must not change the image")
	}
}

func TestAdjustBrightnessChangesImage(t *testing.T) {
	img := solid(20, 20, color.RGBA{100, 100, 100, 255})

	out := display.Adjust(img, models.ImageAdjustments{Brightness: 1.5, Contrast: 1.0, Saturation: 1.0})
	if display.Fingerprint(out) == display.Fingerprint(img) {
		t.Error("brightness 1.5 must brighten the image")
	}
}

func TestAdjustGrayscale(t *testing.T) {
	img := solid(4, 4, color.RGBA{255, 0, 0, 255})

	out := display.Adjust(img, models.ImageAdjustments{Brightness: 1.0, Contrast: 1.0, Saturation: 1.0, Grayscale: true})
	r, g, b, _ := out.At(1, 1).RGBA()
	if r != g || g != b {
		t.Errorf("grayscale pixel has channels %d/%d/%d", r>>8, g>>8, b>>8)
	}
}

func TestFingerprintStableAndEncodingIndependent(t *testing.T) {
	a := solid(10, 10, color.RGBA{10, 20, 30, 255})
	b := solid(10, 10, color.RGBA{10, 20, 30, 255})
	c := solid(10, 10, color.RGBA{10, 20, 31, 255})

	if display.Fingerprint(a) != display.Fingerprint(b) {
		t.Error("identical content must fingerprint identically")
	}
	if display.Fingerprint(a) == display.Fingerprint(c) {
		t.Error("different content must fingerprint differently")
	}

	// Same pixels in a different in-memory representation.
	nrgba := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			nrgba.Set(x, y, color.RGBA{10, 20, 30, 255})
		}
	}
	if display.Fingerprint(a) != display.Fingerprint(nrgba) {
		t.Error("fingerprint must depend on content, not representation")
	}
}

func TestFingerprintIncludesDimensions(t *testing.T) {
	a := solid(10, 20, color.White)
	b := solid(20, 10, color.White)
	if display.Fingerprint(a) == display.Fingerprint(b) {
		t.Error("same pixels at different dimensions must differ")
	}
}

func TestCloseClosesDriver(t *testing.T) {
	mock := display.NewMock(100, 60)
	m := display.NewManager(mock, horizontal)
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !mock.Closed() {
		t.Error("Close must reach the driver")
	}
}
