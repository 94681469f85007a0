package plugins

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math/rand"
	"os"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"

	"github.com/inky-labs/inkypi-go/internal/models"
)

// Album shows photos from a self-hosted photo server. Button A fetches a
// fresh random photo; B, C and D are unassigned.
//
// Instance settings:
//
//	albumProvider    "immich" (the only provider today)
//	url              Immich base URL
//	album            album name
//	api_key          API key (falls back to the IMMICH_KEY env var)
//	padImage         "true" to pad instead of crop when aspect ratios differ
//	backgroundOption "blur" for a blurred-cover background, else a color name
//	backgroundColor  pad color when backgroundOption is not "blur"
type Album struct {
	// pick selects a random index; swapped out in tests.
	pick func(n int) int
}

// NewAlbum creates the album plugin.
func NewAlbum() *Album {
	return &Album{pick: rand.Intn}
}

func (a *Album) ID() string { return "album" }

// GenerateImage fetches a random photo from the configured album.
func (a *Album) GenerateImage(ctx context.Context, inst *models.PluginInstance, device models.DeviceSettings) (image.Image, error) {
	provider := inst.Settings["albumProvider"]
	if provider != "" && provider != "immich" {
		return nil, fmt.Errorf("album: unsupported provider %q", provider)
	}

	url := inst.Settings["url"]
	if url == "" {
		return nil, fmt.Errorf("album: url is required")
	}
	albumName := inst.Settings["album"]
	if albumName == "" {
		return nil, fmt.Errorf("album: album name is required")
	}
	key := inst.Settings["api_key"]
	if key == "" {
		key = os.Getenv("IMMICH_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("album: API key not configured")
	}

	client := newImmichClient(url, key)
	albumID, err := client.albumID(ctx, albumName)
	if err != nil {
		return nil, err
	}
	assets, err := client.assets(ctx, albumID)
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("album: no assets in album %q", albumName)
	}

	asset := assets[a.pick(len(assets))]
	slog.Info("album: selected asset", "album", albumName, "asset", asset.ID)

	img, err := client.download(ctx, asset.ID)
	if err != nil {
		return nil, err
	}

	w, h := TargetSize(device)
	if inst.Settings["padImage"] == "true" {
		if inst.Settings["backgroundOption"] == "blur" {
			return padBlur(img, w, h), nil
		}
		return padColor(img, w, h, inst.Settings["backgroundColor"]), nil
	}
	return imaging.Fit(img, w, h, imaging.Lanczos), nil
}

// HandleButton implements the front panel capability: A regenerates.
func (a *Album) HandleButton(ctx context.Context, label string, inst *models.PluginInstance, device models.DeviceSettings) (ButtonResult, error) {
	switch label {
	case "A":
		img, err := a.GenerateImage(ctx, inst, device)
		if err != nil {
			return ButtonResult{}, err
		}
		return ButtonResult{Image: img}, nil
	default:
		return ButtonResult{Message: fmt.Sprintf("button %s not assigned", label)}, nil
	}
}

// padBlur letterboxes the image over a blurred, zoomed copy of itself.
func padBlur(img image.Image, w, h int) image.Image {
	bg := imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos)
	blurred := blur.Gaussian(bg, 8.0)
	fg := imaging.Fit(img, w, h, imaging.Lanczos)
	return imaging.PasteCenter(blurred, fg)
}

// padColor letterboxes the image over a solid background.
func padColor(img image.Image, w, h int, name string) image.Image {
	bg := imaging.New(w, h, namedColor(name))
	fg := imaging.Fit(img, w, h, imaging.Lanczos)
	return imaging.PasteCenter(bg, fg)
}

// namedColor resolves the handful of background color names the web UI
// offers. Unknown names fall back to white, the panel's rest color.
func namedColor(name string) color.Color {
	switch name {
	case "black":
		return color.Black
	case "gray", "grey":
		return color.RGBA{0x80, 0x80, 0x80, 0xFF}
	case "", "white":
		return color.White
	default:
		return color.White
	}
}

var _ ButtonHandler = (*Album)(nil)
