package refresh_test

import (
	"context"
	"testing"

	"github.com/inky-labs/inkypi-go/internal/config"
	"github.com/inky-labs/inkypi-go/internal/controller"
	"github.com/inky-labs/inkypi-go/internal/display"
	"github.com/inky-labs/inkypi-go/internal/events"
	"github.com/inky-labs/inkypi-go/internal/models"
	"github.com/inky-labs/inkypi-go/internal/plugins"
	"github.com/inky-labs/inkypi-go/internal/refresh"
)

func newScheduler(t *testing.T) (*refresh.Scheduler, *controller.Controller, *display.MockDriver) {
	t.Helper()
	ctrl, err := controller.New(config.NewMemStore(), events.NewBus())
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}
	reg := plugins.NewRegistry()
	reg.Register(plugins.NewClock())

	mock := display.NewMock(800, 480)
	sink := display.NewManager(mock, func() string { return ctrl.DeviceSettings().Orientation })

	return refresh.New(ctrl, reg, sink), ctrl, mock
}

func TestRefreshNowRendersAndRecords(t *testing.T) {
	s, ctrl, mock := newScheduler(t)

	if err := s.RefreshNow(context.Background(), "default-clock"); err != nil {
		t.Fatalf("RefreshNow: %v", err)
	}

	if mock.FrameCount() != 1 {
		t.Fatalf("frames = %d, want 1", mock.FrameCount())
	}
	info := ctrl.RefreshInfo()
	if info == nil {
		t.Fatal("refresh record missing after RefreshNow")
	}
	if info.PluginID != "default-clock" {
		t.Errorf("record plugin = %q, want default-clock", info.PluginID)
	}
	if info.ImageHash == "" {
		t.Error("record must carry the frame fingerprint")
	}
}

func TestRefreshNowUnknownInstance(t *testing.T) {
	s, _, mock := newScheduler(t)

	if err := s.RefreshNow(context.Background(), "ghost"); err == nil {
		t.Fatal("expected error for unknown instance")
	}
	if mock.FrameCount() != 0 {
		t.Error("failed refresh must not render")
	}
}

func TestRefreshNowUnknownPluginType(t *testing.T) {
	s, ctrl, mock := newScheduler(t)

	if _, aerr := ctrl.CreatePlugin(models.PluginInstance{ID: "w1", PluginID: "weather"}); aerr != nil {
		t.Fatalf("CreatePlugin: %v", aerr)
	}
	if err := s.RefreshNow(context.Background(), "w1"); err == nil {
		t.Fatal("expected error for unregistered plugin type")
	}
	if mock.FrameCount() != 0 {
		t.Error("failed refresh must not render")
	}
}

func TestRefreshNowAppliesPluginAdjustments(t *testing.T) {
	s, ctrl, mock := newScheduler(t)

	if _, aerr := ctrl.UpdatePlugin("default-clock", models.PluginInstance{
		Adjustments: models.ImageAdjustments{Brightness: 1.0, Contrast: 1.0, Saturation: 1.0, Grayscale: true},
	}); aerr != nil {
		t.Fatalf("UpdatePlugin: %v", aerr)
	}

	if err := s.RefreshNow(context.Background(), "default-clock"); err != nil {
		t.Fatalf("RefreshNow: %v", err)
	}
	if mock.FrameCount() != 1 {
		t.Fatalf("frames = %d, want 1", mock.FrameCount())
	}
	img := mock.LastRendered()
	b := img.Bounds()
	r, g, bl, _ := img.At(b.Min.X+10, b.Min.Y+10).RGBA()
	if r != g || g != bl {
		t.Errorf("grayscale frame has colored pixel %d/%d/%d", r>>8, g>>8, bl>>8)
	}
}
