package controller_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/inky-labs/inkypi-go/internal/config"
	"github.com/inky-labs/inkypi-go/internal/controller"
	"github.com/inky-labs/inkypi-go/internal/events"
	"github.com/inky-labs/inkypi-go/internal/models"
)

func newController(t *testing.T) (*controller.Controller, *config.MemStore, *events.Bus) {
	t.Helper()
	store := config.NewMemStore()
	bus := events.NewBus()
	ctrl, err := controller.New(store, bus)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ctrl, store, bus
}

func waitEvent(t *testing.T, ch <-chan models.State) models.State {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(time.Second):
		t.Fatal("no state event published")
		return models.State{}
	}
}

func TestStateReturnsIndependentCopy(t *testing.T) {
	ctrl, _, _ := newController(t)

	s := ctrl.State()
	s.Device.Name = "mutated"
	s.Plugins[0].Name = "mutated"

	if got := ctrl.State(); got.Device.Name == "mutated" || got.Plugins[0].Name == "mutated" {
		t.Error("State must return a deep copy")
	}
}

func TestPluginConfigMatchesInstanceAndTypeID(t *testing.T) {
	ctrl, _, _ := newController(t)

	if p := ctrl.PluginConfig("default-clock"); p == nil || p.PluginID != "clock" {
		t.Errorf("lookup by instance ID failed: %+v", p)
	}
	if p := ctrl.PluginConfig("clock"); p == nil || p.ID != "default-clock" {
		t.Errorf("lookup by plugin type ID failed: %+v", p)
	}
	if p := ctrl.PluginConfig("nope"); p != nil {
		t.Errorf("unknown ID must return nil, got %+v", p)
	}
}

func TestSetImageHashPersistsAndPublishes(t *testing.T) {
	ctrl, store, bus := newController(t)
	sub := bus.Subscribe("test")
	defer bus.Unsubscribe("test")

	ctrl.SetImageHash("default-clock", "deadbeef")

	info := ctrl.RefreshInfo()
	if info == nil {
		t.Fatal("refresh record missing after SetImageHash")
	}
	if info.PluginID != "default-clock" || info.ImageHash != "deadbeef" {
		t.Errorf("refresh = %+v", info)
	}
	if info.RefreshTime == "" {
		t.Error("refresh time not recorded")
	}
	if _, err := time.Parse(time.RFC3339, info.RefreshTime); err != nil {
		t.Errorf("refresh time %q is not RFC 3339: %v", info.RefreshTime, err)
	}

	if store.SaveCount() != 1 {
		t.Errorf("SaveCount = %d, want 1", store.SaveCount())
	}
	got := waitEvent(t, sub)
	if got.Refresh == nil || got.Refresh.ImageHash != "deadbeef" {
		t.Errorf("published state refresh = %+v", got.Refresh)
	}
}

func TestSetDisplayedReplacesRefreshRecord(t *testing.T) {
	ctrl, _, _ := newController(t)

	ctrl.SetImageHash("default-clock", "old")
	ctrl.SetDisplayed("other-instance", "new")

	info := ctrl.RefreshInfo()
	if info == nil || info.PluginID != "other-instance" || info.ImageHash != "new" {
		t.Errorf("refresh = %+v, want other-instance/new", info)
	}
}

func TestRefreshInfoCopyIsIndependent(t *testing.T) {
	ctrl, _, _ := newController(t)
	ctrl.SetImageHash("default-clock", "h1")

	info := ctrl.RefreshInfo()
	info.ImageHash = "tampered"

	if got := ctrl.RefreshInfo(); got.ImageHash != "h1" {
		t.Error("RefreshInfo must return a copy")
	}
}

func TestCreateUpdateDeletePlugin(t *testing.T) {
	ctrl, _, _ := newController(t)

	state, aerr := ctrl.CreatePlugin(models.PluginInstance{
		PluginID: "album",
		Name:     "Holiday photos",
		Settings: map[string]string{"album": "holiday"},
	})
	if aerr != nil {
		t.Fatalf("CreatePlugin: %v", aerr)
	}
	if len(state.Plugins) != 2 {
		t.Fatalf("plugins = %d, want 2", len(state.Plugins))
	}
	id := state.Plugins[1].ID
	if id == "" {
		t.Fatal("CreatePlugin must assign an instance ID")
	}

	if _, aerr := ctrl.UpdatePlugin(id, models.PluginInstance{
		Settings:    map[string]string{"album": "winter"},
		Adjustments: models.ImageAdjustments{Brightness: 1.2, Contrast: 1.0, Saturation: 1.0},
	}); aerr != nil {
		t.Fatalf("UpdatePlugin: %v", aerr)
	}
	p, aerr := ctrl.GetPlugin(id)
	if aerr != nil {
		t.Fatalf("GetPlugin: %v", aerr)
	}
	if p.Settings["album"] != "winter" || p.Adjustments.Brightness != 1.2 {
		t.Errorf("updated instance = %+v", p)
	}

	if _, aerr := ctrl.DeletePlugin(id); aerr != nil {
		t.Fatalf("DeletePlugin: %v", aerr)
	}
	if _, aerr := ctrl.GetPlugin(id); aerr == nil || aerr.Status != http.StatusNotFound {
		t.Errorf("GetPlugin after delete = %v, want 404", aerr)
	}
}

func TestCreatePluginRequiresType(t *testing.T) {
	ctrl, _, _ := newController(t)
	if _, aerr := ctrl.CreatePlugin(models.PluginInstance{}); aerr == nil || aerr.Status != http.StatusBadRequest {
		t.Errorf("CreatePlugin without plugin_id = %v, want 400", aerr)
	}
}

func TestCreatePluginDuplicateID(t *testing.T) {
	ctrl, _, _ := newController(t)
	if _, aerr := ctrl.CreatePlugin(models.PluginInstance{ID: "default-clock", PluginID: "clock"}); aerr == nil || aerr.Status != http.StatusConflict {
		t.Errorf("duplicate create = %v, want 409", aerr)
	}
}

func TestDeletePluginClearsRefreshRecord(t *testing.T) {
	ctrl, _, _ := newController(t)
	ctrl.SetImageHash("default-clock", "h1")

	if _, aerr := ctrl.DeletePlugin("default-clock"); aerr != nil {
		t.Fatalf("DeletePlugin: %v", aerr)
	}
	if info := ctrl.RefreshInfo(); info != nil {
		t.Errorf("refresh record must be cleared with its instance, got %+v", info)
	}
}

func TestUpdateSettingsPartialAndValidation(t *testing.T) {
	ctrl, _, _ := newController(t)

	state, aerr := ctrl.UpdateSettings(models.DeviceSettings{Orientation: "vertical", Name: "hall"})
	if aerr != nil {
		t.Fatalf("UpdateSettings: %v", aerr)
	}
	if state.Device.Orientation != "vertical" || state.Device.Name != "hall" {
		t.Errorf("device = %+v", state.Device)
	}
	// Fields left zero are untouched.
	if state.Device.Width != 800 || state.Device.RefreshInterval != 3600 {
		t.Errorf("partial update clobbered other fields: %+v", state.Device)
	}

	if _, aerr := ctrl.UpdateSettings(models.DeviceSettings{Orientation: "diagonal"}); aerr == nil || aerr.Status != http.StatusBadRequest {
		t.Errorf("bad orientation = %v, want 400", aerr)
	}
}

func TestFailedApplyLeavesStateUntouched(t *testing.T) {
	ctrl, store, _ := newController(t)

	before := store.SaveCount()
	if _, aerr := ctrl.DeletePlugin("missing"); aerr == nil {
		t.Fatal("expected error")
	}
	if store.SaveCount() != before {
		t.Error("failed mutation must not persist")
	}
	if len(ctrl.State().Plugins) != 1 {
		t.Error("failed mutation must not change state")
	}
}

func TestReplaceStatePublishesWithoutSaving(t *testing.T) {
	ctrl, store, bus := newController(t)
	sub := bus.Subscribe("test")
	defer bus.Unsubscribe("test")

	next := models.DefaultState()
	next.Device.Name = "from-disk"
	ctrl.ReplaceState(&next)

	got := waitEvent(t, sub)
	if got.Device.Name != "from-disk" {
		t.Errorf("published name = %q", got.Device.Name)
	}
	if store.SaveCount() != 0 {
		t.Error("ReplaceState must not save (would loop through the file watcher)")
	}
	if ctrl.DeviceSettings().Name != "from-disk" {
		t.Error("ReplaceState must swap the live state")
	}
}
