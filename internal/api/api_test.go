package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/inky-labs/inkypi-go/internal/api"
	"github.com/inky-labs/inkypi-go/internal/buttons"
	"github.com/inky-labs/inkypi-go/internal/config"
	"github.com/inky-labs/inkypi-go/internal/controller"
	"github.com/inky-labs/inkypi-go/internal/events"
	"github.com/inky-labs/inkypi-go/internal/models"
)

type fakeButtons struct {
	pressed []string
	err     error
}

func (f *fakeButtons) Simulate(label string) error {
	if f.err != nil {
		return f.err
	}
	f.pressed = append(f.pressed, label)
	return nil
}

type fakeRefresher struct {
	refreshed []string
	err       error
}

func (f *fakeRefresher) RefreshNow(ctx context.Context, instanceID string) error {
	if f.err != nil {
		return f.err
	}
	f.refreshed = append(f.refreshed, instanceID)
	return nil
}

type fakeDisplay struct {
	frame image.Image
}

func (f *fakeDisplay) LastFrame() image.Image { return f.frame }

type fakePower struct {
	shutdowns, reboots int
	err                error
}

func (f *fakePower) Shutdown() error {
	if f.err != nil {
		return f.err
	}
	f.shutdowns++
	return nil
}

func (f *fakePower) Reboot() error {
	if f.err != nil {
		return f.err
	}
	f.reboots++
	return nil
}

type fixture struct {
	ctrl    *controller.Controller
	bus     *events.Bus
	buttons *fakeButtons
	refresh *fakeRefresher
	display *fakeDisplay
	power   *fakePower
	srv     *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bus := events.NewBus()
	ctrl, err := controller.New(config.NewMemStore(), bus)
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}
	f := &fixture{
		ctrl:    ctrl,
		bus:     bus,
		buttons: &fakeButtons{},
		refresh: &fakeRefresher{},
		display: &fakeDisplay{},
		power:   &fakePower{},
	}
	router := api.NewRouter(ctrl, f.buttons, f.refresh, f.display, bus, f.power)
	f.srv = httptest.NewServer(router)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rdr = bytes.NewReader(data)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rdr)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestGetState(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	state := decode[models.State](t, resp)
	if state.Device.Name != "InkyPi" {
		t.Errorf("device name = %q", state.Device.Name)
	}
	if len(state.Plugins) != 1 {
		t.Errorf("plugins = %d, want 1", len(state.Plugins))
	}
}

func TestPatchSettings(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPatch, "/api/settings", map[string]any{"name": "kitchen", "orientation": "vertical"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	state := decode[models.State](t, resp)
	if state.Device.Name != "kitchen" || state.Device.Orientation != "vertical" {
		t.Errorf("device = %+v", state.Device)
	}
}

func TestPatchSettingsRejectsBadOrientation(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPatch, "/api/settings", map[string]any{"orientation": "upside-down"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	appErr := decode[models.AppError](t, resp)
	if appErr.Code != "BAD_REQUEST" {
		t.Errorf("error code = %q", appErr.Code)
	}
}

func TestPluginCRUDOverHTTP(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/plugins", map[string]any{
		"plugin_id": "album",
		"name":      "Photos",
		"settings":  map[string]string{"album": "frame"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	state := decode[models.State](t, resp)
	if len(state.Plugins) != 2 {
		t.Fatalf("plugins = %d, want 2", len(state.Plugins))
	}
	id := state.Plugins[1].ID

	resp = f.do(t, http.MethodGet, "/api/plugins/"+id, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	inst := decode[models.PluginInstance](t, resp)
	if inst.Settings["album"] != "frame" {
		t.Errorf("instance = %+v", inst)
	}

	resp = f.do(t, http.MethodPatch, "/api/plugins/"+id, map[string]any{
		"settings": map[string]string{"album": "vacation"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodDelete, "/api/plugins/"+id, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodGet, "/api/plugins/"+id, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestDisplayPluginTriggersRefresh(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/plugins/default-clock/display", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(f.refresh.refreshed) != 1 || f.refresh.refreshed[0] != "default-clock" {
		t.Errorf("refreshed = %v", f.refresh.refreshed)
	}
}

func TestPressButton(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/buttons/A/press", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	body := decode[map[string]string](t, resp)
	if body["button"] != "A" || body["status"] != "pressed" {
		t.Errorf("body = %v", body)
	}
	if len(f.buttons.pressed) != 1 || f.buttons.pressed[0] != "A" {
		t.Errorf("pressed = %v", f.buttons.pressed)
	}
}

func TestPressButtonUnknownLabel(t *testing.T) {
	f := newFixture(t)
	f.buttons.err = buttons.ErrUnknownLabel

	resp := f.do(t, http.MethodPost, "/api/buttons/Z/press", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPressButtonInternalError(t *testing.T) {
	f := newFixture(t)
	f.buttons.err = errors.New("gpio gone")

	resp := f.do(t, http.MethodPost, "/api/buttons/A/press", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestGetDisplayServesPNG(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/display", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status with no frame = %d, want 404", resp.StatusCode)
	}

	frame := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for i := range frame.Pix {
		frame.Pix[i] = 0xFF
	}
	f.display.frame = frame

	resp = f.do(t, http.MethodGet, "/api/display", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 4 {
		t.Errorf("frame %dx%d, want 8x4", b.Dx(), b.Dy())
	}
	r, _, _, _ := img.At(0, 0).RGBA()
	if r != 0xFFFF {
		t.Errorf("pixel = %d, want white", r)
	}
}

func TestSystemPower(t *testing.T) {
	f := newFixture(t)

	if resp := f.do(t, http.MethodPost, "/api/system/shutdown", nil); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("shutdown status = %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodPost, "/api/system/reboot", nil); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("reboot status = %d", resp.StatusCode)
	}
	if f.power.shutdowns != 1 || f.power.reboots != 1 {
		t.Errorf("power calls = %d/%d", f.power.shutdowns, f.power.reboots)
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodOptions, f.srv.URL+"/api/settings", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS origin header")
	}
}

func TestSSEStreamsInitialStateAndUpdates(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/api/subscribe", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readEvent := func() models.State {
		t.Helper()
		named := false
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read SSE stream: %v", err)
			}
			if strings.TrimSpace(line) == "event: state" {
				named = true
				continue
			}
			if strings.HasPrefix(line, "data: ") {
				if !named {
					t.Fatal("data frame without a preceding \"event: state\" name")
				}
				var s models.State
				if err := json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &s); err != nil {
					t.Fatalf("decode SSE payload: %v", err)
				}
				return s
			}
		}
	}

	if s := readEvent(); s.Device.Name != "InkyPi" {
		t.Errorf("initial snapshot name = %q", s.Device.Name)
	}

	// A state change is streamed live.
	if _, aerr := f.ctrl.UpdateSettings(models.DeviceSettings{Name: "studio"}); aerr != nil {
		t.Fatalf("UpdateSettings: %v", aerr)
	}
	if s := readEvent(); s.Device.Name != "studio" {
		t.Errorf("streamed snapshot name = %q", s.Device.Name)
	}
}
