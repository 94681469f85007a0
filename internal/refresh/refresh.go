// Package refresh runs the scheduled plugin regeneration loop: at the
// configured interval the active plugin re-renders and the panel is
// updated, independent of button presses.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/inky-labs/inkypi-go/internal/controller"
	"github.com/inky-labs/inkypi-go/internal/display"
	"github.com/inky-labs/inkypi-go/internal/plugins"
)

// checkInterval is how often the loop re-evaluates whether a refresh is
// due; the actual period comes from the device settings so edits apply
// without restart.
const checkInterval = 30 * time.Second

// Scheduler drives the periodic refresh.
type Scheduler struct {
	ctrl     *controller.Controller
	registry *plugins.Registry
	sink     *display.Manager

	mu          sync.Mutex
	lastRefresh time.Time
}

// New creates a Scheduler.
func New(ctrl *controller.Controller, registry *plugins.Registry, sink *display.Manager) *Scheduler {
	return &Scheduler{ctrl: ctrl, registry: registry, sink: sink}
}

// Start runs the refresh loop until ctx is cancelled. An immediate first
// refresh paints the panel at boot.
func (s *Scheduler) Start(ctx context.Context) {
	if err := s.refreshActive(ctx); err != nil {
		slog.Warn("refresh: initial refresh failed", "err", err)
	}

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			interval := s.ctrl.DeviceSettings().RefreshInterval
			if interval <= 0 {
				continue
			}
			s.mu.Lock()
			due := time.Since(s.lastRefresh) >= time.Duration(interval)*time.Second
			s.mu.Unlock()
			if !due {
				continue
			}
			if err := s.refreshActive(ctx); err != nil {
				slog.Error("refresh: scheduled refresh failed", "err", err)
			}
		}
	}
}

// refreshActive re-renders whatever plugin currently owns the panel, or
// the first configured instance when nothing has been displayed yet.
func (s *Scheduler) refreshActive(ctx context.Context) error {
	id := ""
	if info := s.ctrl.RefreshInfo(); info != nil {
		id = info.PluginID
	}
	if id == "" {
		state := s.ctrl.State()
		if len(state.Plugins) == 0 {
			return nil
		}
		id = state.Plugins[0].ID
	}
	return s.RefreshNow(ctx, id)
}

// RefreshNow generates and displays a fresh frame for the given plugin
// instance immediately. Also used by the API's "display this plugin"
// endpoint.
func (s *Scheduler) RefreshNow(ctx context.Context, instanceID string) error {
	inst := s.ctrl.PluginConfig(instanceID)
	if inst == nil {
		return fmt.Errorf("refresh: no plugin instance %q", instanceID)
	}
	plugin, ok := s.registry.Get(inst.PluginID)
	if !ok {
		return fmt.Errorf("refresh: unknown plugin type %q", inst.PluginID)
	}

	started := time.Now()
	img, err := plugin.GenerateImage(ctx, inst, s.ctrl.DeviceSettings())
	if err != nil {
		return fmt.Errorf("refresh: generate %q: %w", inst.PluginID, err)
	}
	if err := s.sink.Display(img, inst.Adjustments); err != nil {
		return fmt.Errorf("refresh: display %q: %w", inst.PluginID, err)
	}

	s.ctrl.SetDisplayed(inst.ID, display.Fingerprint(img))
	s.mu.Lock()
	s.lastRefresh = time.Now()
	s.mu.Unlock()
	slog.Info("refresh: panel updated", "plugin", inst.PluginID, "instance", inst.ID, "took", time.Since(started))
	return nil
}
