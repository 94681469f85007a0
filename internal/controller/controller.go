// Package controller implements the InkyPi state machine — the single source
// of truth for device settings, configured plugin instances, and the record
// of what is currently on the panel.
package controller

import (
	"sync"
	"time"

	"github.com/inky-labs/inkypi-go/internal/config"
	"github.com/inky-labs/inkypi-go/internal/events"
	"github.com/inky-labs/inkypi-go/internal/models"
)

// Controller is the central state machine. All state mutations go through
// the apply() method which ensures atomicity, persistence, and event
// publishing.
type Controller struct {
	mu    sync.RWMutex
	state models.State
	store config.Store
	bus   *events.Bus
}

// New creates a Controller, loading state from the store.
func New(store config.Store, bus *events.Bus) (*Controller, error) {
	state, err := store.Load()
	if err != nil {
		return nil, err
	}

	return &Controller{
		state: *state,
		store: store,
		bus:   bus,
	}, nil
}

// State returns a deep copy of the current device state.
func (c *Controller) State() models.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.DeepCopy()
}

// ReplaceState swaps in an externally loaded state (config file edited on
// disk). The new state is published but not saved back, to avoid a reload
// feedback loop through the file watcher.
func (c *Controller) ReplaceState(state *models.State) {
	c.mu.Lock()
	c.state = state.DeepCopy()
	snap := c.state.DeepCopy()
	c.mu.Unlock()
	c.bus.Publish(snap)
}

// apply is the core mutation primitive. It:
//  1. Acquires the write lock
//  2. Makes a deep copy of current state
//  3. Calls fn to modify the copy (fn may return an error to abort)
//  4. If fn succeeds: updates state, schedules save, publishes event
func (c *Controller) apply(fn func(*models.State) error) (models.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.state.DeepCopy()
	if err := fn(&next); err != nil {
		return models.State{}, err
	}

	c.state = next
	_ = c.store.Save(&c.state) // debounced, async
	c.bus.Publish(c.state)
	return c.state, nil
}

// RefreshInfo returns a copy of the current refresh record, or nil when
// nothing has been displayed yet.
func (c *Controller) RefreshInfo() *models.RefreshInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state.Refresh == nil {
		return nil
	}
	r := *c.state.Refresh
	return &r
}

// PluginConfig returns a copy of the plugin instance identified by id, or
// nil if no such instance is configured. The id may be either the instance
// ID (as stored in RefreshInfo) or a plugin type ID, for compatibility with
// configs written by the Python implementation.
func (c *Controller) PluginConfig(id string) *models.PluginInstance {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.state.Plugins {
		if c.state.Plugins[i].ID == id || c.state.Plugins[i].PluginID == id {
			cp := c.state.Plugins[i]
			if cp.Settings != nil {
				s := make(map[string]string, len(cp.Settings))
				for k, v := range cp.Settings {
					s[k] = v
				}
				cp.Settings = s
			}
			return &cp
		}
	}
	return nil
}

// DeviceSettings returns the current panel-wide settings.
func (c *Controller) DeviceSettings() models.DeviceSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Device
}

// SetImageHash records the content hash of the image just delivered to the
// panel for the given plugin and persists the state. Called by the button
// dispatch path after a display update.
func (c *Controller) SetImageHash(pluginID, hash string) {
	_, _ = c.apply(func(s *models.State) error {
		if s.Refresh == nil || s.Refresh.PluginID != pluginID {
			s.Refresh = &models.RefreshInfo{PluginID: pluginID}
		}
		s.Refresh.ImageHash = hash
		s.Refresh.RefreshTime = time.Now().Format(time.RFC3339)
		return nil
	})
}

// SetDisplayed records that the given plugin instance now owns the panel,
// with the content hash of the delivered image.
func (c *Controller) SetDisplayed(pluginID, hash string) {
	_, _ = c.apply(func(s *models.State) error {
		s.Refresh = &models.RefreshInfo{
			PluginID:    pluginID,
			ImageHash:   hash,
			RefreshTime: time.Now().Format(time.RFC3339),
		}
		return nil
	})
}

// SetInfo updates the read-only daemon info block (set once at startup).
func (c *Controller) SetInfo(info models.Info) {
	c.mu.Lock()
	c.state.Info = info
	c.mu.Unlock()
}

// Info returns the daemon info block.
func (c *Controller) Info() models.Info {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Info
}
