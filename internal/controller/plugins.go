package controller

import (
	"github.com/google/uuid"

	"github.com/inky-labs/inkypi-go/internal/models"
)

// GetPlugins returns the configured plugin instances.
func (c *Controller) GetPlugins() []models.PluginInstance {
	return c.State().Plugins
}

// GetPlugin returns the plugin instance with the given ID.
func (c *Controller) GetPlugin(id string) (*models.PluginInstance, *models.AppError) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p := models.FindPlugin(&c.state, id)
	if p == nil {
		return nil, models.ErrNotFound("plugin instance not found")
	}
	cp := *p
	return &cp, nil
}

// CreatePlugin adds a new plugin instance. An empty ID is filled with a
// fresh UUID.
func (c *Controller) CreatePlugin(inst models.PluginInstance) (models.State, *models.AppError) {
	if inst.PluginID == "" {
		return models.State{}, models.ErrBadRequest("plugin_id is required")
	}
	if inst.ID == "" {
		inst.ID = uuid.New().String()
	}
	state, err := c.apply(func(s *models.State) error {
		if models.FindPlugin(s, inst.ID) != nil {
			return models.ErrConflict("plugin instance ID already exists")
		}
		s.Plugins = append(s.Plugins, inst)
		return nil
	})
	if err != nil {
		return models.State{}, asAppError(err)
	}
	return state, nil
}

// UpdatePlugin replaces the settings and adjustments of an existing instance.
func (c *Controller) UpdatePlugin(id string, upd models.PluginInstance) (models.State, *models.AppError) {
	state, err := c.apply(func(s *models.State) error {
		p := models.FindPlugin(s, id)
		if p == nil {
			return models.ErrNotFound("plugin instance not found")
		}
		if upd.Name != "" {
			p.Name = upd.Name
		}
		if upd.Settings != nil {
			p.Settings = upd.Settings
		}
		p.Adjustments = upd.Adjustments
		return nil
	})
	if err != nil {
		return models.State{}, asAppError(err)
	}
	return state, nil
}

// DeletePlugin removes a plugin instance. The refresh record is cleared if
// it pointed at the removed instance.
func (c *Controller) DeletePlugin(id string) (models.State, *models.AppError) {
	state, err := c.apply(func(s *models.State) error {
		for i := range s.Plugins {
			if s.Plugins[i].ID == id {
				s.Plugins = append(s.Plugins[:i], s.Plugins[i+1:]...)
				if s.Refresh != nil && s.Refresh.PluginID == id {
					s.Refresh = nil
				}
				return nil
			}
		}
		return models.ErrNotFound("plugin instance not found")
	})
	if err != nil {
		return models.State{}, asAppError(err)
	}
	return state, nil
}

// UpdateSettings applies a partial update to the device settings.
func (c *Controller) UpdateSettings(upd models.DeviceSettings) (models.State, *models.AppError) {
	if upd.Orientation != "" && upd.Orientation != "horizontal" && upd.Orientation != "vertical" {
		return models.State{}, models.ErrBadRequest("orientation must be horizontal or vertical")
	}
	state, err := c.apply(func(s *models.State) error {
		if upd.Name != "" {
			s.Device.Name = upd.Name
		}
		if upd.Orientation != "" {
			s.Device.Orientation = upd.Orientation
		}
		if upd.TimeZone != "" {
			s.Device.TimeZone = upd.TimeZone
		}
		if upd.RefreshInterval != 0 {
			s.Device.RefreshInterval = upd.RefreshInterval
		}
		return nil
	})
	if err != nil {
		return models.State{}, asAppError(err)
	}
	return state, nil
}

func asAppError(err error) *models.AppError {
	if ae, ok := err.(*models.AppError); ok {
		return ae
	}
	return models.ErrInternal(err.Error())
}
