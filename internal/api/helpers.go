// Package api implements the HTTP REST API for InkyPi.
package api

import (
	"context"
	"encoding/json"
	"image"
	"net/http"

	"github.com/inky-labs/inkypi-go/internal/models"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctrl    Controller
	buttons Buttons
	refresh Refresher
	display Display
	events  EventBus
	power   PowerControl
}

// Controller is the interface the handlers use to read and mutate device state.
type Controller interface {
	State() models.State
	Info() models.Info
	UpdateSettings(upd models.DeviceSettings) (models.State, *models.AppError)
	GetPlugins() []models.PluginInstance
	GetPlugin(id string) (*models.PluginInstance, *models.AppError)
	CreatePlugin(inst models.PluginInstance) (models.State, *models.AppError)
	UpdatePlugin(id string, upd models.PluginInstance) (models.State, *models.AppError)
	DeletePlugin(id string) (models.State, *models.AppError)
}

// Buttons is the front panel simulation hook.
type Buttons interface {
	Simulate(label string) error
}

// Refresher triggers an immediate plugin render.
type Refresher interface {
	RefreshNow(ctx context.Context, instanceID string) error
}

// Display exposes the last delivered frame for the preview endpoint.
type Display interface {
	LastFrame() image.Image
}

// EventBus is the interface for subscribing to state change events.
type EventBus interface {
	Subscribe(id string) <-chan models.State
	Unsubscribe(id string)
}

// PowerControl performs host shutdown and reboot.
type PowerControl interface {
	Shutdown() error
	Reboot() error
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an AppError as a JSON response.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	if appErr, ok := err.(*models.AppError); ok {
		w.WriteHeader(appErr.Status)
		_ = json.NewEncoder(w).Encode(appErr)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(models.ErrInternal(err.Error()))
}
