package api

import (
	"encoding/json"
	"errors"
	"image/png"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inky-labs/inkypi-go/internal/buttons"
	"github.com/inky-labs/inkypi-go/internal/models"
)

func (h *Handlers) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.State())
}

func (h *Handlers) getInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Info())
}

func (h *Handlers) patchSettings(w http.ResponseWriter, r *http.Request) {
	var upd models.DeviceSettings
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	state, appErr := h.ctrl.UpdateSettings(upd)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handlers) getPlugins(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.GetPlugins())
}

func (h *Handlers) getPlugin(w http.ResponseWriter, r *http.Request) {
	inst, appErr := h.ctrl.GetPlugin(chi.URLParam(r, "pid"))
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (h *Handlers) createPlugin(w http.ResponseWriter, r *http.Request) {
	var inst models.PluginInstance
	if err := json.NewDecoder(r.Body).Decode(&inst); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	state, appErr := h.ctrl.CreatePlugin(inst)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

func (h *Handlers) patchPlugin(w http.ResponseWriter, r *http.Request) {
	var upd models.PluginInstance
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	state, appErr := h.ctrl.UpdatePlugin(chi.URLParam(r, "pid"), upd)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handlers) deletePlugin(w http.ResponseWriter, r *http.Request) {
	state, appErr := h.ctrl.DeletePlugin(chi.URLParam(r, "pid"))
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// displayPlugin renders the given plugin instance immediately.
func (h *Handlers) displayPlugin(w http.ResponseWriter, r *http.Request) {
	pid := chi.URLParam(r, "pid")
	if err := h.refresh.RefreshNow(r.Context(), pid); err != nil {
		writeError(w, models.ErrInternal(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.State())
}

// pressButton synthesizes a front panel press. The press travels the same
// path as a hardware edge, so it inherits debounce and busy-drop behavior.
func (h *Handlers) pressButton(w http.ResponseWriter, r *http.Request) {
	label := chi.URLParam(r, "label")
	if err := h.buttons.Simulate(label); err != nil {
		if errors.Is(err, buttons.ErrUnknownLabel) {
			writeError(w, models.ErrBadRequest("unknown button label: "+label))
			return
		}
		writeError(w, models.ErrInternal(err.Error()))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"button": label, "status": "pressed"})
}

// getDisplay serves the last delivered frame as PNG.
func (h *Handlers) getDisplay(w http.ResponseWriter, r *http.Request) {
	frame := h.display.LastFrame()
	if frame == nil {
		writeError(w, models.ErrNotFound("nothing has been displayed yet"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_ = png.Encode(w, frame)
}

func (h *Handlers) shutdown(w http.ResponseWriter, r *http.Request) {
	if err := h.power.Shutdown(); err != nil {
		writeError(w, models.ErrInternal(err.Error()))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "shutting down"})
}

func (h *Handlers) reboot(w http.ResponseWriter, r *http.Request) {
	if err := h.power.Reboot(); err != nil {
		writeError(w, models.ErrInternal(err.Error()))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "rebooting"})
}
