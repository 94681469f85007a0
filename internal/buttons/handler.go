package buttons

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/inky-labs/inkypi-go/internal/models"
	"github.com/inky-labs/inkypi-go/internal/plugins"
)

// GPIO lines for the four front panel buttons (BCM numbering).
const (
	lineA = 5
	lineB = 6
	lineC = 16 // 25 on the Impression 13.3"
	lineD = 24
)

// Button is the immutable identity of one front panel button.
type Button struct {
	Index int
	Line  int
	Label string
}

// DefaultButtons is the standard Inky Impression button layout.
var DefaultButtons = []Button{
	{Index: 0, Line: lineA, Label: "A"},
	{Index: 1, Line: lineB, Label: "B"},
	{Index: 2, Line: lineC, Label: "C"},
	{Index: 3, Line: lineD, Label: "D"},
}

const (
	// DebounceWindow is the minimum spacing between two accepted presses
	// of the same button. Suppresses contact bounce without suppressing
	// deliberate repeats.
	DebounceWindow = 300 * time.Millisecond

	// pollTimeout bounds each edge wait so Stop is observed promptly.
	pollTimeout = 100 * time.Millisecond

	// errorBackoff is the pause after an unexpected read failure, to
	// avoid a hot error loop.
	errorBackoff = 500 * time.Millisecond

	// stopJoinTimeout bounds how long Stop waits for the poll loop. A
	// stuck poll leaks rather than hanging shutdown.
	stopJoinTimeout = 2 * time.Second
)

// ConfigStore is the device configuration the handler consults at dispatch
// time. The active plugin is re-resolved on every accepted press; it can
// change between presses.
type ConfigStore interface {
	// RefreshInfo returns the current refresh record, or nil when nothing
	// has been displayed yet.
	RefreshInfo() *models.RefreshInfo

	// PluginConfig returns the configuration for the given plugin, or nil.
	PluginConfig(id string) *models.PluginInstance

	// DeviceSettings returns the current panel-wide settings, handed to
	// plugins so they can size the frames they generate.
	DeviceSettings() models.DeviceSettings

	// SetImageHash writes the content hash of a newly delivered image back
	// into the refresh record and persists the configuration.
	SetImageHash(pluginID, hash string)
}

// Registry resolves plugin instances to their delegates.
type Registry interface {
	Get(pluginID string) (plugins.Plugin, bool)
}

// Sink is the display the handler delivers plugin images to.
type Sink interface {
	Display(img image.Image, adj models.ImageAdjustments) error
	Fingerprint(img image.Image) string
}

// Handler owns the poll loop and the dispatch state machine.
//
// Concurrency: the poll loop runs on its own goroutine; at most one
// dispatch goroutine exists at any instant, enforced by the busy gate.
// The gate needs a real mutex (not just an atomic) so the check-and-set on
// accept is atomic with respect to a concurrently finishing worker.
type Handler struct {
	source   LineSource
	cfg      ConfigStore
	registry Registry
	sink     Sink

	buttons []Button
	byLine  map[int]Button
	byLabel map[string]Button

	// Debounce is the per-button refractory window. Set before Start;
	// defaults to DebounceWindow.
	Debounce time.Duration

	gateMu sync.Mutex
	busy   bool

	pressMu   sync.Mutex
	lastPress map[string]time.Time

	mu      sync.Mutex // lifecycle
	running atomic.Bool
	req     LineRequest
	done    chan struct{}
}

// New creates a Handler for the default button layout.
func New(source LineSource, cfg ConfigStore, registry Registry, sink Sink) *Handler {
	h := &Handler{
		source:    source,
		cfg:       cfg,
		registry:  registry,
		sink:      sink,
		buttons:   DefaultButtons,
		byLine:    make(map[int]Button),
		byLabel:   make(map[string]Button),
		Debounce:  DebounceWindow,
		lastPress: make(map[string]time.Time),
	}
	for _, b := range h.buttons {
		h.byLine[b.Line] = b
		h.byLabel[b.Label] = b
	}
	return h
}

// Start acquires the button lines and launches the poll loop. Returns
// ErrAlreadyRunning if a poll loop is already active, or an error wrapping
// ErrHardwareInit if the lines cannot be acquired (the handler stays
// stopped).
func (h *Handler) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.loopAlive() {
		slog.Warn("buttons: already running")
		return ErrAlreadyRunning
	}

	lines := make([]int, len(h.buttons))
	for i, b := range h.buttons {
		lines[i] = b.Line
	}
	req, err := h.source.RequestLines(lines)
	if err != nil {
		slog.Error("buttons: failed to acquire input lines", "err", err)
		return &hardwareInitError{cause: err}
	}

	h.req = req
	h.running.Store(true)
	h.done = make(chan struct{})
	go h.pollLoop(req, h.done)

	slog.Info("buttons: started", "lines", lines, "debounce", h.Debounce)
	return nil
}

// Stop halts the poll loop and releases the input lines. Idempotent and
// safe to call when never started. Waits at most stopJoinTimeout for the
// loop to exit.
func (h *Handler) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.running.Store(false)

	if h.req != nil {
		if err := h.req.Release(); err != nil {
			slog.Warn("buttons: release failed", "err", err)
		}
		h.req = nil
	}

	if h.done != nil {
		select {
		case <-h.done:
		case <-time.After(stopJoinTimeout):
			slog.Warn("buttons: poll loop did not exit within timeout")
		}
		h.done = nil
	}

	slog.Info("buttons: stopped")
}

// Simulate synthesizes a press of the named button and feeds it through the
// same event path as a hardware edge. Used by the web UI and tests.
func (h *Handler) Simulate(label string) error {
	b, ok := h.byLabel[label]
	if !ok {
		return ErrUnknownLabel
	}
	slog.Info("buttons: simulating press", "button", label)
	h.handleEvent(Event{Line: b.Line, Time: time.Now()})
	return nil
}

// Busy reports whether a dispatch is currently in flight.
func (h *Handler) Busy() bool {
	h.gateMu.Lock()
	defer h.gateMu.Unlock()
	return h.busy
}

// loopAlive reports whether a previously started poll loop is still
// running. Callers hold h.mu.
func (h *Handler) loopAlive() bool {
	if h.done == nil {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// pollLoop drains edge events until the running flag drops. It never calls
// into plugin code directly; it only decides whether to dispatch.
func (h *Handler) pollLoop(req LineRequest, done chan struct{}) {
	defer close(done)
	slog.Info("buttons: poll loop started")

	for h.running.Load() {
		events, err := req.WaitForEvents(pollTimeout)
		if err != nil {
			if !h.running.Load() {
				break
			}
			slog.Error("buttons: error reading edge events", "err", err)
			time.Sleep(errorBackoff)
			continue
		}
		for _, ev := range events {
			h.handleEvent(ev)
		}
	}

	slog.Info("buttons: poll loop finished")
}

// handleEvent is the fast path run on the poll loop: debounce, gate check,
// dispatch. It must never block on a worker.
func (h *Handler) handleEvent(ev Event) {
	b, ok := h.byLine[ev.Line]
	if !ok {
		// Should not occur with fixed line configuration.
		slog.Debug("buttons: event on unconfigured line", "line", ev.Line)
		return
	}

	now := time.Now()
	h.pressMu.Lock()
	if last, seen := h.lastPress[b.Label]; seen {
		if elapsed := now.Sub(last); elapsed < h.Debounce {
			h.pressMu.Unlock()
			slog.Debug("buttons: press debounced", "button", b.Label, "elapsed", elapsed)
			return
		}
	}
	// Record the accepted press before the gate check so a still-running
	// worker from a previous press cannot skew the debounce clock.
	h.lastPress[b.Label] = now
	h.pressMu.Unlock()

	h.gateMu.Lock()
	if h.busy {
		h.gateMu.Unlock()
		// Dropped, not queued: presses during an active render are lost
		// to keep latency bounded.
		slog.Info("buttons: press ignored, processing already in progress", "button", b.Label)
		return
	}
	h.busy = true
	h.gateMu.Unlock()

	slog.Info("buttons: press accepted", "button", b.Label, "line", b.Line)
	go h.dispatch(b.Label)
}

// dispatch performs the potentially slow plugin delegation and display
// update for one accepted press, then unconditionally releases the gate.
func (h *Handler) dispatch(label string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("buttons: panic while handling press", "button", label, "panic", r)
		}
		h.gateMu.Lock()
		h.busy = false
		h.gateMu.Unlock()
	}()

	info := h.cfg.RefreshInfo()
	if info == nil || info.PluginID == "" {
		slog.Warn("buttons: press with no active plugin", "button", label)
		return
	}

	inst := h.cfg.PluginConfig(info.PluginID)
	if inst == nil {
		slog.Error("buttons: active plugin has no configuration", "plugin", info.PluginID)
		return
	}

	delegate, ok := h.registry.Get(inst.PluginID)
	if !ok {
		slog.Error("buttons: unknown plugin type", "plugin", inst.PluginID)
		return
	}

	bh, ok := delegate.(plugins.ButtonHandler)
	if !ok {
		// Buttons are optional per plugin.
		slog.Debug("buttons: plugin does not handle buttons", "plugin", inst.PluginID)
		return
	}

	slog.Info("buttons: delegating press", "button", label, "plugin", inst.PluginID)
	res, err := bh.HandleButton(context.Background(), label, inst, h.cfg.DeviceSettings())
	if err != nil {
		slog.Error("buttons: plugin failed to handle press", "button", label, "plugin", inst.PluginID, "err", err)
		return
	}

	switch {
	case res.Image != nil:
		if err := h.sink.Display(res.Image, inst.Adjustments); err != nil {
			slog.Error("buttons: display update failed", "button", label, "err", err)
			return
		}
		hash := h.sink.Fingerprint(res.Image)
		h.cfg.SetImageHash(info.PluginID, hash)
		slog.Info("buttons: display updated", "button", label, "plugin", inst.PluginID)
	case res.Message != "":
		slog.Debug("buttons: plugin returned message", "button", label, "message", res.Message)
	}
}

// hardwareInitError carries the acquisition failure while matching
// ErrHardwareInit with errors.Is.
type hardwareInitError struct {
	cause error
}

func (e *hardwareInitError) Error() string {
	return ErrHardwareInit.Error() + ": " + e.cause.Error()
}

func (e *hardwareInitError) Is(target error) bool { return target == ErrHardwareInit }

func (e *hardwareInitError) Unwrap() error { return e.cause }
