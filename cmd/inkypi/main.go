// Command inkypi is the InkyPi e-paper photo frame daemon.
// Run with --mock to use a simulated panel and buttons (no GPIO required).
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/inky-labs/inkypi-go/internal/api"
	"github.com/inky-labs/inkypi-go/internal/buttons"
	"github.com/inky-labs/inkypi-go/internal/config"
	"github.com/inky-labs/inkypi-go/internal/controller"
	"github.com/inky-labs/inkypi-go/internal/display"
	"github.com/inky-labs/inkypi-go/internal/events"
	"github.com/inky-labs/inkypi-go/internal/models"
	"github.com/inky-labs/inkypi-go/internal/plugins"
	"github.com/inky-labs/inkypi-go/internal/refresh"
	"github.com/inky-labs/inkypi-go/internal/system"
	"github.com/inky-labs/inkypi-go/internal/zeroconf"
)

func main() {
	var (
		mock      = flag.Bool("mock", false, "use simulated panel and buttons (no GPIO required)")
		addr      = flag.String("addr", ":80", "HTTP listen address")
		cfgDir    = flag.String("config-dir", "", "config directory (default: ~/.config/inkypi)")
		debug     = flag.Bool("debug", false, "enable debug logging")
		dispKind  = flag.String("display", "epd", "display driver: epd, framebuffer, serial, mock")
		fbDevice  = flag.String("fb-device", "/dev/fb0", "framebuffer device for --display=framebuffer")
		serialDev = flag.String("serial-device", "/dev/ttyUSB0", "serial port for --display=serial")
	)
	flag.Parse()

	// Configure logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Resolve config directory
	if *cfgDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("cannot determine home directory", "err", err)
			os.Exit(1)
		}
		*cfgDir = filepath.Join(home, ".config", "inkypi")
	}
	if err := os.MkdirAll(*cfgDir, 0755); err != nil {
		slog.Error("cannot create config directory", "path", *cfgDir, "err", err)
		os.Exit(1)
	}

	// Graceful shutdown context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Config store, event bus, controller
	store := config.NewJSONStore(*cfgDir)
	bus := events.NewBus()
	ctrl, err := controller.New(store, bus)
	if err != nil {
		slog.Error("controller initialization failed", "err", err)
		os.Exit(1)
	}

	// Pick up external edits to the config file
	watcher := config.NewWatcher(store, ctrl.ReplaceState)
	defer watcher.Close()

	// Display driver
	settings := ctrl.DeviceSettings()
	kind := *dispKind
	if *mock {
		kind = "mock"
	}
	driver, err := openDriver(kind, settings.Width, settings.Height, *fbDevice, *serialDev)
	if err != nil {
		slog.Error("display initialization failed", "driver", kind, "err", err)
		os.Exit(1)
	}
	manager := display.NewManager(driver, func() string {
		return ctrl.DeviceSettings().Orientation
	})
	defer manager.Close()

	// Plugin registry
	registry := plugins.NewRegistry()
	registry.Register(plugins.NewClock())
	registry.Register(plugins.NewAlbum())
	slog.Info("plugins registered", "ids", registry.IDs())

	// Front panel buttons
	var lineSource buttons.LineSource
	if *mock {
		slog.Info("using simulated button source")
		lineSource = buttons.NewSimSource()
	} else {
		lineSource = buttons.NewGPIOSource()
	}
	panel := buttons.New(lineSource, ctrl, registry, manager)
	if err := panel.Start(); err != nil {
		// The web UI and scheduler still work without physical buttons.
		slog.Error("button handler failed to start", "err", err)
	}
	defer panel.Stop()

	// Scheduled plugin refresh
	scheduler := refresh.New(ctrl, registry, manager)
	go scheduler.Start(ctx)

	// Zeroconf mDNS registration
	hostname, _ := os.Hostname()
	port := 80
	if parts := strings.SplitN(*addr, ":", 2); len(parts) == 2 && parts[1] != "" {
		if p, err := strconv.Atoi(parts[1]); err == nil {
			port = p
		}
	}
	zc := zeroconf.New(hostname, port)
	go func() {
		if err := zc.Start(ctx); err != nil {
			slog.Warn("zeroconf failed", "err", err)
		}
	}()

	ctrl.SetInfo(models.Info{
		Version:  models.Version,
		Hostname: hostname,
		Display:  driver.Name(),
		Mock:     *mock,
	})

	// HTTP server
	router := api.NewRouter(ctrl, panel, scheduler, manager, bus, powerControl{})
	srv := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE)
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("InkyPi listening", "addr", *addr, "mock", *mock, "config", *cfgDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()

	// Flush pending config writes
	if err := store.Flush(); err != nil {
		slog.Warn("failed to flush config", "err", err)
	}

	// Graceful HTTP shutdown
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}

	slog.Info("shutdown complete")
}

// powerControl adapts the system package to the API's PowerControl interface.
type powerControl struct{}

func (powerControl) Shutdown() error { return system.Shutdown() }
func (powerControl) Reboot() error   { return system.Reboot() }
