// Package system performs host power actions through systemd-logind, so
// the web UI can shut the frame down cleanly without shell access.
package system

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

const (
	login1Dest = "org.freedesktop.login1"
	login1Path = "/org/freedesktop/login1"
)

// call invokes a login1 Manager method. The false argument asks logind not
// to run interactive polkit prompts (there is no seat on a photo frame).
func call(method string) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return fmt.Errorf("system: connect to system bus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object(login1Dest, login1Path)
	if c := obj.Call(login1Dest+".Manager."+method, 0, false); c.Err != nil {
		return fmt.Errorf("system: %s: %w", method, c.Err)
	}
	return nil
}

// Shutdown powers the host off.
func Shutdown() error {
	slog.Info("system: powering off")
	return call("PowerOff")
}

// Reboot restarts the host.
func Reboot() error {
	slog.Info("system: rebooting")
	return call("Reboot")
}
