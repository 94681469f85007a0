//go:build linux

package main

import (
	"fmt"

	"github.com/inky-labs/inkypi-go/internal/display"
)

// openDriver selects and opens the panel driver.
func openDriver(kind string, width, height int, fbDevice, serialDevice string) (display.Driver, error) {
	switch kind {
	case "epd":
		return display.NewEPD(width, height)
	case "framebuffer":
		return display.NewFramebuffer(fbDevice)
	case "serial":
		return display.NewSerialEPD(serialDevice, width, height)
	case "mock":
		return display.NewMock(width, height), nil
	default:
		return nil, fmt.Errorf("unknown display driver %q", kind)
	}
}
