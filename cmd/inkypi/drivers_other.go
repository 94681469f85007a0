//go:build !linux

package main

import (
	"fmt"

	"github.com/inky-labs/inkypi-go/internal/display"
)

// openDriver selects and opens the panel driver. SPI and framebuffer
// panels need Linux; development builds get the serial and mock drivers.
func openDriver(kind string, width, height int, fbDevice, serialDevice string) (display.Driver, error) {
	switch kind {
	case "serial":
		return display.NewSerialEPD(serialDevice, width, height)
	case "mock":
		return display.NewMock(width, height), nil
	default:
		return nil, fmt.Errorf("display driver %q requires linux", kind)
	}
}
