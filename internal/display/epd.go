//go:build linux

package display

import (
	"fmt"
	"image"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// EPD command set (UC8159 controller, 7-color ACeP panels).
const (
	epdPSR  = 0x00 // panel setting
	epdPWR  = 0x01 // power setting
	epdPOF  = 0x02 // power off
	epdPON  = 0x04 // power on
	epdBTST = 0x06 // booster soft start
	epdDTM1 = 0x10 // data start transmission
	epdDRF  = 0x12 // display refresh
	epdTRES = 0x61 // resolution setting

	// Control pins (BCM numbering, Inky Impression wiring).
	pinDC    = "GPIO22"
	pinReset = "GPIO27"
	pinBusy  = "GPIO17"

	epdSPIDev = "/dev/spidev0.0"

	// A full ACeP refresh takes on the order of 30 s.
	busyTimeout = 40 * time.Second
)

// EPD drives a 7-color e-paper panel over SPI.
type EPD struct {
	conn   spi.Conn
	dc     gpio.PinOut
	reset  gpio.PinOut
	busy   gpio.PinIn
	width  int
	height int
}

// NewEPD opens the SPI e-paper panel with the given native resolution.
func NewEPD(width, height int) (*EPD, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("epd: periph.io init: %w", err)
	}

	port, err := spireg.Open(epdSPIDev)
	if err != nil {
		return nil, fmt.Errorf("epd: open SPI: %w", err)
	}
	conn, err := port.Connect(3*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("epd: connect SPI: %w", err)
	}

	dc := gpioreg.ByName(pinDC)
	if dc == nil {
		return nil, fmt.Errorf("epd: failed to open %s (DC pin)", pinDC)
	}
	reset := gpioreg.ByName(pinReset)
	if reset == nil {
		return nil, fmt.Errorf("epd: failed to open %s (reset pin)", pinReset)
	}
	busy := gpioreg.ByName(pinBusy)
	if busy == nil {
		return nil, fmt.Errorf("epd: failed to open %s (busy pin)", pinBusy)
	}
	if err := busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("epd: configure busy pin: %w", err)
	}

	e := &EPD{conn: conn, dc: dc, reset: reset, busy: busy, width: width, height: height}
	if err := e.init(); err != nil {
		return nil, fmt.Errorf("epd: init panel: %w", err)
	}

	slog.Info("epd: panel initialized", "width", width, "height", height)
	return e, nil
}

func (e *EPD) Name() string { return "epd" }

func (e *EPD) Size() (int, int) { return e.width, e.height }

// Render quantizes the frame to the ACeP palette, packs two pixels per byte
// and runs a full panel refresh.
func (e *EPD) Render(img image.Image) error {
	idx := quantize(img)

	// Pack 4 bits per pixel, two pixels per byte, MSB first.
	buf := make([]byte, (len(idx)+1)/2)
	for i, v := range idx {
		if i%2 == 0 {
			buf[i/2] = v << 4
		} else {
			buf[i/2] |= v
		}
	}

	if err := e.writeCommand(epdPON); err != nil {
		return err
	}
	if err := e.waitIdle(); err != nil {
		return err
	}
	if err := e.writeCommand(epdDTM1); err != nil {
		return err
	}
	if err := e.writeData(buf); err != nil {
		return err
	}
	if err := e.writeCommand(epdDRF); err != nil {
		return err
	}
	if err := e.waitIdle(); err != nil {
		return err
	}
	return e.writeCommand(epdPOF)
}

// Close powers the panel down and releases the reset line.
func (e *EPD) Close() error {
	_ = e.writeCommand(epdPOF)
	return e.reset.Out(gpio.Low)
}

func (e *EPD) init() error {
	// Hardware reset pulse
	if err := e.reset.Out(gpio.Low); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	if err := e.reset.Out(gpio.High); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	if err := e.waitIdle(); err != nil {
		return err
	}

	// Resolution
	w, h := e.width, e.height
	if err := e.writeCommand(epdTRES,
		byte(w>>8), byte(w), byte(h>>8), byte(h)); err != nil {
		return err
	}
	// Panel setting: UC8159, 600x448+ mode, LUT from OTP
	if err := e.writeCommand(epdPSR, 0xE3, 0x08); err != nil {
		return err
	}
	// Power setting: internal DC/DC
	if err := e.writeCommand(epdPWR, 0x37, 0x00, 0x23, 0x23); err != nil {
		return err
	}
	// Booster soft start
	return e.writeCommand(epdBTST, 0xC7, 0xC7, 0x1D)
}

// writeCommand sends a command byte (DC low) followed by optional data.
func (e *EPD) writeCommand(cmd byte, data ...byte) error {
	if err := e.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := e.conn.Tx([]byte{cmd}, nil); err != nil {
		return fmt.Errorf("epd: command 0x%02X: %w", cmd, err)
	}
	if len(data) == 0 {
		return nil
	}
	return e.writeData(data)
}

// writeData sends a data payload (DC high), chunked to the SPI driver's
// transfer limit.
func (e *EPD) writeData(data []byte) error {
	if err := e.dc.Out(gpio.High); err != nil {
		return err
	}
	const chunk = 4096
	for off := 0; off < len(data); off += chunk {
		end := off + chunk
		if end > len(data) {
			end = len(data)
		}
		if err := e.conn.Tx(data[off:end], nil); err != nil {
			return fmt.Errorf("epd: data write: %w", err)
		}
	}
	return nil
}

// waitIdle polls the BUSY line until the controller reports ready.
// BUSY is active-low on the UC8159.
func (e *EPD) waitIdle() error {
	deadline := time.Now().Add(busyTimeout)
	for e.busy.Read() == gpio.Low {
		if time.Now().After(deadline) {
			return fmt.Errorf("epd: busy timeout after %s", busyTimeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

var _ Driver = (*EPD)(nil)
