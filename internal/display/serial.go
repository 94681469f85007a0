package display

import (
	"encoding/binary"
	"fmt"
	"image"
	"log/slog"

	"go.bug.st/serial"
)

// Serial frame protocol for UART e-paper modules (Waveshare "serial e-ink"
// style): a fixed header, big-endian width and height, the 4bpp packed
// palette payload, and an XOR checksum.
const (
	serialMagic0 = 0xA5
	serialMagic1 = 0x5A
	serialBaud   = 115200
)

// SerialEPD drives an e-paper module attached over a UART bridge instead of
// SPI. Useful for panels wired to a USB serial adapter during development.
type SerialEPD struct {
	port   serial.Port
	width  int
	height int
}

// NewSerialEPD opens the serial port and prepares the panel.
func NewSerialEPD(device string, width, height int) (*SerialEPD, error) {
	mode := &serial.Mode{
		BaudRate: serialBaud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", device, err)
	}

	slog.Info("serial: e-paper port opened", "device", device, "baud", serialBaud)
	return &SerialEPD{port: port, width: width, height: height}, nil
}

func (s *SerialEPD) Name() string { return "serial" }

func (s *SerialEPD) Size() (int, int) { return s.width, s.height }

// Render quantizes the frame and ships it over the wire.
func (s *SerialEPD) Render(img image.Image) error {
	idx := quantize(img)
	payload := make([]byte, (len(idx)+1)/2)
	for i, v := range idx {
		if i%2 == 0 {
			payload[i/2] = v << 4
		} else {
			payload[i/2] |= v
		}
	}

	frame := make([]byte, 0, len(payload)+7)
	frame = append(frame, serialMagic0, serialMagic1)
	frame = binary.BigEndian.AppendUint16(frame, uint16(s.width))
	frame = binary.BigEndian.AppendUint16(frame, uint16(s.height))
	frame = append(frame, payload...)

	var sum byte
	for _, b := range frame {
		sum ^= b
	}
	frame = append(frame, sum)

	if _, err := s.port.Write(frame); err != nil {
		return fmt.Errorf("serial: write frame: %w", err)
	}
	return s.port.Drain()
}

// Close closes the serial port.
func (s *SerialEPD) Close() error {
	return s.port.Close()
}

var _ Driver = (*SerialEPD)(nil)
