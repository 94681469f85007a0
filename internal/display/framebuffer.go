//go:build linux

package display

import (
	"fmt"
	"image"
	"log/slog"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux framebuffer ioctls and the subset of fb_var_screeninfo we read.
const (
	fbioGetVScreenInfo = 0x4600 // FBIOGET_VSCREENINFO
)

// fbVarScreenInfo mirrors the head of struct fb_var_screeninfo from
// linux/fb.h; only the fields up to bits_per_pixel are needed.
type fbVarScreenInfo struct {
	XRes         uint32
	YRes         uint32
	XResVirtual  uint32
	YResVirtual  uint32
	XOffset      uint32
	YOffset      uint32
	BitsPerPixel uint32
	Grayscale    uint32
	_            [96]byte // remaining fields, unused
}

// Framebuffer renders frames to a Linux framebuffer device (HDMI preview
// panels, SPI TFT hats exposed as /dev/fbN). Only 16bpp RGB565 devices are
// supported, which covers the common small TFT drivers.
type Framebuffer struct {
	fd     int
	mem    []byte
	width  int
	height int
}

// NewFramebuffer opens the framebuffer device and maps its memory.
func NewFramebuffer(device string) (*Framebuffer, error) {
	fd, err := unix.Open(device, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("framebuffer: open %s: %w", device, err)
	}

	var info fbVarScreenInfo
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), fbioGetVScreenInfo, uintptr(unsafe.Pointer(&info))); errno != 0 {
		unix.Close(fd)
		return nil, fmt.Errorf("framebuffer: FBIOGET_VSCREENINFO: %w", errno)
	}
	if info.BitsPerPixel != 16 {
		unix.Close(fd)
		return nil, fmt.Errorf("framebuffer: unsupported depth %d bpp (want 16)", info.BitsPerPixel)
	}

	size := int(info.XRes) * int(info.YRes) * 2
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("framebuffer: mmap: %w", err)
	}

	slog.Info("framebuffer: opened", "device", device, "width", info.XRes, "height", info.YRes)
	return &Framebuffer{
		fd:     fd,
		mem:    mem,
		width:  int(info.XRes),
		height: int(info.YRes),
	}, nil
}

func (f *Framebuffer) Name() string { return "framebuffer" }

func (f *Framebuffer) Size() (int, int) { return f.width, f.height }

// Render converts the frame to RGB565 and writes it straight into the
// mapped framebuffer memory.
func (f *Framebuffer) Render(img image.Image) error {
	b := img.Bounds()
	for y := 0; y < f.height && y < b.Dy(); y++ {
		for x := 0; x < f.width && x < b.Dx(); x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			px := rgb565(r, g, bl)
			off := (y*f.width + x) * 2
			f.mem[off] = byte(px)
			f.mem[off+1] = byte(px >> 8)
		}
	}
	return nil
}

// Close unmaps the framebuffer and closes the device.
func (f *Framebuffer) Close() error {
	if f.mem != nil {
		if err := unix.Munmap(f.mem); err != nil {
			return err
		}
		f.mem = nil
	}
	return unix.Close(f.fd)
}

// rgb565 packs 16-bit color channels into little-endian RGB565.
func rgb565(r, g, b uint32) uint16 {
	return uint16(r>>11)<<11 | uint16(g>>10)<<5 | uint16(b>>11)
}

var _ Driver = (*Framebuffer)(nil)
