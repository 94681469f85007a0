package buttons

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// edgeWait bounds each WaitForEdge call so watcher goroutines notice a
// release promptly.
const edgeWait = 500 * time.Millisecond

// GPIOSource is the hardware LineSource backed by periph.io. Each requested
// line is configured as a pulled-up input with falling-edge detection and
// watched by its own goroutine; edges are fanned into a single channel the
// poll loop drains.
type GPIOSource struct {
	// open acquires one line; swapped out in tests.
	open func(line int) (gpio.PinIO, error)
}

// NewGPIOSource creates the periph.io-backed line source.
func NewGPIOSource() *GPIOSource { return &GPIOSource{} }

// RequestLines acquires the given BCM lines. On any failure the lines
// acquired so far are rolled back before the error is returned, so a failed
// request leaves no watcher goroutines or configured pins behind.
func (g *GPIOSource) RequestLines(lines []int) (LineRequest, error) {
	open := g.open
	if open == nil {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("gpio: host init: %w", err)
		}
		open = openPin
	}

	req := &gpioRequest{
		events: make(chan Event, 16),
		stop:   make(chan struct{}),
	}
	for _, line := range lines {
		pin, err := open(line)
		if err != nil {
			_ = req.Release()
			return nil, err
		}
		req.pins = append(req.pins, pin)
		req.wg.Add(1)
		go req.watch(line, pin)
	}
	slog.Debug("gpio: lines acquired", "lines", lines)
	return req, nil
}

// openPin configures one BCM line as a pulled-up input with falling-edge
// detection.
func openPin(line int) (gpio.PinIO, error) {
	pin := gpioreg.ByName(fmt.Sprintf("GPIO%d", line))
	if pin == nil {
		return nil, fmt.Errorf("gpio: failed to open GPIO%d", line)
	}
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("gpio: configure GPIO%d: %w", line, err)
	}
	return pin, nil
}

type gpioRequest struct {
	pins   []gpio.PinIO
	events chan Event
	stop   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// watch blocks on hardware edges for one pin and fans them into the shared
// event channel.
func (r *gpioRequest) watch(line int, pin gpio.PinIO) {
	defer r.wg.Done()
	for {
		select {
		case <-r.stop:
			return
		default:
		}
		if !pin.WaitForEdge(edgeWait) {
			continue
		}
		select {
		case r.events <- Event{Line: line, Time: time.Now()}:
		case <-r.stop:
			return
		}
	}
}

func (r *gpioRequest) WaitForEvents(timeout time.Duration) ([]Event, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	var events []Event
	select {
	case ev := <-r.events:
		events = append(events, ev)
	case <-r.stop:
		return nil, nil
	case <-t.C:
		return nil, nil
	}
	for {
		select {
		case ev := <-r.events:
			events = append(events, ev)
		default:
			return events, nil
		}
	}
}

func (r *gpioRequest) Release() error {
	r.once.Do(func() {
		close(r.stop)
		r.wg.Wait()
		for _, pin := range r.pins {
			if err := pin.Halt(); err != nil {
				slog.Warn("gpio: halt pin failed", "pin", pin.Name(), "err", err)
			}
		}
	})
	return nil
}

var _ LineSource = (*GPIOSource)(nil)
