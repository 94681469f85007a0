package display

import (
	"image"
	"sync"
)

// MockDriver is an in-memory panel for tests and --mock mode. It records
// every rendered frame.
type MockDriver struct {
	mu       sync.Mutex
	width    int
	height   int
	frames   []image.Image
	failNext bool
	closed   bool
}

// NewMock creates a mock panel with the given native resolution.
func NewMock(width, height int) *MockDriver {
	return &MockDriver{width: width, height: height}
}

func (m *MockDriver) Name() string { return "mock" }

func (m *MockDriver) Size() (int, int) { return m.width, m.height }

func (m *MockDriver) Render(img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return errMockRender
	}
	m.frames = append(m.frames, img)
	return nil
}

func (m *MockDriver) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// FailNextRender makes the next Render call return an error. Test helper.
func (m *MockDriver) FailNextRender() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = true
}

// FrameCount returns the number of frames rendered so far.
func (m *MockDriver) FrameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

// LastRendered returns the most recent frame, or nil.
func (m *MockDriver) LastRendered() image.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return nil
	}
	return m.frames[len(m.frames)-1]
}

// Closed reports whether Close has been called.
func (m *MockDriver) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type mockRenderError struct{}

func (mockRenderError) Error() string { return "mock: render failure configured" }

var errMockRender = mockRenderError{}

var _ Driver = (*MockDriver)(nil)
