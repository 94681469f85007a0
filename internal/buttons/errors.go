package buttons

import "errors"

var (
	// ErrAlreadyRunning is returned by Start when a poll loop is already
	// active. Non-fatal; the running handler is left untouched.
	ErrAlreadyRunning = errors.New("buttons: already running")

	// ErrHardwareInit wraps line-acquisition failures from Start. The
	// handler is left stopped.
	ErrHardwareInit = errors.New("buttons: hardware init failed")

	// ErrUnknownLabel is returned by Simulate for labels other than A-D.
	ErrUnknownLabel = errors.New("buttons: unknown button label")
)
