// Package config handles loading and saving InkyPi device state.
package config

import "github.com/inky-labs/inkypi-go/internal/models"

// Store is the interface for persisting device state.
type Store interface {
	// Load loads the current state. Returns DefaultState if no file exists.
	Load() (*models.State, error)

	// Save persists the state. Implementations may debounce rapid saves.
	Save(state *models.State) error

	// Path returns the file path used by this store.
	Path() string

	// Flush forces an immediate write of any pending state.
	Flush() error
}
