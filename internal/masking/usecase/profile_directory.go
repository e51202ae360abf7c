package usecase

import (
	"context"
	"strings"
	"sync"
)

// InMemoryProfileDirectory is a ProfileDirectory backed by a process-local map.
// Deployments that keep profiles in an external user service provide their own
// implementation; this one serves the CLI and tests.
type InMemoryProfileDirectory struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewInMemoryProfileDirectory creates an empty in-memory profile directory.
func NewInMemoryProfileDirectory() *InMemoryProfileDirectory {
	return &InMemoryProfileDirectory{names: make(map[string]string)}
}

// SetDisplayName records the user's display name. An empty name clears it.
func (d *InMemoryProfileDirectory) SetDisplayName(userID, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		delete(d.names, userID)
		return
	}
	d.names[userID] = name
}

// DisplayName returns the user's on-file display name, empty if none is set.
func (d *InMemoryProfileDirectory) DisplayName(_ context.Context, userID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.names[userID], nil
}
