// Package memory archives generated documents in memory for development.
package memory

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Archive keeps document content in memory and returns pseudo URIs.
type Archive struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an in-memory archive.
func New() *Archive {
	return &Archive{data: make(map[string][]byte)}
}

// PutObject stores the content and returns a memory:// URI.
func (a *Archive) PutObject(_ context.Context, path string, _ string, data io.Reader) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	content, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("failed to read data from reader: %w", err)
	}
	a.data[path] = append([]byte(nil), content...)
	return fmt.Sprintf("memory://%s", path), nil
}

// Get returns stored content for test inspection.
func (a *Archive) Get(path string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	content, ok := a.data[path]
	return content, ok
}
