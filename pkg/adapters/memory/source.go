package memory

import (
	"context"
	"fmt"
	"sync"
)

// Source implements ports.DatasetSource with bytes held in memory.
// It also counts fetches, which tests use to observe cache behavior.
type Source struct {
	mu     sync.Mutex
	data   []byte
	err    error
	name   string
	called int
}

// NewSource creates a source that always returns data.
func NewSource(data []byte) *Source {
	return &Source{data: data, name: "memory"}
}

// Fetch returns a copy of the configured bytes or the configured error.
func (s *Source) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.called++
	if s.err != nil {
		return nil, s.err
	}
	if s.data == nil {
		return nil, fmt.Errorf("memory source %q is empty", s.name)
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, nil
}

// Location implements ports.DatasetSource.
func (s *Source) Location() string {
	return "memory://" + s.name
}

// Set replaces the bytes served by later fetches and clears any error.
func (s *Source) Set(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.err = nil
}

// Fail makes later fetches return err.
func (s *Source) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Calls reports how many times Fetch has been invoked.
func (s *Source) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.called
}
