package sink

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// Memory keeps outputs in memory, keyed by name
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemory returns an empty in-memory sink
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

// Put implements Sink. data is copied.
func (m *Memory) Put(ctx context.Context, name string, data []byte) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	m.mu.Lock()
	m.objects[name] = bytes.Clone(data)
	m.mu.Unlock()

	return Object{Name: name, Location: "memory://" + name, Size: int64(len(data))}, nil
}

// Get returns the output stored under name
func (m *Memory) Get(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[name]
	return data, ok
}

// Names returns the stored names in sorted order
func (m *Memory) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.objects))
	for name := range m.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of stored outputs
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
