package kv

import (
	"context"
	"errors"
	"sync"
)

var ErrConflict = errors.New("concurrent update conflict")

// UpdateFunc receives the current values of the watched keys (missing keys are
// absent from the map) and returns the values to write back. A nil value
// deletes the key.
type UpdateFunc func(current map[string][]byte) (map[string][]byte, error)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Update applies fn atomically across keys.
	Update(ctx context.Context, keys []string, fn UpdateFunc) error
}

type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemory() *Memory {
	//nolint:exhaustruct
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}

	return append([]byte(nil), v...), true, nil
}

func (m *Memory) Update(_ context.Context, keys []string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := make(map[string][]byte, len(keys))

	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			current[k] = append([]byte(nil), v...)
		}
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	for k, v := range next {
		if v == nil {
			delete(m.data, k)

			continue
		}

		m.data[k] = append([]byte(nil), v...)
	}

	return nil
}
