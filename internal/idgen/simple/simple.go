package simple

import (
	"context"
	"strconv"
	"sync"
)

// Generator hands out sequential ids with a fixed prefix. Used for lifecycle
// events and in tests where ids must be predictable.
type Generator struct {
	mu      sync.Mutex
	prefix  string
	counter int
}

func New(prefix string) *Generator {
	//nolint:exhaustruct
	return &Generator{prefix: prefix}
}

func (g *Generator) GetID(_ context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.counter++

	return g.prefix + strconv.Itoa(g.counter), nil
}
