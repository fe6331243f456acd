package collector

import (
	"bytes"
	"context"
	"fmt"

	"github.com/CPS-IT/migrator/internal/domain"
)

// Array returns a fixed in-memory file set.
type Array struct {
	files map[string][]byte
}

// NewArray creates an Array collector over a copy of files.
func NewArray(files map[string][]byte) *Array {
	c := make(map[string][]byte, len(files))
	for p, content := range files {
		c[p] = bytes.Clone(content)
	}
	return &Array{files: c}
}

// NewArrayFromStrings is NewArray for string contents.
func NewArrayFromStrings(files map[string]string) *Array {
	c := make(map[string][]byte, len(files))
	for p, content := range files {
		c[p] = []byte(content)
	}
	return &Array{files: c}
}

// Collect returns a copy of the file set.
func (a *Array) Collect(_ context.Context) (map[string][]byte, error) {
	out := make(map[string][]byte, len(a.files))
	for p, content := range a.files {
		out[p] = bytes.Clone(content)
	}
	return out, nil
}

// CallbackFunc lazily produces a file set.
type CallbackFunc func(ctx context.Context) (map[string][]byte, error)

// Callback collects by invoking a function on every Collect call.
type Callback struct {
	fn CallbackFunc
}

// NewCallback creates a Callback collector.
func NewCallback(fn CallbackFunc) *Callback {
	return &Callback{fn: fn}
}

// Collect invokes the callback.
func (c *Callback) Collect(ctx context.Context) (map[string][]byte, error) {
	return c.fn(ctx)
}

// Chained merges several collectors left to right; later collectors win on path collisions.
type Chained struct {
	collectors []domain.Collector
}

// NewChained creates a Chained collector.
// Returns domain.ErrInvalidCollectorConfiguration when no collector is given.
func NewChained(collectors ...domain.Collector) (*Chained, error) {
	if len(collectors) == 0 {
		return nil, fmt.Errorf("%w: collector chain must not be empty", domain.ErrInvalidCollectorConfiguration)
	}
	return &Chained{collectors: collectors}, nil
}

// Collect collects every member and merges the results.
func (c *Chained) Collect(ctx context.Context) (map[string][]byte, error) {
	out := make(map[string][]byte)
	for i, member := range c.collectors {
		files, err := member.Collect(ctx)
		if err != nil {
			return nil, fmt.Errorf("collector %d of chain failed: %w", i+1, err)
		}
		for p, content := range files {
			out[p] = content
		}
	}
	return out, nil
}
