// Package dlinfertest provides an in process dlinfer.Backend for testing code
// that depends on a Session without loading a real runtime.
package dlinfertest

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/swdee/go-dlinfer/tensor"
)

// RunFunc computes the outputs for a single input
type RunFunc func(input tensor.Tensor) ([]tensor.Tensor, error)

// Backend is a dlinfer.Backend whose Run calls a user supplied function.  It
// records how many calls were made and whether two calls ever overlapped.
type Backend struct {
	// Type is reported by InputType, defaults to tensor.Uint8
	Type tensor.DataType
	// Names is reported by InputNames
	Names []string
	// Fn computes the outputs, when nil the input is echoed back as float32
	Fn RunFunc

	calls   atomic.Int64
	active  atomic.Int32
	overlap atomic.Bool

	mu     sync.Mutex
	closed bool
}

// New returns a Backend with the given input type and run function
func New(dt tensor.DataType, fn RunFunc) *Backend {
	return &Backend{Type: dt, Names: []string{"input"}, Fn: fn}
}

// Run implements dlinfer.Backend
func (b *Backend) Run(input tensor.Tensor) ([]tensor.Tensor, error) {

	if b.active.Add(1) > 1 {
		b.overlap.Store(true)
	}

	defer b.active.Add(-1)

	b.calls.Add(1)

	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()

	if closed {
		return nil, fmt.Errorf("backend closed")
	}

	if b.Fn != nil {
		return b.Fn(input)
	}

	return []tensor.Tensor{Echo(input)}, nil
}

// InputType implements dlinfer.Backend
func (b *Backend) InputType() tensor.DataType {

	if b.Type == tensor.Undefined {
		return tensor.Uint8
	}

	return b.Type
}

// InputNames implements dlinfer.Backend
func (b *Backend) InputNames() []string {
	return b.Names
}

// Query implements dlinfer.Backend
func (b *Backend) Query(w io.Writer) error {

	for i, name := range b.Names {
		fmt.Fprintf(w, "Input %d: name=%s, type=%s\n", i, name, b.InputType())
	}

	return nil
}

// Close implements dlinfer.Backend
func (b *Backend) Close() error {

	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true

	return nil
}

// Calls returns the number of Run calls made
func (b *Backend) Calls() int64 {
	return b.calls.Load()
}

// Overlapped returns true if Run was ever entered while another call was in
// progress
func (b *Backend) Overlapped() bool {
	return b.overlap.Load()
}

// Closed returns true once Close has been called
func (b *Backend) Closed() bool {

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.closed
}

// Echo converts the input tensor to a float32 output of the same shape
func Echo(input tensor.Tensor) tensor.Tensor {

	out := tensor.Tensor{
		Name:  "output",
		Shape: append(tensor.Shape{}, input.Shape...),
		Type:  tensor.Float32,
	}

	switch input.Type {
	case tensor.Uint8:
		out.Float32 = tensor.Uint8ToFloat32(input.Uint8)
	case tensor.Int8:
		out.Float32 = tensor.Int8ToFloat32(input.Int8)
	default:
		out.Float32 = append([]float32{}, input.Float32...)
	}

	return out
}
