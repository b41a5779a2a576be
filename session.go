package dlinfer

import (
	"fmt"
	"io"
	"sync"

	"github.com/swdee/go-dlinfer/tensor"
)

// Backend is the calling contract implemented by each inference runtime.
// A Backend is not safe for concurrent use, callers go through a Session
type Backend interface {
	// Run binds the single input tensor, executes the model and returns
	// every declared output in declared order with Float32 data populated
	Run(input tensor.Tensor) ([]tensor.Tensor, error)
	// InputType is the element type of the first model input
	InputType() tensor.DataType
	// InputNames are the declared model input names
	InputNames() []string
	// Query writes the model input and output tensor details to w
	Query(w io.Writer) error
	// Close releases the runtime handles
	Close() error
}

// Session is a loaded model on one of the supported runtimes.  Calls to
// Infer are serialized by a per Session lock held for the duration of the
// runtime call, so a Session may be shared between goroutines.
type Session struct {
	runtime     Runtime
	artifacts   string
	modelPath   string
	accelerated bool
	inputType   tensor.DataType

	// mu guards backend
	mu      sync.Mutex
	backend Backend
	closed  bool
}

func newSession(rt Runtime, artifacts, modelPath string, accelerated bool,
	backend Backend) *Session {

	return &Session{
		runtime:     rt,
		artifacts:   artifacts,
		modelPath:   modelPath,
		accelerated: accelerated,
		inputType:   backend.InputType().Normalize(),
		backend:     backend,
	}
}

// WrapBackend returns a Session around an already constructed Backend.  It
// is used to run a runtime not created by NewSession, such as an in process
// test double, with the same locking guarantees.
func WrapBackend(rt Runtime, artifacts, modelPath string, accelerated bool,
	backend Backend) *Session {

	return newSession(rt, artifacts, modelPath, accelerated, backend)
}

// Infer runs the model on the given input tensor and returns all outputs.
// Concurrent callers block until the session is free.
func (s *Session) Infer(input tensor.Tensor) ([]tensor.Tensor, error) {

	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntimeInvocation, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	outputs, err := s.backend.Run(input)

	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRuntimeInvocation, s.runtime, err)
	}

	return outputs, nil
}

// Runtime returns the runtime the session was created on
func (s *Session) Runtime() Runtime {
	return s.runtime
}

// ModelPath returns the model file path
func (s *Session) ModelPath() string {
	return s.modelPath
}

// ArtifactsPath returns the precompiled artifacts directory
func (s *Session) ArtifactsPath() string {
	return s.artifacts
}

// Accelerated returns true if the session offloads to the accelerator
func (s *Session) Accelerated() bool {
	return s.accelerated
}

// InputType returns the element type of the model input, float64 inputs are
// reported as float32
func (s *Session) InputType() tensor.DataType {
	return s.inputType
}

// InputNames returns the declared model input names
func (s *Session) InputNames() []string {
	return s.backend.InputNames()
}

// Close releases the runtime, subsequent calls to Infer return
// ErrSessionClosed
func (s *Session) Close() error {

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	return s.backend.Close()
}
