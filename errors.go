package dlinfer

import (
	"errors"
)

var (
	// ErrConfiguration is returned when a model bundle, descriptor or runtime
	// selection is invalid
	ErrConfiguration = errors.New("configuration error")

	// ErrAccelerationUnsupported is returned when a runtime that requires the
	// TIDL accelerator is requested without acceleration enabled
	ErrAccelerationUnsupported = errors.New("runtime requires acceleration")

	// ErrRuntimeInvocation is returned when the underlying runtime fails to
	// execute an inference
	ErrRuntimeInvocation = errors.New("runtime invocation failed")

	// ErrSessionClosed is returned when Infer is called after Close
	ErrSessionClosed = errors.New("session closed")
)
