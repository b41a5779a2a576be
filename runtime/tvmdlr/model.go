// Package tvmdlr runs TVM compiled models through the Neo AI DLR C API.  The
// compiled artifacts directory contains the TIDL subgraphs so the model can
// only be run with the accelerator present.
package tvmdlr

/*
#cgo LDFLAGS: -ldlr
#include "dlr.h"
#include <stdlib.h>
#include <stdint.h>
*/
import "C"
import (
	"fmt"
	"os"
	"unsafe"

	"github.com/swdee/go-dlinfer/tensor"
)

// deviceCPU is the DLDeviceType of the host CPU, TIDL subgraphs are
// dispatched from within the compiled graph
const deviceCPU = 1

// Options configures the DLR model
type Options struct {
	// DeviceID is the device index passed to CreateDLRModel
	DeviceID int
}

// Model is a loaded DLR model instance
type Model struct {
	// handle is the C DLR model handle
	handle C.DLRModelHandle
	// artifacts is the compiled model directory
	artifacts string
	// inputs caches the Input tensor attributes of the model
	inputs []TensorAttr
	// outputs caches the Output tensor attributes of the model
	outputs []TensorAttr
}

// New loads the compiled model from the artifacts directory
func New(artifacts string, opts Options) (*Model, error) {

	m := &Model{
		artifacts: artifacts,
	}

	err := m.init(artifacts, opts.DeviceID)

	if err != nil {
		return nil, err
	}

	// cache input and output tensor attributes
	m.inputs, err = m.QueryInputTensors()

	if err != nil {
		m.Close()
		return nil, err
	}

	if len(m.inputs) == 0 {
		m.Close()
		return nil, fmt.Errorf("model at %s declares no inputs", artifacts)
	}

	m.outputs, err = m.QueryOutputTensors()

	if err != nil {
		m.Close()
		return nil, err
	}

	return m, nil
}

// init wraps C.CreateDLRModel
func (m *Model) init(artifacts string, deviceID int) error {

	// check directory exists in Go, before passing to C
	info, err := os.Stat(artifacts)

	if err != nil {
		return fmt.Errorf("artifacts folder does not exist at %s, error: %w",
			artifacts, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("artifacts path %s is not a directory", artifacts)
	}

	cPath := C.CString(artifacts)
	defer C.free(unsafe.Pointer(cPath))

	ret := C.CreateDLRModel(&m.handle, cPath, C.int(deviceCPU), C.int(deviceID))

	if ret != 0 {
		return fmt.Errorf("C.CreateDLRModel call failed with code %d, error: %s",
			ret, lastError())
	}

	return nil
}

// Close wraps C.DeleteDLRModel and releases the model
func (m *Model) Close() error {

	if m.handle == nil {
		return nil
	}

	ret := C.DeleteDLRModel(&m.handle)
	m.handle = nil

	if ret != 0 {
		return fmt.Errorf("C.DeleteDLRModel call failed with code %d, error: %s",
			ret, lastError())
	}

	return nil
}

// InputType returns the element type of the first model input
func (m *Model) InputType() tensor.DataType {
	return m.inputs[0].Type.Normalize()
}

// InputNames returns the declared model input names
func (m *Model) InputNames() []string {

	names := make([]string, len(m.inputs))

	for i, attr := range m.inputs {
		names[i] = attr.Name
	}

	return names
}

// lastError wraps C.DLRGetLastError
func lastError() string {
	return C.GoString(C.DLRGetLastError())
}
