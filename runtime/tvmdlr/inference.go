package tvmdlr

/*
#include "dlr.h"
#include <stdlib.h>
#include <stdint.h>
*/
import "C"
import (
	"fmt"
	"unsafe"

	"github.com/swdee/go-dlinfer/tensor"
)

// Run binds the input to the first declared input name, runs the model and
// returns all outputs converted to float32
func (m *Model) Run(input tensor.Tensor) ([]tensor.Tensor, error) {

	if m.handle == nil {
		return nil, fmt.Errorf("model is closed")
	}

	if input.Len() == 0 {
		return nil, fmt.Errorf("input tensor is empty")
	}

	var data unsafe.Pointer

	switch input.Type {
	case tensor.Uint8:
		data = unsafe.Pointer(&input.Uint8[0])
	case tensor.Int8:
		data = unsafe.Pointer(&input.Int8[0])
	case tensor.Float32:
		data = unsafe.Pointer(&input.Float32[0])
	default:
		return nil, fmt.Errorf("unsupported input type %s", input.Type)
	}

	cName := C.CString(m.inputs[0].Name)
	defer C.free(unsafe.Pointer(cName))

	shape := input.Shape.Int64()

	ret := C.SetDLRInput(&m.handle, cName,
		(*C.int64_t)(unsafe.Pointer(&shape[0])), data, C.int(len(shape)))

	if ret != 0 {
		return nil, fmt.Errorf("C.SetDLRInput failed: %s", lastError())
	}

	if ret = C.RunDLRModel(&m.handle); ret != 0 {
		return nil, fmt.Errorf("C.RunDLRModel failed: %s", lastError())
	}

	outputs := make([]tensor.Tensor, len(m.outputs))

	for i, attr := range m.outputs {

		out, err := m.output(attr)

		if err != nil {
			return nil, err
		}

		outputs[i] = out
	}

	return outputs, nil
}

// output copies the output tensor at the attributes index into Go memory
// and converts it to float32
func (m *Model) output(attr TensorAttr) (tensor.Tensor, error) {

	// output shapes may depend on the input, so requery each run
	shape, err := m.outputShape(attr.Index)

	if err != nil {
		return tensor.Tensor{}, err
	}

	n := shape.NumElements()
	out := tensor.Tensor{Name: attr.Name, Shape: shape, Type: tensor.Float32}

	if n == 0 {
		out.Float32 = []float32{}
		return out, nil
	}

	var ptr unsafe.Pointer
	var convert func()

	switch attr.Type {
	case tensor.Float32:
		buf := make([]float32, n)
		ptr, convert = unsafe.Pointer(&buf[0]), func() { out.Float32 = buf }
	case tensor.Float16:
		buf := make([]uint16, n)
		ptr, convert = unsafe.Pointer(&buf[0]), func() { out.Float32 = tensor.Float16ToFloat32(buf) }
	case tensor.Float64:
		buf := make([]float64, n)
		ptr, convert = unsafe.Pointer(&buf[0]), func() { out.Float32 = tensor.Float64ToFloat32(buf) }
	case tensor.Uint8:
		buf := make([]uint8, n)
		ptr, convert = unsafe.Pointer(&buf[0]), func() { out.Float32 = tensor.Uint8ToFloat32(buf) }
	case tensor.Int8:
		buf := make([]int8, n)
		ptr, convert = unsafe.Pointer(&buf[0]), func() { out.Float32 = tensor.Int8ToFloat32(buf) }
	case tensor.Int16:
		buf := make([]int16, n)
		ptr, convert = unsafe.Pointer(&buf[0]), func() { out.Float32 = tensor.Int16ToFloat32(buf) }
	case tensor.Int32:
		buf := make([]int32, n)
		ptr, convert = unsafe.Pointer(&buf[0]), func() { out.Float32 = tensor.Int32ToFloat32(buf) }
	case tensor.Int64:
		buf := make([]int64, n)
		ptr, convert = unsafe.Pointer(&buf[0]), func() { out.Float32 = tensor.Int64ToFloat32(buf) }
	default:
		return tensor.Tensor{}, fmt.Errorf("unsupported output type %s for output %d",
			attr.Type, attr.Index)
	}

	if ret := C.GetDLROutput(&m.handle, C.int(attr.Index), ptr); ret != 0 {
		return tensor.Tensor{}, fmt.Errorf("C.GetDLROutput failed: %s", lastError())
	}

	convert()

	return out, nil
}
