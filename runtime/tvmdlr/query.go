package tvmdlr

/*
#include "dlr.h"
#include <stdlib.h>
#include <stdint.h>
*/
import "C"
import (
	"fmt"
	"io"
	"unsafe"

	"github.com/swdee/go-dlinfer/tensor"
)

// TensorAttr describes a model input or output tensor
type TensorAttr struct {
	Index int
	Name  string
	Type  tensor.DataType
	Shape tensor.Shape
}

// String returns the tensor attributes formatted as a string
func (a TensorAttr) String() string {
	return fmt.Sprintf("index=%d, name=%s, shape=%v, type=%s",
		a.Index, a.Name, []int(a.Shape), a.Type)
}

// QueryInputTensors queries the attributes of each model input
func (m *Model) QueryInputTensors() ([]TensorAttr, error) {

	var num C.int

	ret := C.GetDLRNumInputs(&m.handle, &num)

	if ret != 0 {
		return nil, fmt.Errorf("C.GetDLRNumInputs failed: %s", lastError())
	}

	attrs := make([]TensorAttr, int(num))

	for i := range attrs {

		var cName, cType *C.char

		if ret = C.GetDLRInputName(&m.handle, C.int(i), &cName); ret != 0 {
			return nil, fmt.Errorf("C.GetDLRInputName failed: %s", lastError())
		}

		if ret = C.GetDLRInputType(&m.handle, C.int(i), &cType); ret != 0 {
			return nil, fmt.Errorf("C.GetDLRInputType failed: %s", lastError())
		}

		dt, err := tensor.ParseDataType(C.GoString(cType))

		if err != nil {
			return nil, err
		}

		attrs[i] = TensorAttr{
			Index: i,
			Name:  C.GoString(cName),
			Type:  dt,
		}
	}

	return attrs, nil
}

// QueryOutputTensors queries the attributes of each model output
func (m *Model) QueryOutputTensors() ([]TensorAttr, error) {

	var num C.int

	ret := C.GetDLRNumOutputs(&m.handle, &num)

	if ret != 0 {
		return nil, fmt.Errorf("C.GetDLRNumOutputs failed: %s", lastError())
	}

	attrs := make([]TensorAttr, int(num))

	for i := range attrs {

		var cType *C.char

		if ret = C.GetDLROutputType(&m.handle, C.int(i), &cType); ret != 0 {
			return nil, fmt.Errorf("C.GetDLROutputType failed: %s", lastError())
		}

		dt, err := tensor.ParseDataType(C.GoString(cType))

		if err != nil {
			return nil, err
		}

		shape, err := m.outputShape(i)

		if err != nil {
			return nil, err
		}

		attrs[i] = TensorAttr{
			Index: i,
			Name:  fmt.Sprintf("output_%d", i),
			Type:  dt,
			Shape: shape,
		}
	}

	return attrs, nil
}

// outputShape wraps C.GetDLROutputSizeDim and C.GetDLROutputShape
func (m *Model) outputShape(idx int) (tensor.Shape, error) {

	var size C.int64_t
	var dim C.int

	ret := C.GetDLROutputSizeDim(&m.handle, C.int(idx), &size, &dim)

	if ret != 0 {
		return nil, fmt.Errorf("C.GetDLROutputSizeDim failed: %s", lastError())
	}

	if dim == 0 {
		return tensor.Shape{}, nil
	}

	dims := make([]int64, int(dim))

	ret = C.GetDLROutputShape(&m.handle, C.int(idx),
		(*C.int64_t)(unsafe.Pointer(&dims[0])))

	if ret != 0 {
		return nil, fmt.Errorf("C.GetDLROutputShape failed: %s", lastError())
	}

	return tensor.FromInt64(dims), nil
}

// Query writes the input and output tensor attributes to w
func (m *Model) Query(w io.Writer) error {

	fmt.Fprintf(w, "Inputs: %d\n", len(m.inputs))

	for _, attr := range m.inputs {
		fmt.Fprintf(w, "  %s\n", attr)
	}

	fmt.Fprintf(w, "Outputs: %d\n", len(m.outputs))

	for _, attr := range m.outputs {
		fmt.Fprintf(w, "  %s\n", attr)
	}

	return nil
}
