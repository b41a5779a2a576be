package tensor

import (
	"fmt"
	"strings"
)

// DataType is the numeric element type of a tensor
type DataType int

const (
	Undefined DataType = iota
	Uint8
	Int8
	Int16
	Int32
	Int64
	Float16
	Float32
	Float64
)

// String returns a readable description of the DataType using the numpy
// naming convention
func (t DataType) String() string {
	switch t {
	case Uint8:
		return "uint8"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float16:
		return "float16"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "undefined"
	}
}

// Size returns the number of bytes a single element of the DataType occupies
func (t DataType) Size() int {
	switch t {
	case Uint8, Int8:
		return 1
	case Int16, Float16:
		return 2
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	default:
		return 0
	}
}

// Normalize maps Float64 down to Float32 as none of the accelerated backends
// support 64 bit floating point inputs.  All other types are returned as is
func (t DataType) Normalize() DataType {
	if t == Float64 {
		return Float32
	}

	return t
}

// ParseDataType converts a runtime type description such as "uint8",
// "float32" or the ONNX style "tensor(float)" into a DataType
func ParseDataType(s string) (DataType, error) {

	name := strings.ToLower(strings.TrimSpace(s))

	// strip ONNX "tensor(...)" wrapper
	if strings.HasPrefix(name, "tensor(") && strings.HasSuffix(name, ")") {
		name = name[len("tensor(") : len(name)-1]
	}

	switch name {
	case "uint8":
		return Uint8, nil
	case "int8":
		return Int8, nil
	case "int16":
		return Int16, nil
	case "int32":
		return Int32, nil
	case "int64":
		return Int64, nil
	case "float16", "half":
		return Float16, nil
	case "float", "float32":
		return Float32, nil
	case "double", "float64":
		return Float64, nil
	}

	return Undefined, fmt.Errorf("unknown tensor data type %q", s)
}

// Tensor is a backend neutral n-dimensional array.  Input tensors carry their
// data in the slice matching Type, output tensors returned from a session
// always have Float32 populated regardless of the native output type
type Tensor struct {
	// Name is the tensor name as declared by the model, may be empty
	Name string
	// Shape are the tensor dimensions
	Shape Shape
	// Type is the element type of the data
	Type DataType
	// Uint8 holds the data when Type is Uint8
	Uint8 []uint8
	// Int8 holds the data when Type is Int8
	Int8 []int8
	// Float32 holds the data when Type is Float32 and for all session outputs
	Float32 []float32
}

// NewFloat32 returns a Float32 tensor of the given shape backed by data
func NewFloat32(shape Shape, data []float32) (Tensor, error) {

	if shape.NumElements() != len(data) {
		return Tensor{}, fmt.Errorf("shape %v requires %d elements, got %d",
			shape, shape.NumElements(), len(data))
	}

	return Tensor{Shape: shape, Type: Float32, Float32: data}, nil
}

// Len returns the number of elements held by the tensor
func (t Tensor) Len() int {
	switch t.Type {
	case Uint8:
		return len(t.Uint8)
	case Int8:
		return len(t.Int8)
	default:
		return len(t.Float32)
	}
}

// Validate checks the data slice matching Type holds exactly as many
// elements as the Shape describes
func (t Tensor) Validate() error {

	want := t.Shape.NumElements()

	if t.Len() != want {
		return fmt.Errorf("tensor %q of type %s has %d elements, shape %v requires %d",
			t.Name, t.Type, t.Len(), t.Shape, want)
	}

	return nil
}

// Squeeze returns a view of the tensor with all dimensions of size 1 removed
func (t Tensor) Squeeze() Tensor {
	t.Shape = t.Shape.Squeeze()
	return t
}

// AtLeast2D returns the tensor unchanged if it has two or more dimensions.
// A 1-D tensor of length n is returned as a column of shape [n, 1] and a
// scalar as [1, 1]
func (t Tensor) AtLeast2D() Tensor {

	switch len(t.Shape) {
	case 0:
		t.Shape = Shape{1, 1}
	case 1:
		t.Shape = Shape{t.Shape[0], 1}
	}

	return t
}

// Rows returns the number of rows of a tensor when viewed as a 2-D table
// whose columns are the last dimension
func (t Tensor) Rows() int {

	if len(t.Shape) == 0 {
		return 1
	}

	last := t.Shape[len(t.Shape)-1]

	if last == 0 {
		return 0
	}

	return t.Shape.NumElements() / last
}

// Cols returns the size of the last dimension
func (t Tensor) Cols() int {

	if len(t.Shape) == 0 {
		return 1
	}

	return t.Shape[len(t.Shape)-1]
}

// Plane returns the first slice along the leading dimension, eg: a tensor
// of shape [C, H, W] returns the [H, W] plane for channel 0
func (t Tensor) Plane() Tensor {

	if len(t.Shape) < 2 {
		return t
	}

	shape := append(Shape{}, t.Shape[1:]...)
	n := shape.NumElements()

	out := Tensor{Name: t.Name, Shape: shape, Type: t.Type}

	switch t.Type {
	case Uint8:
		out.Uint8 = t.Uint8[:n]
	case Int8:
		out.Int8 = t.Int8[:n]
	default:
		out.Float32 = t.Float32[:n]
	}

	return out
}

// String returns the tensor attributes formatted as a string
func (t Tensor) String() string {
	return fmt.Sprintf("name=%s, shape=%v, type=%s", t.Name, []int(t.Shape), t.Type)
}
