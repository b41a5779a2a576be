package onnxrt

import (
	"encoding/binary"
	"fmt"

	"github.com/swdee/go-dlinfer/tensor"
	ort "github.com/yalue/onnxruntime_go"
)

// Run binds the input to the first declared input, runs the session and
// returns all outputs converted to float32
func (s *Session) Run(input tensor.Tensor) ([]tensor.Tensor, error) {

	if s.session == nil {
		return nil, fmt.Errorf("session is closed")
	}

	in, err := newValue(input)

	if err != nil {
		return nil, err
	}

	defer in.Destroy()

	// outputs are allocated by onnxruntime as their shapes may be dynamic
	outs := make([]ort.Value, len(s.outputs))

	defer func() {
		for _, o := range outs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	if err := s.session.Run([]ort.Value{in}, outs); err != nil {
		return nil, fmt.Errorf("error running session: %w", err)
	}

	results := make([]tensor.Tensor, len(outs))

	for i, o := range outs {

		res, err := readValue(o)

		if err != nil {
			return nil, fmt.Errorf("output %s: %w", s.outputs[i].Name, err)
		}

		res.Name = s.outputs[i].Name
		results[i] = res
	}

	return results, nil
}

// newValue wraps the input data in an onnxruntime tensor
func newValue(input tensor.Tensor) (ort.Value, error) {

	shape := ort.NewShape(input.Shape.Int64()...)

	var v ort.Value
	var err error

	switch input.Type {
	case tensor.Uint8:
		v, err = ort.NewTensor(shape, input.Uint8)
	case tensor.Int8:
		v, err = ort.NewTensor(shape, input.Int8)
	case tensor.Float32:
		v, err = ort.NewTensor(shape, input.Float32)
	default:
		return nil, fmt.Errorf("unsupported input type %s", input.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	return v, nil
}

// readValue copies an output value into Go memory as float32
func readValue(v ort.Value) (tensor.Tensor, error) {

	res := tensor.Tensor{Type: tensor.Float32}

	switch t := v.(type) {
	case *ort.Tensor[float32]:
		res.Shape = tensor.FromInt64(t.GetShape())
		res.Float32 = append([]float32{}, t.GetData()...)
	case *ort.Tensor[float64]:
		res.Shape = tensor.FromInt64(t.GetShape())
		res.Float32 = tensor.Float64ToFloat32(t.GetData())
	case *ort.Tensor[uint8]:
		res.Shape = tensor.FromInt64(t.GetShape())
		res.Float32 = tensor.Uint8ToFloat32(t.GetData())
	case *ort.Tensor[int8]:
		res.Shape = tensor.FromInt64(t.GetShape())
		res.Float32 = tensor.Int8ToFloat32(t.GetData())
	case *ort.Tensor[int16]:
		res.Shape = tensor.FromInt64(t.GetShape())
		res.Float32 = tensor.Int16ToFloat32(t.GetData())
	case *ort.Tensor[int32]:
		res.Shape = tensor.FromInt64(t.GetShape())
		res.Float32 = tensor.Int32ToFloat32(t.GetData())
	case *ort.Tensor[int64]:
		res.Shape = tensor.FromInt64(t.GetShape())
		res.Float32 = tensor.Int64ToFloat32(t.GetData())
	case *ort.CustomDataTensor:
		if t.DataType() != ort.TensorElementDataTypeFloat16 {
			return tensor.Tensor{}, fmt.Errorf("unsupported custom output type %v", t.DataType())
		}

		res.Shape = tensor.FromInt64(t.GetShape())
		res.Float32 = float16Bytes(t.GetData())

		if len(res.Float32) != res.Shape.NumElements() {
			return tensor.Tensor{}, fmt.Errorf("float16 output has %d values, shape %v needs %d",
				len(res.Float32), []int(res.Shape), res.Shape.NumElements())
		}
	default:
		return tensor.Tensor{}, fmt.Errorf("unsupported output value %T", v)
	}

	return res, nil
}

// float16Bytes converts raw little endian float16 output data to float32
func float16Bytes(b []byte) []float32 {

	bits := make([]uint16, len(b)/2)

	for i := range bits {
		bits[i] = binary.LittleEndian.Uint16(b[i*2:])
	}

	return tensor.Float16ToFloat32(bits)
}
