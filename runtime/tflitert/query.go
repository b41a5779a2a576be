package tflitert

import (
	"fmt"

	"github.com/mattn/go-tflite"
	"github.com/swdee/go-dlinfer/tensor"
)

// tfliteFloat16 is kTfLiteFloat16, which go-tflite does not export
const tfliteFloat16 tflite.TensorType = 10

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

// QueryInputTensors returns the attributes of each model input
func (t *Interpreter) QueryInputTensors() ([]TensorAttr, error) {

	attrs := make([]TensorAttr, t.interp.GetInputTensorCount())

	for i := range attrs {

		attr, err := newTensorAttr(i, t.interp.GetInputTensor(i))

		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}

		attrs[i] = attr
	}

	return attrs, nil
}

// QueryOutputTensors returns the attributes of each model output
func (t *Interpreter) QueryOutputTensors() ([]TensorAttr, error) {

	attrs := make([]TensorAttr, t.interp.GetOutputTensorCount())

	for i := range attrs {

		attr, err := newTensorAttr(i, t.interp.GetOutputTensor(i))

		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}

		attrs[i] = attr
	}

	return attrs, nil
}

func newTensorAttr(idx int, t *tflite.Tensor) (TensorAttr, error) {

	dt, err := convertType(t.Type())

	if err != nil {
		return TensorAttr{}, err
	}

	return TensorAttr{
		Index: idx,
		Name:  t.Name(),
		Type:  dt,
		Shape: tensorShape(t),
	}, nil
}

// convertType maps a TFLite tensor type to a DataType
func convertType(tt tflite.TensorType) (tensor.DataType, error) {

	switch tt {
	case tflite.UInt8:
		return tensor.Uint8, nil
	case tflite.Int8:
		return tensor.Int8, nil
	case tflite.Int16:
		return tensor.Int16, nil
	case tflite.Int32:
		return tensor.Int32, nil
	case tflite.Int64:
		return tensor.Int64, nil
	case tfliteFloat16:
		return tensor.Float16, nil
	case tflite.Float32:
		return tensor.Float32, nil
	}

	return tensor.Undefined, fmt.Errorf("unsupported tensor type %v", tt)
}
