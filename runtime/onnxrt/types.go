package onnxrt

import (
	"fmt"

	"github.com/swdee/go-dlinfer/tensor"
	ort "github.com/yalue/onnxruntime_go"
)

// convertType maps an onnxruntime element type to a DataType
func convertType(dt ort.TensorElementDataType) (tensor.DataType, error) {

	switch dt {
	case ort.TensorElementDataTypeUint8:
		return tensor.Uint8, nil
	case ort.TensorElementDataTypeInt8:
		return tensor.Int8, nil
	case ort.TensorElementDataTypeInt16:
		return tensor.Int16, nil
	case ort.TensorElementDataTypeInt32:
		return tensor.Int32, nil
	case ort.TensorElementDataTypeInt64:
		return tensor.Int64, nil
	case ort.TensorElementDataTypeFloat16:
		return tensor.Float16, nil
	case ort.TensorElementDataTypeFloat:
		return tensor.Float32, nil
	case ort.TensorElementDataTypeDouble:
		return tensor.Float64, nil
	}

	return tensor.Undefined, fmt.Errorf("unsupported element type %d", dt)
}
