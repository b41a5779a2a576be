package tensor

import "github.com/x448/float16"

var f16LookupTable [65536]float32

func init() {
	// precompute float16 lookup table for faster conversion to float32
	for i := range f16LookupTable {
		f16 := float16.Frombits(uint16(i))
		f16LookupTable[i] = f16.Float32()
	}
}

// Float16ToFloat32 converts a float16 buffer to float32 as Go has no native
// support for FP16
func Float16ToFloat32(buf []uint16) []float32 {

	out := make([]float32, len(buf))

	for i, val := range buf {
		out[i] = f16LookupTable[val]
	}

	return out
}

// Uint8ToFloat32 widens a uint8 buffer to float32
func Uint8ToFloat32(buf []uint8) []float32 {

	out := make([]float32, len(buf))

	for i, val := range buf {
		out[i] = float32(val)
	}

	return out
}

// Int8ToFloat32 widens an int8 buffer to float32
func Int8ToFloat32(buf []int8) []float32 {

	out := make([]float32, len(buf))

	for i, val := range buf {
		out[i] = float32(val)
	}

	return out
}

// Int16ToFloat32 widens an int16 buffer to float32
func Int16ToFloat32(buf []int16) []float32 {

	out := make([]float32, len(buf))

	for i, val := range buf {
		out[i] = float32(val)
	}

	return out
}

// Int32ToFloat32 converts an int32 buffer to float32
func Int32ToFloat32(buf []int32) []float32 {

	out := make([]float32, len(buf))

	for i, val := range buf {
		out[i] = float32(val)
	}

	return out
}

// Int64ToFloat32 converts an int64 buffer to float32, as used by detection
// models that output class indices as int64
func Int64ToFloat32(buf []int64) []float32 {

	out := make([]float32, len(buf))

	for i, val := range buf {
		out[i] = float32(val)
	}

	return out
}

// Float64ToFloat32 narrows a float64 buffer to float32
func Float64ToFloat32(buf []float64) []float32 {

	out := make([]float32, len(buf))

	for i, val := range buf {
		out[i] = float32(val)
	}

	return out
}
