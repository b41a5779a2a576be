package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataType(t *testing.T) {

	tests := []struct {
		in   string
		want DataType
	}{
		{"uint8", Uint8},
		{"int8", Int8},
		{"tensor(float)", Float32},
		{"tensor(uint8)", Uint8},
		{"float32", Float32},
		{"tensor(double)", Float64},
		{"FLOAT16", Float16},
		{"int64", Int64},
	}

	for _, tc := range tests {
		got, err := ParseDataType(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseDataType("complex128")
	assert.Error(t, err)
}

func TestDataTypeNormalize(t *testing.T) {
	assert.Equal(t, Float32, Float64.Normalize())
	assert.Equal(t, Uint8, Uint8.Normalize())
	assert.Equal(t, Float32, Float32.Normalize())
}

func TestShapeSqueeze(t *testing.T) {

	tests := []struct {
		in   Shape
		want Shape
	}{
		{Shape{1, 1000}, Shape{1000}},
		{Shape{1, 1, 100, 6}, Shape{100, 6}},
		{Shape{1, 1, 1}, Shape{}},
		{Shape{3, 1, 4}, Shape{3, 4}},
	}

	for _, tc := range tests {
		assert.True(t, tc.in.Squeeze().Equal(tc.want), "squeeze %v got %v", tc.in, tc.in.Squeeze())
	}
}

func TestAtLeast2D(t *testing.T) {

	col := Tensor{Shape: Shape{5}, Type: Float32, Float32: make([]float32, 5)}.AtLeast2D()
	assert.Equal(t, Shape{5, 1}, col.Shape)
	assert.Equal(t, 5, col.Rows())
	assert.Equal(t, 1, col.Cols())

	table := Tensor{Shape: Shape{5, 4}, Type: Float32, Float32: make([]float32, 20)}.AtLeast2D()
	assert.Equal(t, Shape{5, 4}, table.Shape)

	scalar := Tensor{Type: Float32, Float32: []float32{1}}.AtLeast2D()
	assert.Equal(t, Shape{1, 1}, scalar.Shape)
}

func TestPlane(t *testing.T) {

	data := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	ts, err := NewFloat32(Shape{2, 2, 2}, data)
	require.NoError(t, err)

	p := ts.Plane()
	assert.Equal(t, Shape{2, 2}, p.Shape)
	assert.Equal(t, []float32{1, 2, 3, 4}, p.Float32)
}

func TestNewFloat32Mismatch(t *testing.T) {
	_, err := NewFloat32(Shape{2, 3}, make([]float32, 5))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {

	ok := Tensor{Shape: Shape{1, 2, 2, 3}, Type: Uint8, Uint8: make([]uint8, 12)}
	assert.NoError(t, ok.Validate())

	bad := Tensor{Shape: Shape{1, 2, 2, 3}, Type: Uint8, Float32: make([]float32, 12)}
	assert.Error(t, bad.Validate())
}

func TestFloat16ToFloat32(t *testing.T) {

	// 0x3C00 = 1.0, 0xC000 = -2.0, 0x3800 = 0.5
	out := Float16ToFloat32([]uint16{0x3C00, 0xC000, 0x3800, 0x0000})
	assert.Equal(t, []float32{1, -2, 0.5, 0}, out)
}

func TestIntConversions(t *testing.T) {
	assert.Equal(t, []float32{0, 255}, Uint8ToFloat32([]uint8{0, 255}))
	assert.Equal(t, []float32{-128, 127}, Int8ToFloat32([]int8{-128, 127}))
	assert.Equal(t, []float32{3, 17}, Int64ToFloat32([]int64{3, 17}))
	assert.Equal(t, []float32{0.5}, Float64ToFloat32([]float64{0.5}))
}
