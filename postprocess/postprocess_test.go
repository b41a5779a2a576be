package postprocess

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-dlinfer"
	"github.com/swdee/go-dlinfer/model"
	"github.com/swdee/go-dlinfer/tensor"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

func f32(t *testing.T, shape tensor.Shape, data ...float32) tensor.Tensor {
	t.Helper()
	out, err := tensor.NewFloat32(shape, data)
	require.NoError(t, err)
	return out
}

func intPtr(i int) *int {
	return &i
}

func TestNewUnknownTask(t *testing.T) {

	_, err := New(&model.Config{TaskType: model.TaskType("depth_estimation")})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedTask))
	assert.True(t, errors.Is(err, dlinfer.ErrConfiguration))

	for _, task := range []model.TaskType{model.Classification, model.Detection,
		model.Segmentation, model.PoseEstimation} {

		p, err := New(&model.Config{TaskType: task})
		require.NoError(t, err, task)
		assert.NotNil(t, p)
	}
}

func TestTopN(t *testing.T) {

	tests := []struct {
		name   string
		scores []float32
		n      int
		want   []int
	}{
		{"descending", []float32{0.1, 0.7, 0.2, 0.9}, 2, []int{3, 1}},
		{"ties keep index order", []float32{0.5, 0.9, 0.5, 0.5}, 3, []int{1, 0, 2}},
		{"n larger than vector", []float32{0.3, 0.1, 0.2}, 10, []int{0, 2, 1}},
		{"zero", []float32{0.3, 0.1}, 0, []int{}},
		{"negative", []float32{0.3, 0.1}, -1, []int{}},
		{"empty", nil, 5, []int{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := TopN(tc.scores, tc.n)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTopNOrdering(t *testing.T) {

	scores := []float32{0.05, 0.4, 0.4, 0.8, 0.1, 0.6, 0.4}
	top := TopN(scores, len(scores))

	require.Len(t, top, len(scores))

	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, scores[top[i-1]], scores[top[i]])
	}
}

func TestClassificationLabels(t *testing.T) {

	cfg := &model.Config{
		TaskType:    model.Classification,
		TopN:        2,
		LabelOffset: model.LabelOffset{0: 1},
		ClassNames:  map[int]string{1: "animal/cat", 3: "animal/dog"},
	}

	c := &Classification{cfg: cfg}

	labels, err := c.Labels([]tensor.Tensor{
		f32(t, tensor.Shape{1, 4}, 0.1, 0.2, 0.9, 0.05),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"animal/dog", "class 2"}, labels)

	_, err = c.Labels([]tensor.Tensor{f32(t, tensor.Shape{2, 2}, 1, 2, 3, 4)})
	assert.Error(t, err)

	_, err = c.Labels(nil)
	assert.Error(t, err)
}

func TestBoxTableShuffleAndTrailingScalar(t *testing.T) {

	outputs := []tensor.Tensor{
		f32(t, tensor.Shape{1, 2, 4}, 1, 2, 3, 4, 5, 6, 7, 8),
		f32(t, tensor.Shape{1, 2}, 0.9, 0.4),
		f32(t, tensor.Shape{1, 2}, 3, 7),
		f32(t, tensor.Shape{1}, 2),
	}

	table, err := BoxTable(outputs, []int{0, 2, 1, 3})
	require.NoError(t, err)
	require.NotNil(t, table)

	rows, cols := table.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 6, cols)

	assert.InDeltaSlice(t, []float64{1, 2, 3, 4, 3, 0.9}, mat.Row(nil, 0, table), 1e-6)
	assert.InDeltaSlice(t, []float64{5, 6, 7, 8, 7, 0.4}, mat.Row(nil, 1, table), 1e-6)
}

func TestBoxTableSingleDetection(t *testing.T) {

	outputs := []tensor.Tensor{
		f32(t, tensor.Shape{1, 1, 4}, 10, 20, 30, 40),
		f32(t, tensor.Shape{1, 1}, 5),
		f32(t, tensor.Shape{1, 1}, 0.75),
		f32(t, tensor.Shape{1}, 1),
	}

	table, err := BoxTable(outputs, nil)
	require.NoError(t, err)
	require.NotNil(t, table)

	rows, cols := table.Dims()
	assert.Equal(t, 1, rows)
	assert.Equal(t, 6, cols)
	assert.InDeltaSlice(t, []float64{10, 20, 30, 40, 5, 0.75}, mat.Row(nil, 0, table), 1e-6)

	table, err = BoxTable([]tensor.Tensor{f32(t, tensor.Shape{1, 1, 6}, 1, 2, 3, 4, 0, 0.5)}, nil)
	require.NoError(t, err)
	require.NotNil(t, table)

	rows, cols = table.Dims()
	assert.Equal(t, 1, rows)
	assert.Equal(t, 6, cols)
}

func TestTableShape(t *testing.T) {

	tests := []struct {
		in   tensor.Shape
		want tensor.Shape
	}{
		{tensor.Shape{1, 1, 6}, tensor.Shape{1, 6}},
		{tensor.Shape{1, 10, 4}, tensor.Shape{10, 4}},
		{tensor.Shape{1, 1, 1, 6}, tensor.Shape{1, 6}},
		{tensor.Shape{1, 10, 1}, tensor.Shape{10, 1}},
		{tensor.Shape{1, 10}, tensor.Shape{10}},
		{tensor.Shape{1, 1}, tensor.Shape{1}},
		{tensor.Shape{10, 6}, tensor.Shape{10, 6}},
		{tensor.Shape{1}, tensor.Shape{}},
		{tensor.Shape{7}, tensor.Shape{7}},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, tableShape(tc.in), "shape %v", []int(tc.in))
	}
}

func TestBoxTableErrors(t *testing.T) {

	boxes := f32(t, tensor.Shape{2, 4}, 1, 2, 3, 4, 5, 6, 7, 8)

	_, err := BoxTable([]tensor.Tensor{boxes}, []int{3})
	assert.Error(t, err, "shuffle index out of range")

	_, err = BoxTable([]tensor.Tensor{boxes, f32(t, tensor.Shape{3}, 1, 2, 3)}, nil)
	assert.Error(t, err, "row mismatch")

	table, err := BoxTable([]tensor.Tensor{f32(t, tensor.Shape{1, 0, 6})}, nil)
	require.NoError(t, err)
	assert.Nil(t, table)
}

func TestApplyFormatter(t *testing.T) {

	// score, x1, y1, x2, y2, class, extra
	table := mat.NewDense(1, 7, []float64{0.9, 10, 20, 30, 40, 3, 99})

	f := &model.Formatter{
		SrcIndices: []int{1, 2, 3, 4, 5, 0},
		DstIndices: []int{0, 1, 2, 3, 4, 5},
	}

	require.NoError(t, ApplyFormatter(table, f, intPtr(6)))
	assert.Equal(t, []float64{10, 20, 30, 40, 3, 0.9, 99}, mat.Row(nil, 0, table))
}

func TestApplyFormatterCopiesPreFormatColumns(t *testing.T) {

	table := mat.NewDense(2, 6, []float64{
		1, 2, 3, 4, 5, 6,
		7, 8, 9, 10, 11, 12,
	})

	f := &model.Formatter{SrcIndices: []int{2, 3}, DstIndices: []int{0, 1}}

	require.NoError(t, ApplyFormatter(table, f, nil))
	assert.Equal(t, []float64{3, 4, 3, 4, 5, 6}, mat.Row(nil, 0, table))
	assert.Equal(t, []float64{9, 10, 9, 10, 11, 12}, mat.Row(nil, 1, table))
}

func TestApplyFormatterSwapReadsCopy(t *testing.T) {

	// overlapping source and destination sets read from the copy taken
	// before any column is written
	table := mat.NewDense(1, 6, []float64{1, 2, 3, 4, 5, 6})

	f := &model.Formatter{SrcIndices: []int{4, 5}, DstIndices: []int{5, 4}}

	require.NoError(t, ApplyFormatter(table, f, nil))
	assert.Equal(t, []float64{1, 2, 3, 4, 6, 5}, mat.Row(nil, 0, table))
}

func TestApplyFormatterIgnoreIndexShiftsSource(t *testing.T) {

	// leading column is ignored so source indices address the remaining
	// columns while destinations address the full table
	table := mat.NewDense(1, 7, []float64{-1, 10, 20, 30, 40, 3, 0.8})

	f := &model.Formatter{
		SrcIndices: []int{0, 1, 2, 3, 4, 5},
		DstIndices: []int{0, 1, 2, 3, 4, 5},
	}

	require.NoError(t, ApplyFormatter(table, f, intPtr(0)))
	assert.Equal(t, []float64{10, 20, 30, 40, 3, 0.8, 0.8}, mat.Row(nil, 0, table))
}

func TestApplyFormatterErrors(t *testing.T) {

	newTable := func() *mat.Dense {
		return mat.NewDense(1, 6, []float64{1, 2, 3, 4, 5, 6})
	}

	tests := []struct {
		name   string
		f      *model.Formatter
		ignore *int
	}{
		{"source out of range after removal",
			&model.Formatter{SrcIndices: []int{5}, DstIndices: []int{0}}, intPtr(0)},
		{"destination out of range",
			&model.Formatter{SrcIndices: []int{0}, DstIndices: []int{6}}, nil},
		{"ignore index out of range",
			&model.Formatter{SrcIndices: []int{0}, DstIndices: []int{0}}, intPtr(6)},
		{"negative source",
			&model.Formatter{SrcIndices: []int{-1}, DstIndices: []int{0}}, nil},
		{"length mismatch",
			&model.Formatter{SrcIndices: []int{0, 1}, DstIndices: []int{0}}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, ApplyFormatter(newTable(), tc.f, tc.ignore))
		})
	}

	assert.NoError(t, ApplyFormatter(newTable(), nil, nil))
}

func TestDetectionResults(t *testing.T) {

	cfg := &model.Config{
		TaskType:     model.Detection,
		Resize:       model.Size{Height: 200, Width: 400},
		VizThreshold: 0.5,
		LabelOffset:  model.LabelOffset{0: 1},
		ClassNames:   map[int]string{1: "person", 4: "vehicle/car"},
	}

	d := &Detection{cfg: cfg}

	outputs := []tensor.Tensor{
		f32(t, tensor.Shape{1, 3, 6},
			100, 50, 200, 100, 3, 0.9,
			0, 0, 10, 10, 0, 0.5,
			40, 20, 80, 40, 0, 0.51),
	}

	res, err := d.Results(outputs, 800, 400)
	require.NoError(t, err)
	require.Len(t, res, 2)

	assert.Equal(t, image.Rect(200, 100, 400, 200), res[0].Box)
	assert.Equal(t, "vehicle/car", res[0].Label)
	assert.Equal(t, 3, res[0].Class)
	assert.InDelta(t, 0.9, res[0].Score, 1e-6)

	assert.Equal(t, image.Rect(80, 40, 160, 80), res[1].Box)
	assert.Equal(t, "person", res[1].Label)
}

func TestDetectionNormalizedRoundTrip(t *testing.T) {

	cfg := &model.Config{
		TaskType:     model.Detection,
		Resize:       model.Size{Height: 320, Width: 320},
		VizThreshold: 0.3,
	}

	raw := []float32{64, 32, 128, 96, 2, 0.7}
	norm := []float32{64.0 / 320, 32.0 / 320, 128.0 / 320, 96.0 / 320, 2, 0.7}

	resRaw, err := (&Detection{cfg: cfg}).Results(
		[]tensor.Tensor{f32(t, tensor.Shape{1, 6}, raw...)}, 640, 480)
	require.NoError(t, err)

	normCfg := *cfg
	normCfg.NormalizedDetections = true

	resNorm, err := (&Detection{cfg: &normCfg}).Results(
		[]tensor.Tensor{f32(t, tensor.Shape{1, 6}, norm...)}, 640, 480)
	require.NoError(t, err)

	require.Len(t, resRaw, 1)
	require.Len(t, resNorm, 1)
	assert.Equal(t, resRaw[0].Box, resNorm[0].Box)
	assert.Equal(t, image.Rect(128, 48, 256, 144), resRaw[0].Box)
	assert.Equal(t, "class 2", resRaw[0].Label)
}

func TestDetectionTooFewColumns(t *testing.T) {

	d := &Detection{cfg: &model.Config{
		TaskType: model.Detection,
		Resize:   model.Size{Height: 10, Width: 10},
	}}

	_, err := d.Results([]tensor.Tensor{f32(t, tensor.Shape{2, 4}, 1, 2, 3, 4, 5, 6, 7, 8)}, 10, 10)
	assert.Error(t, err)
}

func TestClassMap(t *testing.T) {

	m, err := ClassMap([]tensor.Tensor{
		f32(t, tensor.Shape{1, 2, 2, 3}, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12),
	})

	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, m.Shape)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, m.Float32[:m.Shape.NumElements()])

	_, err = ClassMap([]tensor.Tensor{f32(t, tensor.Shape{1, 4}, 1, 2, 3, 4)})
	assert.Error(t, err)
}

func TestSegmentationProcess(t *testing.T) {

	p, err := New(&model.Config{TaskType: model.Segmentation, Alpha: 0})
	require.NoError(t, err)

	outputs := []tensor.Tensor{f32(t, tensor.Shape{1, 1, 2, 2}, 2, 2, 2, 2)}

	for run := 0; run < 2; run++ {
		frame := gocv.NewMatWithSize(6, 4, gocv.MatTypeCV8UC3)

		require.NoError(t, p.Process(&frame, outputs))

		data := frame.ToBytes()
		assert.Equal(t, []byte{20, 40, 60}, data[:3])
		assert.Equal(t, []byte{20, 40, 60}, data[len(data)-3:])

		frame.Close()
	}
}

func poseRow(score, class float32, kptConf float32) []float32 {

	row := []float32{10, 20, 50, 60, score, class}

	for k := 0; k < 17; k++ {
		row = append(row, float32(k), float32(2*k), kptConf)
	}

	return row
}

func TestPoses(t *testing.T) {

	var data []float32
	data = append(data, poseRow(0.9, 1, 0.8)...)
	data = append(data, poseRow(0.5, 2, 0.8)...)

	outputs := []tensor.Tensor{f32(t, tensor.Shape{1, 2, 57}, data...)}

	res, err := Poses(outputs, model.Size{Height: 100, Width: 200}, 400, 300, 0.5)
	require.NoError(t, err)
	require.Len(t, res, 1, "score equal to threshold is not drawn")

	p := res[0]
	assert.Equal(t, image.Rect(20, 60, 100, 180), p.Box)
	assert.Equal(t, 1, p.Class)
	require.Len(t, p.KeyPoints, 17)
	assert.Equal(t, 10, p.KeyPoints[5].X)
	assert.Equal(t, 30, p.KeyPoints[5].Y)
	assert.InDelta(t, 0.8, p.KeyPoints[5].Conf, 1e-6)
}

func TestPosesSingleRow(t *testing.T) {

	outputs := []tensor.Tensor{f32(t, tensor.Shape{1, 1, 57}, poseRow(0.7, 0, 0.2)...)}

	res, err := Poses(outputs, model.Size{Height: 100, Width: 100}, 100, 100, 0.5)
	require.NoError(t, err)
	require.Len(t, res, 1)

	_, err = Poses([]tensor.Tensor{f32(t, tensor.Shape{1, 7}, 1, 2, 3, 4, 5, 6, 7)},
		model.Size{Height: 100, Width: 100}, 100, 100, 0.5)
	assert.Error(t, err)
}
