package postprocess

import (
	"fmt"
	"image"

	"github.com/swdee/go-dlinfer/model"
	"github.com/swdee/go-dlinfer/render"
	"github.com/swdee/go-dlinfer/tensor"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// detection table columns after formatting
const (
	colX1 = iota
	colY1
	colX2
	colY2
	colClass
	colScore
	detectionCols
)

// Detection overlays labelled bounding boxes of objects scoring above the
// visualization threshold
type Detection struct {
	cfg *model.Config
}

// DetectResult is a single object detection in frame pixel coordinates
type DetectResult struct {
	Box   image.Rectangle
	Class int
	Score float64
	Label string
}

// BoxTable combines the detection output tensors into a single table with
// one row per detection.  Each output has its leading batch dimensions
// removed and a vector becomes a single column.  The outputs are reordered by shuffle when given, a
// trailing scalar output such as a detection count is dropped and the rest
// are concatenated along their last dimension.  A nil table is returned when
// there are no detections
func BoxTable(outputs []tensor.Tensor, shuffle []int) (*mat.Dense, error) {

	parts := make([]tensor.Tensor, len(outputs))

	for i, out := range outputs {
		t := out
		t.Shape = tableShape(out.Shape)

		if len(t.Shape) == 1 {
			t = t.AtLeast2D()
		}

		parts[i] = t
	}

	if len(shuffle) > 0 {
		reordered := make([]tensor.Tensor, len(shuffle))

		for i, idx := range shuffle {
			if idx < 0 || idx >= len(parts) {
				return nil, fmt.Errorf("shuffle index %d out of range for %d outputs",
					idx, len(parts))
			}

			reordered[i] = parts[idx]
		}

		parts = reordered
	}

	if n := len(parts); n > 0 && len(parts[n-1].Shape) < 2 {
		parts = parts[:n-1]
	}

	if len(parts) == 0 {
		return nil, fmt.Errorf("no detection outputs to combine")
	}

	rows := parts[0].Rows()
	cols := 0

	for i, p := range parts {
		if len(p.Shape) < 2 {
			return nil, fmt.Errorf("output %d has shape %v, expected a table", i, []int(p.Shape))
		}

		if p.Rows() != rows {
			return nil, fmt.Errorf("output %d has %d rows, expected %d", i, p.Rows(), rows)
		}

		cols += p.Cols()
	}

	if rows == 0 || cols == 0 {
		return nil, nil
	}

	table := mat.NewDense(rows, cols, nil)
	offset := 0

	for _, p := range parts {
		pc := p.Cols()

		for r := 0; r < rows; r++ {
			for c := 0; c < pc; c++ {
				table.Set(r, offset+c, float64(p.Float32[r*pc+c]))
			}
		}

		offset += pc
	}

	return table, nil
}

// tableShape removes size 1 batch dimensions from a detection output while
// keeping its row dimension, so a single detection [1, 1, 6] stays [1, 6].
// Outputs of rank one or less are fully squeezed
func tableShape(s tensor.Shape) tensor.Shape {

	if len(s) < 2 {
		return s.Squeeze()
	}

	if s[0] == 1 {
		s = s[1:]
	}

	for len(s) > 2 && s[0] == 1 {
		s = s[1:]
	}

	for len(s) > 2 && s[len(s)-1] == 1 {
		s = s[:len(s)-1]
	}

	return append(tensor.Shape{}, s...)
}

// deleteCol returns a copy of m with column idx removed
func deleteCol(m *mat.Dense, idx int) (*mat.Dense, error) {

	rows, cols := m.Dims()

	if idx < 0 || idx >= cols {
		return nil, fmt.Errorf("ignore index %d out of range for %d columns", idx, cols)
	}

	if cols == 1 {
		return nil, fmt.Errorf("ignore index %d would remove the only column", idx)
	}

	out := mat.NewDense(rows, cols-1, nil)
	dst := 0

	for c := 0; c < cols; c++ {
		if c == idx {
			continue
		}

		out.SetCol(dst, mat.Col(nil, c, m))
		dst++
	}

	return out, nil
}

// ApplyFormatter rearranges the table columns in place.  A copy of the table
// has the ignore column removed, then for each formatter pair the column at
// the source index of that copy is written to the destination index of the
// table.  Source indices therefore refer to columns after removal and
// destination indices to columns before removal
func ApplyFormatter(table *mat.Dense, f *model.Formatter, ignoreIndex *int) error {

	if f == nil || table == nil {
		return nil
	}

	if len(f.SrcIndices) != len(f.DstIndices) {
		return fmt.Errorf("formatter has %d source and %d destination indices",
			len(f.SrcIndices), len(f.DstIndices))
	}

	src := mat.DenseCopyOf(table)

	if ignoreIndex != nil {
		var err error

		if src, err = deleteCol(src, *ignoreIndex); err != nil {
			return err
		}
	}

	_, srcCols := src.Dims()
	_, dstCols := table.Dims()

	for i := range f.SrcIndices {
		s, d := f.SrcIndices[i], f.DstIndices[i]

		if s < 0 || s >= srcCols {
			return fmt.Errorf("formatter source index %d out of range for %d columns", s, srcCols)
		}

		if d < 0 || d >= dstCols {
			return fmt.Errorf("formatter destination index %d out of range for %d columns", d, dstCols)
		}

		table.SetCol(d, mat.Col(nil, s, src))
	}

	return nil
}

// NormalizeBoxes divides the box coordinates of each row by the model input
// size so they fall in the range [0,1]
func NormalizeBoxes(table *mat.Dense, size model.Size) error {

	if table == nil {
		return nil
	}

	rows, cols := table.Dims()

	if cols < colY2+1 {
		return fmt.Errorf("detection table has %d columns, need at least %d", cols, colY2+1)
	}

	if size.Width <= 0 || size.Height <= 0 {
		return fmt.Errorf("invalid input size %s", size)
	}

	w, h := float64(size.Width), float64(size.Height)

	for r := 0; r < rows; r++ {
		table.Set(r, colX1, table.At(r, colX1)/w)
		table.Set(r, colY1, table.At(r, colY1)/h)
		table.Set(r, colX2, table.At(r, colX2)/w)
		table.Set(r, colY2, table.At(r, colY2)/h)
	}

	return nil
}

// Results converts the raw outputs into the detections that score above the
// visualization threshold, scaled to a frame of the given size
func (d *Detection) Results(outputs []tensor.Tensor, frameWidth, frameHeight int) ([]DetectResult, error) {

	if err := requireOutputs(outputs, 1); err != nil {
		return nil, err
	}

	table, err := BoxTable(outputs, d.cfg.ShuffleIndices)

	if err != nil {
		return nil, err
	}

	if table == nil {
		return nil, nil
	}

	if err := ApplyFormatter(table, d.cfg.Formatter, d.cfg.IgnoreIndex); err != nil {
		return nil, err
	}

	rows, cols := table.Dims()

	if cols < detectionCols {
		return nil, fmt.Errorf("detection table has %d columns, need at least %d",
			cols, detectionCols)
	}

	if !d.cfg.NormalizedDetections {
		if err := NormalizeBoxes(table, d.cfg.Resize); err != nil {
			return nil, err
		}
	}

	var res []DetectResult

	for r := 0; r < rows; r++ {
		score := table.At(r, colScore)

		if score <= d.cfg.VizThreshold {
			continue
		}

		class := int(table.At(r, colClass))

		res = append(res, DetectResult{
			Box: render.ScaleRect(table.At(r, colX1), table.At(r, colY1),
				table.At(r, colX2), table.At(r, colY2), frameWidth, frameHeight),
			Class: class,
			Score: score,
			Label: d.cfg.ClassName(d.cfg.LabelOffset.Apply(class)),
		})
	}

	return res, nil
}

// Process implements Processor
func (d *Detection) Process(frame *gocv.Mat, outputs []tensor.Tensor) error {

	res, err := d.Results(outputs, frame.Cols(), frame.Rows())

	if err != nil {
		return err
	}

	font := render.DefaultFont()

	for _, r := range res {
		render.LabelledBox(frame, r.Box, r.Label, render.BoxGreen, font, 2)
	}

	return nil
}
