// Package tflitert runs TFLite models with the mattn/go-tflite bindings,
// optionally offloading supported subgraphs to the TIDL accelerator through
// the TI external delegate.
package tflitert

import (
	"fmt"
	"io"
	"os"
	"unsafe"

	"github.com/mattn/go-tflite"
	"github.com/swdee/go-dlinfer/tensor"
)

// Options configures the interpreter
type Options struct {
	// Artifacts is the precompiled TIDL artifacts folder
	Artifacts string
	// Accelerate loads the TIDL delegate, otherwise the model runs on the CPU
	Accelerate bool
	// DelegatePath is the external delegate shared library
	DelegatePath string
	// NumThreads sets the CPU threads of the interpreter when greater than 0
	NumThreads int
}

// Interpreter is a TFLite model with its allocated interpreter
type Interpreter struct {
	model    *tflite.Model
	interp   *tflite.Interpreter
	delegate *tidlDelegate
	// inputs caches the Input tensor attributes of the model
	inputs []TensorAttr
	// outputs caches the Output tensor attributes of the model
	outputs []TensorAttr
}

// New loads the model file and allocates its tensors
func New(modelPath string, opts Options) (*Interpreter, error) {

	// check file exists in Go, before passing to C
	info, err := os.Stat(modelPath)

	if err != nil {
		return nil, fmt.Errorf("model file does not exist at %s, error: %w",
			modelPath, err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("model file is a directory")
	}

	t := &Interpreter{}

	t.model = tflite.NewModelFromFile(modelPath)

	if t.model == nil {
		return nil, fmt.Errorf("cannot load model %s", modelPath)
	}

	options := tflite.NewInterpreterOptions()
	defer options.Delete()

	if opts.NumThreads > 0 {
		options.SetNumThread(opts.NumThreads)
	}

	if opts.Accelerate {
		path := opts.DelegatePath

		if path == "" {
			path = DefaultDelegatePath
		}

		t.delegate, err = newTIDLDelegate(path, delegateOptions(opts.Artifacts))

		if err != nil {
			t.Close()
			return nil, err
		}

		// operators not claimed by the delegate fall back to the CPU kernels
		options.AddDelegate(t.delegate)
	}

	t.interp = tflite.NewInterpreter(t.model, options)

	if t.interp == nil {
		t.Close()
		return nil, fmt.Errorf("cannot create interpreter for %s", modelPath)
	}

	if status := t.interp.AllocateTensors(); status != tflite.OK {
		t.Close()
		return nil, fmt.Errorf("failed to allocate tensors, status %d", status)
	}

	t.inputs, err = t.QueryInputTensors()

	if err != nil {
		t.Close()
		return nil, err
	}

	if len(t.inputs) == 0 {
		t.Close()
		return nil, fmt.Errorf("model %s declares no inputs", modelPath)
	}

	t.outputs, err = t.QueryOutputTensors()

	if err != nil {
		t.Close()
		return nil, err
	}

	return t, nil
}

// Close releases the interpreter, delegate and model in that order
func (t *Interpreter) Close() error {

	if t.interp != nil {
		t.interp.Delete()
		t.interp = nil
	}

	if t.delegate != nil {
		t.delegate.Delete()
		t.delegate = nil
	}

	if t.model != nil {
		t.model.Delete()
		t.model = nil
	}

	return nil
}

// InputType returns the element type of the first model input
func (t *Interpreter) InputType() tensor.DataType {
	return t.inputs[0].Type.Normalize()
}

// InputNames returns the declared model input names
func (t *Interpreter) InputNames() []string {

	names := make([]string, len(t.inputs))

	for i, attr := range t.inputs {
		names[i] = attr.Name
	}

	return names
}

// Run copies the input into input slot 0, invokes the interpreter and
// returns all outputs converted to float32
func (t *Interpreter) Run(input tensor.Tensor) ([]tensor.Tensor, error) {

	if t.interp == nil {
		return nil, fmt.Errorf("interpreter is closed")
	}

	in := t.interp.GetInputTensor(0)

	var buf interface{}

	switch input.Type {
	case tensor.Uint8:
		buf = input.Uint8
	case tensor.Int8:
		buf = input.Int8
	case tensor.Float32:
		buf = input.Float32
	default:
		return nil, fmt.Errorf("unsupported input type %s", input.Type)
	}

	if size := uint(input.Len() * input.Type.Size()); size != in.ByteSize() {
		return nil, fmt.Errorf("input of %d bytes does not match tensor %s of %d bytes",
			size, in.Name(), in.ByteSize())
	}

	if status := in.CopyFromBuffer(buf); status != tflite.OK {
		return nil, fmt.Errorf("failed to copy input, status %d", status)
	}

	if status := t.interp.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("invoke failed, status %d", status)
	}

	outputs := make([]tensor.Tensor, len(t.outputs))

	for i := range t.outputs {

		out, err := readOutput(t.interp.GetOutputTensor(i))

		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}

		outputs[i] = out
	}

	return outputs, nil
}

// readOutput copies a TFLite output tensor into Go memory as float32
func readOutput(out *tflite.Tensor) (tensor.Tensor, error) {

	shape := tensorShape(out)
	n := shape.NumElements()

	res := tensor.Tensor{Name: out.Name(), Shape: shape, Type: tensor.Float32}

	if n == 0 {
		res.Float32 = []float32{}
		return res, nil
	}

	ptr := out.Data()

	switch out.Type() {
	case tflite.Float32:
		res.Float32 = append([]float32{}, out.Float32s()...)
	case tflite.UInt8:
		res.Float32 = tensor.Uint8ToFloat32(out.UInt8s())
	case tflite.Int8:
		res.Float32 = tensor.Int8ToFloat32(unsafe.Slice((*int8)(ptr), n))
	case tflite.Int16:
		res.Float32 = tensor.Int16ToFloat32(unsafe.Slice((*int16)(ptr), n))
	case tflite.Int32:
		res.Float32 = tensor.Int32ToFloat32(unsafe.Slice((*int32)(ptr), n))
	case tflite.Int64:
		res.Float32 = tensor.Int64ToFloat32(unsafe.Slice((*int64)(ptr), n))
	case tfliteFloat16:
		res.Float32 = tensor.Float16ToFloat32(unsafe.Slice((*uint16)(ptr), n))
	default:
		return tensor.Tensor{}, fmt.Errorf("unsupported output type %v", out.Type())
	}

	return res, nil
}

// tensorShape returns the dimensions of a TFLite tensor
func tensorShape(t *tflite.Tensor) tensor.Shape {

	shape := make(tensor.Shape, t.NumDims())

	for i := range shape {
		shape[i] = t.Dim(i)
	}

	return shape
}

// Query writes the input and output tensor attributes to w
func (t *Interpreter) Query(w io.Writer) error {

	fmt.Fprintf(w, "Inputs: %d\n", len(t.inputs))

	for _, attr := range t.inputs {
		fmt.Fprintf(w, "  %s\n", attr)
	}

	fmt.Fprintf(w, "Outputs: %d\n", len(t.outputs))

	for _, attr := range t.outputs {
		fmt.Fprintf(w, "  %s\n", attr)
	}

	return nil
}
