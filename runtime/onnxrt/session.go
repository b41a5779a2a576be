// Package onnxrt runs ONNX models with ONNX Runtime, placing the TIDL
// execution provider ahead of the CPU provider when acceleration is enabled.
package onnxrt

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/swdee/go-dlinfer/tensor"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// TIDLProvider is the name of the TI execution provider
	TIDLProvider = "TIDLExecutionProvider"
	// DefaultPlatform is the TIDL platform of the J7 family of SoC's
	DefaultPlatform = "J7"
	// DefaultVersion is the TIDL version artifacts are compiled against
	DefaultVersion = "7.2"
	// DefaultTensorBits is the quantization bit depth of the artifacts
	DefaultTensorBits = 8
)

// Options configures the session
type Options struct {
	// Artifacts is the precompiled TIDL artifacts folder
	Artifacts string
	// Accelerate appends the TIDL execution provider
	Accelerate bool
	// SharedLibraryPath is the onnxruntime shared library, the library
	// default search path is used when empty
	SharedLibraryPath string
	// NumThreads sets the intra op threads when greater than 0
	NumThreads int
	// Platform, Version and TensorBits are passed to the TIDL provider
	Platform   string
	Version    string
	TensorBits int
}

var (
	envOnce sync.Once
	envErr  error
)

// initEnvironment initializes the process wide onnxruntime environment once
func initEnvironment(libPath string) error {

	envOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}

		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}

		envErr = ort.InitializeEnvironment()
	})

	return envErr
}

// ProviderOptions returns the TIDL execution provider options
func ProviderOptions(opts Options) map[string]string {

	platform := opts.Platform

	if platform == "" {
		platform = DefaultPlatform
	}

	version := opts.Version

	if version == "" {
		version = DefaultVersion
	}

	bits := opts.TensorBits

	if bits == 0 {
		bits = DefaultTensorBits
	}

	return map[string]string{
		"tidl_platform":    platform,
		"tidl_version":     version,
		"tidl_tools_path":  "null",
		"artifacts_folder": opts.Artifacts,
		"tensor_bits":      strconv.Itoa(bits),
		"import":           "no",
	}
}

// Session is a loaded ONNX model
type Session struct {
	session *ort.DynamicAdvancedSession
	// inputs caches the Input tensor attributes of the model
	inputs []ort.InputOutputInfo
	// outputs caches the Output tensor attributes of the model
	outputs []ort.InputOutputInfo
	// inputType is the element type of the first input
	inputType tensor.DataType
}

// New creates a session for the model file
func New(modelPath string, opts Options) (*Session, error) {

	// check file exists in Go, before passing to C
	info, err := os.Stat(modelPath)

	if err != nil {
		return nil, fmt.Errorf("model file does not exist at %s, error: %w",
			modelPath, err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("model file is a directory")
	}

	if err := initEnvironment(opts.SharedLibraryPath); err != nil {
		return nil, fmt.Errorf("error initializing onnxruntime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)

	if err != nil {
		return nil, fmt.Errorf("error reading model inputs and outputs: %w", err)
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("model %s declares no inputs", modelPath)
	}

	inputType, err := convertType(inputs[0].DataType)

	if err != nil {
		return nil, fmt.Errorf("input %s: %w", inputs[0].Name, err)
	}

	options, err := ort.NewSessionOptions()

	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}

	defer options.Destroy()

	if opts.NumThreads > 0 {
		if err := options.SetIntraOpNumThreads(opts.NumThreads); err != nil {
			return nil, fmt.Errorf("error setting threads: %w", err)
		}
	}

	// the CPU provider is always registered last by onnxruntime, so nodes
	// TIDL does not claim fall back to it
	if opts.Accelerate {
		err = options.AppendExecutionProvider(TIDLProvider, ProviderOptions(opts))

		if err != nil {
			return nil, fmt.Errorf("error appending %s: %w", TIDLProvider, err)
		}
	}

	sess, err := ort.NewDynamicAdvancedSession(modelPath,
		ioNames(inputs), ioNames(outputs), options)

	if err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &Session{
		session:   sess,
		inputs:    inputs,
		outputs:   outputs,
		inputType: inputType.Normalize(),
	}, nil
}

func ioNames(infos []ort.InputOutputInfo) []string {

	names := make([]string, len(infos))

	for i, info := range infos {
		names[i] = info.Name
	}

	return names
}

// InputType returns the element type of the first model input
func (s *Session) InputType() tensor.DataType {
	return s.inputType
}

// InputNames returns the declared model input names
func (s *Session) InputNames() []string {
	return ioNames(s.inputs)
}

// Close destroys the session
func (s *Session) Close() error {

	if s.session == nil {
		return nil
	}

	err := s.session.Destroy()
	s.session = nil

	return err
}

// Query writes the input and output tensor attributes to w
func (s *Session) Query(w io.Writer) error {

	fmt.Fprintf(w, "Inputs: %d\n", len(s.inputs))

	for i, info := range s.inputs {
		fmt.Fprintf(w, "  %s\n", formatInfo(i, info))
	}

	fmt.Fprintf(w, "Outputs: %d\n", len(s.outputs))

	for i, info := range s.outputs {
		fmt.Fprintf(w, "  %s\n", formatInfo(i, info))
	}

	return nil
}

func formatInfo(idx int, info ort.InputOutputInfo) string {

	dt, err := convertType(info.DataType)

	if err != nil {
		dt = tensor.Undefined
	}

	return fmt.Sprintf("index=%d, name=%s, shape=%v, type=%s",
		idx, info.Name, []int64(info.Dimensions), dt)
}
