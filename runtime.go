package dlinfer

import (
	"fmt"
	"strings"

	"github.com/swdee/go-dlinfer/runtime/onnxrt"
	"github.com/swdee/go-dlinfer/runtime/tflitert"
	"github.com/swdee/go-dlinfer/runtime/tvmdlr"
	"go.uber.org/zap"
)

// Runtime names the inference runtime a model was compiled for
type Runtime string

// supported runtimes, the values match the session_name key of a model
// descriptor
const (
	RuntimeTVMDLR Runtime = "tvmdlr"
	RuntimeTFLite Runtime = "tflitert"
	RuntimeONNX   Runtime = "onnxrt"
)

// ParseRuntime converts a session name into a Runtime
func ParseRuntime(name string) (Runtime, error) {

	switch rt := Runtime(strings.ToLower(strings.TrimSpace(name))); rt {
	case RuntimeTVMDLR, RuntimeTFLite, RuntimeONNX:
		return rt, nil
	}

	return "", fmt.Errorf("%w: unsupported session name %q", ErrConfiguration, name)
}

// RequiresAcceleration returns true if the runtime can only execute
// precompiled artifacts on the accelerator
func (r Runtime) RequiresAcceleration() bool {
	return r == RuntimeTVMDLR
}

// String returns the runtime name
func (r Runtime) String() string {
	return string(r)
}

// sessionOptions are the optional runtime settings applied by NewSession
type sessionOptions struct {
	numThreads      int
	delegatePath    string
	onnxLibraryPath string
	tidlPlatform    string
	tidlVersion     string
	tensorBits      int
	dlrDeviceID     int
	log             *zap.Logger
}

// SessionOption configures NewSession
type SessionOption func(*sessionOptions)

// WithNumThreads sets the number of CPU threads used by the TFLite and ONNX
// runtimes for layers not offloaded to the accelerator
func WithNumThreads(n int) SessionOption {
	return func(o *sessionOptions) {
		o.numThreads = n
	}
}

// WithDelegatePath overrides the shared library of the TIDL TFLite external
// delegate
func WithDelegatePath(path string) SessionOption {
	return func(o *sessionOptions) {
		o.delegatePath = path
	}
}

// WithONNXLibraryPath sets the path of the onnxruntime shared library
func WithONNXLibraryPath(path string) SessionOption {
	return func(o *sessionOptions) {
		o.onnxLibraryPath = path
	}
}

// WithTIDLProvider overrides the platform, version and tensor bits passed to
// the ONNX Runtime TIDL execution provider
func WithTIDLProvider(platform, version string, tensorBits int) SessionOption {
	return func(o *sessionOptions) {
		o.tidlPlatform = platform
		o.tidlVersion = version
		o.tensorBits = tensorBits
	}
}

// WithDLRDeviceID sets the device index of the TVM/DLR model
func WithDLRDeviceID(id int) SessionOption {
	return func(o *sessionOptions) {
		o.dlrDeviceID = id
	}
}

// WithLogger sets the logger used when constructing the session
func WithLogger(log *zap.Logger) SessionOption {
	return func(o *sessionOptions) {
		o.log = log
	}
}

// NewSession creates the Session for the given runtime.  The artifacts path
// is the directory of precompiled accelerator artifacts, the model path is
// the model file loaded by the TFLite and ONNX runtimes.  When accelerated is
// false the model runs on the CPU only, which the TVM/DLR runtime does not
// support.
func NewSession(rt Runtime, artifacts, modelPath string, accelerated bool,
	opts ...SessionOption) (*Session, error) {

	o := sessionOptions{
		delegatePath: tflitert.DefaultDelegatePath,
		tidlPlatform: onnxrt.DefaultPlatform,
		tidlVersion:  onnxrt.DefaultVersion,
		tensorBits:   onnxrt.DefaultTensorBits,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.log == nil {
		o.log = zap.NewNop()
	}

	if rt.RequiresAcceleration() && !accelerated {
		return nil, fmt.Errorf("%w: %s cannot run without the accelerator",
			ErrAccelerationUnsupported, rt)
	}

	if accelerated && artifacts == "" {
		return nil, fmt.Errorf("%w: %s acceleration requires an artifacts folder",
			ErrConfiguration, rt)
	}

	var backend Backend

	switch rt {
	case RuntimeTVMDLR:
		m, err := tvmdlr.New(artifacts, tvmdlr.Options{DeviceID: o.dlrDeviceID})

		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}

		backend = m

	case RuntimeTFLite:
		interp, err := tflitert.New(modelPath, tflitert.Options{
			Artifacts:    artifacts,
			Accelerate:   accelerated,
			DelegatePath: o.delegatePath,
			NumThreads:   o.numThreads,
		})

		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}

		backend = interp

	case RuntimeONNX:
		sess, err := onnxrt.New(modelPath, onnxrt.Options{
			Artifacts:         artifacts,
			Accelerate:        accelerated,
			SharedLibraryPath: o.onnxLibraryPath,
			NumThreads:        o.numThreads,
			Platform:          o.tidlPlatform,
			Version:           o.tidlVersion,
			TensorBits:        o.tensorBits,
		})

		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}

		backend = sess

	default:
		return nil, fmt.Errorf("%w: unsupported runtime %q", ErrConfiguration, rt)
	}

	o.log.Debug("created session",
		zap.String("runtime", rt.String()),
		zap.String("model", modelPath),
		zap.String("artifacts", artifacts),
		zap.Bool("accelerated", accelerated),
		zap.String("inputType", backend.InputType().String()),
	)

	return newSession(rt, artifacts, modelPath, accelerated, backend), nil
}
