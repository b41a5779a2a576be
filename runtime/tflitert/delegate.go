package tflitert

/*
#cgo LDFLAGS: -ltensorflowlite_c
#include <stdlib.h>
#include <tensorflow/lite/delegates/external/external_delegate.h>

static TfLiteStatus options_insert(TfLiteExternalDelegateOptions* opts,
	const char* key, const char* value) {
	return opts->insert(opts, key, value);
}
*/
import "C"
import (
	"fmt"
	"sort"
	"unsafe"
)

// DefaultDelegatePath is the TIDL TFLite external delegate library shipped
// with the TI edge AI SDK
const DefaultDelegatePath = "/usr/lib/libtidl_tfl_delegate.so"

// tidlDelegate is a TFLite external delegate loaded from a shared library.
// It satisfies the go-tflite delegates.Delegater interface
type tidlDelegate struct {
	d *C.TfLiteDelegate
}

// delegateOptions returns the options passed to the TIDL delegate to run
// precompiled artifacts without importing the model
func delegateOptions(artifacts string) map[string]string {
	return map[string]string{
		"tidl_tools_path":  "null",
		"artifacts_folder": artifacts,
		"import":           "no",
	}
}

// newTIDLDelegate loads the external delegate library at libPath with the
// given key/value options
func newTIDLDelegate(libPath string, options map[string]string) (*tidlDelegate, error) {

	cLib := C.CString(libPath)
	defer C.free(unsafe.Pointer(cLib))

	opts := C.TfLiteExternalDelegateOptionsDefault(cLib)

	// insert keys in a stable order, the C strings must remain valid until
	// the delegate is created
	keys := make([]string, 0, len(options))

	for k := range options {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	cStrs := make([]*C.char, 0, len(keys)*2)

	defer func() {
		for _, s := range cStrs {
			C.free(unsafe.Pointer(s))
		}
	}()

	for _, k := range keys {
		cKey := C.CString(k)
		cVal := C.CString(options[k])
		cStrs = append(cStrs, cKey, cVal)

		if ret := C.options_insert(&opts, cKey, cVal); ret != C.kTfLiteOk {
			return nil, fmt.Errorf("failed to set delegate option %s", k)
		}
	}

	d := C.TfLiteExternalDelegateCreate(&opts)

	if d == nil {
		return nil, fmt.Errorf("failed to create external delegate from %s", libPath)
	}

	return &tidlDelegate{d: d}, nil
}

// Delete releases the delegate, it must only be called after the
// interpreter using it has been deleted
func (t *tidlDelegate) Delete() {

	if t.d == nil {
		return
	}

	C.TfLiteExternalDelegateDelete(t.d)
	t.d = nil
}

// Ptr returns the C TfLiteDelegate pointer
func (t *tidlDelegate) Ptr() unsafe.Pointer {
	return unsafe.Pointer(t.d)
}
