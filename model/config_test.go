package model

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/swdee/go-dlinfer"
	"github.com/swdee/go-dlinfer/dlinfertest"
	"github.com/swdee/go-dlinfer/tensor"
)

// factoryCall records the arguments passed to the session factory
type factoryCall struct {
	rt          dlinfer.Runtime
	artifacts   string
	modelPath   string
	accelerated bool
}

func fakeFactory(dt tensor.DataType, calls *[]factoryCall) SessionFactory {
	return func(rt dlinfer.Runtime, artifacts, modelPath string, accelerated bool,
		_ ...dlinfer.SessionOption) (*dlinfer.Session, error) {

		if calls != nil {
			*calls = append(*calls, factoryCall{rt, artifacts, modelPath, accelerated})
		}

		if rt.RequiresAcceleration() && !accelerated {
			return nil, dlinfer.ErrAccelerationUnsupported
		}

		return dlinfer.WrapBackend(rt, artifacts, modelPath, accelerated,
			dlinfertest.New(dt, nil)), nil
	}
}

// writeBundle creates a bundle directory holding the given param.yaml and
// optional dataset.yaml
func writeBundle(c *qt.C, param, dataset string) string {

	dir := filepath.Join(c.TempDir(), "model_zoo", "TFL-CL-0000-mobileNetV1")
	c.Assert(os.MkdirAll(dir, 0o755), qt.IsNil)
	c.Assert(os.WriteFile(filepath.Join(dir, ParamFile), []byte(param), 0o644), qt.IsNil)

	if dataset != "" {
		c.Assert(os.WriteFile(filepath.Join(dir, DatasetFile), []byte(dataset), 0o644), qt.IsNil)
	}

	return dir
}

const classificationParam = `
task_type: classification
input_dataset:
  name: imagenet
session:
  session_name: tflitert
  model_path: model/mobilenet_v1_1.0_224.tflite
  artifacts_folder: artifacts
  input_mean: [127.5, 127.5, 127.5]
  input_scale: [0.0078125, 0.0078125, 0.0078125]
preprocess:
  resize: 256
  crop: 224
  data_layout: NHWC
  reverse_channels: false
metric:
  label_offset_pred: 1
`

const imagenetDataset = `
categories:
- id: 1
  name: tench
- id: 2
  name: goldfish
  supercategory: fish
`

func TestNewClassification(t *testing.T) {
	c := qt.New(t)

	var calls []factoryCall
	dir := writeBundle(c, classificationParam, imagenetDataset)

	cfg, err := New(dir, true, WithSessionFactory(fakeFactory(tensor.Float32, &calls)))
	c.Assert(err, qt.IsNil)
	defer cfg.Close()

	c.Check(cfg.ModelName, qt.Equals, "TFL-CL-0000-mobileNetV1")
	c.Check(cfg.TaskType, qt.Equals, Classification)
	c.Check(cfg.Runtime, qt.Equals, dlinfer.RuntimeTFLite)
	c.Check(cfg.Resize, qt.Equals, Size{Height: 256, Width: 256})
	c.Check(cfg.Crop, qt.Equals, Size{Height: 224, Width: 224})
	c.Check(cfg.DataLayout, qt.Equals, NHWC)
	c.Check(cfg.Mean, qt.DeepEquals, []float64{127.5, 127.5, 127.5})
	c.Check(cfg.Scale, qt.DeepEquals, []float64{0.0078125, 0.0078125, 0.0078125})
	c.Check(cfg.ModelPath, qt.Equals, filepath.Join(dir, "model/mobilenet_v1_1.0_224.tflite"))
	c.Check(cfg.ArtifactsPath, qt.Equals, filepath.Join(dir, "artifacts"))
	c.Check(cfg.DataType, qt.Equals, tensor.Float32)
	c.Check(cfg.LabelOffset.Apply(0), qt.Equals, 1)
	c.Check(cfg.LabelOffset.Apply(4), qt.Equals, 5)

	c.Check(cfg.ClassNames, qt.DeepEquals, map[int]string{
		0: "",
		1: "tench",
		2: "fish/goldfish",
	})

	c.Check(cfg.Alpha, qt.Equals, DefaultAlpha)
	c.Check(cfg.VizThreshold, qt.Equals, DefaultVizThreshold)
	c.Check(cfg.TopN, qt.Equals, DefaultTopN)

	c.Assert(calls, qt.HasLen, 1)
	c.Check(calls[0], qt.Equals, factoryCall{
		rt:          dlinfer.RuntimeTFLite,
		artifacts:   filepath.Join(dir, "artifacts"),
		modelPath:   filepath.Join(dir, "model/mobilenet_v1_1.0_224.tflite"),
		accelerated: true,
	})
}

func TestNewCPUOnlyPassesNoArtifacts(t *testing.T) {
	c := qt.New(t)

	var calls []factoryCall
	dir := writeBundle(c, classificationParam, "")

	cfg, err := New(dir, false, WithSessionFactory(fakeFactory(tensor.Uint8, &calls)))
	c.Assert(err, qt.IsNil)

	c.Assert(calls, qt.HasLen, 1)
	c.Check(calls[0].artifacts, qt.Equals, "")
	c.Check(calls[0].accelerated, qt.IsFalse)
	c.Check(cfg.DataType, qt.Equals, tensor.Uint8)
}

func TestNewKeepsGivenDir(t *testing.T) {
	c := qt.New(t)

	var calls []factoryCall
	dir := writeBundle(c, classificationParam, "")

	wd, err := os.Getwd()
	c.Assert(err, qt.IsNil)

	rel, err := filepath.Rel(wd, dir)
	c.Assert(err, qt.IsNil)

	cfg, err := New(rel, false, WithSessionFactory(fakeFactory(tensor.Float32, &calls)))
	c.Assert(err, qt.IsNil)
	defer cfg.Close()

	c.Check(cfg.Dir, qt.Equals, rel)
	c.Check(cfg.Path, qt.Equals, dir)
	c.Check(cfg.ModelName, qt.Equals, "TFL-CL-0000-mobileNetV1")
}

func TestGeometry(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name   string
		resize string
		crop   string
		want   [2]Size
	}{
		{
			name:   "scalar",
			resize: "512",
			crop:   "512",
			want:   [2]Size{{512, 512}, {512, 512}},
		},
		{
			name:   "sequence reversed",
			resize: "[768, 384]",
			crop:   "[640, 320]",
			want:   [2]Size{{Height: 384, Width: 768}, {Height: 320, Width: 640}},
		},
	}

	for _, tc := range tests {
		c.Run(tc.name, func(c *qt.C) {
			param := `
task_type: segmentation
session:
  session_name: onnxrt
  model_path: model.onnx
preprocess:
  resize: ` + tc.resize + `
  crop: ` + tc.crop + `
  data_layout: NCHW
`
			cfg, err := New(writeBundle(c, param, ""), false,
				WithSessionFactory(fakeFactory(tensor.Uint8, nil)))
			c.Assert(err, qt.IsNil)

			c.Check(cfg.Resize, qt.Equals, tc.want[0])
			c.Check(cfg.Crop, qt.Equals, tc.want[1])
		})
	}
}

func TestInputOptimization(t *testing.T) {
	c := qt.New(t)

	param := `
task_type: detection
session:
  session_name: onnxrt
  model_path: [model.onnx, model.prototxt]
  input_optimization: true
  input_mean: [0, 0, 0]
  input_scale: [1, 1, 1]
preprocess:
  resize: 320
  crop: 320
  data_layout: NCHW
`
	cfg, err := New(writeBundle(c, param, ""), false,
		WithSessionFactory(fakeFactory(tensor.Uint8, nil)))
	c.Assert(err, qt.IsNil)

	c.Check(cfg.Mean, qt.IsNil)
	c.Check(cfg.Scale, qt.IsNil)
	c.Check(filepath.Base(cfg.ModelPath), qt.Equals, "model.onnx")
}

func TestPostprocessDefaults(t *testing.T) {
	c := qt.New(t)

	param := `
task_type: detection
session:
  session_name: tflitert
  model_path: /opt/models/ssd.tflite
  artifacts_folder: /opt/artifacts/ssd
preprocess:
  resize: 300
  crop: 300
  data_layout: NHWC
`
	cfg, err := New(writeBundle(c, param, ""), false,
		WithSessionFactory(fakeFactory(tensor.Uint8, nil)))
	c.Assert(err, qt.IsNil)

	c.Check(cfg.Formatter, qt.IsNil)
	c.Check(cfg.IgnoreIndex, qt.IsNil)
	c.Check(cfg.NormalizedDetections, qt.IsFalse)
	c.Check(cfg.ShuffleIndices, qt.IsNil)
	c.Check(cfg.ClassNames, qt.IsNil)
	c.Check(cfg.ModelPath, qt.Equals, "/opt/models/ssd.tflite")
	c.Check(cfg.ArtifactsPath, qt.Equals, "/opt/artifacts/ssd")
}

func TestPostprocessKeys(t *testing.T) {
	c := qt.New(t)

	param := `
task_type: detection
input_dataset:
  name: coco
session:
  session_name: onnxrt
  model_path: model.onnx
preprocess:
  resize: [512, 384]
  crop: [512, 384]
  data_layout: NCHW
postprocess:
  formatter:
    src_indices: [5, 4]
    dst_indices: [4, 5]
  ignore_index: null
  normalized_detections: true
  shuffle_indices: [2, 0, 1]
metric:
  label_offset_pred:
    0: 1
    1: 2
    2: 3
`
	cfg, err := New(writeBundle(c, param, ""), false,
		WithSessionFactory(fakeFactory(tensor.Uint8, nil)))
	c.Assert(err, qt.IsNil)

	c.Check(cfg.Formatter, qt.DeepEquals, &Formatter{SrcIndices: []int{5, 4}, DstIndices: []int{4, 5}})
	c.Check(cfg.IgnoreIndex, qt.IsNil)
	c.Check(cfg.NormalizedDetections, qt.IsTrue)
	c.Check(cfg.ShuffleIndices, qt.DeepEquals, []int{2, 0, 1})
	c.Check(cfg.LabelOffset, qt.DeepEquals, LabelOffset{0: 1, 1: 2, 2: 3})
	c.Check(cfg.LabelOffset.Apply(2), qt.Equals, 3)

	// dataset named but dataset.yaml missing
	c.Check(cfg.ClassNames, qt.IsNil)
}

func TestConfigurationErrors(t *testing.T) {
	c := qt.New(t)

	base := `
session:
  session_name: onnxrt
  model_path: model.onnx
preprocess:
  resize: 224
  crop: 224
  data_layout: NCHW
`
	tests := []struct {
		name  string
		param string
	}{
		{"unknown task", "task_type: depth_estimation\n" + base},
		{"missing task", base},
		{"unknown session", `
task_type: classification
session:
  session_name: tensorrt
  model_path: model.plan
preprocess:
  resize: 224
  crop: 224
  data_layout: NCHW
`},
		{"missing crop", `
task_type: classification
session:
  session_name: onnxrt
  model_path: model.onnx
preprocess:
  resize: 224
  data_layout: NCHW
`},
		{"bad layout", `
task_type: classification
session:
  session_name: onnxrt
  model_path: model.onnx
preprocess:
  resize: 224
  crop: 224
  data_layout: HWC
`},
		{"missing model path", `
task_type: classification
session:
  session_name: onnxrt
preprocess:
  resize: 224
  crop: 224
  data_layout: NCHW
`},
		{"malformed", "task_type: [classification\n"},
		{"bad geometry", `
task_type: classification
session:
  session_name: onnxrt
  model_path: model.onnx
preprocess:
  resize: [1, 2, 3]
  crop: 224
  data_layout: NCHW
`},
	}

	for _, tc := range tests {
		c.Run(tc.name, func(c *qt.C) {
			_, err := New(writeBundle(c, tc.param, ""), false,
				WithSessionFactory(fakeFactory(tensor.Uint8, nil)))
			c.Check(err, qt.ErrorIs, dlinfer.ErrConfiguration)
		})
	}
}

func TestMissingDescriptor(t *testing.T) {
	c := qt.New(t)

	_, err := New(c.TempDir(), false, WithSessionFactory(fakeFactory(tensor.Uint8, nil)))
	c.Assert(err, qt.ErrorIs, dlinfer.ErrConfiguration)
}

func TestTVMWithoutAcceleration(t *testing.T) {
	c := qt.New(t)

	param := `
task_type: classification
session:
  session_name: tvmdlr
  model_path: [deploy_lib.so, deploy_graph.json, deploy_params.params]
preprocess:
  resize: 256
  crop: 224
  data_layout: NCHW
`
	_, err := New(writeBundle(c, param, ""), false,
		WithSessionFactory(fakeFactory(tensor.Uint8, nil)))
	c.Assert(err, qt.ErrorIs, dlinfer.ErrAccelerationUnsupported)
}

func TestApplyOverrides(t *testing.T) {
	c := qt.New(t)

	cfg, err := New(writeBundle(c, classificationParam, ""), false,
		WithSessionFactory(fakeFactory(tensor.Uint8, nil)))
	c.Assert(err, qt.IsNil)

	alpha, topN := 0.7, 3
	cfg.ApplyOverrides(Overrides{Alpha: &alpha, TopN: &topN})

	c.Check(cfg.Alpha, qt.Equals, 0.7)
	c.Check(cfg.TopN, qt.Equals, 3)
	c.Check(cfg.VizThreshold, qt.Equals, DefaultVizThreshold)
}

func TestDump(t *testing.T) {
	c := qt.New(t)

	cfg, err := New(writeBundle(c, classificationParam, imagenetDataset), true,
		WithSessionFactory(fakeFactory(tensor.Uint8, nil)))
	c.Assert(err, qt.IsNil)

	var buf bytes.Buffer
	cfg.Dump(&buf)

	c.Check(buf.String(), qt.Contains, "Task type             = classification")
	c.Check(buf.String(), qt.Contains, "Resize                = 256x256")
	c.Check(buf.String(), qt.Contains, "Class names           = 3")
}

func TestClassName(t *testing.T) {
	c := qt.New(t)

	cfg := &Config{ClassNames: map[int]string{0: "", 3: "car"}}

	c.Check(cfg.ClassName(3), qt.Equals, "car")
	c.Check(cfg.ClassName(0), qt.Equals, "")
	c.Check(cfg.ClassName(9), qt.Equals, "class 9")
}
