/*
go-dlinfer runs deep learning inference pipelines on TI edge devices.  It
provides a uniform Session over three inference runtimes, TVM/DLR, TFLite and
ONNX Runtime, each of which may offload supported subgraphs to the TIDL
accelerator using precompiled model artifacts.

A model bundle directory holds a param.yaml descriptor (and optionally a
dataset.yaml of class names), the model file and the compiled artifacts.  The
model package parses the bundle and owns the Session, the preprocess package
turns a gocv.Mat into the input tensor the Session expects, and the
postprocess package renders classification, detection, segmentation and
pose results back onto the frame.

Each Session is guarded so concurrent callers are serialized, whilst
independent models run in parallel under the pipeline package.

See the command line tools under the cmd subdirectory for usage.
*/
package dlinfer
