package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParamFile is the model descriptor file name within a bundle directory
const ParamFile = "param.yaml"

// DatasetFile is the optional class name file within a bundle directory
const DatasetFile = "dataset.yaml"

// descriptor mirrors the param.yaml schema
type descriptor struct {
	TaskType     string            `yaml:"task_type"`
	Session      sessionSection    `yaml:"session"`
	Preprocess   preprocessSection `yaml:"preprocess"`
	Postprocess  postSection       `yaml:"postprocess"`
	Metric       metricSection     `yaml:"metric"`
	InputDataset struct {
		Name string `yaml:"name"`
	} `yaml:"input_dataset"`
}

type sessionSection struct {
	SessionName       string    `yaml:"session_name"`
	ModelPath         pathList  `yaml:"model_path"`
	ArtifactsFolder   string    `yaml:"artifacts_folder"`
	InputOptimization bool      `yaml:"input_optimization"`
	InputMean         []float64 `yaml:"input_mean"`
	InputScale        []float64 `yaml:"input_scale"`
	DeviceID          int       `yaml:"device_id"`
}

type preprocessSection struct {
	Resize          *geometry `yaml:"resize"`
	Crop            *geometry `yaml:"crop"`
	ReverseChannels bool      `yaml:"reverse_channels"`
	DataLayout      string    `yaml:"data_layout"`
}

type postSection struct {
	Formatter *struct {
		SrcIndices []int `yaml:"src_indices"`
		DstIndices []int `yaml:"dst_indices"`
	} `yaml:"formatter"`
	IgnoreIndex          *int  `yaml:"ignore_index"`
	NormalizedDetections bool  `yaml:"normalized_detections"`
	ShuffleIndices       []int `yaml:"shuffle_indices"`
}

type metricSection struct {
	LabelOffsetPred *labelOffsetNode `yaml:"label_offset_pred"`
}

// geometry accepts a scalar or a [width, height] sequence
type geometry Size

// UnmarshalYAML implements yaml.Unmarshaler
func (g *geometry) UnmarshalYAML(n *yaml.Node) error {

	switch n.Kind {
	case yaml.ScalarNode:
		var s int

		if err := n.Decode(&s); err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}

		*g = geometry{Height: s, Width: s}
		return nil

	case yaml.SequenceNode:
		var wh []int

		if err := n.Decode(&wh); err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}

		if len(wh) != 2 {
			return fmt.Errorf("line %d: expected [width, height], got %d values",
				n.Line, len(wh))
		}

		// source order is width first, stored height first
		*g = geometry{Height: wh[1], Width: wh[0]}
		return nil
	}

	return fmt.Errorf("line %d: geometry must be a scalar or a sequence", n.Line)
}

// pathList accepts a single path or a list of paths
type pathList []string

// UnmarshalYAML implements yaml.Unmarshaler
func (p *pathList) UnmarshalYAML(n *yaml.Node) error {

	switch n.Kind {
	case yaml.ScalarNode:
		var s string

		if err := n.Decode(&s); err != nil {
			return err
		}

		*p = pathList{s}
		return nil

	case yaml.SequenceNode:
		var list []string

		if err := n.Decode(&list); err != nil {
			return err
		}

		*p = list
		return nil
	}

	return fmt.Errorf("line %d: model_path must be a path or a list of paths", n.Line)
}

// labelOffsetNode accepts a scalar offset or a {class: offset} map
type labelOffsetNode LabelOffset

// UnmarshalYAML implements yaml.Unmarshaler
func (l *labelOffsetNode) UnmarshalYAML(n *yaml.Node) error {

	switch n.Kind {
	case yaml.ScalarNode:
		var off int

		if err := n.Decode(&off); err != nil {
			return err
		}

		*l = labelOffsetNode{0: off}
		return nil

	case yaml.MappingNode:
		m := map[int]int{}

		if err := n.Decode(&m); err != nil {
			return err
		}

		*l = labelOffsetNode(m)
		return nil
	}

	return fmt.Errorf("line %d: label_offset_pred must be a scalar or a map", n.Line)
}

// readDescriptor loads and decodes the param.yaml file
func readDescriptor(path string) (*descriptor, error) {

	data, err := os.ReadFile(path)

	if err != nil {
		return nil, err
	}

	var d descriptor

	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("malformed descriptor %s: %w", path, err)
	}

	return &d, nil
}
