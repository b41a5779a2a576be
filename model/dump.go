package model

import (
	"fmt"
	"io"
	"sort"
)

// Dump writes the parsed configuration to w
func (c *Config) Dump(w io.Writer) {

	fmt.Fprintf(w, "Model: %s\n", c.ModelName)
	fmt.Fprintf(w, "  Path                  = %s\n", c.Path)
	fmt.Fprintf(w, "  Task type             = %s\n", c.TaskType)
	fmt.Fprintf(w, "  Runtime               = %s\n", c.Runtime)
	fmt.Fprintf(w, "  Model path            = %s\n", c.ModelPath)
	fmt.Fprintf(w, "  Artifacts path        = %s\n", c.ArtifactsPath)
	fmt.Fprintf(w, "  Accelerated           = %t\n", c.Accelerated)
	fmt.Fprintf(w, "  Data type             = %s\n", c.DataType)
	fmt.Fprintf(w, "  Resize                = %s\n", c.Resize)
	fmt.Fprintf(w, "  Crop                  = %s\n", c.Crop)
	fmt.Fprintf(w, "  Reverse channels      = %t\n", c.ReverseChannels)
	fmt.Fprintf(w, "  Data layout           = %s\n", c.DataLayout)
	fmt.Fprintf(w, "  Mean                  = %v\n", c.Mean)
	fmt.Fprintf(w, "  Scale                 = %v\n", c.Scale)

	if c.Formatter != nil {
		fmt.Fprintf(w, "  Formatter src         = %v\n", c.Formatter.SrcIndices)
		fmt.Fprintf(w, "  Formatter dst         = %v\n", c.Formatter.DstIndices)
	}

	if c.IgnoreIndex != nil {
		fmt.Fprintf(w, "  Ignore index          = %d\n", *c.IgnoreIndex)
	}

	fmt.Fprintf(w, "  Normalized detections = %t\n", c.NormalizedDetections)
	fmt.Fprintf(w, "  Shuffle indices       = %v\n", c.ShuffleIndices)

	keys := make([]int, 0, len(c.LabelOffset))

	for k := range c.LabelOffset {
		keys = append(keys, k)
	}

	sort.Ints(keys)

	for _, k := range keys {
		fmt.Fprintf(w, "  Label offset [%d]      = %d\n", k, c.LabelOffset[k])
	}

	fmt.Fprintf(w, "  Class names           = %d\n", len(c.ClassNames))
	fmt.Fprintf(w, "  Alpha                 = %.2f\n", c.Alpha)
	fmt.Fprintf(w, "  Viz threshold         = %.2f\n", c.VizThreshold)
	fmt.Fprintf(w, "  Top N                 = %d\n", c.TopN)
}
