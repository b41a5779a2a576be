package model

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// category is an entry of the dataset.yaml categories list
type category struct {
	ID            int    `yaml:"id"`
	Name          string `yaml:"name"`
	SuperCategory string `yaml:"supercategory"`
}

// LoadClassNames reads a dataset.yaml file into a map of class id to display
// name.  Names with a supercategory are returned as "supercategory/name".
// Class id 0 maps to the empty string, meaning no label, unless the dataset
// defines it
func LoadClassNames(path string) (map[int]string, error) {

	data, err := os.ReadFile(path)

	if err != nil {
		return nil, err
	}

	var ds struct {
		Categories []category `yaml:"categories"`
	}

	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("malformed dataset %s: %w", path, err)
	}

	names := make(map[int]string, len(ds.Categories)+1)
	names[0] = ""

	for _, c := range ds.Categories {
		if c.SuperCategory != "" {
			names[c.ID] = c.SuperCategory + "/" + c.Name
		} else {
			names[c.ID] = c.Name
		}
	}

	return names, nil
}
