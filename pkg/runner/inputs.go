package runner

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// inputsFile is the on-disk shape of an input grid:
//
//	inputs:
//	  - size: 1024
//	    algo: quick
//	  - size: 4096
//	    algo: quick
type inputsFile struct {
	Inputs []map[string]interface{} `yaml:"inputs"`
}

// LoadInputsFile reads a YAML input grid for RunBatch.
func LoadInputsFile(path string) ([]map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("runner: failed to read inputs file: %w", err)
	}

	var file inputsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("runner: failed to parse inputs file %s: %w", path, err)
	}
	if len(file.Inputs) == 0 {
		return nil, fmt.Errorf("runner: inputs file %s defines no input sets", path)
	}

	return file.Inputs, nil
}
