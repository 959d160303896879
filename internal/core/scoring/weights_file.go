package scoring

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadWeights reads a YAML override on top of DefaultWeights. Keys missing from
// the file keep their default value.
func LoadWeights(path string) (Weights, error) {
	w := DefaultWeights()
	if path == "" {
		return w, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, fmt.Errorf("read weights file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return Weights{}, fmt.Errorf("parse weights file: %w", err)
	}
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}
