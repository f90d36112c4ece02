package threatintel

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML document with the same shape as Lists.
func Parse(data []byte) (*Lists, error) {
	var extra Lists
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("failed to parse threat lists: %w", err)
	}
	return &extra, nil
}

// Load reads a YAML extension file and merges it onto the built-in tables.
// An empty path returns the built-in tables unchanged.
func Load(path string) (*Lists, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read threat lists %s: %w", path, err)
	}

	extra, err := Parse(data)
	if err != nil {
		return nil, err
	}

	return Default().Merge(extra), nil
}
