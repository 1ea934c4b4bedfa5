package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParameterBounds is the allowed range of one balance parameter.
type ParameterBounds struct {
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Initial float64 `yaml:"initial"`
	// MaxDelta overrides the global per-action limit when non-zero.
	MaxDelta float64 `yaml:"max_delta"`
}

// BoundsFile is the YAML layout of the autotune bounds file:
//
//	parameters:
//	  weapon.smg.damage: {min: 10, max: 40, initial: 22}
type BoundsFile struct {
	Parameters map[string]ParameterBounds `yaml:"parameters"`
}

// LoadBounds reads and validates the autotune bounds file.
func LoadBounds(path string) (map[string]ParameterBounds, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bounds file: %w", err)
	}
	return ParseBounds(raw)
}

// ParseBounds decodes a bounds document.
func ParseBounds(raw []byte) (map[string]ParameterBounds, error) {
	var file BoundsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode bounds: %w", err)
	}
	for name, b := range file.Parameters {
		if b.Min > b.Max {
			return nil, fmt.Errorf("parameter %s: min %v exceeds max %v", name, b.Min, b.Max)
		}
		if b.Initial < b.Min || b.Initial > b.Max {
			return nil, fmt.Errorf("parameter %s: initial %v outside [%v, %v]", name, b.Initial, b.Min, b.Max)
		}
		if b.MaxDelta < 0 {
			return nil, fmt.Errorf("parameter %s: negative max_delta", name)
		}
	}
	if file.Parameters == nil {
		file.Parameters = map[string]ParameterBounds{}
	}
	return file.Parameters, nil
}
