package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StandaloneTag describes a single tag that should be reported, with its
// physical edge length in meters
type StandaloneTag struct {
	ID   int     `yaml:"id"`
	Size float64 `yaml:"size"`
	Name string  `yaml:"name"`
}

// TagLayout is the content of the tag configuration file:
//
//	standalone_tags:
//	  - {id: 0, size: 0.05, name: "tag_0"}
//	  - {id: 1, size: 0.05}
type TagLayout struct {
	StandaloneTags []StandaloneTag `yaml:"standalone_tags"`
}

// LoadTagLayout reads and validates a tag configuration file
func LoadTagLayout(path string) (*TagLayout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tag config: %w", err)
	}
	return ParseTagLayout(data)
}

// ParseTagLayout decodes YAML tag configuration. Names default to tag_<id>.
func ParseTagLayout(data []byte) (*TagLayout, error) {
	var layout TagLayout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("parse tag config: %w", err)
	}

	seen := make(map[int]bool, len(layout.StandaloneTags))
	for i := range layout.StandaloneTags {
		tag := &layout.StandaloneTags[i]
		if tag.ID < 0 {
			return nil, fmt.Errorf("standalone tag %d: id must be >= 0", i)
		}
		if tag.Size <= 0 {
			return nil, fmt.Errorf("standalone tag id %d: size must be > 0", tag.ID)
		}
		if seen[tag.ID] {
			return nil, fmt.Errorf("standalone tag id %d is defined more than once", tag.ID)
		}
		seen[tag.ID] = true
		if tag.Name == "" {
			tag.Name = fmt.Sprintf("tag_%d", tag.ID)
		}
	}
	return &layout, nil
}
