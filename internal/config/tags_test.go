package config

import (
	"strings"
	"testing"
)

func TestParseTagLayout(t *testing.T) {
	data := []byte(`
standalone_tags:
  [
    {id: 0, size: 0.05, name: "dock"},
    {id: 7, size: 0.162},
  ]
`)
	layout, err := ParseTagLayout(data)
	if err != nil {
		t.Fatalf("ParseTagLayout() error: %v", err)
	}
	if len(layout.StandaloneTags) != 2 {
		t.Fatalf("Expected 2 tags, got %d", len(layout.StandaloneTags))
	}
	if layout.StandaloneTags[0].Name != "dock" {
		t.Errorf("Expected explicit name, got %s", layout.StandaloneTags[0].Name)
	}
	if layout.StandaloneTags[1].Name != "tag_7" || layout.StandaloneTags[1].Size != 0.162 {
		t.Errorf("Unexpected second tag %+v", layout.StandaloneTags[1])
	}
}

func TestParseTagLayout_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"bad yaml", "standalone_tags: [", "parse tag config"},
		{"negative id", "standalone_tags:\n  - {id: -1, size: 0.1}\n", "id must be >= 0"},
		{"zero size", "standalone_tags:\n  - {id: 1, size: 0}\n", "size must be > 0"},
		{"duplicate", "standalone_tags:\n  - {id: 1, size: 0.1}\n  - {id: 1, size: 0.2}\n", "more than once"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTagLayout([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseTagLayout_Empty(t *testing.T) {
	layout, err := ParseTagLayout(nil)
	if err != nil {
		t.Fatalf("ParseTagLayout(nil) error: %v", err)
	}
	if len(layout.StandaloneTags) != 0 {
		t.Errorf("Expected no tags, got %d", len(layout.StandaloneTags))
	}
}
