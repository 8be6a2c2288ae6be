package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a YAML schema document.
//
//	entities:
//	  - name: Person
//	    kind: node
//	    fields:
//	      - {name: name, type: String}
//	      - name: friends
//	        type: "[Person]"
//	        relationship: {type: FRIENDS, direction: OUT}
func ParseYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding schema yaml: %w", err)
	}
	if len(doc.Entities) == 0 {
		return nil, fmt.Errorf("schema yaml declares no entities")
	}
	return &doc, nil
}

// LoadFile reads a schema from a .yaml/.yml/.cue file or a directory
// holding a CUE package.
func LoadFile(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("schema not found: %w", err)
	}
	if info.IsDir() {
		return LoadCUE(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	switch filepath.Ext(path) {
	case ".cue":
		return ParseCUE(path, data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported schema file %q: want .cue, .yaml or .yml", path)
	}
}
