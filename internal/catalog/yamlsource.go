package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/valter-silva-au/adaptive-assessment/pkg/models"
	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of a YAML catalog.
type File struct {
	Version   string            `yaml:"version"`
	Questions []models.Question `yaml:"questions"`
}

// YAMLSource reads a catalog.yaml file on every Load.
type YAMLSource struct {
	Path string
}

// Name identifies the source in events and errors.
func (s YAMLSource) Name() string { return "yaml:" + s.Path }

// Load reads and parses the file.
func (s YAMLSource) Load(_ context.Context) ([]models.Question, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes a YAML catalog document.
func ParseYAML(data []byte) ([]models.Question, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog yaml: %w", err)
	}
	return f.Questions, nil
}

// WriteYAML writes qs to path as a catalog document.
func WriteYAML(path string, qs []models.Question) error {
	data, err := yaml.Marshal(File{Version: "1", Questions: qs})
	if err != nil {
		return fmt.Errorf("marshalling catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing catalog file: %w", err)
	}
	return nil
}
