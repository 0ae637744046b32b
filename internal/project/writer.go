package project

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Write writes a project to a YAML file
func Write(cfg *Configuration, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Read reads a project from a YAML file and fills in missing defaults.
func Read(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML project document.
func Parse(data []byte) (*Configuration, error) {
	var cfg Configuration
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// UnmarshalYAML starts from DefaultCaptionSettings so that settings missing
// from the document keep their default instead of the zero value.
func (d *CaptionsData) UnmarshalYAML(value *yaml.Node) error {
	type plain CaptionsData
	p := plain{Settings: DefaultCaptionSettings()}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*d = CaptionsData(p)
	return nil
}

// Normalize assigns ids to captions that have none and fills unset cursor and
// camera parameters.
func (c *Configuration) Normalize() {
	if c.Captions != nil {
		for i := range c.Captions.Segments {
			if c.Captions.Segments[i].ID == "" {
				c.Captions.Segments[i].ID = uuid.NewString()
			}
		}
	}
	if c.Cursor.Size <= 0 {
		c.Cursor.Size = 12
	}
	if c.Cursor.Color == "" {
		c.Cursor.Color = "#FFFFFF"
	}
	if c.Camera.Size <= 0 {
		c.Camera.Size = 0.25
	}
	if c.Camera.Position == "" {
		c.Camera.Position = "bottom-right"
	}
}

// HasCaptions reports whether the project has at least one caption segment.
func (c *Configuration) HasCaptions() bool {
	return c.Captions != nil && len(c.Captions.Segments) > 0
}
