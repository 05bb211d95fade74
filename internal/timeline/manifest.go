package timeline

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Manifest lists the segments of a video to be joined from the command line.
type Manifest struct {
	Version   string    `yaml:"version"`
	Output    string    `yaml:"output"`
	Watermark *bool     `yaml:"watermark,omitempty"`
	TeamName  string    `yaml:"team_name,omitempty"`
	Segments  []Segment `yaml:"segments"`
}

// WriteManifest writes a manifest to a YAML file
func WriteManifest(m *Manifest, path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.WriteFile(path, data, 0644))
}

// ReadManifest reads a manifest from a YAML file. Relative segment paths
// are resolved against the manifest's directory.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	base := filepath.Dir(path)
	for i := range m.Segments {
		if p := m.Segments[i].Path; p != "" && !filepath.IsAbs(p) {
			m.Segments[i].Path = filepath.Join(base, p)
		}
	}
	return &m, nil
}
