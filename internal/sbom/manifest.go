package sbom

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest lists example documents to load in order.
//
// The file may be JSON or YAML:
//
//	{"examples": [{"name": "App", "file": "app.json"}]}
type Manifest struct {
	Examples []ManifestEntry `json:"examples" yaml:"examples" validate:"dive"`
}

// ManifestEntry is one listed document. Path is File resolved against the
// manifest's directory.
type ManifestEntry struct {
	Name string `json:"name" yaml:"name"`
	File string `json:"file" yaml:"file" validate:"required"`
	Path string `json:"-" yaml:"-"`
}

// LoadManifest reads a manifest and resolves its file paths.
func (d *Decoder) LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeManifest, Source: path, Message: err.Error()}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &LoadError{Code: ErrCodeManifest, Source: path, Message: fmt.Sprintf("parse: %v", err)}
	}

	if err := d.validate.Struct(m); err != nil {
		le := fromValidator(path, err)
		le.Code = ErrCodeManifest
		le.Field = trimNamespace(le.Field)
		return nil, le
	}

	dir := filepath.Dir(path)
	for i := range m.Examples {
		e := &m.Examples[i]
		if filepath.IsAbs(e.File) {
			e.Path = e.File
		} else {
			e.Path = filepath.Join(dir, e.File)
		}
		if e.Name == "" {
			e.Name = filepath.Base(e.File)
		}
	}

	return &m, nil
}

// Paths returns the resolved paths in manifest order.
func (m *Manifest) Paths() []string {
	paths := make([]string, len(m.Examples))
	for i, e := range m.Examples {
		paths[i] = e.Path
	}
	return paths
}
