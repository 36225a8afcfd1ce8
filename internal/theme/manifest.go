// Package theme reads the theme manifest.
package theme

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
)

// ManifestFile is the manifest file name at the theme root.
const ManifestFile = "package.json"

// ErrManifestNotFound is returned when the theme has no manifest.
var ErrManifestNotFound = errors.New("theme manifest not found")

// Manifest is the subset of package.json the pipeline uses.
type Manifest struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description,omitempty"`
	Engines     map[string]string `json:"engines,omitempty"`
	Config      map[string]any    `json:"config,omitempty"`
}

// LoadManifest reads package.json from dir.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile)) //nolint:gosec // G304: path is the configured theme dir
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrManifestNotFound, dir)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes package.json content.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ManifestFile, err)
	}
	return &m, nil
}

// ArchiveName returns the distributable archive file name.
func (m *Manifest) ArchiveName() string {
	name := m.Name
	if name == "" {
		name = "theme"
	}
	return name + ".zip"
}

// HasValidVersion reports whether Version is a full semantic version. The
// leading "v" is optional; shorthands like "1.2" are rejected.
func (m *Manifest) HasValidVersion() bool {
	v := "v" + strings.TrimPrefix(m.Version, "v")
	if !semver.IsValid(v) {
		return false
	}
	core, _, _ := strings.Cut(v, "+")
	return semver.Canonical(v) == core
}
