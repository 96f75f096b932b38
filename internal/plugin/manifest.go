package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest file names, in lookup order.
const (
	ManifestJSON = "plugin.json"
	ManifestYAML = "plugin.yaml"
)

// reservedPrefix is the id namespace of built-in plugins.
const reservedPrefix = "devbar:"

// Manifest describes a scripted plugin.
type Manifest struct {
	// Identity
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Icon        string `json:"icon" yaml:"icon"`
	Description string `json:"description,omitempty" yaml:"description"`
	Version     string `json:"version,omitempty" yaml:"version"`

	// Main is the relative path to the Lua entry point (default: "init.lua").
	Main string `json:"main" yaml:"main"`

	// Internal: path to the plugin directory
	path string
}

// Validation errors.
var (
	ErrMissingID      = errors.New("manifest: id is required")
	ErrInvalidID      = errors.New("manifest: id must be lowercase alphanumeric with '-', '_', '.' or ':'")
	ErrReservedID     = errors.New("manifest: id uses the reserved devbar: namespace")
	ErrInvalidVersion = errors.New("manifest: version must be valid semver")
	ErrInvalidMain    = errors.New("manifest: main must be a relative .lua file")
)

// idPattern validates plugin ids.
var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*(:[a-z0-9][a-z0-9._-]*)*$`)

// semverPattern validates version strings (simplified semver).
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// LoadManifest loads and validates a plugin manifest from a JSON or YAML file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	default:
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	m.path = filepath.Dir(path)
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// FindManifest returns the manifest file in dir, if one exists.
func FindManifest(dir string) (string, bool) {
	for _, name := range []string{ManifestJSON, ManifestYAML, "plugin.yml"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// LoadManifestFromDir loads the manifest of a plugin directory.
func LoadManifestFromDir(dir string) (*Manifest, error) {
	p, ok := FindManifest(dir)
	if !ok {
		return nil, fmt.Errorf("%w: no manifest in %s", ErrPluginNotFound, dir)
	}
	return LoadManifest(p)
}

// NewManifestMinimal creates a minimal manifest for plugins without one.
func NewManifestMinimal(id, path string) *Manifest {
	return &Manifest{
		ID:   id,
		Name: id,
		Main: "init.lua",
		path: path,
	}
}

// applyDefaults sets default values for optional fields.
func (m *Manifest) applyDefaults() {
	if m.Main == "" {
		m.Main = "init.lua"
	}
	if m.Name == "" {
		m.Name = m.ID
	}
}

// Validate checks that the manifest is valid.
func (m *Manifest) Validate() error {
	if m.ID == "" {
		return ErrMissingID
	}
	if strings.HasPrefix(m.ID, reservedPrefix) {
		return fmt.Errorf("%w: %s", ErrReservedID, m.ID)
	}
	if !idPattern.MatchString(m.ID) {
		return fmt.Errorf("%w: %s", ErrInvalidID, m.ID)
	}

	if m.Version != "" && !semverPattern.MatchString(m.Version) {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
	}

	if m.Main != "" {
		if filepath.Ext(m.Main) != ".lua" || filepath.IsAbs(m.Main) || strings.HasPrefix(filepath.Clean(m.Main), "..") {
			return fmt.Errorf("%w: %s", ErrInvalidMain, m.Main)
		}
	}
	return nil
}

// Path returns the path to the plugin directory.
func (m *Manifest) Path() string {
	return m.path
}

// MainPath returns the full path to the main Lua file.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.path, m.Main)
}

// String returns a string representation of the manifest.
func (m *Manifest) String() string {
	if m.Version == "" {
		return m.Name
	}
	return fmt.Sprintf("%s v%s", m.Name, m.Version)
}
