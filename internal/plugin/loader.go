package plugin

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Loader discovers scripted plugins on the filesystem.
type Loader struct {
	// Search paths for plugins (checked in order)
	paths []string

	// Discovered plugins cache
	discovered map[string]*PluginInfo
}

// PluginInfo contains discovery information about a plugin.
type PluginInfo struct {
	ID       string
	Path     string
	Manifest *Manifest
	Error    error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths sets the plugin search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// NewLoader creates a new plugin loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		paths:      DefaultPluginPaths(),
		discovered: make(map[string]*PluginInfo),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultPluginPaths returns the default plugin search paths.
func DefaultPluginPaths() []string {
	paths := make([]string, 0, 2)

	// Project plugins: .devbar/plugins/
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".devbar", "plugins"))
	}

	// User plugins: ~/.config/devbar/plugins/
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "devbar", "plugins"))
	}

	return paths
}

// Paths returns the configured search paths.
func (l *Loader) Paths() []string {
	return l.paths
}

// Discover finds all plugins in the search paths.
// Returns plugins sorted by id. When two paths hold the same id the first
// path wins. Unreadable search paths are skipped.
func (l *Loader) Discover() ([]*PluginInfo, error) {
	l.discovered = make(map[string]*PluginInfo)

	for _, basePath := range l.paths {
		if err := l.discoverInPath(basePath); err != nil {
			continue
		}
	}

	plugins := make([]*PluginInfo, 0, len(l.discovered))
	for _, info := range l.discovered {
		plugins = append(plugins, info)
	}
	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].ID < plugins[j].ID
	})
	return plugins, nil
}

// discoverInPath finds plugins in a single directory.
func (l *Loader) discoverInPath(basePath string) error {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		if !entry.IsDir() {
			// Single-file plugins (name.lua)
			if filepath.Ext(entry.Name()) == ".lua" {
				id := strings.TrimSuffix(entry.Name(), ".lua")
				manifest := NewManifestMinimal(id, basePath)
				manifest.Main = entry.Name()
				info := &PluginInfo{ID: id, Path: basePath, Manifest: manifest}
				if err := manifest.Validate(); err != nil {
					info.Manifest, info.Error = nil, fmt.Errorf("invalid plugin: %w", err)
				}
				l.add(info)
			}
			continue
		}

		l.add(l.inspectPlugin(entry.Name(), filepath.Join(basePath, entry.Name())))
	}
	return nil
}

func (l *Loader) add(info *PluginInfo) {
	if _, exists := l.discovered[info.ID]; !exists {
		l.discovered[info.ID] = info
	}
}

// inspectPlugin examines a plugin directory and returns its info.
func (l *Loader) inspectPlugin(name, path string) *PluginInfo {
	info := &PluginInfo{ID: name, Path: path}

	if manifestPath, ok := FindManifest(path); ok {
		manifest, err := LoadManifest(manifestPath)
		if err != nil {
			info.Error = fmt.Errorf("invalid manifest: %w", err)
			return info
		}
		if _, err := os.Stat(manifest.MainPath()); err != nil {
			info.Error = fmt.Errorf("%w: %s", ErrNoEntryPoint, manifest.Main)
			return info
		}
		info.Manifest = manifest
		info.ID = manifest.ID // Use id from manifest
		return info
	}

	// No manifest - check for init.lua, then main.lua
	for _, main := range []string{"init.lua", "main.lua"} {
		if _, err := os.Stat(filepath.Join(path, main)); err == nil {
			manifest := NewManifestMinimal(name, path)
			manifest.Main = main
			if err := manifest.Validate(); err != nil {
				info.Error = fmt.Errorf("invalid plugin: %w", err)
				return info
			}
			info.Manifest = manifest
			return info
		}
	}

	info.Error = ErrNoEntryPoint
	return info
}

// Get returns info for a specific plugin by id.
func (l *Loader) Get(id string) (*PluginInfo, bool) {
	info, ok := l.discovered[id]
	return info, ok
}

// Count returns the number of discovered plugins.
func (l *Loader) Count() int {
	return len(l.discovered)
}

// Errors returns all plugins that failed discovery, sorted by id.
func (l *Loader) Errors() []*PluginInfo {
	var errored []*PluginInfo
	for _, info := range l.discovered {
		if info.Error != nil {
			errored = append(errored, info)
		}
	}
	sort.Slice(errored, func(i, j int) bool {
		return errored[i].ID < errored[j].ID
	})
	return errored
}

// Err joins the discovery errors of all failed plugins, or returns nil.
func (l *Loader) Err() error {
	var errs []error
	for _, info := range l.Errors() {
		errs = append(errs, fmt.Errorf("plugin %s (%s): %w", info.ID, info.Path, info.Error))
	}
	return errors.Join(errs...)
}

// Valid returns the manifests of all plugins that can be hosted, sorted by id.
func (l *Loader) Valid() []*Manifest {
	var manifests []*Manifest
	for _, info := range l.discovered {
		if info.Error == nil && info.Manifest != nil {
			manifests = append(manifests, info.Manifest)
		}
	}
	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].ID < manifests[j].ID
	})
	return manifests
}
