// Package discovery loads debugger backend plugins from the filesystem.
package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"spyglass.dev/cli/internal/core/plugin"
	"spyglass.dev/cli/internal/core/session"
)

// Manifest describes one installed backend plugin. Manifests are YAML
// files named plugin.yaml, one per plugin directory.
type Manifest struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
	// Panel is the UI panel kind the plugin contributes (registers,
	// disassembly, callstack, ...). Informational to the core.
	Panel string `yaml:"panel"`
	// Command is the backend executable the plugin drives. Opaque to
	// the core.
	Command string `yaml:"command"`
}

// Validate checks the manifest for required fields
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest missing name")
	}
	if m.Version == "" {
		return fmt.Errorf("manifest %s missing version", m.Name)
	}
	return nil
}

// FilesystemDiscovery scans a plugins directory for manifests and yields
// opaque plugin handles. Discovery happens once at startup; the registry
// owns the handles for the process lifetime.
type FilesystemDiscovery struct {
	dir    string
	logger zerolog.Logger
}

// NewFilesystemDiscovery creates a discovery over the given directory.
func NewFilesystemDiscovery(dir string, logger zerolog.Logger) *FilesystemDiscovery {
	return &FilesystemDiscovery{
		dir:    dir,
		logger: logger.With().Str("component", "discovery").Logger(),
	}
}

// Discover loads every valid plugin manifest under the directory. Plugins
// are returned sorted by name so registration order, and therefore menu-id
// assignment, is deterministic across runs. A missing directory yields no
// plugins rather than an error; a malformed manifest is skipped with a
// warning.
func (d *FilesystemDiscovery) Discover(ctx context.Context) ([]plugin.Plugin, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if os.IsNotExist(err) {
			d.logger.Debug().Str("dir", d.dir).Msg("plugins directory does not exist")
			return nil, nil
		}
		return nil, fmt.Errorf("read plugins dir %s: %w", d.dir, err)
	}

	var plugins []plugin.Plugin
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !entry.IsDir() {
			continue
		}

		manifestPath := filepath.Join(d.dir, entry.Name(), "plugin.yaml")
		manifest, err := d.loadManifest(manifestPath)
		if err != nil {
			d.logger.Warn().Err(err).Str("path", manifestPath).Msg("skipping plugin")
			continue
		}

		plugins = append(plugins, &manifestPlugin{
			manifest: *manifest,
			dir:      filepath.Join(d.dir, entry.Name()),
			logger:   d.logger.With().Str("plugin", manifest.Name).Logger(),
		})
	}

	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Name() < plugins[j].Name()
	})

	d.logger.Info().Int("count", len(plugins)).Str("dir", d.dir).Msg("plugin discovery complete")
	return plugins, nil
}

// loadManifest reads and validates one manifest file.
func (d *FilesystemDiscovery) loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	return &manifest, nil
}

// manifestPlugin is the discovery-backed plugin handle. The actual
// debugging work lives in the backend the manifest points at; the handle
// only carries identity and the menu command hook.
type manifestPlugin struct {
	manifest Manifest
	dir      string
	logger   zerolog.Logger
}

// Name returns the plugin's display name.
func (p *manifestPlugin) Name() string {
	return p.manifest.Name
}

// Version returns the plugin's version string.
func (p *manifestPlugin) Version() string {
	return p.manifest.Version
}

// HandleCommand runs the plugin's menu command against the borrowed
// session. The backend protocol is out of scope here; the handle records
// the invocation and verifies the session is still usable.
func (p *manifestPlugin) HandleCommand(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return fmt.Errorf("plugin %s: no session", p.manifest.Name)
	}
	if !sess.IsActive() {
		return fmt.Errorf("plugin %s: %w", p.manifest.Name, session.ErrSessionClosed)
	}

	p.logger.Info().
		Str("session", sess.ID().Value()).
		Str("panel", p.manifest.Panel).
		Msg("plugin command dispatched")
	return nil
}
