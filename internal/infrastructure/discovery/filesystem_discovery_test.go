package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spyglass.dev/cli/internal/core/session"
)

func writeManifest(t *testing.T, root, dir, contents string) {
	t.Helper()
	pluginDir := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(pluginDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "plugin.yaml"), []byte(contents), 0o644))
}

func TestFilesystemDiscovery_Discover(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "regs", "name: registers\nversion: 1.2.0\npanel: registers\n")
	writeManifest(t, root, "disasm", "name: disassembly\nversion: 0.9.1\npanel: disassembly\n")

	d := NewFilesystemDiscovery(root, zerolog.Nop())
	plugins, err := d.Discover(context.Background())

	require.NoError(t, err)
	require.Len(t, plugins, 2)
	assert.Equal(t, "disassembly", plugins[0].Name(), "Plugins should be sorted by name")
	assert.Equal(t, "registers", plugins[1].Name())
	assert.Equal(t, "1.2.0", plugins[1].Version())
}

func TestFilesystemDiscovery_MissingDirectory(t *testing.T) {
	d := NewFilesystemDiscovery(filepath.Join(t.TempDir(), "does-not-exist"), zerolog.Nop())

	plugins, err := d.Discover(context.Background())

	require.NoError(t, err, "A missing plugins directory is not an error")
	assert.Empty(t, plugins)
}

func TestFilesystemDiscovery_SkipsInvalidManifests(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "good", "name: callstack\nversion: 2.0.0\n")
	writeManifest(t, root, "noname", "version: 1.0.0\n")
	writeManifest(t, root, "noversion", "name: broken\n")
	writeManifest(t, root, "garbage", "{{{not yaml")
	// A directory with no manifest at all.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	// A stray file at the top level.
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0o644))

	d := NewFilesystemDiscovery(root, zerolog.Nop())
	plugins, err := d.Discover(context.Background())

	require.NoError(t, err)
	require.Len(t, plugins, 1, "Only the valid manifest should survive")
	assert.Equal(t, "callstack", plugins[0].Name())
}

func TestFilesystemDiscovery_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "regs", "name: registers\nversion: 1.0.0\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewFilesystemDiscovery(root, zerolog.Nop())
	_, err := d.Discover(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestManifest_Validate(t *testing.T) {
	tests := []struct {
		name        string
		manifest    Manifest
		expectError bool
	}{
		{name: "Valid", manifest: Manifest{Name: "registers", Version: "1.0.0"}, expectError: false},
		{name: "MissingName", manifest: Manifest{Version: "1.0.0"}, expectError: true},
		{name: "MissingVersion", manifest: Manifest{Name: "registers"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.manifest.Validate()

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestManifestPlugin_HandleCommand(t *testing.T) {
	p := &manifestPlugin{
		manifest: Manifest{Name: "registers", Version: "1.0.0", Panel: "registers"},
		logger:   zerolog.Nop(),
	}

	err := p.HandleCommand(context.Background(), nil)
	assert.Error(t, err, "A nil session must be rejected")

	sess := session.New(session.KindRemote, "localhost:1340")
	err = p.HandleCommand(context.Background(), sess)
	assert.ErrorIs(t, err, session.ErrSessionClosed, "An unattached session is unusable")
}
