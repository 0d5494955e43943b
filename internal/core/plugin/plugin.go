package plugin

import (
	"context"

	"spyglass.dev/cli/internal/core/session"
)

// Plugin is an opaque backend capability handle. A plugin exposes its
// identity and a single menu command; everything the backend does beyond
// that (breakpoints, disassembly, variable inspection) is internal to the
// plugin and never crosses this interface.
//
// The session passed to HandleCommand is borrowed for the duration of the
// call only. The active session can change between invocations, so a plugin
// must not retain the reference across calls.
type Plugin interface {
	// Name returns the plugin's display name.
	Name() string

	// Version returns the plugin's version string.
	Version() string

	// HandleCommand executes the plugin's menu command against the
	// controller's current active session.
	HandleCommand(ctx context.Context, sess *session.Session) error
}
