// Package ports defines the interfaces between the application core and
// the outside world (networking, process launching, plugin discovery).
package ports

import (
	"context"

	"spyglass.dev/cli/internal/core/plugin"
	"spyglass.dev/cli/internal/core/session"
)

// Connector dials a remote debug target. The address format and wire
// protocol are owned by the implementation; the core only sees the
// resulting target capability.
type Connector interface {
	Connect(ctx context.Context, addr string) (session.Target, error)
}

// Launcher starts a local debuggee process and exposes it as a session
// target.
type Launcher interface {
	Launch(ctx context.Context, command string, args []string) (session.Target, error)
}

// PluginDiscovery yields opaque plugin capability handles. Discovery and
// loading mechanics are external; the core only registers and dispatches.
type PluginDiscovery interface {
	Discover(ctx context.Context) ([]plugin.Plugin, error)
}
