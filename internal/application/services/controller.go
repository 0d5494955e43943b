package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"spyglass.dev/cli/internal/application/ports"
	"spyglass.dev/cli/internal/core/event"
	"spyglass.dev/cli/internal/core/menu"
	"spyglass.dev/cli/internal/core/plugin"
	"spyglass.dev/cli/internal/core/session"
)

// ErrUnknownDispatch is returned for a dispatch id with no mapping, e.g. a
// stale id from a previous configuration. It is logged and ignored, never
// fatal: the window must stay usable even if one menu path is broken.
var ErrUnknownDispatch = errors.New("unknown dispatch id")

// ErrNoActiveSession is returned when a plugin command or session action
// needs an active session and none is set.
var ErrNoActiveSession = errors.New("no active session")

// ErrNoRemoteSession is returned when activation is requested but no remote
// session has been attached.
var ErrNoRemoteSession = errors.New("no remote session")

// ControllerConfig contains configuration for the main controller
type ControllerConfig struct {
	// TickInterval is the cadence of the periodic session poll.
	TickInterval time.Duration
	// ConnectTimeout bounds a single remote attach attempt.
	ConnectTimeout time.Duration
	// RemoteEndpoint is the address used when the fixed Attach Remote
	// menu command is dispatched without an explicit address.
	RemoteEndpoint string
}

// DefaultControllerConfig returns sensible controller defaults
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		TickInterval:   100 * time.Millisecond,
		ConnectTimeout: 5 * time.Second,
		RemoteEndpoint: "localhost:1340",
	}
}

// Controller composes the plugin registry, the menu dispatch table, and the
// session slots, and routes menu dispatch and the periodic tick to the
// right action. It tracks two independent optional session slots: the
// currently active session, and a dedicated remote-attach slot — attaching
// a remote target does not implicitly activate it.
//
// Slots are mutated on the event-loop thread; the mutex exists because
// attach runs on a background command so the interface never blocks on
// dial I/O.
type Controller struct {
	mu sync.RWMutex

	registry  *plugin.Registry
	connector ports.Connector
	launcher  ports.Launcher
	logger    zerolog.Logger
	config    ControllerConfig

	menu  *menu.Menu
	table *menu.DispatchTable

	active *session.Session
	remote *session.Session
}

// NewController creates a controller over the given registry and gateways
func NewController(cfg ControllerConfig, reg *plugin.Registry, connector ports.Connector, launcher ports.Launcher, logger zerolog.Logger) *Controller {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultControllerConfig().TickInterval
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultControllerConfig().ConnectTimeout
	}

	return &Controller{
		registry:  reg,
		connector: connector,
		launcher:  launcher,
		logger:    logger.With().Str("component", "controller").Logger(),
		config:    cfg,
	}
}

// Config returns the controller configuration
func (c *Controller) Config() ControllerConfig {
	return c.config
}

// Registry returns the plugin registry
func (c *Controller) Registry() *plugin.Registry {
	return c.registry
}

// BuildMenu materializes the descriptor tree plus plugin entries into the
// controller's menu and dispatch table. A FatalConfig error here aborts
// startup: the menu would be inconsistent with dispatch.
func (c *Controller) BuildMenu(root *menu.Descriptor) error {
	m, table, err := menu.Build(root, c.registry)
	if err != nil {
		return fmt.Errorf("build menu: %w", err)
	}

	c.mu.Lock()
	c.menu = m
	c.table = table
	c.mu.Unlock()

	c.logger.Debug().Int("entries", table.Len()).Msg("menu built")
	return nil
}

// Menu returns the materialized menu structure
func (c *Controller) Menu() *menu.Menu {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.menu
}

// DispatchTable returns the command dispatch table
func (c *Controller) DispatchTable() *menu.DispatchTable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table
}

// OnMenuDispatch routes a dispatch id to its action: a plugin command run
// against the active session, or a fixed session-lifecycle command. Errors
// are recoverable by design; callers report them and carry on.
func (c *Controller) OnMenuDispatch(ctx context.Context, id int) error {
	c.mu.RLock()
	table := c.table
	c.mu.RUnlock()

	if table == nil {
		return fmt.Errorf("dispatch %d: menu not built", id)
	}

	entry, ok := table.Resolve(id)
	if !ok {
		c.logger.Warn().Int("id", id).Msg("dispatch id has no mapping, ignoring")
		return ErrUnknownDispatch
	}

	switch entry.Kind {
	case menu.EntryPlugin:
		return c.dispatchPlugin(ctx, entry)
	default:
		return c.dispatchCommand(ctx, entry)
	}
}

// dispatchPlugin invokes a plugin's menu command against the active
// session. The session is borrowed for the duration of the call only.
func (c *Controller) dispatchPlugin(ctx context.Context, entry menu.Entry) error {
	p, ok := c.registry.At(entry.PluginIndex)
	if !ok {
		c.logger.Warn().Int("id", entry.ID).Int("index", entry.PluginIndex).
			Msg("dispatch entry references missing plugin, ignoring")
		return ErrUnknownDispatch
	}

	active := c.ActiveSession()
	if active == nil {
		c.logger.Info().Str("plugin", p.Name()).Msg("plugin command needs an active session")
		return ErrNoActiveSession
	}

	if err := p.HandleCommand(ctx, active); err != nil {
		c.logger.Error().Err(err).Str("plugin", p.Name()).Msg("plugin command failed")
		return fmt.Errorf("plugin %s: %w", p.Name(), err)
	}
	return nil
}

// dispatchCommand executes one of the fixed built-in commands.
func (c *Controller) dispatchCommand(ctx context.Context, entry menu.Entry) error {
	switch entry.ID {
	case menu.CmdAttachRemote:
		_, err := c.AttachRemote(ctx, c.config.RemoteEndpoint)
		return err
	case menu.CmdActivateRemote:
		return c.ActivateRemote()
	case menu.CmdDetachActive:
		return c.DetachActive()
	case menu.CmdQuit:
		// Quit is handled by the window; reaching the controller means
		// a non-interactive caller dispatched it.
		return nil
	default:
		c.logger.Warn().Int("id", entry.ID).Str("label", entry.Label).
			Msg("fixed command without handler, ignoring")
		return ErrUnknownDispatch
	}
}

// AttachRemote creates a remote session for the address and connects it.
// On success the new session replaces the remote slot but is not activated;
// activation is a separate explicit step. On failure the prior remote
// session, if any, is preserved.
func (c *Controller) AttachRemote(ctx context.Context, addr string) (*session.Session, error) {
	if addr == "" {
		addr = c.config.RemoteEndpoint
	}

	candidate := session.New(session.KindRemote, addr)

	dialCtx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()

	err := candidate.Connect(dialCtx, func(ctx context.Context) (session.Target, error) {
		return c.connector.Connect(ctx, addr)
	})
	if err != nil {
		c.logger.Error().Err(err).Str("addr", addr).Msg("remote attach failed")
		return nil, err
	}

	c.mu.Lock()
	prev := c.remote
	active := c.active
	c.remote = candidate
	c.mu.Unlock()

	// The replaced remote session is released unless the user made it
	// the active session in the meantime.
	if prev != nil && prev != active {
		if derr := prev.Detach(); derr != nil {
			c.logger.Warn().Err(derr).Msg("detach of replaced remote session failed")
		}
	}

	c.logger.Info().Str("addr", addr).Str("session", candidate.ID().Value()).
		Msg("remote session attached, not yet active")
	return candidate, nil
}

// LaunchLocal starts a local debuggee and makes the resulting session the
// active one.
func (c *Controller) LaunchLocal(ctx context.Context, command string, args []string) (*session.Session, error) {
	if c.launcher == nil {
		return nil, fmt.Errorf("launch %s: no launcher configured", command)
	}

	sess := session.New(session.KindLocal, command)
	err := sess.Connect(ctx, func(ctx context.Context) (session.Target, error) {
		return c.launcher.Launch(ctx, command, args)
	})
	if err != nil {
		c.logger.Error().Err(err).Str("command", command).Msg("local launch failed")
		return nil, err
	}

	c.mu.Lock()
	prev := c.active
	remote := c.remote
	c.active = sess
	c.mu.Unlock()

	// The replaced active session is released unless it is also the
	// remote slot, which stays prepared for a later activation.
	if prev != nil && prev != remote {
		if derr := prev.Detach(); derr != nil {
			c.logger.Warn().Err(derr).Msg("detach of replaced active session failed")
		}
	}

	c.logger.Info().Str("command", command).Str("session", sess.ID().Value()).
		Msg("local session launched and activated")
	return sess, nil
}

// ActivateRemote makes the prepared remote session the active session.
func (c *Controller) ActivateRemote() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.remote == nil {
		return ErrNoRemoteSession
	}
	if !c.remote.IsActive() {
		return fmt.Errorf("activate remote session %s: %w", c.remote.ID(), session.ErrSessionClosed)
	}

	c.active = c.remote
	c.logger.Info().Str("session", c.remote.ID().Value()).Msg("remote session activated")
	return nil
}

// DetachActive detaches the active session and clears the slot. The
// session object is kept only if it is also the remote slot.
func (c *Controller) DetachActive() error {
	c.mu.Lock()
	active := c.active
	c.active = nil
	c.mu.Unlock()

	if active == nil {
		return ErrNoActiveSession
	}

	if err := active.Detach(); err != nil {
		return fmt.Errorf("detach active session: %w", err)
	}
	c.logger.Info().Str("session", active.ID().Value()).Msg("active session detached")
	return nil
}

// ActiveSession returns the current active session, or nil.
func (c *Controller) ActiveSession() *session.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// RemoteSession returns the session in the remote-attach slot, or nil.
func (c *Controller) RemoteSession() *session.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.remote
}

// Tick is invoked by the periodic timer. It polls the current active
// session only, if one exists and is Active, and returns whatever events
// the poll surfaced. This is the sole place backend session state reaches
// the UI layer. A tick with no active session is a no-op. Tick never
// blocks: Poll is a non-blocking drain.
func (c *Controller) Tick() []*event.Event {
	active := c.ActiveSession()
	if active == nil {
		return nil
	}

	events, err := active.Poll()
	if err != nil {
		// A session closed between ticks is normal; anything else is
		// still recovered locally to keep the window responsive.
		if errors.Is(err, session.ErrSessionClosed) {
			c.logger.Debug().Str("session", active.ID().Value()).Msg("tick on closed session")
		} else {
			c.logger.Error().Err(err).Str("session", active.ID().Value()).Msg("tick poll failed")
		}
		return nil
	}

	return events
}

// Shutdown detaches both session slots.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	active := c.active
	remote := c.remote
	c.active = nil
	c.remote = nil
	c.mu.Unlock()

	var firstErr error
	for _, s := range []*session.Session{active, remote} {
		if s == nil {
			continue
		}
		if err := s.Detach(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
