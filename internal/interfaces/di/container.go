// Package di wires the application together.
package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"spyglass.dev/cli/internal/application/services"
	"spyglass.dev/cli/internal/core/plugin"
	"spyglass.dev/cli/internal/infrastructure/config"
	"spyglass.dev/cli/internal/infrastructure/discovery"
	"spyglass.dev/cli/internal/infrastructure/logging"
	"spyglass.dev/cli/internal/infrastructure/target"
	"spyglass.dev/cli/internal/interfaces/cli"
)

// Container holds all application dependencies
type Container struct {
	Config     config.Config
	Logger     zerolog.Logger
	Registry   *plugin.Registry
	Controller *services.Controller

	cliContainer *cli.CLIContainer
}

// NewContainer creates and wires the dependency container. Startup-time
// configuration errors (invalid plugin handles, duplicate dispatch ids)
// abort here: a window with a menu inconsistent with its dispatch table
// must not come up.
func NewContainer(configPath string) (*Container, error) {
	c := &Container{}

	cfg, err := config.NewLoader(configPath).Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	c.Config = cfg

	c.Logger = logging.New(logging.Config{Level: cfg.LogLevel, Pretty: true})

	if err := c.initializeComponents(); err != nil {
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return c, nil
}

// initializeComponents builds registry, controller and menu in dependency
// order.
func (c *Container) initializeComponents() error {
	ctx := context.Background()

	// 1. Discover and register plugins. Registration happens once at
	// startup; the registry owns the handles for the process lifetime.
	c.Registry = plugin.NewRegistry()

	disc := discovery.NewFilesystemDiscovery(c.Config.PluginsDir, c.Logger)
	plugins, err := disc.Discover(ctx)
	if err != nil {
		return fmt.Errorf("plugin discovery: %w", err)
	}
	for _, p := range plugins {
		info, err := c.Registry.Register(p)
		if err != nil {
			return fmt.Errorf("register plugin %s: %w", p.Name(), err)
		}
		c.Logger.Debug().Str("plugin", p.Name()).Int("menu_item", info.MenuItem).
			Msg("plugin registered")
	}

	// 2. Session gateways.
	connector := target.NewRemoteConnector(target.DefaultRetryConfig(), c.Logger)
	launcher := target.NewLocalLauncher(c.Logger)

	// 3. Controller over registry and gateways.
	c.Controller = services.NewController(services.ControllerConfig{
		TickInterval:   c.Config.TickInterval(),
		ConnectTimeout: c.Config.ConnectTimeout(),
		RemoteEndpoint: c.Config.RemoteEndpoint,
	}, c.Registry, connector, launcher, c.Logger)

	// 4. Menu. Duplicate dispatch ids fail the whole startup.
	menuRoot, err := config.LoadMenu(c.Config.MenuFile)
	if err != nil {
		return fmt.Errorf("load menu: %w", err)
	}
	if err := c.Controller.BuildMenu(menuRoot); err != nil {
		return err
	}

	c.cliContainer = &cli.CLIContainer{
		Config:     c.Config,
		Logger:     c.Logger,
		Registry:   c.Registry,
		Controller: c.Controller,
	}

	return nil
}

// GetCLIContainer returns the container slice the CLI commands need
func (c *Container) GetCLIContainer() *cli.CLIContainer {
	return c.cliContainer
}

// Shutdown releases all session handles
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Controller != nil {
		return c.Controller.Shutdown(ctx)
	}
	return nil
}
