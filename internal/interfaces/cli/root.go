package cli

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"spyglass.dev/cli/internal/application/services"
	"spyglass.dev/cli/internal/core/plugin"
	"spyglass.dev/cli/internal/infrastructure/config"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// CLIContainer holds all the dependencies for CLI commands
type CLIContainer struct {
	Config     config.Config
	Logger     zerolog.Logger
	Registry   *plugin.Registry
	Controller *services.Controller
}

// NewRootCommand represents the base command when called without any
// subcommands
func NewRootCommand(container *CLIContainer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "spyglass",
		Short: "Spyglass - debugger front-end for pluggable backends",
		Long: `Spyglass is a terminal debugger front-end. It loads debugger backend
plugins, attaches to local or remote debug targets, and hosts an
interactive window that polls the active session for new events.

Backends are discovered from the plugins directory at startup; each one
becomes an entry in the window's Plugins menu.`,
		Version: Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))

	rootCmd.PersistentFlags().String("config", "", "Config file path (default is $HOME/.config/spyglass/config.json)")

	rootCmd.AddCommand(NewWindowCommand(container))
	rootCmd.AddCommand(NewPluginsCommand(container))
	rootCmd.AddCommand(NewAttachCommand(container))
	rootCmd.AddCommand(NewLaunchCommand(container))

	return rootCmd
}

// goVersion returns the Go version used to build the binary
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}

// Execute runs the root command with the given container
func Execute(container *CLIContainer) {
	rootCmd := NewRootCommand(container)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
