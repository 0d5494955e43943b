package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"spyglass.dev/cli/internal/interfaces/cli"
	"spyglass.dev/cli/internal/interfaces/di"
)

func main() {
	container, err := di.NewContainer(configPathFromArgs(os.Args[1:]))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		container.Logger.Info().Msg("received shutdown signal, shutting down gracefully")
		cancel()

		if err := container.Shutdown(ctx); err != nil {
			container.Logger.Error().Err(err).Msg("error during shutdown")
		}
		os.Exit(0)
	}()

	cli.Execute(container.GetCLIContainer())
}

// configPathFromArgs extracts the --config flag before cobra parsing, since
// the container must be built before the commands are.
func configPathFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if len(arg) > len("--config=") && arg[:len("--config=")] == "--config=" {
			return arg[len("--config="):]
		}
	}
	return ""
}
