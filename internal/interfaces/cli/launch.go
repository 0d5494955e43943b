package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// LaunchFlags holds command-line flags for the launch command
type LaunchFlags struct {
	Duration time.Duration
}

// NewLaunchCommand creates the launch command: it starts a local debuggee,
// makes it the active session, and streams its events until the target
// exits.
func NewLaunchCommand(container *CLIContainer) *cobra.Command {
	flags := &LaunchFlags{}

	cmd := &cobra.Command{
		Use:   "launch <command> [args...]",
		Short: "Launch a local debuggee and stream its events",
		Long: `Launch a command as a local debug target without opening the host window.

The resulting session becomes the active session and is polled at the
configured tick interval until the target exits or the time limit is hit.

Examples:
  spyglass launch ./a.out            # Run until the target exits
  spyglass launch --for 30s ./a.out  # Detach after 30 seconds
  spyglass launch ./a.out -- -v      # Pass flags through to the target`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd.Context(), container, args[0], args[1:], flags)
		},
	}

	cmd.Flags().DurationVar(&flags.Duration, "for", 0, "Detach after this long (0 means until the target exits)")

	return cmd
}

// runLaunch performs the launch/poll/detach cycle
func runLaunch(ctx context.Context, container *CLIContainer, command string, args []string, flags *LaunchFlags) error {
	ctrl := container.Controller

	sess, err := ctrl.LaunchLocal(ctx, command, args)
	if err != nil {
		return fmt.Errorf("launch failed: %w", err)
	}

	fmt.Printf("Launched %s (session %s)\n", command, sess.ID().Value())

	ticker := time.NewTicker(ctrl.Config().TickInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if flags.Duration > 0 {
		deadline = time.After(flags.Duration)
	}

	for {
		select {
		case <-ctx.Done():
			return ctrl.DetachActive()

		case <-deadline:
			fmt.Printf("Detaching after %v (%d events)\n", flags.Duration, sess.TotalEvents())
			return ctrl.DetachActive()

		case <-ticker.C:
			for _, evt := range ctrl.Tick() {
				fmt.Printf("%s  %-16s %s\n",
					evt.OccurredAt().Format("15:04:05.000"), evt.Kind(), evt.Detail())
			}
			if !sess.IsActive() {
				fmt.Printf("Target exited (%d events)\n", sess.TotalEvents())
				return ctrl.DetachActive()
			}
		}
	}
}
