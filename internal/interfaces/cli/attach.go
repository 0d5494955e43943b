package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// AttachFlags holds command-line flags for the attach command
type AttachFlags struct {
	Duration time.Duration
}

// NewAttachCommand creates the attach command, a headless remote-attach
// probe: it attaches, activates, polls for a while printing events, then
// detaches. Useful for checking an endpoint before opening the window.
func NewAttachCommand(container *CLIContainer) *cobra.Command {
	flags := &AttachFlags{}

	cmd := &cobra.Command{
		Use:   "attach [address]",
		Short: "Attach to a remote debug target and stream events",
		Long: `Attach to a remote debug target without opening the host window.

The session is activated immediately, polled at the configured tick
interval for the given duration, and then detached.

Examples:
  spyglass attach                  # Use the configured remote endpoint
  spyglass attach host:1340        # Attach to a specific endpoint
  spyglass attach --for 30s        # Poll for 30 seconds before detaching`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := container.Config.RemoteEndpoint
			if len(args) > 0 {
				addr = args[0]
			}
			return runAttach(cmd.Context(), container, addr, flags)
		},
	}

	cmd.Flags().DurationVar(&flags.Duration, "for", 10*time.Second, "How long to poll before detaching")

	return cmd
}

// runAttach performs the attach/poll/detach cycle
func runAttach(ctx context.Context, container *CLIContainer, addr string, flags *AttachFlags) error {
	ctrl := container.Controller

	sess, err := ctrl.AttachRemote(ctx, addr)
	if err != nil {
		return fmt.Errorf("attach failed: %w", err)
	}
	if err := ctrl.ActivateRemote(); err != nil {
		return fmt.Errorf("activate failed: %w", err)
	}

	fmt.Printf("Attached to %s (session %s)\n", addr, sess.ID().Value())

	ticker := time.NewTicker(ctrl.Config().TickInterval)
	defer ticker.Stop()

	deadline := time.After(flags.Duration)
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
				fmt.Println("Session ended by remote target")
				return nil
			}
		}
	}
}
