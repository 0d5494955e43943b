package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// NewPluginsCommand creates the plugins command
func NewPluginsCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List discovered debugger backend plugins",
		Long: `List the backend plugins discovered at startup, in registration order,
with the menu-item id each one dispatches under.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlugins(container)
		},
	}
}

// runPlugins prints the registered plugins in registration order
func runPlugins(container *CLIContainer) error {
	infos := container.Registry.Infos()
	if len(infos) == 0 {
		fmt.Printf("No plugins found in %s\n", container.Config.PluginsDir)
		return nil
	}

	headerStyle := lipgloss.NewStyle().Bold(true)
	fmt.Println(headerStyle.Render(fmt.Sprintf("%-6s %-24s %s", "ID", "NAME", "VERSION")))

	for _, info := range infos {
		p, ok := container.Registry.At(info.Index)
		if !ok {
			continue
		}
		fmt.Printf("%-6d %-24s %s\n", info.MenuItem, p.Name(), p.Version())
	}

	fmt.Printf("\n%d plugin(s) registered\n", container.Registry.Count())
	return nil
}
