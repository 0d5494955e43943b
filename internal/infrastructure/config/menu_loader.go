package config

import (
	"encoding/json"
	"fmt"
	"os"

	"spyglass.dev/cli/internal/core/menu"
)

// menuNode is the JSON shape of one menu descriptor.
type menuNode struct {
	Label     string     `json:"label"`
	ID        *int       `json:"id,omitempty"`
	Separator bool       `json:"separator,omitempty"`
	Items     []menuNode `json:"items,omitempty"`
}

// LoadMenu reads a menu descriptor tree from a JSON file. An empty path
// returns the built-in default menu.
func LoadMenu(path string) (*menu.Descriptor, error) {
	if path == "" {
		return DefaultMenu(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read menu file %s: %w", path, err)
	}

	var root menuNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse menu file %s: %w", path, err)
	}

	return toDescriptor(root), nil
}

// toDescriptor converts the JSON shape into the immutable descriptor tree.
func toDescriptor(n menuNode) *menu.Descriptor {
	desc := &menu.Descriptor{
		Label:     n.Label,
		ID:        menu.IDNone,
		Separator: n.Separator,
	}
	if n.ID != nil {
		desc.ID = *n.ID
	}
	for _, child := range n.Items {
		desc.Children = append(desc.Children, toDescriptor(child))
	}
	return desc
}

// DefaultMenu returns the built-in menu descriptor tree. The Plugins
// submenu is not listed here; the builder injects it from the registry.
func DefaultMenu() *menu.Descriptor {
	return menu.Submenu("",
		menu.Submenu("File",
			menu.Item("Attach Remote", menu.CmdAttachRemote),
			menu.Item("Activate Remote", menu.CmdActivateRemote),
			menu.Separator(),
			menu.Item("Detach", menu.CmdDetachActive),
			menu.Separator(),
			menu.Item("Quit", menu.CmdQuit),
		),
	)
}
