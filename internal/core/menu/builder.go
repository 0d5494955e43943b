package menu

import (
	"fmt"

	"spyglass.dev/cli/internal/core/plugin"
)

// FatalConfigError reports a duplicate dispatch id in the menu
// configuration. It is detected at build time, never at dispatch time, so
// that dispatch stays an unambiguous total function over the ids actually
// built. Startup must abort on it.
type FatalConfigError struct {
	ID    int
	Label string
}

// Error implements the error interface
func (e *FatalConfigError) Error() string {
	return fmt.Sprintf("menu config: duplicate dispatch id %d (%q)", e.ID, e.Label)
}

// EntryKind discriminates what a dispatch id maps to
type EntryKind int

const (
	// EntryCommand - a fixed built-in command (attach remote, quit, ...)
	EntryCommand EntryKind = iota
	// EntryPlugin - a plugin-derived command entry
	EntryPlugin
)

// Entry is one resolved command in the dispatch table.
type Entry struct {
	ID    int
	Label string
	Kind  EntryKind
	// PluginIndex is the registry arena index backing a plugin entry.
	// Meaningless for EntryCommand.
	PluginIndex int
}

// DispatchTable maps integer dispatch ids to command entries. It is the
// de-facto command registry: the menu, key bindings, and anything else that
// invokes commands all resolve through it.
type DispatchTable struct {
	entries map[int]Entry
	order   []int
}

func newDispatchTable() *DispatchTable {
	return &DispatchTable{entries: make(map[int]Entry)}
}

// add registers an entry, rejecting duplicate ids as FatalConfig.
func (t *DispatchTable) add(e Entry) error {
	if _, exists := t.entries[e.ID]; exists {
		return &FatalConfigError{ID: e.ID, Label: e.Label}
	}
	t.entries[e.ID] = e
	t.order = append(t.order, e.ID)
	return nil
}

// Resolve returns the entry for a dispatch id.
func (t *DispatchTable) Resolve(id int) (Entry, bool) {
	e, ok := t.entries[id]
	return e, ok
}

// Len returns the number of registered entries.
func (t *DispatchTable) Len() int {
	return len(t.entries)
}

// IDs returns all dispatch ids in build order.
func (t *DispatchTable) IDs() []int {
	ids := make([]int, len(t.order))
	copy(ids, t.order)
	return ids
}

// Menu is a materialized menu: a labeled list of items, some of which open
// submenus.
type Menu struct {
	Label string
	Items []MenuItem
}

// MenuItem is one rendered row of a menu.
type MenuItem struct {
	Label     string
	ID        int
	Separator bool
	Submenu   *Menu
}

// Submenus returns the top-level submenus of the menu bar in declaration
// order.
func (m *Menu) Submenus() []*Menu {
	var subs []*Menu
	for _, item := range m.Items {
		if item.Submenu != nil {
			subs = append(subs, item.Submenu)
		}
	}
	return subs
}

// Build materializes a descriptor tree into a live menu structure plus the
// dispatch table. Children are emitted in descriptor declaration order.
// Plugin-derived entries are injected under a dedicated "Plugins" submenu in
// registration order, one leaf per registered plugin, using each plugin's
// menu-item id as the dispatch id. Any duplicate dispatch id fails the whole
// build with *FatalConfigError.
func Build(root *Descriptor, reg *plugin.Registry) (*Menu, *DispatchTable, error) {
	if root == nil {
		return nil, nil, fmt.Errorf("menu config: nil root descriptor")
	}

	table := newDispatchTable()

	menu, err := buildNode(root, table)
	if err != nil {
		return nil, nil, err
	}

	if reg != nil {
		pluginsMenu, err := buildPluginsMenu(reg, table)
		if err != nil {
			return nil, nil, err
		}
		menu.Items = append(menu.Items, MenuItem{
			Label:   PluginsLabel,
			ID:      IDNone,
			Submenu: pluginsMenu,
		})
	}

	return menu, table, nil
}

// buildNode recursively materializes one descriptor subtree.
func buildNode(desc *Descriptor, table *DispatchTable) (*Menu, error) {
	m := &Menu{Label: desc.Label}

	for _, child := range desc.Children {
		switch {
		case child.Separator:
			m.Items = append(m.Items, MenuItem{ID: IDNone, Separator: true})

		case len(child.Children) > 0:
			sub, err := buildNode(child, table)
			if err != nil {
				return nil, err
			}
			m.Items = append(m.Items, MenuItem{
				Label:   child.Label,
				ID:      IDNone,
				Submenu: sub,
			})

		case child.ID != IDNone:
			if err := table.add(Entry{
				ID:    child.ID,
				Label: child.Label,
				Kind:  EntryCommand,
			}); err != nil {
				return nil, err
			}
			m.Items = append(m.Items, MenuItem{Label: child.Label, ID: child.ID})

		default:
			// A label-only leaf renders but dispatches nothing.
			m.Items = append(m.Items, MenuItem{Label: child.Label, ID: IDNone})
		}
	}

	return m, nil
}

// buildPluginsMenu creates one leaf per registered plugin in registration
// order.
func buildPluginsMenu(reg *plugin.Registry, table *DispatchTable) (*Menu, error) {
	m := &Menu{Label: PluginsLabel}

	for _, info := range reg.Infos() {
		p, ok := reg.At(info.Index)
		if !ok {
			return nil, fmt.Errorf("menu config: registry info references missing arena index %d", info.Index)
		}

		if err := table.add(Entry{
			ID:          info.MenuItem,
			Label:       p.Name(),
			Kind:        EntryPlugin,
			PluginIndex: info.Index,
		}); err != nil {
			return nil, err
		}
		m.Items = append(m.Items, MenuItem{Label: p.Name(), ID: info.MenuItem})
	}

	return m, nil
}
