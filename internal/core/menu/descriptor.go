package menu

// IDNone marks a descriptor with no dispatch identifier (submenus and
// separators).
const IDNone = -1

// Fixed command ids live in their own block well above anything the plugin
// registry will assign in a process run, so a menu configuration cannot
// collide with plugin-derived entries by accident. A collision is still
// caught as FatalConfig at build time.
const (
	// CmdAttachRemote attaches to a remote debug target without
	// activating the resulting session.
	CmdAttachRemote = 10000 + iota
	// CmdActivateRemote makes the prepared remote session the active one.
	CmdActivateRemote
	// CmdDetachActive detaches the current active session.
	CmdDetachActive
	// CmdQuit closes the host window.
	CmdQuit
)

// PluginsLabel is the label of the submenu plugin-derived entries are
// injected under.
const PluginsLabel = "Plugins"

// Descriptor is an immutable tree node describing a menu or menu item:
// a label, optional submenu children, and an optional dispatch identifier.
// Descriptor trees come from static configuration and are never mutated at
// runtime.
type Descriptor struct {
	Label     string
	ID        int
	Separator bool
	Children  []*Descriptor
}

// Submenu creates a descriptor with children and no dispatch id.
func Submenu(label string, children ...*Descriptor) *Descriptor {
	return &Descriptor{Label: label, ID: IDNone, Children: children}
}

// Item creates a leaf descriptor bound to a dispatch id.
func Item(label string, id int) *Descriptor {
	return &Descriptor{Label: label, ID: id}
}

// Separator creates a visual divider descriptor.
func Separator() *Descriptor {
	return &Descriptor{ID: IDNone, Separator: true}
}
