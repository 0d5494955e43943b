package plugin

import (
	"errors"
	"sync"
)

// ErrInvalidPlugin is returned when a nil or unusable plugin handle is
// offered for registration.
var ErrInvalidPlugin = errors.New("plugin: invalid plugin handle")

// Info pairs a registered plugin with its stable menu dispatch identifier.
// The plugin itself is referenced by arena index rather than by pointer so
// the registry stays the single owner of every handle.
type Info struct {
	// Index is the plugin's slot in the registry arena.
	Index int
	// MenuItem is the dispatch identifier assigned at registration,
	// unique within the running process.
	MenuItem int
}

// Registry owns all discovered plugin handles for the process lifetime and
// assigns each a stable menu-item id. Ids grow monotonically and are never
// reused within a process run; there is no removal operation.
type Registry struct {
	mu     sync.RWMutex
	arena  []Plugin
	infos  []Info
	byMenu map[int]int // menu-item id -> arena index
	nextID int
}

// NewRegistry creates an empty plugin registry. Menu-item ids are assigned
// starting at zero.
func NewRegistry() *Registry {
	return &Registry{
		byMenu: make(map[int]int),
	}
}

// Register stores the plugin in the arena and assigns it the next unused
// menu-item id. A nil handle is rejected with ErrInvalidPlugin.
func (r *Registry) Register(p Plugin) (Info, error) {
	if p == nil {
		return Info{}, ErrInvalidPlugin
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	info := Info{
		Index:    len(r.arena),
		MenuItem: r.nextID,
	}
	r.nextID++

	r.arena = append(r.arena, p)
	r.infos = append(r.infos, info)
	r.byMenu[info.MenuItem] = info.Index

	return info, nil
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.arena)
}

// Lookup returns the plugin assigned the given menu-item id.
func (r *Registry) Lookup(menuItem int) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byMenu[menuItem]
	if !ok {
		return nil, false
	}
	return r.arena[idx], true
}

// At returns the plugin stored at the given arena index.
func (r *Registry) At(index int) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index < 0 || index >= len(r.arena) {
		return nil, false
	}
	return r.arena[index], true
}

// Infos returns the registered plugin infos in registration order.
func (r *Registry) Infos() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, len(r.infos))
	copy(infos, r.infos)
	return infos
}
