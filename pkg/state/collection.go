// Package state holds in-process view state for entity collections.
//
// A Collection is a mutex-guarded ordered list of entities keyed by
// ID. Collections are plain values wired through constructors; nothing
// in this package is a package-level singleton, so independent servers
// or tests can hold independent state.
package state

import "sync"

// Collection is an ordered, ID-addressable set of entities of one
// type. New entries are placed at the front so the most recent writes
// surface first, matching store list ordering.
type Collection[T any] struct {
	mu       sync.RWMutex
	items    []T
	index    map[string]int
	selected string
	loading  bool
	idOf     func(T) string
	version  uint64
}

// NewCollection creates an empty collection. idOf extracts the stable
// identifier for an entity and must not return the empty string for a
// valid entity.
func NewCollection[T any](idOf func(T) string) *Collection[T] {
	return &Collection[T]{
		index: map[string]int{},
		idOf:  idOf,
	}
}

// ReplaceAll swaps the entire contents for the given items and clears
// the loading flag. The selection is kept if the selected entity is
// still present, otherwise cleared.
func (c *Collection[T]) ReplaceAll(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make([]T, len(items))
	copy(c.items, items)
	c.index = make(map[string]int, len(items))
	for i, item := range c.items {
		c.index[c.idOf(item)] = i
	}
	if _, ok := c.index[c.selected]; !ok {
		c.selected = ""
	}
	c.loading = false
	c.version++
}

// Upsert replaces the entity in place when its ID is already present,
// and prepends it otherwise.
func (c *Collection[T]) Upsert(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.idOf(item)
	if i, ok := c.index[id]; ok {
		c.items[i] = item
	} else {
		c.items = append([]T{item}, c.items...)
		for existing, pos := range c.index {
			c.index[existing] = pos + 1
		}
		c.index[id] = 0
	}
	c.version++
}

// Patch applies fn to the entity with the given ID and stores the
// result. It reports whether the entity was present; a missing ID is
// a no-op.
func (c *Collection[T]) Patch(id string, fn func(T) T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[id]
	if !ok {
		return false
	}
	c.items[i] = fn(c.items[i])
	c.version++
	return true
}

// Remove deletes the entity with the given ID, preserving the order of
// the rest. Removing an absent ID is a no-op. The selection is
// cleared if it pointed at the removed entity.
func (c *Collection[T]) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[id]
	if !ok {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	delete(c.index, id)
	for existing, pos := range c.index {
		if pos > i {
			c.index[existing] = pos - 1
		}
	}
	if c.selected == id {
		c.selected = ""
	}
	c.version++
	return true
}

// Get returns the entity with the given ID.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero T
	i, ok := c.index[id]
	if !ok {
		return zero, false
	}
	return c.items[i], true
}

// Items returns a copy of the current contents in order.
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of entities held.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Select marks the entity with the given ID as the current selection.
// Selecting an absent ID clears the selection.
func (c *Collection[T]) Select(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.index[id]; ok {
		c.selected = id
	} else {
		c.selected = ""
	}
}

// Selected returns the currently selected entity, if any.
func (c *Collection[T]) Selected() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero T
	if c.selected == "" {
		return zero, false
	}
	i, ok := c.index[c.selected]
	if !ok {
		return zero, false
	}
	return c.items[i], true
}

// SetLoading marks the collection as refreshing. ReplaceAll clears it.
func (c *Collection[T]) SetLoading(loading bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = loading
}

// Loading reports whether a refresh is in flight.
func (c *Collection[T]) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Version returns a counter incremented on every mutation, letting
// pollers detect change without diffing contents.
func (c *Collection[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}
