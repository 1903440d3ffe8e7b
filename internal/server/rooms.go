// Package server maintains the room directory: built-in rooms seeded at
// startup plus custom rooms created by clients.
package server

import (
	"sync"
	"time"
)

// builtinRooms exist at process start and are never removed.
func builtinRooms() []Room {
	return []Room{
		{ID: "general", Name: "General", Description: "General chat for everyone"},
		{ID: "tech", Name: "Tech", Description: "Discuss technology, programming, and gadgets"},
		{ID: "gossips", Name: "Gossips", Description: "Share the latest news and gossip"},
	}
}

// Directory lists rooms in insertion order: built-ins first, then custom
// rooms as they were created. Rooms are never deleted.
type Directory struct {
	mu    sync.RWMutex
	rooms []Room
	index map[string]int
}

// NewDirectory creates a directory seeded with the built-in rooms.
func NewDirectory() *Directory {
	d := &Directory{index: make(map[string]int)}
	for _, room := range builtinRooms() {
		d.index[room.ID] = len(d.rooms)
		d.rooms = append(d.rooms, room)
	}
	return d
}

// List returns all rooms in insertion order.
func (d *Directory) List() []Room {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return append([]Room(nil), d.rooms...)
}

// Get looks up a room by id.
func (d *Directory) Get(id string) (Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	i, ok := d.index[id]
	if !ok {
		return Room{}, false
	}
	return d.rooms[i], true
}

// Create appends a custom room. A duplicate id is treated as success without
// modifying the directory; created reports whether the room was new.
func (d *Directory) Create(id, name, description, creator string) (room Room, created bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if i, ok := d.index[id]; ok {
		return d.rooms[i], false
	}

	room = Room{
		ID:          id,
		Name:        name,
		Description: description,
		Creator:     creator,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	d.index[id] = len(d.rooms)
	d.rooms = append(d.rooms, room)
	return room, true
}
