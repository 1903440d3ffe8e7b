// Package server tracks live connections and their identities via the
// Registry type, including the reverse username index used to detect
// duplicate logins.
package server

import (
	"sync"

	"github.com/samber/lo"
)

// connectionRecord is the identity attached to one live connection.
type connectionRecord struct {
	Username string
	Status   Status
	Room     string
	Avatar   string
}

// Registry maps connection ids to identity records and usernames back to
// connection ids. The two mappings are always mutated together so they cannot
// diverge. All writes happen on the hub's event loop; the mutex makes the
// read-only projections safe for the HTTP handlers.
type Registry struct {
	mu         sync.RWMutex
	conns      map[string]*connectionRecord
	byUsername map[string]string
	order      []string
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:      make(map[string]*connectionRecord),
		byUsername: make(map[string]string),
	}
}

// Register stores the identity for connID and claims the username. If a
// different connection already holds the username, its record is removed and
// its id returned so the caller can notify and disconnect it.
func (r *Registry) Register(connID, username string, status Status, room, avatar string) (evicted string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prior, ok := r.byUsername[username]; ok && prior != connID {
		evicted = prior
		delete(r.conns, prior)
		r.dropFromOrder(prior)
	}

	if _, ok := r.conns[connID]; !ok {
		r.order = append(r.order, connID)
	}
	r.conns[connID] = &connectionRecord{Username: username, Status: status, Room: room, Avatar: avatar}
	r.byUsername[username] = connID
	return evicted
}

// Get returns a copy of the record for connID.
func (r *Registry) Get(connID string) (connectionRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.conns[connID]
	if !ok {
		return connectionRecord{}, false
	}
	return *rec, true
}

// ConnectionFor returns the connection id currently holding username.
func (r *Registry) ConnectionFor(username string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connID, ok := r.byUsername[username]
	return connID, ok
}

// UpdateStatus mutates the status in place. Unknown connection ids are a no-op.
func (r *Registry) UpdateStatus(connID string, status Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.conns[connID]
	if !ok {
		return false
	}
	rec.Status = status
	return true
}

// ChangeRoom moves the connection to a new room and reports the previous one.
func (r *Registry) ChangeRoom(connID, room string) (previous string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.conns[connID]
	if !exists {
		return "", false
	}
	previous = rec.Room
	rec.Room = room
	return previous, true
}

// ClearRoom detaches the connection from its room without removing it.
func (r *Registry) ClearRoom(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.conns[connID]; ok {
		rec.Room = ""
	}
}

// Remove erases the connection and, only when it is still the current holder
// of its username, the username index entry too. The guard keeps a newer
// session's claim intact when a stale removal arrives late.
func (r *Registry) Remove(connID string) (username, room string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.conns[connID]
	if !exists {
		return "", "", false
	}
	delete(r.conns, connID)
	r.dropFromOrder(connID)
	if r.byUsername[rec.Username] == connID {
		delete(r.byUsername, rec.Username)
	}
	return rec.Username, rec.Room, true
}

// PresenceList projects the connections currently in room, in the order they
// first registered.
func (r *Registry) PresenceList(room string) []Presence {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.FilterMap(r.order, func(connID string, _ int) (Presence, bool) {
		rec, ok := r.conns[connID]
		if !ok || rec.Room != room {
			return Presence{}, false
		}
		return r.project(rec), true
	})
}

// AllPresence projects every live connection, in registration order.
func (r *Registry) AllPresence() []Presence {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.FilterMap(r.order, func(connID string, _ int) (Presence, bool) {
		rec, ok := r.conns[connID]
		if !ok {
			return Presence{}, false
		}
		return r.project(rec), true
	})
}

func (r *Registry) project(rec *connectionRecord) Presence {
	return Presence{Username: rec.Username, Status: rec.Status, Room: rec.Room, Avatar: rec.Avatar}
}

func (r *Registry) dropFromOrder(connID string) {
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
