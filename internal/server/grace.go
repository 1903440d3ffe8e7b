// Package server defers presence removal after a disconnect so that a page
// refresh, which closes and immediately reopens the connection, never flashes
// a user-left/user-joined pair.
package server

import "time"

// pendingDisconnect identifies a connection whose grace period elapsed.
type pendingDisconnect struct {
	Username string
	ConnID   string
	Room     string
}

// graceManager keys one cancellable timer per username. Schedule, Cancel, and
// forget must only be called from the hub's event loop; timer callbacks never
// touch the map, they only post to the expired channel, so the loop performs
// every removal itself.
type graceManager struct {
	period  time.Duration
	pending map[string]*time.Timer
	expired chan pendingDisconnect
}

func newGraceManager(period time.Duration) *graceManager {
	return &graceManager{
		period:  period,
		pending: make(map[string]*time.Timer),
		expired: make(chan pendingDisconnect, 64),
	}
}

// Schedule arms (or re-arms) the removal timer for username. When it fires,
// the expiry notice carries the disconnecting connection id so the loop can
// re-check ownership before removing anything.
func (g *graceManager) Schedule(username, connID, room string) {
	if timer, ok := g.pending[username]; ok {
		timer.Stop()
	}
	g.pending[username] = time.AfterFunc(g.period, func() {
		g.expired <- pendingDisconnect{Username: username, ConnID: connID, Room: room}
	})
}

// Cancel stops the timer for username, if any. A cancelled timer has no
// observable effect.
func (g *graceManager) Cancel(username string) bool {
	timer, ok := g.pending[username]
	if !ok {
		return false
	}
	timer.Stop()
	delete(g.pending, username)
	return true
}

// Expired delivers grace periods that ran out.
func (g *graceManager) Expired() <-chan pendingDisconnect {
	return g.expired
}

// forget drops the bookkeeping entry once an expiry notice is handled.
func (g *graceManager) forget(username string) {
	delete(g.pending, username)
}

// stopAll cancels every pending timer, used during shutdown.
func (g *graceManager) stopAll() {
	for username, timer := range g.pending {
		timer.Stop()
		delete(g.pending, username)
	}
}
