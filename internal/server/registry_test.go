package server

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndPresenceOrder(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	req.Empty(reg.Register("c1", "alice", StatusOnline, "general", "🦊"))
	req.Empty(reg.Register("c2", "bob", StatusAway, "general", ""))
	req.Empty(reg.Register("c3", "clara", StatusOnline, "tech", ""))

	users := reg.PresenceList("general")
	req.Equal([]Presence{
		{Username: "alice", Status: StatusOnline, Room: "general", Avatar: "🦊"},
		{Username: "bob", Status: StatusAway, Room: "general"},
	}, users)

	req.Len(reg.AllPresence(), 3)
}

func TestRegistryDuplicateUsernameEvictsPrior(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	reg.Register("c1", "alice", StatusOnline, "general", "")
	evicted := reg.Register("c2", "alice", StatusOnline, "general", "")
	req.Equal("c1", evicted)

	_, ok := reg.Get("c1")
	req.False(ok)

	connID, ok := reg.ConnectionFor("alice")
	req.True(ok)
	req.Equal("c2", connID)
	req.Len(reg.PresenceList("general"), 1)
}

func TestRegistryRemoveGuardsNewerSession(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	reg.Register("c1", "alice", StatusOnline, "general", "")
	reg.Register("c2", "alice", StatusOnline, "general", "")

	// Removing the evicted session's id must not clear the newer claim.
	_, _, ok := reg.Remove("c1")
	req.False(ok)

	connID, claimed := reg.ConnectionFor("alice")
	req.True(claimed)
	req.Equal("c2", connID)

	username, room, ok := reg.Remove("c2")
	req.True(ok)
	req.Equal("alice", username)
	req.Equal("general", room)

	_, claimed = reg.ConnectionFor("alice")
	req.False(claimed)
}

func TestRegistryUpdateStatusAndChangeRoom(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	reg.Register("c1", "alice", StatusOnline, "general", "")

	req.True(reg.UpdateStatus("c1", StatusAway))
	req.False(reg.UpdateStatus("ghost", StatusAway))

	previous, ok := reg.ChangeRoom("c1", "tech")
	req.True(ok)
	req.Equal("general", previous)

	req.Empty(reg.PresenceList("general"))
	users := reg.PresenceList("tech")
	req.Len(users, 1)
	req.Equal(StatusAway, users[0].Status)

	_, ok = reg.ChangeRoom("ghost", "tech")
	req.False(ok)
}

func TestRegistryClearRoom(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	reg.Register("c1", "alice", StatusOnline, "general", "")
	reg.ClearRoom("c1")

	req.Empty(reg.PresenceList("general"))

	rec, ok := reg.Get("c1")
	req.True(ok)
	req.Empty(rec.Room)
}
