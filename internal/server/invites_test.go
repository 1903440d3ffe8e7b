package server

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInviteRoundTrip(t *testing.T) {
	req := require.New(t)
	store := NewInviteStore()

	invite, err := store.Create("roomA", "Room A", "desc", "bob")
	req.NoError(err)
	req.NotEmpty(invite.ID)
	req.NotEmpty(invite.CreatedAt)

	got, ok := store.Lookup(invite.ID)
	req.True(ok)
	req.Equal("roomA", got.RoomID)
	req.Equal("bob", got.Creator)

	// Lookup does not consume the invite.
	_, ok = store.Lookup(invite.ID)
	req.True(ok)
}

func TestInviteLookupUnknownToken(t *testing.T) {
	store := NewInviteStore()

	_, ok := store.Lookup("deadbeefdeadbeef")
	require.False(t, ok)
}

func TestInviteTokensAreHexAndUnique(t *testing.T) {
	req := require.New(t)
	store := NewInviteStore()

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		invite, err := store.Create("roomA", "Room A", "", "bob")
		req.NoError(err)
		req.Len(invite.ID, inviteTokenBytes*2)

		_, err = hex.DecodeString(invite.ID)
		req.NoError(err)

		_, dup := seen[invite.ID]
		req.False(dup)
		seen[invite.ID] = struct{}{}
	}
}
