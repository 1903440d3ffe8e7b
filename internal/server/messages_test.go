package server

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageStoreAppendAssignsGeneratedFields(t *testing.T) {
	req := require.New(t)
	store := NewMessageStore(10)

	stored := store.Append(Message{Content: "hi", Sender: "alice", Room: "general"})

	req.NotEmpty(stored.ID)
	req.NotEmpty(stored.Timestamp)
	req.Equal(TypeText, stored.Type)
	req.Empty(stored.Reactions)
	req.Len(stored.ReadBy, 1)
	req.Equal("alice", stored.ReadBy[0].Username)
}

func TestMessageStoreHistoryPerRoomInOrder(t *testing.T) {
	req := require.New(t)
	store := NewMessageStore(10)

	for i := 0; i < 3; i++ {
		store.Append(Message{Content: fmt.Sprintf("general %d", i), Sender: "alice", Room: "general"})
	}
	store.Append(Message{Content: "tech 0", Sender: "bob", Room: "tech"})

	history := store.HistoryFor("general")
	req.Len(history, 3)
	for i, msg := range history {
		req.Equal(fmt.Sprintf("general %d", i), msg.Content)
	}
	req.Len(store.HistoryFor("tech"), 1)
	req.Empty(store.HistoryFor("gossips"))
}

func TestMessageStoreCapacityEvictsOldestFirst(t *testing.T) {
	req := require.New(t)
	capacity := 5
	store := NewMessageStore(capacity)

	for i := 0; i < capacity+1; i++ {
		room := "general"
		if i%2 == 0 {
			room = "tech"
		}
		store.Append(Message{Content: fmt.Sprintf("msg %d", i), Sender: "alice", Room: room})
	}

	req.Equal(capacity, store.Len())
	// msg 0 was the oldest, regardless of room distribution.
	for _, msg := range store.HistoryFor("tech") {
		req.NotEqual("msg 0", msg.Content)
	}
}

func TestMessageStoreEditRecordsOriginal(t *testing.T) {
	req := require.New(t)
	store := NewMessageStore(10)

	stored := store.Append(Message{Content: "hi", Sender: "alice", Room: "general"})

	edited, err := store.Edit(stored.ID, "hello")
	req.NoError(err)
	req.Equal("hello", edited.Content)
	req.NotNil(edited.Edited)
	req.Equal("hi", edited.Edited.Original)
	req.NotEmpty(edited.Edited.Timestamp)

	got, ok := store.Get(stored.ID)
	req.True(ok)
	req.Equal("hello", got.Content)
}

func TestMessageStoreEditUnknownID(t *testing.T) {
	store := NewMessageStore(10)

	_, err := store.Edit("nope", "hello")
	require.ErrorIs(t, err, ErrMessageNotFound)
}

func TestMessageStoreMarkDeletedKeepsTombstone(t *testing.T) {
	req := require.New(t)
	store := NewMessageStore(10)

	stored := store.Append(Message{Content: "oops", Sender: "alice", Room: "general"})
	req.NoError(store.MarkDeleted(stored.ID))
	req.ErrorIs(store.MarkDeleted("nope"), ErrMessageNotFound)

	history := store.HistoryFor("general")
	req.Len(history, 1)
	req.True(history[0].Deleted)
	req.Equal("oops", history[0].Content)
}

func TestMessageStoreToggleReaction(t *testing.T) {
	req := require.New(t)
	store := NewMessageStore(10)

	stored := store.Append(Message{Content: "hi", Sender: "alice", Room: "general"})

	reactions, err := store.ToggleReaction(stored.ID, "👍", "bob")
	req.NoError(err)
	req.Equal([]Reaction{{Emoji: "👍", User: "bob"}}, reactions)

	// A second application of the same (emoji, user) removes it.
	reactions, err = store.ToggleReaction(stored.ID, "👍", "bob")
	req.NoError(err)
	req.Empty(reactions)

	_, err = store.ToggleReaction("nope", "👍", "bob")
	req.ErrorIs(err, ErrMessageNotFound)
}

func TestMessageStoreRecentNewestFirstWithLimit(t *testing.T) {
	req := require.New(t)
	store := NewMessageStore(10)

	for i := 0; i < 4; i++ {
		store.Append(Message{Content: fmt.Sprintf("msg %d", i), Sender: "alice", Room: "general"})
	}

	recent := store.Recent("general", 2)
	req.Len(recent, 2)
	req.Equal("msg 3", recent[0].Content)
	req.Equal("msg 2", recent[1].Content)

	all := store.Recent("", 50)
	req.Len(all, 4)
}
