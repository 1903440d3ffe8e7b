// Package server implements the bounded in-memory message history shared by
// all rooms, with in-place edit, tombstone delete, and reaction toggling.
package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrMessageNotFound is returned for edits, deletes, and reactions that
// reference an unknown message id.
var ErrMessageNotFound = errors.New("message not found")

// MessageStore is an append-only buffer of messages across all rooms. Once
// the capacity is exceeded the oldest message is dropped, regardless of room.
type MessageStore struct {
	mu       sync.RWMutex
	capacity int
	messages []Message
}

// NewMessageStore creates a store that retains at most capacity messages.
func NewMessageStore(capacity int) *MessageStore {
	if capacity <= 0 {
		capacity = 300
	}
	return &MessageStore{capacity: capacity}
}

// normalize fills in the generated fields of a message: id, timestamp,
// default type, an empty reaction set, and the sender's own read receipt.
// Already-populated fields are kept, so normalizing twice is harmless.
func (s *MessageStore) normalize(msg Message) Message {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp == "" {
		msg.Timestamp = now
	}
	if msg.Type == "" {
		msg.Type = TypeText
	}
	if msg.Reactions == nil {
		msg.Reactions = []Reaction{}
	}
	if msg.ReadBy == nil && msg.Sender != "" {
		msg.ReadBy = []ReadReceipt{{Username: msg.Sender, Timestamp: now}}
	}
	return msg
}

// Append stores a message, assigning an id and timestamp when absent, and
// evicts the oldest entry if the store is over capacity. The stored copy is
// returned so the caller broadcasts exactly what history will replay.
func (s *MessageStore) Append(msg Message) Message {
	msg = s.normalize(msg)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msg)
	if len(s.messages) > s.capacity {
		s.messages = s.messages[1:]
	}
	return msg
}

// HistoryFor returns the messages for room in insertion order. Deleted
// messages stay visible as tombstones so clients keep a stable ordering.
func (s *MessageStore) HistoryFor(room string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := make([]Message, 0)
	for _, msg := range s.messages {
		if msg.Room == room {
			history = append(history, msg)
		}
	}
	return history
}

// Recent returns up to limit messages, newest first, optionally filtered by
// room. An empty room matches everything.
func (s *MessageStore) Recent(room string, limit int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recent := make([]Message, 0)
	for i := len(s.messages) - 1; i >= 0 && len(recent) < limit; i-- {
		if room == "" || s.messages[i].Room == room {
			recent = append(recent, s.messages[i])
		}
	}
	return recent
}

// Get returns a copy of the message with the given id.
func (s *MessageStore) Get(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.find(id); i >= 0 {
		return s.messages[i], true
	}
	return Message{}, false
}

// Len reports the number of retained messages across all rooms.
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.messages)
}

// Edit replaces the content in place, recording the edit time and the
// pre-edit content. Sender authorization is the caller's responsibility.
func (s *MessageStore) Edit(id, newContent string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(id)
	if i < 0 {
		return Message{}, ErrMessageNotFound
	}

	s.messages[i].Edited = &EditInfo{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Original:  s.messages[i].Content,
	}
	s.messages[i].Content = newContent
	return s.messages[i], nil
}

// MarkDeleted sets the tombstone flag. Content is retained.
func (s *MessageStore) MarkDeleted(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(id)
	if i < 0 {
		return ErrMessageNotFound
	}
	s.messages[i].Deleted = true
	return nil
}

// ToggleReaction adds the (emoji, user) reaction, or removes it if already
// present, and returns the updated reaction set.
func (s *MessageStore) ToggleReaction(id, emoji, user string) ([]Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(id)
	if i < 0 {
		return nil, ErrMessageNotFound
	}

	reactions := s.messages[i].Reactions
	for j, reaction := range reactions {
		if reaction.Emoji == emoji && reaction.User == user {
			s.messages[i].Reactions = append(reactions[:j:j], reactions[j+1:]...)
			return append([]Reaction(nil), s.messages[i].Reactions...), nil
		}
	}

	s.messages[i].Reactions = append(reactions, Reaction{Emoji: emoji, User: user})
	return append([]Reaction(nil), s.messages[i].Reactions...), nil
}

func (s *MessageStore) find(id string) int {
	for i := range s.messages {
		if s.messages[i].ID == id {
			return i
		}
	}
	return -1
}
