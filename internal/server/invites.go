// Package server stores room invites keyed by unguessable bearer tokens.
package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// inviteTokenBytes sets the entropy of generated tokens; 8 random bytes
// encoded as 16 hex characters.
const inviteTokenBytes = 8

// InviteStore holds invites for their entire process lifetime. Tokens are
// never consumed or expired; an invite link keeps working until restart.
type InviteStore struct {
	mu      sync.RWMutex
	invites map[string]Invite
}

// NewInviteStore creates an empty invite store.
func NewInviteStore() *InviteStore {
	return &InviteStore{invites: make(map[string]Invite)}
}

// Create generates a token and records the invite under it.
func (s *InviteStore) Create(roomID, roomName, roomDescription, creator string) (Invite, error) {
	token, err := newInviteToken()
	if err != nil {
		return Invite{}, err
	}

	invite := Invite{
		ID:              token,
		RoomID:          roomID,
		RoomName:        roomName,
		RoomDescription: roomDescription,
		Creator:         creator,
		CreatedAt:       time.Now().UTC().Format(time.RFC3339),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.invites[token] = invite
	return invite, nil
}

// Lookup resolves a token without consuming it.
func (s *InviteStore) Lookup(token string) (Invite, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invite, ok := s.invites[token]
	return invite, ok
}

func newInviteToken() (string, error) {
	buf := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invite token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
