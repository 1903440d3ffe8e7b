// Package server defines the data model shared by the relay stores and the
// wire protocol: messages, rooms, invites, and presence records.
package server

import "strings"

// Status is a user's visible availability.
type Status string

// Valid Status values.
const (
	StatusOnline  Status = "online"
	StatusAway    Status = "away"
	StatusOffline Status = "offline"
)

// MessageType distinguishes the payload carried by a Message.
type MessageType string

// Valid MessageType values.
const (
	TypeText   MessageType = "text"
	TypeEmoji  MessageType = "emoji"
	TypeImage  MessageType = "image"
	TypeFile   MessageType = "file"
	TypeAudio  MessageType = "audio"
	TypeStatus MessageType = "status"
)

// Room is a named broadcast group. Built-in rooms have no creator or
// creation timestamp; custom rooms carry both.
type Room struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Creator     string `json:"creator,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// Reaction is a single emoji reaction by one user. At most one Reaction per
// (user, emoji) pair exists on a message; re-applying it removes it.
type Reaction struct {
	Emoji string `json:"emoji"`
	User  string `json:"user"`
}

// ReadReceipt records that a user has seen a message.
type ReadReceipt struct {
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
}

// EditInfo marks a message as edited, retaining the pre-edit content.
type EditInfo struct {
	Timestamp string `json:"timestamp"`
	Original  string `json:"original,omitempty"`
}

// Message is one chat history entry. A deleted message stays in history as a
// tombstone with the Deleted flag set, preserving ordering for all clients.
type Message struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	Sender    string        `json:"sender"`
	Timestamp string        `json:"timestamp"`
	Room      string        `json:"room"`
	Type      MessageType   `json:"type"`
	FileSize  int64         `json:"fileSize,omitempty"`
	Duration  float64       `json:"duration,omitempty"`
	Reactions []Reaction    `json:"reactions"`
	ReadBy    []ReadReceipt `json:"readBy,omitempty"`
	Edited    *EditInfo     `json:"edited,omitempty"`
	Deleted   bool          `json:"deleted,omitempty"`
}

// Invite grants access to a room's metadata. The ID doubles as the bearer
// token embedded in shareable links.
type Invite struct {
	ID              string `json:"id"`
	RoomID          string `json:"roomId"`
	RoomName        string `json:"roomName"`
	RoomDescription string `json:"roomDescription"`
	Creator         string `json:"creator"`
	CreatedAt       string `json:"createdAt"`
}

// Presence is the externally visible projection of a connection.
type Presence struct {
	Username string `json:"username"`
	Status   Status `json:"status"`
	Room     string `json:"room"`
	Avatar   string `json:"avatar,omitempty"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
