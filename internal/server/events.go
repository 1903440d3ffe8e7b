// Package server defines the wire protocol: a closed set of inbound and
// outbound event kinds, their payload shapes, and the JSON frame codec.
package server

import (
	"encoding/json"
	"fmt"
)

// EventName tags a frame with its kind.
type EventName string

// Inbound event kinds (client to relay).
const (
	EventJoin          EventName = "join"
	EventJoinRoom      EventName = "join-room"
	EventLeaveRoom     EventName = "leave-room"
	EventRejoin        EventName = "rejoin"
	EventMessage       EventName = "message"
	EventTyping        EventName = "typing"
	EventStopTyping    EventName = "stop-typing"
	EventReaction      EventName = "reaction"
	EventEditMessage   EventName = "edit-message"
	EventDeleteMessage EventName = "delete-message"
	EventStatusChange  EventName = "status-change"
	EventCreateRoom    EventName = "create-room"
	EventCreateInvite  EventName = "create-invite"
	EventCheckInvite   EventName = "check-invite"
	EventJoinViaInvite EventName = "join-via-invite"
)

// Outbound event kinds (relay to client). Message, typing, stop-typing,
// reaction, and status-change reuse their inbound names.
const (
	EventRooms          EventName = "rooms"
	EventUsers          EventName = "users"
	EventHistory        EventName = "history"
	EventUserJoined     EventName = "user-joined"
	EventUserLeft       EventName = "user-left"
	EventInviteJoined   EventName = "invite-joined"
	EventMessageEdited  EventName = "message-edited"
	EventMessageDeleted EventName = "message-deleted"
	EventInviteCreated  EventName = "invite-created"
	EventInviteDetails  EventName = "invite-details"
	EventDuplicateLogin EventName = "duplicate-login"
	EventError          EventName = "error"
)

// Frame is the envelope for every WebSocket message, in either direction.
type Frame struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinPayload identifies a user entering a room.
type JoinPayload struct {
	Username string `json:"username"`
	Status   Status `json:"status"`
	Room     string `json:"room"`
	Avatar   string `json:"avatar,omitempty"`
}

// TypingPayload carries typing start/stop notifications.
type TypingPayload struct {
	User string `json:"user"`
	Room string `json:"room"`
}

// LeaveRoomPayload announces a user leaving a room.
type LeaveRoomPayload struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// ReactionPayload toggles one (emoji, user) reaction on a message.
type ReactionPayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
	User      string `json:"user"`
	Room      string `json:"room"`
}

// ReactionBroadcast is the outbound counterpart carrying the updated set.
type ReactionBroadcast struct {
	MessageID string     `json:"messageId"`
	Emoji     string     `json:"emoji"`
	User      string     `json:"user"`
	Room      string     `json:"room"`
	Reactions []Reaction `json:"reactions"`
}

// EditMessagePayload requests an in-place content change.
type EditMessagePayload struct {
	MessageID  string `json:"messageId"`
	NewContent string `json:"newContent"`
	Room       string `json:"room"`
}

// MessageEditedBroadcast announces an applied edit to the room.
type MessageEditedBroadcast struct {
	MessageID  string `json:"messageId"`
	NewContent string `json:"newContent"`
	Room       string `json:"room"`
	Timestamp  string `json:"timestamp"`
}

// DeleteMessagePayload requests a soft delete.
type DeleteMessagePayload struct {
	MessageID string `json:"messageId"`
	Room      string `json:"room"`
}

// StatusChangePayload updates and announces a user's availability.
type StatusChangePayload struct {
	Username string `json:"username"`
	Status   Status `json:"status"`
	Room     string `json:"room"`
}

// CreateRoomPayload requests a new custom room.
type CreateRoomPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Creator     string `json:"creator"`
}

// CreateInvitePayload requests a shareable invite token for a room.
type CreateInvitePayload struct {
	RoomID          string `json:"roomId"`
	RoomName        string `json:"roomName"`
	RoomDescription string `json:"roomDescription"`
	Creator         string `json:"creator"`
}

// InviteCreatedPayload returns the generated token to the requester.
type InviteCreatedPayload struct {
	InviteID string `json:"inviteId"`
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
}

// CheckInvitePayload asks for the metadata behind a token.
type CheckInvitePayload struct {
	InviteID string `json:"inviteId"`
}

// JoinViaInvitePayload joins the room a token resolves to.
type JoinViaInvitePayload struct {
	InviteID string `json:"inviteId"`
	Username string `json:"username"`
	Status   Status `json:"status"`
	Avatar   string `json:"avatar,omitempty"`
}

// InviteJoinedPayload announces a join through an invite link.
type InviteJoinedPayload struct {
	Username        string `json:"username"`
	RoomID          string `json:"roomId"`
	RoomName        string `json:"roomName"`
	RoomDescription string `json:"roomDescription"`
}

// UserEventPayload announces user-joined and user-left events.
type UserEventPayload struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// ErrorPayload names a failed operation for the requesting client.
type ErrorPayload struct {
	Message string `json:"message"`
}

// encodeFrame marshals an outbound frame. A nil payload yields a frame with
// no data field; a typed nil pointer yields an explicit JSON null.
func encodeFrame(event EventName, payload any) ([]byte, error) {
	frame := Frame{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", event, err)
		}
		frame.Data = data
	}
	return json.Marshal(frame)
}

// decodeInbound parses a raw client frame into its typed payload. Unknown
// event kinds are rejected so the dispatch switch stays exhaustive.
func decodeInbound(raw []byte) (EventName, any, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return "", nil, fmt.Errorf("decode frame: %w", err)
	}

	var payload any
	switch frame.Event {
	case EventJoin, EventJoinRoom, EventRejoin:
		payload = &JoinPayload{}
	case EventLeaveRoom:
		payload = &LeaveRoomPayload{}
	case EventMessage:
		payload = &Message{}
	case EventTyping, EventStopTyping:
		payload = &TypingPayload{}
	case EventReaction:
		payload = &ReactionPayload{}
	case EventEditMessage:
		payload = &EditMessagePayload{}
	case EventDeleteMessage:
		payload = &DeleteMessagePayload{}
	case EventStatusChange:
		payload = &StatusChangePayload{}
	case EventCreateRoom:
		payload = &CreateRoomPayload{}
	case EventCreateInvite:
		payload = &CreateInvitePayload{}
	case EventCheckInvite:
		payload = &CheckInvitePayload{}
	case EventJoinViaInvite:
		payload = &JoinViaInvitePayload{}
	default:
		return frame.Event, nil, fmt.Errorf("unknown event %q", frame.Event)
	}

	if len(frame.Data) > 0 {
		if err := json.Unmarshal(frame.Data, payload); err != nil {
			return frame.Event, nil, fmt.Errorf("decode %s payload: %w", frame.Event, err)
		}
	}
	return frame.Event, payload, nil
}
