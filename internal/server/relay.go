// Package server maps each inbound event to store mutations and an outbound
// fan-out set. Every handler in this file runs on the hub's event loop.
package server

import "fmt"

// dispatch routes one decoded inbound event. A panic inside a handler is
// contained here: it is logged and reported to the originating client, and
// never takes down the loop or other connections.
func (h *Hub) dispatch(client *Client, event EventName, payload any) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("panic while handling event", "event", event, "panic", r)
			h.sendError(client, fmt.Sprintf("Failed to handle %s", event))
		}
	}()

	switch event {
	case EventJoin:
		h.handleJoin(client, payload.(*JoinPayload))
	case EventJoinRoom:
		h.handleJoinRoom(client, payload.(*JoinPayload))
	case EventLeaveRoom:
		h.handleLeaveRoom(client, payload.(*LeaveRoomPayload))
	case EventRejoin:
		h.handleRejoin(client, payload.(*JoinPayload))
	case EventMessage:
		h.handleMessage(client, payload.(*Message))
	case EventTyping, EventStopTyping:
		h.handleTyping(client, event, payload.(*TypingPayload))
	case EventReaction:
		h.handleReaction(client, payload.(*ReactionPayload))
	case EventEditMessage:
		h.handleEditMessage(client, payload.(*EditMessagePayload))
	case EventDeleteMessage:
		h.handleDeleteMessage(client, payload.(*DeleteMessagePayload))
	case EventStatusChange:
		h.handleStatusChange(client, payload.(*StatusChangePayload))
	case EventCreateRoom:
		h.handleCreateRoom(client, payload.(*CreateRoomPayload))
	case EventCreateInvite:
		h.handleCreateInvite(client, payload.(*CreateInvitePayload))
	case EventCheckInvite:
		h.handleCheckInvite(client, payload.(*CheckInvitePayload))
	case EventJoinViaInvite:
		h.handleJoinViaInvite(client, payload.(*JoinViaInvitePayload))
	default:
		h.log.Warn("unhandled event kind", "event", event)
	}
}

// joinUser registers the connection under a username, evicting any previous
// session holding it, and refreshes the room's presence list. A pending
// disconnect timer for the username means this is a reconnect, not a new
// login, so it is cancelled first.
func (h *Hub) joinUser(client *Client, username string, status Status, room, avatar string, notifyOthers bool) []Presence {
	if h.grace.Cancel(username) {
		h.log.Debug("cancelled pending disconnect on reconnect", "username", username)
	}

	if status == "" {
		status = StatusOnline
	}

	evicted := h.registry.Register(client.id, username, status, room, avatar)
	if evicted != "" {
		if old, ok := h.clients[evicted]; ok {
			h.log.Info("duplicate login; disconnecting old session", "username", username, "conn", evicted)
			h.sendEvent(old, EventDuplicateLogin, nil)
			h.evict(old)
		}
	}

	if notifyOthers {
		h.toRoom(room, client, EventUserJoined, UserEventPayload{Username: username, Room: room})
	}
	return h.broadcastPresence(room)
}

func (h *Hub) handleJoin(client *Client, p *JoinPayload) {
	h.log.Info("user joined room", "username", p.Username, "room", p.Room)

	users := h.joinUser(client, p.Username, p.Status, p.Room, p.Avatar, true)

	// Deliver the presence list directly too, in case the join raced the
	// room broadcast, then replay the room's history to the joiner only.
	h.sendEvent(client, EventUsers, users)
	h.sendEvent(client, EventHistory, h.messages.HistoryFor(p.Room))
}

// handleJoinRoom switches an already-registered connection to another room.
func (h *Hub) handleJoinRoom(client *Client, p *JoinPayload) {
	previous, ok := h.registry.ChangeRoom(client.id, p.Room)
	if !ok {
		h.log.Warn("join-room from unknown connection; dropping", "conn", client.id)
		return
	}

	h.toRoom(p.Room, client, EventUserJoined, UserEventPayload{Username: p.Username, Room: p.Room})
	h.broadcastPresence(p.Room)
	if previous != "" && previous != p.Room {
		h.broadcastPresence(previous)
	}
	h.sendEvent(client, EventHistory, h.messages.HistoryFor(p.Room))
}

func (h *Hub) handleLeaveRoom(client *Client, p *LeaveRoomPayload) {
	h.log.Info("user left room", "username", p.Username, "room", p.Room)

	h.registry.ClearRoom(client.id)
	h.toRoom(p.Room, client, EventUserLeft, UserEventPayload{Username: p.Username, Room: p.Room})
	h.broadcastPresence(p.Room)
}

// handleRejoin re-attaches a session after a forced disconnect. It is only
// honored while the username is unclaimed or still owned by this connection;
// anything else is another duplicate login.
func (h *Hub) handleRejoin(client *Client, p *JoinPayload) {
	current, claimed := h.registry.ConnectionFor(p.Username)
	if claimed && current != client.id {
		h.sendEvent(client, EventDuplicateLogin, nil)
		h.evict(client)
		return
	}

	h.joinUser(client, p.Username, p.Status, p.Room, p.Avatar, true)
	h.sendEvent(client, EventHistory, h.messages.HistoryFor(p.Room))
}

func (h *Hub) handleMessage(client *Client, msg *Message) {
	stored := h.messages.Append(*msg)
	h.log.Debug("message stored", "id", stored.ID, "room", stored.Room, "sender", stored.Sender)
	h.toRoom(stored.Room, nil, EventMessage, stored)
}

// Typing notifications are stateless: relay to the room, excluding the sender.
func (h *Hub) handleTyping(client *Client, event EventName, p *TypingPayload) {
	h.toRoom(p.Room, client, event, p)
}

func (h *Hub) handleReaction(client *Client, p *ReactionPayload) {
	reactions, err := h.messages.ToggleReaction(p.MessageID, p.Emoji, p.User)
	if err != nil {
		h.sendError(client, "Failed to add reaction")
		return
	}
	h.toRoom(p.Room, nil, EventReaction, ReactionBroadcast{
		MessageID: p.MessageID,
		Emoji:     p.Emoji,
		User:      p.User,
		Room:      p.Room,
		Reactions: reactions,
	})
}

// handleEditMessage enforces sender-only edits before mutating shared
// history; the store itself does not authorize.
func (h *Hub) handleEditMessage(client *Client, p *EditMessagePayload) {
	rec, ok := h.registry.Get(client.id)
	if !ok {
		h.log.Warn("edit-message from unknown connection; dropping", "conn", client.id)
		return
	}

	msg, found := h.messages.Get(p.MessageID)
	if !found {
		h.sendError(client, "Message not found")
		return
	}
	if msg.Sender != rec.Username {
		h.sendError(client, "Only the sender can edit a message")
		return
	}

	edited, err := h.messages.Edit(p.MessageID, p.NewContent)
	if err != nil {
		h.sendError(client, "Failed to edit message")
		return
	}

	h.toRoom(p.Room, nil, EventMessageEdited, MessageEditedBroadcast{
		MessageID:  p.MessageID,
		NewContent: p.NewContent,
		Room:       p.Room,
		Timestamp:  edited.Edited.Timestamp,
	})
}

func (h *Hub) handleDeleteMessage(client *Client, p *DeleteMessagePayload) {
	if err := h.messages.MarkDeleted(p.MessageID); err != nil {
		h.sendError(client, "Failed to delete message")
		return
	}
	h.toRoom(p.Room, nil, EventMessageDeleted, DeleteMessagePayload{MessageID: p.MessageID, Room: p.Room})
}

func (h *Hub) handleStatusChange(client *Client, p *StatusChangePayload) {
	h.registry.UpdateStatus(client.id, p.Status)
	h.toRoom(p.Room, nil, EventStatusChange, p)
}

func (h *Hub) handleCreateRoom(client *Client, p *CreateRoomPayload) {
	_, created := h.rooms.Create(p.ID, p.Name, p.Description, p.Creator)
	if !created {
		// Duplicate ids are treated as success; nothing changed, nothing to announce.
		return
	}
	h.log.Info("room created", "id", p.ID, "creator", p.Creator)
	h.toAll(EventRooms, h.rooms.List())
}

func (h *Hub) handleCreateInvite(client *Client, p *CreateInvitePayload) {
	invite, err := h.invites.Create(p.RoomID, p.RoomName, p.RoomDescription, p.Creator)
	if err != nil {
		h.log.Error("invite creation failed", "room", p.RoomID, "error", err)
		h.sendError(client, "Failed to create invite")
		return
	}
	h.sendEvent(client, EventInviteCreated, InviteCreatedPayload{
		InviteID: invite.ID,
		RoomID:   invite.RoomID,
		RoomName: invite.RoomName,
	})
}

func (h *Hub) handleCheckInvite(client *Client, p *CheckInvitePayload) {
	invite, ok := h.invites.Lookup(p.InviteID)
	if !ok {
		// Explicit null mirrors a lookup miss without raising an error.
		h.sendEvent(client, EventInviteDetails, (*Invite)(nil))
		return
	}
	h.sendEvent(client, EventInviteDetails, invite)
}

func (h *Hub) handleJoinViaInvite(client *Client, p *JoinViaInvitePayload) {
	invite, ok := h.invites.Lookup(p.InviteID)
	if !ok {
		h.sendError(client, "Invalid invite")
		return
	}

	h.joinUser(client, p.Username, p.Status, invite.RoomID, p.Avatar, false)
	h.toRoom(invite.RoomID, nil, EventInviteJoined, InviteJoinedPayload{
		Username:        p.Username,
		RoomID:          invite.RoomID,
		RoomName:        invite.RoomName,
		RoomDescription: invite.RoomDescription,
	})
	h.sendEvent(client, EventHistory, h.messages.HistoryFor(invite.RoomID))
}

// scheduleRemoval starts the disconnect grace period for the connection's
// username. If the connection never registered an identity, or a newer
// session already took the username over, there is nothing to defer.
func (h *Hub) scheduleRemoval(client *Client) {
	rec, ok := h.registry.Get(client.id)
	if !ok {
		return
	}
	if current, claimed := h.registry.ConnectionFor(rec.Username); claimed && current != client.id {
		return
	}

	h.log.Info("starting disconnect grace period", "username", rec.Username, "room", rec.Room)
	h.grace.Schedule(rec.Username, client.id, rec.Room)
}

// handleGraceExpiry removes presence for a disconnect whose grace period ran
// out, unless the user reconnected under a new connection id in the meantime.
func (h *Hub) handleGraceExpiry(exp pendingDisconnect) {
	h.grace.forget(exp.Username)

	current, claimed := h.registry.ConnectionFor(exp.Username)
	if claimed && current != exp.ConnID {
		h.log.Debug("user reconnected before grace expiry; keeping presence", "username", exp.Username)
		return
	}

	username, room, removed := h.registry.Remove(exp.ConnID)
	if !removed {
		return
	}

	h.log.Info("grace period expired; removing user", "username", username, "room", room)
	if room != "" {
		h.toRoom(room, nil, EventUserLeft, UserEventPayload{Username: username, Room: room})
		h.broadcastPresence(room)
	}
}
