// Package server exposes HTTP handlers: the WebSocket upgrade, the health
// check, and the JSON API for rooms, messages, users, and invites.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// WebSocketHandler upgrades the HTTP connection, creates a Client, and hands
// it to the hub, which launches the read and write pumps.
func (h *Hub) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, h, r.RemoteAddr)

	select {
	case h.register <- client:
	case <-h.ctx.Done():
		_ = conn.Close()
	}
}

// HealthHandler reports process status and uptime.
func (h *Hub) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    h.Uptime().Seconds(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// RoomsHandler returns the full room list, built-in plus custom.
func (h *Hub) RoomsHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rooms": h.rooms.List()})
}

// MessagesGetHandler returns recent messages, newest first, optionally
// filtered by room.
func (h *Hub) MessagesGetHandler(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": h.messages.Recent(room, limit)})
}

type createMessageRequest struct {
	Content  string      `json:"content" validate:"required"`
	Sender   string      `json:"sender" validate:"required"`
	Room     string      `json:"room" validate:"required"`
	Type     MessageType `json:"type"`
	FileSize int64       `json:"fileSize"`
	Duration float64     `json:"duration"`
}

// MessagesPostHandler appends a message through the relay loop and broadcasts
// it to the room, mirroring an inbound message frame.
func (h *Hub) MessagesPostHandler(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "missing required fields: content, sender, room")
		return
	}

	msg := h.messages.normalize(Message{
		Content:  req.Content,
		Sender:   req.Sender,
		Room:     req.Room,
		Type:     req.Type,
		FileSize: req.FileSize,
		Duration: req.Duration,
	})
	h.Inject(EventMessage, &msg)

	writeJSON(w, http.StatusOK, map[string]any{"message": msg})
}

// UsersHandler returns the presence projection, for one room or all.
func (h *Hub) UsersHandler(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")

	var users []Presence
	if room == "" {
		users = h.registry.AllPresence()
	} else {
		users = h.registry.PresenceList(room)
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

type createInviteRequest struct {
	RoomID   string `json:"roomId" validate:"required"`
	Username string `json:"username"`
}

// InviteCreateHandler issues an invite token and the shareable link around it.
func (h *Hub) InviteCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req createInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Room ID is required")
		return
	}

	roomName, roomDescription := req.RoomID, ""
	if room, ok := h.rooms.Get(req.RoomID); ok {
		roomName, roomDescription = room.Name, room.Description
	}

	invite, err := h.invites.Create(req.RoomID, roomName, roomDescription, req.Username)
	if err != nil {
		h.log.Error("invite creation failed", "room", req.RoomID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate invite")
		return
	}

	base := strings.TrimRight(h.cfg.PublicBaseURL, "/")
	writeJSON(w, http.StatusOK, map[string]string{
		"inviteId":   invite.ID,
		"inviteLink": base + "/join/" + invite.ID,
	})
}

// InviteLookupHandler resolves an invite token to its room metadata.
func (h *Hub) InviteLookupHandler(w http.ResponseWriter, r *http.Request) {
	invite, ok := h.invites.Lookup(r.PathValue("inviteId"))
	if !ok {
		writeError(w, http.StatusNotFound, "Invite not found")
		return
	}
	writeJSON(w, http.StatusOK, invite)
}

// JoinRedirectHandler turns a shared invite link into a redirect the client
// app understands.
func (h *Hub) JoinRedirectHandler(w http.ResponseWriter, r *http.Request) {
	inviteID := r.PathValue("inviteId")
	if _, ok := h.invites.Lookup(inviteID); !ok {
		http.Error(w, "Invite not found or expired", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, "/?invite="+inviteID, http.StatusFound)
}
