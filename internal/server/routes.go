// Package server wires HTTP handlers into a ServeMux for the relay via
// routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: health check, WebSocket endpoint, and the JSON API.
func SetupRoutes(h *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.HealthHandler)
	mux.HandleFunc("/ws", h.WebSocketHandler)
	mux.HandleFunc("GET /api/rooms", h.RoomsHandler)
	mux.HandleFunc("GET /api/messages", h.MessagesGetHandler)
	mux.HandleFunc("POST /api/messages", h.MessagesPostHandler)
	mux.HandleFunc("GET /api/users", h.UsersHandler)
	mux.HandleFunc("POST /api/invite", h.InviteCreateHandler)
	mux.HandleFunc("GET /api/invite/{inviteId}", h.InviteLookupHandler)
	mux.HandleFunc("GET /join/{inviteId}", h.JoinRedirectHandler)
	return mux
}
