// Package server coordinates client registration, event dispatch, room
// fan-out, and connection cleanup for the relay via the Hub type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// envelope carries one decoded inbound event into the hub loop. The client is
// nil for events injected by the HTTP API.
type envelope struct {
	client  *Client
	event   EventName
	payload any
}

// Hub owns every store and every live client. All mutation and fan-out runs
// on the single Run goroutine, so events within a room are broadcast in the
// exact order they were processed and the stores need no coordination beyond
// the read locks used by the HTTP handlers.
type Hub struct {
	cfg      Config
	log      *slog.Logger
	registry *Registry
	rooms    *Directory
	messages *MessageStore
	invites  *InviteStore
	grace    *graceManager
	origins  *originPolicy
	upgrader websocket.Upgrader

	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	inbound    chan envelope

	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started time.Time
}

// NewHub creates a hub with fresh stores. Run must be started before any
// client connects.
func NewHub(cfg Config, log *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		cfg:        cfg,
		log:        log,
		registry:   NewRegistry(),
		rooms:      NewDirectory(),
		messages:   NewMessageStore(cfg.HistoryLimit),
		invites:    NewInviteStore(),
		grace:      newGraceManager(cfg.DisconnectGrace),
		origins:    newOriginPolicy(cfg.AllowedOrigins, log),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan envelope, 64),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		started:    time.Now(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.origins.check,
	}
	return h
}

// Uptime reports how long the hub has been running, for the health endpoint.
func (h *Hub) Uptime() time.Duration {
	return time.Since(h.started)
}

// Run is the hub's event loop. It must be called in its own goroutine; every
// handler in relay.go executes here.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.grace.stopAll()
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("received nil client registration; skipping")
				continue
			}
			h.clients[client.id] = client
			h.log.Info("client connected", "addr", client.addr, "conn", client.id, "total", len(h.clients))

			if client.conn != nil {
				h.wg.Add(2)
				go func() {
					defer h.wg.Done()
					client.writePump()
				}()
				go func() {
					defer h.wg.Done()
					client.readPump()
				}()
			}

			// Every client gets the room list as soon as it attaches.
			h.sendEvent(client, EventRooms, h.rooms.List())

		case client := <-h.unregister:
			h.dropClient(client)
			h.scheduleRemoval(client)

		case env := <-h.inbound:
			h.dispatch(env.client, env.event, env.payload)

		case exp := <-h.grace.Expired():
			h.handleGraceExpiry(exp)
		}
	}
}

// Inject queues an event on behalf of the HTTP API so its mutations run on
// the loop like any client frame.
func (h *Hub) Inject(event EventName, payload any) {
	select {
	case h.inbound <- envelope{event: event, payload: payload}:
	case <-h.ctx.Done():
	}
}

// dropClient detaches a client from the hub and closes its send channel.
// Safe to call more than once for the same client.
func (h *Hub) dropClient(client *Client) {
	if client == nil {
		return
	}
	if _, ok := h.clients[client.id]; !ok {
		return
	}
	delete(h.clients, client.id)
	client.closed = true
	close(client.send)
	h.log.Info("client disconnected", "addr", client.addr, "conn", client.id, "total", len(h.clients))
}

// evict force-disconnects a client after any buffered frames (such as the
// duplicate-login notice) have been handed to its write pump.
func (h *Hub) evict(client *Client) {
	h.dropClient(client)
}

// push hands a frame to one client without blocking the loop. A full send
// buffer drops the frame; delivery is fire-and-forget.
func (h *Hub) push(client *Client, frame []byte) bool {
	if client == nil || client.closed {
		return false
	}
	select {
	case client.send <- frame:
		return true
	default:
		h.log.Warn("send buffer full; dropping frame", "addr", client.addr, "conn", client.id)
		return false
	}
}

// sendEvent encodes and delivers one event to one client.
func (h *Hub) sendEvent(client *Client, event EventName, payload any) {
	if client == nil {
		return
	}
	frame, err := encodeFrame(event, payload)
	if err != nil {
		h.log.Error("encoding outbound event failed", "event", event, "error", err)
		return
	}
	h.push(client, frame)
}

// sendError reports a failed operation to the requesting client only.
func (h *Hub) sendError(client *Client, message string) {
	h.sendEvent(client, EventError, ErrorPayload{Message: message})
}

// toRoom broadcasts to every client whose registry record places it in room,
// optionally excluding one connection.
func (h *Hub) toRoom(room string, except *Client, event EventName, payload any) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		h.log.Error("encoding broadcast failed", "event", event, "error", err)
		return
	}
	for _, client := range h.clients {
		if client == except {
			continue
		}
		rec, ok := h.registry.Get(client.id)
		if !ok || rec.Room != room {
			continue
		}
		h.push(client, frame)
	}
}

// toAll broadcasts to every connected client.
func (h *Hub) toAll(event EventName, payload any) {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		h.log.Error("encoding broadcast failed", "event", event, "error", err)
		return
	}
	for _, client := range h.clients {
		h.push(client, frame)
	}
}

// broadcastPresence pushes the refreshed presence list to a room and returns
// it for callers that also deliver it directly to a joining client.
func (h *Hub) broadcastPresence(room string) []Presence {
	users := h.registry.PresenceList(room)
	h.toRoom(room, nil, EventUsers, users)
	return users
}

// shutdownClients closes all active client connections. Closing the send
// channels lets each write pump flush, send its close message, and exit
// without waiting on the ping ticker.
func (h *Hub) shutdownClients() {
	h.log.Info("shutting down client connections", "count", len(h.clients))

	for _, client := range h.clients {
		client.closed = true
		close(client.send)
		if client.conn == nil {
			continue
		}
		if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
			h.log.Warn("error closing client connection", "addr", client.addr, "error", err)
		}
	}
	clear(h.clients)
}

// Shutdown initiates graceful shutdown of the hub and waits for all client
// goroutines to complete, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		h.log.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout reached; some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
