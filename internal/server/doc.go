// Package server implements the Parley relay: a WebSocket hub that tracks
// connected users, room membership, message history, and invites, and fans
// events out to the right subset of connections.
//
// The implementation is organized into specialized files for the stores
// (registry, rooms, messages, invites), the event protocol, the hub loop and
// dispatch table, client connection management, and the HTTP surface, to keep
// the codebase maintainable and testable as the project grows.
package server
