// Package integration contains security-focused integration tests.
//
// These tests verify that origin validation, message size limits, and
// per-client rate limiting hold up over real WebSocket connections.
package integration

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parleychat/parley/internal/server"
	"github.com/parleychat/parley/test/testhelpers"
)

func dialWithOrigin(t *testing.T, wsURL, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()

	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(wsURL, header)
}

// TestOriginValidation checks that only configured origins can upgrade.
func TestOriginValidation(t *testing.T) {
	_, ts := testhelpers.StartRelay(t, nil)
	wsURL := testhelpers.WSURL(ts)

	t.Run("Missing Origin header", func(t *testing.T) {
		conn, resp, err := dialWithOrigin(t, wsURL, "")
		if err == nil {
			_ = conn.Close()
			t.Fatal("Expected connection to fail with missing origin")
		}
		if resp != nil {
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode != http.StatusForbidden {
				t.Errorf("Expected status %d, got %d", http.StatusForbidden, resp.StatusCode)
			}
		}
	})

	t.Run("Unlisted origin", func(t *testing.T) {
		conn, resp, err := dialWithOrigin(t, wsURL, "http://evil.example")
		if err == nil {
			_ = conn.Close()
			t.Fatal("Expected connection to fail with an unlisted origin")
		}
		if resp != nil {
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode != http.StatusForbidden {
				t.Errorf("Expected status %d, got %d", http.StatusForbidden, resp.StatusCode)
			}
		}
	})

	t.Run("Allowed origin with trailing slash", func(t *testing.T) {
		conn, resp, err := dialWithOrigin(t, wsURL, testhelpers.TestOrigin+"/")
		if err != nil {
			t.Fatalf("Expected trailing slash to be normalized, dial failed: %v", err)
		}
		defer func() { _ = conn.Close() }()
		if resp != nil {
			_ = resp.Body.Close()
		}
	})

	t.Run("Wildcard allows any origin", func(t *testing.T) {
		_, open := testhelpers.StartRelay(t, func(cfg *server.Config) {
			cfg.AllowedOrigins = []string{"*"}
		})
		conn, resp, err := dialWithOrigin(t, testhelpers.WSURL(open), "http://anywhere.example")
		if err != nil {
			t.Fatalf("Expected wildcard to accept any origin, dial failed: %v", err)
		}
		defer func() { _ = conn.Close() }()
		if resp != nil {
			_ = resp.Body.Close()
		}
	})
}

// TestMessageSizeLimit verifies oversized frames get the connection closed.
func TestMessageSizeLimit(t *testing.T) {
	_, ts := testhelpers.StartRelay(t, func(cfg *server.Config) {
		cfg.MaxMessageSize = 256
	})

	conn := testhelpers.DialWS(t, ts)
	testhelpers.SendFrame(t, conn, server.EventJoin, server.JoinPayload{Username: "alice", Room: "general"})
	testhelpers.WaitForFrame(t, conn, server.EventHistory, frameWait)

	testhelpers.SendFrame(t, conn, server.EventMessage, server.Message{
		Content: strings.Repeat("x", 1024),
		Sender:  "alice",
		Room:    "general",
	})

	// The read limit trips on the server, which closes the connection.
	_ = conn.SetReadDeadline(time.Now().Add(frameWait))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err) || strings.Contains(err.Error(), "close") {
				return
			}
			t.Fatalf("Expected a close error after an oversized frame, got: %v", err)
		}
	}
}

// TestRateLimiting floods a connection and expects some frames to be dropped.
func TestRateLimiting(t *testing.T) {
	_, ts := testhelpers.StartRelay(t, func(cfg *server.Config) {
		cfg.RateLimitBurst = 3
		cfg.RateLimitRefillInterval = time.Second
	})

	alice := testhelpers.DialWS(t, ts)
	bob := testhelpers.DialWS(t, ts)

	testhelpers.SendFrame(t, alice, server.EventJoin, server.JoinPayload{Username: "alice", Room: "general"})
	testhelpers.WaitForFrame(t, alice, server.EventHistory, frameWait)
	testhelpers.SendFrame(t, bob, server.EventJoin, server.JoinPayload{Username: "bob", Room: "general"})
	testhelpers.WaitForFrame(t, bob, server.EventHistory, frameWait)

	const flood = 10
	for i := 0; i < flood; i++ {
		testhelpers.SendFrame(t, alice, server.EventTyping, server.TypingPayload{User: "alice", Room: "general"})
	}

	// The join consumed one token, so well under the flood count can pass.
	got := testhelpers.CountFrames(t, bob, server.EventTyping, time.Second)
	if got >= flood {
		t.Errorf("Expected the rate limiter to drop frames, but all %d were relayed", got)
	}
	if got == 0 {
		t.Error("Expected at least one typing frame within the burst allowance")
	}
}
