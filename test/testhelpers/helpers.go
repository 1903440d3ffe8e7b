// Package testhelpers provides common utilities for testing the relay.
//
// It boots real hub + HTTP server pairs, dials WebSocket connections against
// them, and reads typed frames, so the integration tests stay focused on
// behavior instead of plumbing.
package testhelpers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parleychat/parley/internal/server"
)

// TestOrigin is accepted by relays started with StartRelay.
const TestOrigin = "http://relay.test"

// StartRelay boots a hub and an HTTP test server wired with the full route
// set. Both are torn down when the test finishes.
func StartRelay(t *testing.T, customize func(cfg *server.Config)) (*server.Hub, *httptest.Server) {
	t.Helper()

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{TestOrigin}
	cfg.DisconnectGrace = 100 * time.Millisecond
	if customize != nil {
		customize(&cfg)
	}

	hub := server.NewHub(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run()

	ts := httptest.NewServer(server.SetupRoutes(hub))
	t.Cleanup(func() {
		ts.Close()
		_ = hub.Shutdown(2 * time.Second)
	})
	return hub, ts
}

// WSURL converts a test server's base URL into its WebSocket endpoint.
func WSURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

// DialWS opens a WebSocket connection with an allowed origin. The connection
// is closed when the test finishes.
func DialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	header := http.Header{"Origin": []string{TestOrigin}}
	conn, resp, err := websocket.DefaultDialer.Dial(WSURL(ts), header)
	if err != nil {
		t.Fatalf("WebSocket dial failed: %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendFrame writes one event frame to the connection.
func SendFrame(t *testing.T, conn *websocket.Conn, event server.EventName, payload any) {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", event, err)
	}
	frame, err := json.Marshal(server.Frame{Event: event, Data: data})
	if err != nil {
		t.Fatalf("marshal %s frame: %v", event, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write %s frame: %v", event, err)
	}
}

// WaitForFrame reads frames until one of the wanted kind arrives, discarding
// everything else. It fails the test after the timeout.
func WaitForFrame(t *testing.T, conn *websocket.Conn, event server.EventName, timeout time.Duration) server.Frame {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", event, err)
		}
		var frame server.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("decode frame while waiting for %s: %v", event, err)
		}
		if frame.Event == event {
			return frame
		}
	}
}

// CountFrames drains the connection for the given window and counts frames
// of the wanted kind. A closed connection ends the count early.
func CountFrames(t *testing.T, conn *websocket.Conn, event server.EventName, window time.Duration) int {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(window)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}

	count := 0
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return count
		}
		var frame server.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		if frame.Event == event {
			count++
		}
	}
}

// DecodeData unmarshals a frame's payload into T.
func DecodeData[T any](t *testing.T, frame server.Frame) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(frame.Data, &out); err != nil {
		t.Fatalf("decode %s payload: %v", frame.Event, err)
	}
	return out
}

// GetJSON performs a GET request and decodes the JSON response body.
func GetJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode GET %s response: %v", url, err)
		}
	}
	return resp
}

// PostJSON performs a POST request with a JSON body and decodes the response.
func PostJSON(t *testing.T, url string, body, out any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal POST %s body: %v", url, err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode POST %s response: %v", url, err)
		}
	}
	return resp
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}
