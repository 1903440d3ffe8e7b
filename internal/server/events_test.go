package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeInboundJoin(t *testing.T) {
	req := require.New(t)

	raw := []byte(`{"event":"join","data":{"username":"alice","status":"online","room":"general","avatar":"🦊"}}`)
	event, payload, err := decodeInbound(raw)
	req.NoError(err)
	req.Equal(EventJoin, event)

	join, ok := payload.(*JoinPayload)
	req.True(ok)
	req.Equal("alice", join.Username)
	req.Equal(StatusOnline, join.Status)
	req.Equal("general", join.Room)
}

func TestDecodeInboundEveryKind(t *testing.T) {
	req := require.New(t)

	kinds := []EventName{
		EventJoin, EventJoinRoom, EventLeaveRoom, EventRejoin, EventMessage,
		EventTyping, EventStopTyping, EventReaction, EventEditMessage,
		EventDeleteMessage, EventStatusChange, EventCreateRoom,
		EventCreateInvite, EventCheckInvite, EventJoinViaInvite,
	}
	for _, kind := range kinds {
		raw, err := json.Marshal(Frame{Event: kind, Data: json.RawMessage(`{}`)})
		req.NoError(err)

		event, payload, err := decodeInbound(raw)
		req.NoError(err, "kind %s", kind)
		req.Equal(kind, event)
		req.NotNil(payload)
	}
}

func TestDecodeInboundRejectsUnknownEvent(t *testing.T) {
	_, _, err := decodeInbound([]byte(`{"event":"shutdown-server","data":{}}`))
	require.Error(t, err)
}

func TestDecodeInboundRejectsMalformedJSON(t *testing.T) {
	_, _, err := decodeInbound([]byte(`{"event":`))
	require.Error(t, err)
}

func TestEncodeFrameOmitsAbsentPayload(t *testing.T) {
	req := require.New(t)

	frame, err := encodeFrame(EventDuplicateLogin, nil)
	req.NoError(err)
	req.JSONEq(`{"event":"duplicate-login"}`, string(frame))
}

func TestEncodeFrameExplicitNull(t *testing.T) {
	req := require.New(t)

	// A missing invite is reported as an explicit null, not an absent field.
	frame, err := encodeFrame(EventInviteDetails, (*Invite)(nil))
	req.NoError(err)
	req.JSONEq(`{"event":"invite-details","data":null}`, string(frame))
}
