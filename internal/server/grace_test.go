package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGraceManagerFireDeliversNotice(t *testing.T) {
	req := require.New(t)
	g := newGraceManager(20 * time.Millisecond)

	g.Schedule("alice", "c1", "general")

	select {
	case exp := <-g.Expired():
		req.Equal("alice", exp.Username)
		req.Equal("c1", exp.ConnID)
		req.Equal("general", exp.Room)
	case <-time.After(time.Second):
		t.Fatal("grace timer never fired")
	}
}

func TestGraceManagerCancelHasNoObservableEffect(t *testing.T) {
	req := require.New(t)
	g := newGraceManager(20 * time.Millisecond)

	g.Schedule("alice", "c1", "general")
	req.True(g.Cancel("alice"))
	req.False(g.Cancel("alice"))

	select {
	case <-g.Expired():
		t.Fatal("cancelled timer fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestGraceManagerRescheduleReplacesTimer(t *testing.T) {
	req := require.New(t)
	g := newGraceManager(30 * time.Millisecond)

	g.Schedule("alice", "c1", "general")
	g.Schedule("alice", "c2", "tech")

	exp := <-g.Expired()
	req.Equal("c2", exp.ConnID)

	select {
	case <-g.Expired():
		t.Fatal("replaced timer fired too")
	case <-time.After(100 * time.Millisecond):
	}
}
