package server

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnregisterHandsConnectionToRunLoop(t *testing.T) {
	s := NewServer(":0", log.New(io.Discard))
	c := NewConnection(nil, s, log.New(io.Discard))

	received := make(chan *Connection, 1)
	go func() {
		received <- <-s.unregister
	}()

	c.unregisterFromServer()

	select {
	case got := <-received:
		assert.Same(t, c, got)
	case <-time.After(time.Second):
		t.Fatal("unregister was never delivered")
	}
}

func TestUnregisterReturnsAfterServerStop(t *testing.T) {
	s := NewServer(":0", log.New(io.Discard))
	c := NewConnection(nil, s, log.New(io.Discard))

	// Nothing drains s.unregister once the context is cancelled.
	s.cancel()

	done := make(chan struct{})
	go func() {
		c.unregisterFromServer()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unregister blocked after server shutdown")
	}
}

func TestConnectionSendMessageAfterClose(t *testing.T) {
	s := NewServer(":0", log.New(io.Discard))
	c := NewConnection(nil, s, log.New(io.Discard))
	c.cancel()

	msg, err := NewMessage(MessageTypeNotice, NoticeData{Text: "hi"})
	require.NoError(t, err)

	// Fill the buffer so only the cancelled context can resolve the
	// select.
	for len(c.send) < cap(c.send) {
		c.send <- msg
	}
	assert.ErrorIs(t, c.SendMessage(msg), ErrConnectionClosed)
}
