package network

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPTransport_WriteDoesNotBlockOnStalledPeer(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	tr := NewTCPTransport(server, 5*time.Millisecond)
	start := time.Now()
	n, err := tr.Write([]byte("nobody is reading"))
	require.NoError(t, err, "a timed out write is a partial write, not an error")
	assert.Equal(t, 0, n)
	assert.Less(t, time.Since(start), time.Second)
}

func TestConnection_SendFlushDemotes(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := NewConnection(1, NewTCPTransport(server, time.Second), 0)
	assert.Equal(t, StateReading, conn.State)

	require.NoError(t, conn.Send(Message{Action: ActionGameMenu, Options: MenuOptions}))
	assert.Equal(t, StateReadWrite, conn.State)

	frame, err := Encode(Message{Action: ActionGameMenu, Options: MenuOptions})
	require.NoError(t, err)

	got := make(chan []byte, 1)
	go func() {
		b := make([]byte, len(frame))
		_, _ = io.ReadFull(client, b)
		got <- b
	}()

	require.NoError(t, conn.Flush())
	assert.Equal(t, frame, <-got)
	assert.Equal(t, StateReading, conn.State)
}

func TestConnection_SendAfterClose(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	conn := NewConnection(2, NewTCPTransport(server, time.Millisecond), 0)
	conn.State = StateClosed
	_ = conn.Transport.Close()

	assert.ErrorIs(t, conn.Send(Message{Action: ActionGameMenu}), net.ErrClosed)
}
