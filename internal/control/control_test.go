package control

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSendAndListenStopRoundTrip(t *testing.T) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	stopped := make(chan struct{}, 1)
	l, err := Listen(addr, func() { stopped <- struct{}{} })
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	boundAddr := l.ln.Addr().(*net.TCPAddr)
	payload, err := Send(boundAddr, "stop", "")
	require.NoError(t, err)
	require.Equal(t, "", payload)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop callback was not invoked")
	}
}

func TestParseResponseRejectsWrongCommand(t *testing.T) {
	_, err := parseResponse("123 stop ok:", "go")
	require.Error(t, err)
}

func TestParseResponseRejectsMalformed(t *testing.T) {
	_, err := parseResponse("garbage", "stop")
	require.Error(t, err)
}
