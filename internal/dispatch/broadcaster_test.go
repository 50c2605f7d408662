package dispatch

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vijayshc/trino-teradata-exchange/internal/wire"
)

// fakeConsumerWorker is a minimal control-connection listener used to
// assert the broadcaster's wire framing and per-target independence
// without standing up a full server.
func fakeConsumerWorker(t *testing.T, fail bool) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, isControl, err := wire.ReadDataHandshake(conn, 1024, 1024, 1<<20)
		if err != nil || !isControl {
			return
		}
		msg, err := wire.ReadControlMessage(conn, 1024)
		if err != nil {
			return
		}
		_ = msg
		if fail {
			wire.WriteAck(conn, assert.AnError)
			return
		}
		wire.WriteAck(conn, nil)
	}()
	return ln.Addr().String()
}

func TestBroadcast_IndependentPerTargetFailure(t *testing.T) {
	good := fakeConsumerWorker(t, false)
	bad := "127.0.0.1:1" // nothing listening; dial should fail fast

	b := NewBroadcaster(500*time.Millisecond, nil)
	results := b.Broadcast([]string{good, bad}, "tok", "q-1")

	require.Len(t, results, 2)
	byEndpoint := map[string]BroadcastResult{}
	for _, r := range results {
		byEndpoint[r.Endpoint] = r
	}
	require.NoError(t, byEndpoint[good].Err)
	require.Error(t, byEndpoint[bad].Err)
}
